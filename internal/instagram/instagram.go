// Package instagram implements the outbound Instagram messaging client on the
// Facebook Graph Send API.
//
// There is no official Go SDK for the Graph API, so this package speaks plain
// HTTPS+JSON. It also handles the token plumbing around the Send API: exchanging
// a short-lived user token for a long-lived one, and discovering the page
// access token from a long-lived user token.
package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Graph API constants
const (
	// DefaultBaseURL is the Graph API endpoint root, pinned to one version.
	DefaultBaseURL = "https://graph.facebook.com/v23.0"
	// DefaultHTTPTimeout bounds every Graph API call.
	DefaultHTTPTimeout = 10 * time.Second
	// SubcodeNoMatchingUser is the Graph error subcode reported when there is
	// no matching conversation participant (echoed message, or the messaging
	// window has closed).
	SubcodeNoMatchingUser = 2018001
)

// ErrNoMatchingUser marks the benign delivery failure for a recipient the
// Send API cannot reach. Callers treat it as a silent drop, not an error.
var ErrNoMatchingUser = errors.New("no matching conversation participant")

// GraphError is a machine-readable error returned by the Graph API.
type GraphError struct {
	Message    string `json:"message"`
	Type       string `json:"type"`
	Code       int    `json:"code"`
	Subcode    int    `json:"error_subcode"`
	HTTPStatus int    `json:"-"`
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	return fmt.Sprintf("graph API error (status=%d code=%d subcode=%d): %s", e.HTTPStatus, e.Code, e.Subcode, e.Message)
}

// Unwrap maps the no-matching-user subcode onto its sentinel so callers can
// test with errors.Is.
func (e *GraphError) Unwrap() error {
	if e.Subcode == SubcodeNoMatchingUser {
		return ErrNoMatchingUser
	}
	return nil
}

// Opts holds configuration options for the Instagram client.
type Opts struct {
	AccessToken string
	UserToken   string
	PageID      string
	BaseURL     string
	HTTPClient  *http.Client
}

// Option defines a configuration option for the Instagram client.
type Option func(*Opts)

// WithAccessToken sets the page access token used for Send API calls.
func WithAccessToken(token string) Option {
	return func(o *Opts) { o.AccessToken = token }
}

// WithUserToken sets a long-lived user token, used to discover the page token
// at bootstrap when no page token is configured directly.
func WithUserToken(token string) Option {
	return func(o *Opts) { o.UserToken = token }
}

// WithPageID sets the page/conversation target identifier.
func WithPageID(id string) Option {
	return func(o *Opts) { o.PageID = id }
}

// WithBaseURL overrides the Graph API endpoint root (used by tests).
func WithBaseURL(u string) Option {
	return func(o *Opts) { o.BaseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// Client sends Instagram direct messages through the Graph Send API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	pageID      string
	accessToken string
	userToken   string
}

// NewClient creates an Instagram client. A page id is required; the access
// token may be resolved later via ResolvePageToken when only a long-lived
// user token is configured.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{BaseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.PageID == "" {
		return nil, fmt.Errorf("page ID must be provided")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	slog.Debug("Instagram client created",
		"page_id", cfg.PageID,
		"access_token_set", cfg.AccessToken != "",
		"user_token_set", cfg.UserToken != "")
	return &Client{
		httpClient:  cfg.HTTPClient,
		baseURL:     cfg.BaseURL,
		pageID:      cfg.PageID,
		accessToken: cfg.AccessToken,
		userToken:   cfg.UserToken,
	}, nil
}

// HasAccessToken reports whether a page access token is available.
func (c *Client) HasAccessToken() bool {
	return c.accessToken != ""
}

// PageID returns the configured page identifier.
func (c *Client) PageID() string {
	return c.pageID
}

// sendRequest is the Send API request body.
type sendRequest struct {
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
}

// SendMessage posts a text reply to the given Instagram-scoped user id.
// A GraphError with the no-matching-user subcode unwraps to ErrNoMatchingUser.
func (c *Client) SendMessage(ctx context.Context, recipientID, text string) error {
	if text == "" {
		return nil
	}
	if c.accessToken == "" {
		return fmt.Errorf("page access token not set")
	}

	var req sendRequest
	req.Recipient.ID = recipientID
	req.Message.Text = text
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode send request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/messages?access_token=%s", c.baseURL, c.pageID, url.QueryEscape(c.accessToken))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build send request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		slog.Error("Instagram SendMessage transport error", "error", err, "recipient", recipientID)
		return fmt.Errorf("send request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		slog.Debug("Instagram message sent", "recipient", recipientID, "body_length", len(text))
		return nil
	}

	graphErr := decodeGraphError(resp)
	slog.Debug("Instagram SendMessage rejected", "recipient", recipientID, "code", graphErr.Code, "subcode", graphErr.Subcode)
	return graphErr
}

// decodeGraphError extracts the structured error payload from a non-2xx
// response, falling back to the raw body when the payload is not JSON.
func decodeGraphError(resp *http.Response) *GraphError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var envelope struct {
		Error GraphError `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Error.Message == "" {
		return &GraphError{Message: string(raw), HTTPStatus: resp.StatusCode}
	}
	graphErr := envelope.Error
	graphErr.HTTPStatus = resp.StatusCode
	return &graphErr
}
