package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// ExchangeLongLivedToken trades a short-lived user token for a long-lived one
// using the fb_exchange_token grant. Returns the token and its lifetime in
// seconds.
func (c *Client) ExchangeLongLivedToken(ctx context.Context, appID, appSecret, shortToken string) (string, int64, error) {
	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", appID)
	params.Set("client_secret", appSecret)
	params.Set("fb_exchange_token", shortToken)

	endpoint := fmt.Sprintf("%s/oauth/access_token?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to build token exchange request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("token exchange request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", 0, decodeGraphError(resp)
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, fmt.Errorf("failed to decode token exchange response: %w", err)
	}
	slog.Info("Exchanged short-lived token for long-lived token", "expires_in_seconds", out.ExpiresIn)
	return out.AccessToken, out.ExpiresIn, nil
}

// UpgradeUserToken exchanges the configured user token for a long-lived one
// and keeps the result for subsequent page-token discovery. It is a no-op
// when no user token is configured.
func (c *Client) UpgradeUserToken(ctx context.Context, appID, appSecret string) error {
	if c.userToken == "" {
		return nil
	}
	token, expiresIn, err := c.ExchangeLongLivedToken(ctx, appID, appSecret, c.userToken)
	if err != nil {
		return fmt.Errorf("failed to upgrade user token: %w", err)
	}
	c.userToken = token
	slog.Info("User token upgraded to long-lived token", "expires_in_seconds", expiresIn)
	return nil
}

// ResolvePageToken discovers the page access token from the configured
// long-lived user token via /me/accounts. It is a no-op when a page token is
// already set or no user token is available.
func (c *Client) ResolvePageToken(ctx context.Context) error {
	if c.accessToken != "" || c.userToken == "" {
		return nil
	}

	endpoint := fmt.Sprintf("%s/me/accounts?access_token=%s", c.baseURL, url.QueryEscape(c.userToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build accounts request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("accounts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeGraphError(resp)
	}

	var out struct {
		Data []struct {
			ID          string `json:"id"`
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("failed to decode accounts response: %w", err)
	}

	for _, page := range out.Data {
		if page.ID == c.pageID && page.AccessToken != "" {
			c.accessToken = page.AccessToken
			slog.Info("Page access token resolved from user token", "page_id", c.pageID)
			return nil
		}
	}
	return fmt.Errorf("page %s not found among user's accounts", c.pageID)
}
