// Package notify alerts the business owner out-of-band when a lead is captured.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/BTreeMap/DMPipe/internal/models"
)

// Notifier delivers lead alerts to the owner. Implementations must be
// best-effort; a failed notification never blocks lead capture.
type Notifier interface {
	NotifyLead(ctx context.Context, lead models.Lead) error
}

// NoopNotifier is used when no notification channel is configured.
type NoopNotifier struct{}

// NotifyLead does nothing.
func (NoopNotifier) NotifyLead(ctx context.Context, lead models.Lead) error {
	return nil
}

// Opts holds configuration options for the SMS notifier.
type Opts struct {
	AccountSID  string
	AuthToken   string
	FromNumber  string
	OwnerNumber string
}

// Option defines a configuration option for the SMS notifier.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFromNumber sets the sending phone number.
func WithFromNumber(from string) Option {
	return func(o *Opts) { o.FromNumber = from }
}

// WithOwnerNumber sets the owner's phone number that receives lead alerts.
func WithOwnerNumber(to string) Option {
	return func(o *Opts) { o.OwnerNumber = to }
}

// SMSNotifier sends lead alerts to the owner's phone via Twilio SMS.
type SMSNotifier struct {
	client      *twilio.RestClient
	fromNumber  string
	ownerNumber string
}

// NewSMSNotifier creates an SMS notifier. Options fall back to the TWILIO_*
// environment variables.
func NewSMSNotifier(opts ...Option) (*SMSNotifier, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromNumber == "" {
		cfg.FromNumber = os.Getenv("TWILIO_FROM_NUMBER")
	}
	if cfg.OwnerNumber == "" {
		cfg.OwnerNumber = os.Getenv("TWILIO_OWNER_NUMBER")
	}
	slog.Debug("Twilio notifier config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"FromNumber_set", cfg.FromNumber != "",
		"OwnerNumber_set", cfg.OwnerNumber != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromNumber == "" || cfg.OwnerNumber == "" {
		return nil, fmt.Errorf("from and owner numbers must be provided")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &SMSNotifier{
		client:      client,
		fromNumber:  cfg.FromNumber,
		ownerNumber: cfg.OwnerNumber,
	}, nil
}

// NotifyLead sends a short SMS summary of the captured lead to the owner.
func (n *SMSNotifier) NotifyLead(ctx context.Context, lead models.Lead) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(n.ownerNumber)
	params.SetFrom(n.fromNumber)
	params.SetBody(fmt.Sprintf("New lead (%s) from %s: %s", lead.Reason, lead.SenderID, lead.RawText))

	_, err := n.client.Api.CreateMessage(params)
	if err != nil {
		slog.Error("Twilio lead notification failed", "error", err, "lead_id", lead.ID)
		return fmt.Errorf("failed to send lead notification: %w", err)
	}
	slog.Debug("Twilio lead notification sent", "lead_id", lead.ID)
	return nil
}
