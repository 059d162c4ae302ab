// Package messaging provides the outbound delivery abstraction for DMPipe.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Service defines a pluggable message delivery abstraction.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient
	// identifier. Each service implements its own recipient rules.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a single message to a recipient. One call, no retry;
	// retry policy belongs to the Dispatcher.
	SendMessage(ctx context.Context, to string, body string) error
}

// InstagramSender is the minimal surface of the Instagram client consumed
// here, declared locally so tests can substitute a mock.
type InstagramSender interface {
	SendMessage(ctx context.Context, recipientID, text string) error
}

// InstagramService implements Service on the Graph Send API client.
type InstagramService struct {
	client InstagramSender
}

// NewInstagramService creates an InstagramService wrapping the given sender.
func NewInstagramService(client InstagramSender) *InstagramService {
	slog.Debug("InstagramService created")
	return &InstagramService{client: client}
}

// ValidateAndCanonicalizeRecipient trims whitespace and rejects empty ids.
// Instagram-scoped user ids are opaque; no further normalization applies.
func (s *InstagramService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	canonical := strings.TrimSpace(recipient)
	if canonical == "" {
		return "", fmt.Errorf("recipient id is empty")
	}
	return canonical, nil
}

// SendMessage sends a message through the Instagram client.
func (s *InstagramService) SendMessage(ctx context.Context, to string, body string) error {
	slog.Debug("InstagramService SendMessage invoked", "to", to, "body_length", len(body))
	return s.client.SendMessage(ctx, to, body)
}
