package flow

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/BTreeMap/DMPipe/internal/models"
	"github.com/BTreeMap/DMPipe/internal/notify"
	"github.com/BTreeMap/DMPipe/internal/store"
)

// leadRules detect contact-sharing intent. Order decides the reason tag when
// several patterns would match. Duplicate leads from the same sender are
// intentional; the record is append-only and every signal counts.
var leadRules = []struct {
	reason  string
	pattern *regexp.Regexp
}{
	{"whatsapp", regexp.MustCompile(`(?i)\bwhatsapp\b`)},
	{"email", regexp.MustCompile(`(?i)\bemail\b`)},
	{"mention", regexp.MustCompile(`@`)},
	{"domain", regexp.MustCompile(`(?i)\.(com|co|net|org|io)\b`)},
	{"phone", regexp.MustCompile(`(?i)\bphone\b`)},
	{"phone_number", regexp.MustCompile(`\+\d`)},
}

// MatchLeadReason reports whether the text carries contact-sharing intent and
// which rule recognized it.
func MatchLeadReason(text string) (string, bool) {
	for _, rule := range leadRules {
		if rule.pattern.MatchString(text) {
			return rule.reason, true
		}
	}
	return "", false
}

// LeadCapture persists contact intent from customers and alerts the owner.
type LeadCapture struct {
	store    store.Store
	notifier notify.Notifier
}

// NewLeadCapture creates the capture stage. A nil notifier falls back to the
// no-op notifier.
func NewLeadCapture(st store.Store, notifier notify.Notifier) *LeadCapture {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	return &LeadCapture{store: st, notifier: notifier}
}

// MaybeCapture records a lead when the message carries contact intent and the
// sender is a customer. Owners never generate leads. Returns whether a lead
// was captured. Notification failures are logged, never raised; the lead is
// already safe in the store by then.
func (l *LeadCapture) MaybeCapture(ctx context.Context, senderID, text string, role models.Role) (bool, error) {
	if role != models.RoleCustomer {
		return false, nil
	}
	reason, ok := MatchLeadReason(text)
	if !ok {
		return false, nil
	}

	lead := models.Lead{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		RawText:    text,
		Reason:     reason,
		Status:     models.LeadStatusNew,
		CapturedAt: time.Now(),
	}
	if err := l.store.AddLead(lead); err != nil {
		return false, fmt.Errorf("failed to store lead: %w", err)
	}
	slog.Info("LeadCapture recorded lead", "lead_id", lead.ID, "sender_id", senderID, "reason", reason)

	if err := l.notifier.NotifyLead(ctx, lead); err != nil {
		slog.Warn("LeadCapture owner notification failed", "error", err, "lead_id", lead.ID)
	}
	return true, nil
}
