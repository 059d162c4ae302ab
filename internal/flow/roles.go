// Package flow implements the conversation orchestration engine: role
// resolution, the onboarding wizard, admin commands, knowledge lookup, AI
// fallback, and lead capture.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/BTreeMap/DMPipe/internal/models"
	"github.com/BTreeMap/DMPipe/internal/store"
)

// Intent pattern families. Precedence is declared here, in one place, so the
// classifiers stay independently testable.
var (
	ownerIntentPattern    = regexp.MustCompile(`(?i)(connect|set ?up|setup|integrat|use your bot|owner|we are|i am|my business|our page|meta|instagram api|replace sales|need your ai)`)
	customerIntentPattern = regexp.MustCompile(`(?i)(price|pricing|cost|how much|book|booking|availability|available|package|refund|session)`)
	greetingPattern       = regexp.MustCompile(`(?i)^(hi|hello|hey|good\s+(morning|afternoon|evening))\b`)
)

// LooksLikeOwnerIntent reports whether the text reads like a business operator
// trying to set up or administer the agent.
func LooksLikeOwnerIntent(text string) bool {
	return ownerIntentPattern.MatchString(text)
}

// LooksLikeCustomerIntent reports whether the text reads like a prospective
// customer inquiry.
func LooksLikeCustomerIntent(text string) bool {
	return customerIntentPattern.MatchString(text)
}

// LooksLikeGreeting reports whether the text opens with a greeting.
func LooksLikeGreeting(text string) bool {
	return greetingPattern.MatchString(text)
}

// RoleResolver classifies senders as owner or customer and remembers the
// classification. A recorded role is sticky: it never silently flips, only a
// manual override changes it.
type RoleResolver struct {
	store store.Store
}

// NewRoleResolver creates a resolver backed by the given store.
func NewRoleResolver(st store.Store) *RoleResolver {
	return &RoleResolver{store: st}
}

// Resolve returns the role for a sender. Priority: previously recorded role,
// then customer-by-default once the business is installed, then the intent
// heuristics. When both or neither pattern family matches pre-launch, the
// sender is treated as the operator, the safer default for pre-launch traffic.
// The resolved role is persisted immediately so future messages skip the
// heuristics.
func (r *RoleResolver) Resolve(ctx context.Context, senderID, messageText string, installed bool) (models.Role, error) {
	identity, err := r.store.GetIdentity(senderID)
	if err != nil {
		return models.RoleUnknown, fmt.Errorf("failed to load identity for %s: %w", senderID, err)
	}
	if identity != nil && identity.Role != models.RoleUnknown {
		slog.Debug("RoleResolver returning sticky role", "sender_id", senderID, "role", identity.Role)
		return identity.Role, nil
	}

	var role models.Role
	switch {
	case installed:
		// A live business assumes DMs come from prospective clients.
		role = models.RoleCustomer
	default:
		ownerHit := LooksLikeOwnerIntent(messageText)
		customerHit := LooksLikeCustomerIntent(messageText)
		if customerHit && !ownerHit {
			role = models.RoleCustomer
		} else {
			role = models.RoleOwner
		}
	}

	now := time.Now()
	if identity == nil {
		identity = &models.SenderIdentity{SenderID: senderID, CreatedAt: now}
	}
	identity.Role = role
	identity.UpdatedAt = now
	if err := r.store.SaveIdentity(*identity); err != nil {
		return models.RoleUnknown, fmt.Errorf("failed to persist role for %s: %w", senderID, err)
	}
	slog.Info("RoleResolver classified sender", "sender_id", senderID, "role", role, "installed", installed)
	return role, nil
}

// Override records a manual role classification, replacing any sticky memory.
func (r *RoleResolver) Override(ctx context.Context, senderID string, role models.Role) error {
	identity, err := r.store.GetIdentity(senderID)
	if err != nil {
		return fmt.Errorf("failed to load identity for %s: %w", senderID, err)
	}
	now := time.Now()
	if identity == nil {
		identity = &models.SenderIdentity{SenderID: senderID, CreatedAt: now}
	}
	identity.Role = role
	identity.UpdatedAt = now
	if err := r.store.SaveIdentity(*identity); err != nil {
		return fmt.Errorf("failed to persist role override for %s: %w", senderID, err)
	}
	slog.Info("RoleResolver manual override applied", "sender_id", senderID, "role", role)
	return nil
}

// Clear erases the sticky role memory so the next message re-runs the
// heuristics. Other identity attributes (intro suppression) are kept.
func (r *RoleResolver) Clear(ctx context.Context, senderID string) error {
	identity, err := r.store.GetIdentity(senderID)
	if err != nil {
		return fmt.Errorf("failed to load identity for %s: %w", senderID, err)
	}
	if identity == nil {
		return nil
	}
	identity.Role = models.RoleUnknown
	identity.UpdatedAt = time.Now()
	if err := r.store.SaveIdentity(*identity); err != nil {
		return fmt.Errorf("failed to clear role for %s: %w", senderID, err)
	}
	slog.Info("RoleResolver sticky role cleared", "sender_id", senderID)
	return nil
}
