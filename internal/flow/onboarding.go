package flow

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/BTreeMap/DMPipe/internal/models"
	"github.com/BTreeMap/DMPipe/internal/store"
)

// Confirmation classifiers for the final wizard step.
var (
	affirmativePattern = regexp.MustCompile(`(?i)(^\s*yes\b|go live)`)
	negativePattern    = regexp.MustCompile(`(?i)^\s*not\b`)
)

// Wizard copy, one prompt per step.
const (
	introMessage = "Hi! I can replace a sales rep: answer DMs, qualify leads, store them, and learn over time. Let me connect your business, I'll ask a few quick questions."

	promptBrand        = "Great, let's get you set up. First, what's your brand name?"
	promptPackage      = "Thanks. Describe your starter package in one line (what's included and the price)."
	promptPolicy       = "Got it. What's your policy (reschedule, refunds, edits)?"
	promptAvailability = "And your typical availability? (e.g. \"within 7-10 days\" or specific slots)"
	promptConfirm      = "Perfect, I've saved your brand, package, policy, and availability.\nWould you like me to go live now and answer customers as your sales manager?\nReply: Yes or Not yet."
	promptConfirmAgain = "Please reply Yes or Not yet."

	ackLive    = "✅ Live. I'll now answer customers directly from your business profile."
	ackSandbox = "Saved in sandbox mode. Say \"Go live\" anytime to switch."
)

// Onboarding runs the five-step setup wizard that collects the business
// profile over DM. Steps advance strictly in order; there is no way to skip
// ahead or back up.
type Onboarding struct {
	store store.Store
}

// NewOnboarding creates the wizard over the given store.
func NewOnboarding(st store.Store) *Onboarding {
	return &Onboarding{store: st}
}

// Begin opens a session at the first step, grants the sender admin rights,
// and returns the opening question.
func (o *Onboarding) Begin(ctx context.Context, senderID string) (string, error) {
	cfg, err := o.store.GetConfig()
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}
	cfg.AddAdmin(senderID)
	if err := o.store.SaveConfig(cfg); err != nil {
		return "", fmt.Errorf("failed to save config: %w", err)
	}

	now := time.Now()
	session := models.OnboardingSession{
		SenderID:  senderID,
		Step:      models.StepBrand,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.store.SaveSession(session); err != nil {
		return "", fmt.Errorf("failed to save onboarding session: %w", err)
	}
	slog.Info("Onboarding session started", "sender_id", senderID)
	return promptBrand, nil
}

// Advance feeds one reply into the wizard and returns the next prompt. Any
// non-empty text advances the current step; empty text re-asks it. The draft
// is committed to the business config when the availability answer lands, so
// the confirmation step only decides the mode.
func (o *Onboarding) Advance(ctx context.Context, session *models.OnboardingSession, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return o.promptFor(session.Step), nil
	}

	switch session.Step {
	case models.StepBrand:
		session.Draft.Brand = text
		return o.step(session, models.StepPackage, promptPackage)
	case models.StepPackage:
		session.Draft.PackageText = text
		return o.step(session, models.StepPolicy, promptPolicy)
	case models.StepPolicy:
		session.Draft.PolicyText = text
		return o.step(session, models.StepAvailability, promptAvailability)
	case models.StepAvailability:
		session.Draft.AvailabilityText = text
		if err := o.commitDraft(session.Draft); err != nil {
			return "", err
		}
		return o.step(session, models.StepConfirm, promptConfirm)
	case models.StepConfirm:
		return o.confirm(session, text)
	default:
		// Unknown step means the session record is corrupt; drop it.
		slog.Warn("Onboarding discarding session with unknown step", "sender_id", session.SenderID, "step", int(session.Step))
		if err := o.store.DeleteSession(session.SenderID); err != nil {
			return "", fmt.Errorf("failed to delete onboarding session: %w", err)
		}
		return "", nil
	}
}

func (o *Onboarding) step(session *models.OnboardingSession, next models.OnboardingStep, prompt string) (string, error) {
	session.Step = next
	session.UpdatedAt = time.Now()
	if err := o.store.SaveSession(*session); err != nil {
		return "", fmt.Errorf("failed to save onboarding session: %w", err)
	}
	slog.Debug("Onboarding advanced", "sender_id", session.SenderID, "step", next.String())
	return prompt, nil
}

// commitDraft writes the collected answers into the business config without
// changing the mode; going live stays an explicit decision.
func (o *Onboarding) commitDraft(draft models.OnboardingDraft) error {
	cfg, err := o.store.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Brand = draft.Brand
	cfg.PackageText = draft.PackageText
	cfg.PolicyText = draft.PolicyText
	cfg.AvailabilityText = draft.AvailabilityText
	cfg.UpdatedAt = time.Now()
	if err := o.store.SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func (o *Onboarding) confirm(session *models.OnboardingSession, text string) (string, error) {
	switch {
	case affirmativePattern.MatchString(text):
		if err := o.setMode(models.ModeProd); err != nil {
			return "", err
		}
		if err := o.store.DeleteSession(session.SenderID); err != nil {
			return "", fmt.Errorf("failed to delete onboarding session: %w", err)
		}
		slog.Info("Onboarding completed, business live", "sender_id", session.SenderID)
		return ackLive, nil
	case negativePattern.MatchString(text):
		if err := o.setMode(models.ModeSandbox); err != nil {
			return "", err
		}
		if err := o.store.DeleteSession(session.SenderID); err != nil {
			return "", fmt.Errorf("failed to delete onboarding session: %w", err)
		}
		slog.Info("Onboarding completed, staying in sandbox", "sender_id", session.SenderID)
		return ackSandbox, nil
	default:
		return promptConfirmAgain, nil
	}
}

func (o *Onboarding) setMode(mode models.Mode) error {
	cfg, err := o.store.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.SetMode(mode)
	if err := o.store.SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func (o *Onboarding) promptFor(step models.OnboardingStep) string {
	switch step {
	case models.StepBrand:
		return promptBrand
	case models.StepPackage:
		return promptPackage
	case models.StepPolicy:
		return promptPolicy
	case models.StepAvailability:
		return promptAvailability
	case models.StepConfirm:
		return promptConfirmAgain
	default:
		return promptBrand
	}
}
