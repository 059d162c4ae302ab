package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/DMPipe/internal/dedup"
	"github.com/BTreeMap/DMPipe/internal/genai"
	"github.com/BTreeMap/DMPipe/internal/models"
	"github.com/BTreeMap/DMPipe/internal/notify"
	"github.com/BTreeMap/DMPipe/internal/store"
)

// Dispatcher is the outbound side of the engine, satisfied by
// messaging.Dispatcher. Delivery is fire-and-forget; the engine never learns
// about send failures.
type Dispatcher interface {
	Deliver(ctx context.Context, to, text string)
}

// Engine drives one inbound message through the full pipeline: echo and dedup
// filtering, admin commands, the onboarding wizard, role resolution,
// deterministic knowledge lookup, AI fallback, and lead capture.
type Engine struct {
	store      store.Store
	dedup      *dedup.Cache
	resolver   *RoleResolver
	onboarding *Onboarding
	admin      *AdminInterpreter
	leads      *LeadCapture
	composer   *Composer
	dispatcher Dispatcher
}

// NewEngine wires the pipeline stages over shared dependencies.
func NewEngine(st store.Store, cache *dedup.Cache, aiClient genai.ClientInterface, notifier notify.Notifier, dispatcher Dispatcher) *Engine {
	resolver := NewRoleResolver(st)
	return &Engine{
		store:      st,
		dedup:      cache,
		resolver:   resolver,
		onboarding: NewOnboarding(st),
		admin:      NewAdminInterpreter(st, resolver),
		leads:      NewLeadCapture(st, notifier),
		composer:   NewComposer(aiClient),
		dispatcher: dispatcher,
	}
}

// HandlePayload processes every messaging event in a webhook delivery,
// sequentially and in order. Per-event failures are logged and do not stop
// the batch; the webhook must always be acknowledged.
func (e *Engine) HandlePayload(ctx context.Context, payload models.WebhookPayload) {
	for _, entry := range payload.Entry {
		for _, event := range entry.Messaging {
			if err := e.HandleEvent(ctx, event); err != nil {
				slog.Error("Engine event processing failed", "error", err, "sender_id", event.Sender.ID)
			}
		}
	}
}

// HandleEvent runs one messaging event through the pipeline.
func (e *Engine) HandleEvent(ctx context.Context, event models.MessagingEvent) error {
	if event.Message == nil || event.Sender.ID == "" {
		slog.Debug("Engine skipping non-message event")
		return nil
	}
	if event.Message.IsEcho {
		slog.Debug("Engine skipping echo event", "mid", event.Message.MID)
		return nil
	}
	if !e.dedup.ShouldProcess(event.Message.MID) {
		slog.Debug("Engine skipping duplicate event", "mid", event.Message.MID)
		return nil
	}

	senderID := event.Sender.ID
	text := strings.TrimSpace(event.Message.Text)
	slog.Debug("Engine handling message", "sender_id", senderID, "mid", event.Message.MID, "length", len(text))

	cfg, err := e.store.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Admin phrasings win over everything else, at any time, from any sender.
	if cmd, ok := MatchAdminCommand(text); ok {
		reply, err := e.admin.Execute(ctx, senderID, cmd)
		if err != nil {
			return fmt.Errorf("admin command failed: %w", err)
		}
		e.dispatcher.Deliver(ctx, senderID, reply)
		return nil
	}

	// An in-flight onboarding session consumes the message next, so wizard
	// answers are never misread as questions.
	session, err := e.store.GetSession(senderID)
	if err != nil {
		return fmt.Errorf("failed to load onboarding session: %w", err)
	}
	if session != nil {
		reply, err := e.onboarding.Advance(ctx, session, text)
		if err != nil {
			return fmt.Errorf("onboarding advance failed: %w", err)
		}
		e.dispatcher.Deliver(ctx, senderID, reply)
		return nil
	}

	role, err := e.resolver.Resolve(ctx, senderID, text, cfg.Installed)
	if err != nil {
		return err
	}

	// Pre-launch, an owner greeting or setup intent opens the wizard.
	if !cfg.Installed && role == models.RoleOwner && (LooksLikeOwnerIntent(text) || LooksLikeGreeting(text)) {
		if err := e.sendIntroIfNeeded(ctx, senderID); err != nil {
			slog.Warn("Engine intro delivery bookkeeping failed", "error", err, "sender_id", senderID)
		}
		reply, err := e.onboarding.Begin(ctx, senderID)
		if err != nil {
			return fmt.Errorf("onboarding begin failed: %w", err)
		}
		e.dispatcher.Deliver(ctx, senderID, reply)
		return nil
	}

	if _, err := e.leads.MaybeCapture(ctx, senderID, text, role); err != nil {
		// Lead loss is logged but must not block the reply.
		slog.Error("Engine lead capture failed", "error", err, "sender_id", senderID)
	}

	// Deterministic knowledge first; the model is only consulted on a miss.
	if answer, ok := Lookup(cfg, text); ok {
		slog.Debug("Engine answered from knowledge lookup", "sender_id", senderID)
		e.dispatcher.Deliver(ctx, senderID, answer)
		return nil
	}

	reply := e.composer.Answer(ctx, role, cfg, text)
	e.dispatcher.Deliver(ctx, senderID, reply)
	return nil
}

// sendIntroIfNeeded delivers the one-time capability intro before the wizard
// opens, and records that it was sent so repeat greetings skip it.
func (e *Engine) sendIntroIfNeeded(ctx context.Context, senderID string) error {
	identity, err := e.store.GetIdentity(senderID)
	if err != nil {
		return fmt.Errorf("failed to load identity for %s: %w", senderID, err)
	}
	now := time.Now()
	if identity == nil {
		identity = &models.SenderIdentity{SenderID: senderID, CreatedAt: now}
	}
	if identity.IntroSent {
		return nil
	}
	e.dispatcher.Deliver(ctx, senderID, introMessage)
	identity.IntroSent = true
	identity.UpdatedAt = now
	if err := e.store.SaveIdentity(*identity); err != nil {
		return fmt.Errorf("failed to persist intro flag for %s: %w", senderID, err)
	}
	return nil
}
