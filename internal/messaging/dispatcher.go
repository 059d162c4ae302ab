package messaging

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BTreeMap/DMPipe/internal/instagram"
	"github.com/BTreeMap/DMPipe/internal/util"
)

// Retry policy constants
const (
	// DefaultMaxAttempts is how many times a delivery is tried in total.
	DefaultMaxAttempts = 3
	// DefaultBaseDelay is the first inter-attempt delay; it doubles each attempt.
	DefaultBaseDelay = 250 * time.Millisecond
)

// DispatcherOpts holds configuration options for the dispatcher.
type DispatcherOpts struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DispatcherOption defines a configuration option for the dispatcher.
type DispatcherOption func(*DispatcherOpts)

// WithMaxAttempts overrides the total attempt count.
func WithMaxAttempts(n int) DispatcherOption {
	return func(o *DispatcherOpts) { o.MaxAttempts = n }
}

// WithBaseDelay overrides the initial backoff delay.
func WithBaseDelay(d time.Duration) DispatcherOption {
	return func(o *DispatcherOpts) { o.BaseDelay = d }
}

// Dispatcher delivers replies with bounded exponential-backoff retry. From the
// caller's perspective delivery is fire-and-forget: exhausted retries are
// logged, never raised.
type Dispatcher struct {
	svc         Service
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(d time.Duration) // swapped out in tests
}

// NewDispatcher creates a Dispatcher over the given delivery service.
func NewDispatcher(svc Service, opts ...DispatcherOption) *Dispatcher {
	cfg := DispatcherOpts{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("Dispatcher created", "max_attempts", cfg.MaxAttempts, "base_delay", cfg.BaseDelay)
	return &Dispatcher{
		svc:         svc,
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
		sleep:       time.Sleep,
	}
}

// Deliver sends text to the recipient, retrying transient failures with a
// doubling backoff plus jitter. The no-matching-user condition is benign
// (echoed message or closed messaging window): logged at Warn and dropped
// without retry. Nothing is returned; the conversation must never stall on a
// delivery failure.
func (d *Dispatcher) Deliver(ctx context.Context, to, text string) {
	if text == "" {
		return
	}

	canonical, err := d.svc.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("Dispatcher invalid recipient", "error", err, "to", to)
		return
	}

	delay := d.baseDelay
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		err = d.svc.SendMessage(ctx, canonical, text)
		if err == nil {
			slog.Info("Dispatcher delivered reply", "to", canonical, "attempt", attempt)
			return
		}
		if errors.Is(err, instagram.ErrNoMatchingUser) {
			slog.Warn("Dispatcher skipping unreachable recipient", "to", canonical, "reason", "no matching conversation participant")
			return
		}
		slog.Debug("Dispatcher delivery attempt failed", "error", err, "to", canonical, "attempt", attempt)
		if attempt < d.maxAttempts {
			if ctx.Err() != nil {
				slog.Debug("Dispatcher aborting retries, context done", "to", canonical)
				return
			}
			// Jitter stays below half the base step so delays remain strictly
			// increasing across attempts.
			d.sleep(delay + util.Jitter(delay/2))
			delay *= 2
		}
	}
	slog.Error("Dispatcher gave up after retries", "error", err, "to", canonical, "attempts", d.maxAttempts)
}
