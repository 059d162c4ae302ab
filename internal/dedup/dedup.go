// Package dedup suppresses re-processing of webhook deliveries that the
// platform redelivers.
//
// The cache is keyed exclusively on the platform-provided message id, never a
// derived hash, so a genuinely new message can never be dropped. Entries live
// in process memory only; redelivery after a restart is not deduplicated.
package dedup

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Default cache configuration constants
const (
	// DefaultRetention is how long a message id is remembered.
	DefaultRetention = 5 * time.Minute
	// DefaultSweepInterval is how often expired entries are evicted.
	DefaultSweepInterval = 60 * time.Second
)

// Opts holds configuration options for the cache.
type Opts struct {
	Retention     time.Duration
	SweepInterval time.Duration
}

// Option defines a configuration option for the cache.
type Option func(*Opts)

// WithRetention overrides the retention window.
func WithRetention(d time.Duration) Option {
	return func(o *Opts) { o.Retention = d }
}

// WithSweepInterval overrides the sweep interval.
func WithSweepInterval(d time.Duration) Option {
	return func(o *Opts) { o.SweepInterval = d }
}

// Cache is an in-memory message-id deduplication cache with periodic eviction.
type Cache struct {
	mu            sync.Mutex
	seen          map[string]time.Time
	retention     time.Duration
	sweepInterval time.Duration
}

// NewCache creates a cache with the given options.
func NewCache(opts ...Option) *Cache {
	cfg := Opts{
		Retention:     DefaultRetention,
		SweepInterval: DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("Dedup cache created", "retention", cfg.Retention, "sweep_interval", cfg.SweepInterval)
	return &Cache{
		seen:          make(map[string]time.Time),
		retention:     cfg.Retention,
		sweepInterval: cfg.SweepInterval,
	}
}

// ShouldProcess reports whether a message with the given id should be
// processed. An empty id always returns true since there is nothing to key on.
// Otherwise the first sighting within the retention window returns true and
// records the id; repeats return false.
func (c *Cache) ShouldProcess(messageID string) bool {
	if messageID == "" {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if firstSeen, ok := c.seen[messageID]; ok && now.Sub(firstSeen) < c.retention {
		slog.Debug("Dedup cache suppressed duplicate message", "message_id", messageID)
		return false
	}
	c.seen[messageID] = now
	return true
}

// Len returns the number of entries currently held.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// Start launches the background sweep that evicts expired entries to bound
// memory. The sweep stops when ctx is cancelled.
func (c *Cache) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.sweepInterval)
		defer ticker.Stop()
		slog.Debug("Dedup cache sweep started", "interval", c.sweepInterval)
		for {
			select {
			case <-ticker.C:
				c.sweep()
			case <-ctx.Done():
				slog.Debug("Dedup cache sweep stopping due to context cancellation")
				return
			}
		}
	}()
}

func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	evicted := 0
	for id, firstSeen := range c.seen {
		if now.Sub(firstSeen) >= c.retention {
			delete(c.seen, id)
			evicted++
		}
	}
	if evicted > 0 {
		slog.Debug("Dedup cache sweep evicted entries", "evicted", evicted, "remaining", len(c.seen))
	}
}
