// Package store provides storage backends for DMPipe.
//
// Every backend exposes the same document-oriented contract: the business
// configuration is a single JSON document, sender identities and onboarding
// sessions are JSON documents keyed by sender id, and leads are an append-only
// ledger. Reads and writes are whole-document; no backend offers field-level
// persistence.
package store

import (
	"strings"

	"github.com/BTreeMap/DMPipe/internal/models"
)

// Store defines the persistence contract consumed by the orchestration engine.
type Store interface {
	// GetConfig returns the business configuration document, creating the
	// default document if none has been saved yet.
	GetConfig() (models.BusinessConfig, error)

	// SaveConfig replaces the business configuration document.
	SaveConfig(cfg models.BusinessConfig) error

	// GetIdentity returns the identity record for a sender, or nil if the
	// sender has never been seen.
	GetIdentity(senderID string) (*models.SenderIdentity, error)

	// SaveIdentity creates or replaces the identity record for a sender.
	SaveIdentity(identity models.SenderIdentity) error

	// GetSession returns the active onboarding session for a sender, or nil.
	GetSession(senderID string) (*models.OnboardingSession, error)

	// SaveSession creates or replaces the onboarding session for a sender.
	SaveSession(session models.OnboardingSession) error

	// DeleteSession removes the onboarding session for a sender. Deleting a
	// missing session is not an error.
	DeleteSession(senderID string) error

	// AddLead appends a lead record to the ledger. Leads are never mutated.
	AddLead(lead models.Lead) error

	// GetLeads returns all captured leads in capture order.
	GetLeads() ([]models.Lead, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithSQLiteDSN sets a SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets a PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite". PostgreSQL DSNs
// use URL or key=value forms; anything else is treated as a SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}
