// Package store provides storage backends for DMPipe.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/DMPipe/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists DMPipe documents in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// GetConfig returns the configuration document, creating defaults on first read.
func (s *PostgresStore) GetConfig() (models.BusinessConfig, error) {
	var doc string
	err := s.db.QueryRow(`SELECT doc FROM business_config WHERE id = 1`).Scan(&doc)
	if err == sql.ErrNoRows {
		cfg := models.DefaultBusinessConfig()
		if err := s.SaveConfig(cfg); err != nil {
			return cfg, err
		}
		slog.Info("PostgresStore created default business configuration")
		return cfg, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetConfig query failed", "error", err)
		return models.BusinessConfig{}, fmt.Errorf("failed to query config: %w", err)
	}

	var cfg models.BusinessConfig
	if err := json.Unmarshal([]byte(doc), &cfg); err != nil {
		slog.Error("PostgresStore GetConfig unmarshal failed", "error", err)
		return models.BusinessConfig{}, fmt.Errorf("failed to decode config document: %w", err)
	}
	return cfg, nil
}

// SaveConfig replaces the configuration document.
func (s *PostgresStore) SaveConfig(cfg models.BusinessConfig) error {
	doc, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config document: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO business_config (id, doc, updated_at) VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()`, string(doc))
	if err != nil {
		slog.Error("PostgresStore SaveConfig failed", "error", err)
		return fmt.Errorf("failed to save config: %w", err)
	}
	slog.Debug("PostgresStore SaveConfig succeeded", "installed", cfg.Installed, "mode", cfg.Mode)
	return nil
}

// GetIdentity returns the identity record for a sender, or nil if unseen.
func (s *PostgresStore) GetIdentity(senderID string) (*models.SenderIdentity, error) {
	var doc string
	err := s.db.QueryRow(`SELECT doc FROM identities WHERE sender_id = $1`, senderID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetIdentity query failed", "error", err, "sender_id", senderID)
		return nil, fmt.Errorf("failed to query identity for %s: %w", senderID, err)
	}
	var identity models.SenderIdentity
	if err := json.Unmarshal([]byte(doc), &identity); err != nil {
		return nil, fmt.Errorf("failed to decode identity document: %w", err)
	}
	return &identity, nil
}

// SaveIdentity creates or replaces the identity record for a sender.
func (s *PostgresStore) SaveIdentity(identity models.SenderIdentity) error {
	doc, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to encode identity document: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO identities (sender_id, doc, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (sender_id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()`,
		identity.SenderID, string(doc))
	if err != nil {
		slog.Error("PostgresStore SaveIdentity failed", "error", err, "sender_id", identity.SenderID)
		return fmt.Errorf("failed to save identity for %s: %w", identity.SenderID, err)
	}
	return nil
}

// GetSession returns the active onboarding session for a sender, or nil.
func (s *PostgresStore) GetSession(senderID string) (*models.OnboardingSession, error) {
	var doc string
	err := s.db.QueryRow(`SELECT doc FROM onboarding_sessions WHERE sender_id = $1`, senderID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSession query failed", "error", err, "sender_id", senderID)
		return nil, fmt.Errorf("failed to query session for %s: %w", senderID, err)
	}
	var session models.OnboardingSession
	if err := json.Unmarshal([]byte(doc), &session); err != nil {
		return nil, fmt.Errorf("failed to decode session document: %w", err)
	}
	return &session, nil
}

// SaveSession creates or replaces the onboarding session for a sender.
func (s *PostgresStore) SaveSession(session models.OnboardingSession) error {
	doc, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session document: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO onboarding_sessions (sender_id, doc, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (sender_id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()`,
		session.SenderID, string(doc))
	if err != nil {
		slog.Error("PostgresStore SaveSession failed", "error", err, "sender_id", session.SenderID)
		return fmt.Errorf("failed to save session for %s: %w", session.SenderID, err)
	}
	return nil
}

// DeleteSession removes the onboarding session for a sender.
func (s *PostgresStore) DeleteSession(senderID string) error {
	_, err := s.db.Exec(`DELETE FROM onboarding_sessions WHERE sender_id = $1`, senderID)
	if err != nil {
		slog.Error("PostgresStore DeleteSession failed", "error", err, "sender_id", senderID)
		return fmt.Errorf("failed to delete session for %s: %w", senderID, err)
	}
	return nil
}

// AddLead appends a lead record to the ledger.
func (s *PostgresStore) AddLead(lead models.Lead) error {
	doc, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("failed to encode lead document: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO leads (id, doc, captured_at) VALUES ($1, $2, $3)`,
		lead.ID, string(doc), lead.CapturedAt)
	if err != nil {
		slog.Error("PostgresStore AddLead failed", "error", err, "lead_id", lead.ID)
		return fmt.Errorf("failed to insert lead %s: %w", lead.ID, err)
	}
	slog.Debug("PostgresStore AddLead succeeded", "lead_id", lead.ID, "sender_id", lead.SenderID)
	return nil
}

// GetLeads returns all captured leads in capture order.
func (s *PostgresStore) GetLeads() ([]models.Lead, error) {
	rows, err := s.db.Query(`SELECT doc FROM leads ORDER BY captured_at`)
	if err != nil {
		slog.Error("PostgresStore GetLeads query failed", "error", err)
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	var leads []models.Lead
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan lead row: %w", err)
		}
		var lead models.Lead
		if err := json.Unmarshal([]byte(doc), &lead); err != nil {
			return nil, fmt.Errorf("failed to decode lead document: %w", err)
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
