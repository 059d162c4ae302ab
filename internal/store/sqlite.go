// Package store provides storage backends for DMPipe.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/BTreeMap/DMPipe/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists DMPipe documents in a local SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path; missing parent directories are created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// GetConfig returns the configuration document, creating defaults on first read.
func (s *SQLiteStore) GetConfig() (models.BusinessConfig, error) {
	var doc string
	err := s.db.QueryRow(`SELECT doc FROM business_config WHERE id = 1`).Scan(&doc)
	if err == sql.ErrNoRows {
		cfg := models.DefaultBusinessConfig()
		if err := s.SaveConfig(cfg); err != nil {
			return cfg, err
		}
		slog.Info("SQLiteStore created default business configuration")
		return cfg, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetConfig query failed", "error", err)
		return models.BusinessConfig{}, fmt.Errorf("failed to query config: %w", err)
	}

	var cfg models.BusinessConfig
	if err := json.Unmarshal([]byte(doc), &cfg); err != nil {
		slog.Error("SQLiteStore GetConfig unmarshal failed", "error", err)
		return models.BusinessConfig{}, fmt.Errorf("failed to decode config document: %w", err)
	}
	return cfg, nil
}

// SaveConfig replaces the configuration document.
func (s *SQLiteStore) SaveConfig(cfg models.BusinessConfig) error {
	doc, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config document: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO business_config (id, doc, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, updated_at = CURRENT_TIMESTAMP`, string(doc))
	if err != nil {
		slog.Error("SQLiteStore SaveConfig failed", "error", err)
		return fmt.Errorf("failed to save config: %w", err)
	}
	slog.Debug("SQLiteStore SaveConfig succeeded", "installed", cfg.Installed, "mode", cfg.Mode)
	return nil
}

// GetIdentity returns the identity record for a sender, or nil if unseen.
func (s *SQLiteStore) GetIdentity(senderID string) (*models.SenderIdentity, error) {
	var doc string
	err := s.db.QueryRow(`SELECT doc FROM identities WHERE sender_id = ?`, senderID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetIdentity query failed", "error", err, "sender_id", senderID)
		return nil, fmt.Errorf("failed to query identity for %s: %w", senderID, err)
	}
	var identity models.SenderIdentity
	if err := json.Unmarshal([]byte(doc), &identity); err != nil {
		return nil, fmt.Errorf("failed to decode identity document: %w", err)
	}
	return &identity, nil
}

// SaveIdentity creates or replaces the identity record for a sender.
func (s *SQLiteStore) SaveIdentity(identity models.SenderIdentity) error {
	doc, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to encode identity document: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO identities (sender_id, doc, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(sender_id) DO UPDATE SET doc = excluded.doc, updated_at = CURRENT_TIMESTAMP`,
		identity.SenderID, string(doc))
	if err != nil {
		slog.Error("SQLiteStore SaveIdentity failed", "error", err, "sender_id", identity.SenderID)
		return fmt.Errorf("failed to save identity for %s: %w", identity.SenderID, err)
	}
	return nil
}

// GetSession returns the active onboarding session for a sender, or nil.
func (s *SQLiteStore) GetSession(senderID string) (*models.OnboardingSession, error) {
	var doc string
	err := s.db.QueryRow(`SELECT doc FROM onboarding_sessions WHERE sender_id = ?`, senderID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetSession query failed", "error", err, "sender_id", senderID)
		return nil, fmt.Errorf("failed to query session for %s: %w", senderID, err)
	}
	var session models.OnboardingSession
	if err := json.Unmarshal([]byte(doc), &session); err != nil {
		return nil, fmt.Errorf("failed to decode session document: %w", err)
	}
	return &session, nil
}

// SaveSession creates or replaces the onboarding session for a sender.
func (s *SQLiteStore) SaveSession(session models.OnboardingSession) error {
	doc, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session document: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO onboarding_sessions (sender_id, doc, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(sender_id) DO UPDATE SET doc = excluded.doc, updated_at = CURRENT_TIMESTAMP`,
		session.SenderID, string(doc))
	if err != nil {
		slog.Error("SQLiteStore SaveSession failed", "error", err, "sender_id", session.SenderID)
		return fmt.Errorf("failed to save session for %s: %w", session.SenderID, err)
	}
	return nil
}

// DeleteSession removes the onboarding session for a sender.
func (s *SQLiteStore) DeleteSession(senderID string) error {
	_, err := s.db.Exec(`DELETE FROM onboarding_sessions WHERE sender_id = ?`, senderID)
	if err != nil {
		slog.Error("SQLiteStore DeleteSession failed", "error", err, "sender_id", senderID)
		return fmt.Errorf("failed to delete session for %s: %w", senderID, err)
	}
	return nil
}

// AddLead appends a lead record to the ledger.
func (s *SQLiteStore) AddLead(lead models.Lead) error {
	doc, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("failed to encode lead document: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO leads (id, doc, captured_at) VALUES (?, ?, ?)`,
		lead.ID, string(doc), lead.CapturedAt)
	if err != nil {
		slog.Error("SQLiteStore AddLead failed", "error", err, "lead_id", lead.ID)
		return fmt.Errorf("failed to insert lead %s: %w", lead.ID, err)
	}
	slog.Debug("SQLiteStore AddLead succeeded", "lead_id", lead.ID, "sender_id", lead.SenderID)
	return nil
}

// GetLeads returns all captured leads in capture order.
func (s *SQLiteStore) GetLeads() ([]models.Lead, error) {
	rows, err := s.db.Query(`SELECT doc FROM leads ORDER BY captured_at`)
	if err != nil {
		slog.Error("SQLiteStore GetLeads query failed", "error", err)
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
