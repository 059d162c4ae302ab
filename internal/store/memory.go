package store

import (
	"sync"

	"github.com/BTreeMap/DMPipe/internal/models"
)

// InMemoryStore is the default backend when no database DSN is configured.
// All documents live for the process lifetime only.
type InMemoryStore struct {
	mu         sync.RWMutex
	config     *models.BusinessConfig
	identities map[string]models.SenderIdentity
	sessions   map[string]models.OnboardingSession
	leads      []models.Lead
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		identities: make(map[string]models.SenderIdentity),
		sessions:   make(map[string]models.OnboardingSession),
	}
}

// GetConfig returns the configuration document, creating defaults on first read.
func (s *InMemoryStore) GetConfig() (models.BusinessConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config == nil {
		cfg := models.DefaultBusinessConfig()
		s.config = &cfg
	}
	return *s.config, nil
}

// SaveConfig replaces the configuration document.
func (s *InMemoryStore) SaveConfig(cfg models.BusinessConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = &cfg
	return nil
}

// GetIdentity returns the identity record for a sender, or nil if unseen.
func (s *InMemoryStore) GetIdentity(senderID string) (*models.SenderIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[senderID]
	if !ok {
		return nil, nil
	}
	return &identity, nil
}

// SaveIdentity creates or replaces the identity record for a sender.
func (s *InMemoryStore) SaveIdentity(identity models.SenderIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[identity.SenderID] = identity
	return nil
}

// GetSession returns the active onboarding session for a sender, or nil.
func (s *InMemoryStore) GetSession(senderID string) (*models.OnboardingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[senderID]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

// SaveSession creates or replaces the onboarding session for a sender.
func (s *InMemoryStore) SaveSession(session models.OnboardingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.SenderID] = session
	return nil
}

// DeleteSession removes the onboarding session for a sender.
func (s *InMemoryStore) DeleteSession(senderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, senderID)
	return nil
}

// AddLead appends a lead record to the ledger.
func (s *InMemoryStore) AddLead(lead models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads = append(s.leads, lead)
	return nil
}

// GetLeads returns all captured leads in capture order.
func (s *InMemoryStore) GetLeads() ([]models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	leads := make([]models.Lead, len(s.leads))
	copy(leads, s.leads)
	return leads, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
