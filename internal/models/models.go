// Package models defines core data structures shared across DMPipe components.
//
// It covers the business configuration document, sender identities, onboarding
// sessions, captured leads, and the Instagram webhook payload shapes.
package models

import "time"

// Role classifies who is talking to the agent.
type Role string

const (
	// RoleUnknown means no classification has been recorded yet.
	RoleUnknown Role = ""
	// RoleOwner is the business operator configuring and administering the agent.
	RoleOwner Role = "owner"
	// RoleCustomer is an end user messaging the business.
	RoleCustomer Role = "customer"
)

// Mode is the deployment posture of the agent.
type Mode string

const (
	// ModeSandbox keeps the agent inactive toward customers.
	ModeSandbox Mode = "sandbox"
	// ModeSoftLaunch answers customers with limited interactions.
	ModeSoftLaunch Mode = "softlaunch"
	// ModeProd is fully live.
	ModeProd Mode = "prod"
)

// FAQEntry is a configured question/answer pair used by the knowledge lookup.
type FAQEntry struct {
	Question string `json:"q"`
	Answer   string `json:"a"`
}

// BusinessConfig is the single mutable configuration document per deployment.
type BusinessConfig struct {
	Brand            string          `json:"brand,omitempty"`
	About            string          `json:"about,omitempty"`
	PackageText      string          `json:"package_text,omitempty"`
	PolicyText       string          `json:"policy_text,omitempty"`
	AvailabilityText string          `json:"availability_text,omitempty"`
	Address          string          `json:"address,omitempty"`
	Hours            string          `json:"hours,omitempty"`
	Phone            string          `json:"phone,omitempty"`
	Mode             Mode            `json:"mode"`
	Installed        bool            `json:"installed"`
	Admins           map[string]bool `json:"admins,omitempty"`
	FAQ              []FAQEntry      `json:"faq,omitempty"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// DefaultBusinessConfig returns the configuration created at first boot.
func DefaultBusinessConfig() BusinessConfig {
	return BusinessConfig{
		Mode:      ModeSandbox,
		Installed: false,
		Admins:    make(map[string]bool),
		UpdatedAt: time.Now(),
	}
}

// SetMode updates the operating mode and keeps the installed flag linked to it.
// Sandbox always means not installed; softlaunch and prod always mean installed,
// so installed=true can never coexist with mode=sandbox.
func (c *BusinessConfig) SetMode(m Mode) {
	c.Mode = m
	c.Installed = m != ModeSandbox
	c.UpdatedAt = time.Now()
}

// IsAdmin reports whether the given sender id has been designated an admin.
func (c *BusinessConfig) IsAdmin(senderID string) bool {
	return c.Admins[senderID]
}

// AddAdmin designates the sender id as an admin identity.
func (c *BusinessConfig) AddAdmin(senderID string) {
	if c.Admins == nil {
		c.Admins = make(map[string]bool)
	}
	c.Admins[senderID] = true
	c.UpdatedAt = time.Now()
}

// SenderIdentity records what the engine knows about a platform-scoped sender id.
// Created on first message from a new id and never deleted.
type SenderIdentity struct {
	SenderID  string    `json:"sender_id"`
	Role      Role      `json:"role"`
	IntroSent bool      `json:"intro_sent"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OnboardingStep enumerates the onboarding wizard states.
type OnboardingStep int

const (
	// StepNone means no active onboarding session.
	StepNone OnboardingStep = 0
	// StepBrand collects the brand name.
	StepBrand OnboardingStep = 1
	// StepPackage collects the offer/package description.
	StepPackage OnboardingStep = 2
	// StepPolicy collects the policy text.
	StepPolicy OnboardingStep = 3
	// StepAvailability collects the availability text.
	StepAvailability OnboardingStep = 4
	// StepConfirm awaits the go-live confirmation.
	StepConfirm OnboardingStep = 5
)

// String returns a readable name for logging.
func (s OnboardingStep) String() string {
	switch s {
	case StepBrand:
		return "collect-brand"
	case StepPackage:
		return "collect-offer"
	case StepPolicy:
		return "collect-policy"
	case StepAvailability:
		return "collect-availability"
	case StepConfirm:
		return "confirm-launch"
	default:
		return "none"
	}
}

// OnboardingDraft holds the partially collected business profile.
type OnboardingDraft struct {
	Brand            string `json:"brand,omitempty"`
	PackageText      string `json:"package_text,omitempty"`
	PolicyText       string `json:"policy_text,omitempty"`
	AvailabilityText string `json:"availability_text,omitempty"`
}

// OnboardingSession is the multi-step wizard state for one owner sender.
// Deleted on completion; never left dangling after the confirm step.
type OnboardingSession struct {
	SenderID  string          `json:"sender_id"`
	Step      OnboardingStep  `json:"step"`
	Draft     OnboardingDraft `json:"draft"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// LeadStatus is the lifecycle state of a captured lead.
type LeadStatus string

// LeadStatusNew is the only status this engine ever writes; downstream
// consumers own any further transitions.
const LeadStatusNew LeadStatus = "new"

// Lead is an immutable, append-only record of customer contact intent.
type Lead struct {
	ID         string     `json:"id"`
	SenderID   string     `json:"sender_id"`
	RawText    string     `json:"raw_text"`
	Reason     string     `json:"reason"`
	Status     LeadStatus `json:"status"`
	CapturedAt time.Time  `json:"captured_at"`
}
