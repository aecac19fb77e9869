package domain

import (
	"strings"
	"time"
)

// CoacheeStatus is the lifecycle state of a coachee.
type CoacheeStatus string

const (
	CoacheeStatusPotential CoacheeStatus = "potential"
	CoacheeStatusActive    CoacheeStatus = "active"
	CoacheeStatusPaused    CoacheeStatus = "paused"
	CoacheeStatusCompleted CoacheeStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s CoacheeStatus) Valid() bool {
	switch s {
	case CoacheeStatusPotential, CoacheeStatusActive, CoacheeStatusPaused, CoacheeStatusCompleted:
		return true
	}
	return false
}

// ConsentType names a policy a coachee can agree to.
// The set is open; the constants below are the ones the practice ships with.
type ConsentType string

const (
	ConsentPrivacy   ConsentType = "privacy"
	ConsentAgreement ConsentType = "agreement"
	ConsentRecording ConsentType = "recording"
)

// UnknownCoacheeName is shown wherever a reference points at a coachee that
// no longer exists.
const UnknownCoacheeName = "Unknown coachee"

// Coachee is a client of the practice and the root most other data attaches to.
//
// Documents are not embedded here. The Documents collection is authoritative
// and the store keeps a derived coachee → documents index.
type Coachee struct {
	ID         string          `json:"id"`
	FirstName  string          `json:"firstName"`
	LastName   string          `json:"lastName"`
	Email      string          `json:"email,omitempty"`
	Phone      string          `json:"phone,omitempty"`
	Status     CoacheeStatus   `json:"status"`
	Consents   map[string]bool `json:"consents,omitempty"`
	Goals      []string        `json:"goals,omitempty"`
	CustomData map[string]any  `json:"customData,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// DisplayName returns "First Last", falling back to the email or id.
func (c Coachee) DisplayName() string {
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	switch {
	case name != "":
		return name
	case c.Email != "":
		return c.Email
	default:
		return c.ID
	}
}

// HasConsent reports whether consent of the given type was granted.
func (c Coachee) HasConsent(t ConsentType) bool {
	return c.Consents[string(t)]
}

// Clone returns a deep copy so the result can be modified without touching
// snapshots that still reference c.
func (c Coachee) Clone() Coachee {
	out := c
	if c.Consents != nil {
		out.Consents = make(map[string]bool, len(c.Consents))
		for k, v := range c.Consents {
			out.Consents[k] = v
		}
	}
	if c.Goals != nil {
		out.Goals = append([]string(nil), c.Goals...)
	}
	if c.CustomData != nil {
		out.CustomData = make(map[string]any, len(c.CustomData))
		for k, v := range c.CustomData {
			out.CustomData[k] = v
		}
	}
	return out
}
