package domain

import "time"

// SessionStatus is the lifecycle state of a coaching session.
type SessionStatus string

const (
	SessionStatusPlanned   SessionStatus = "planned"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusPlanned, SessionStatusCompleted, SessionStatusCancelled:
		return true
	}
	return false
}

// Session is a single coaching appointment.
//
// Billed only becomes true when an invoice referencing the session leaves
// draft status. Sessions covered by a package (PackageID set) are billed
// through the package and never appear as unbilled.
type Session struct {
	ID              string        `json:"id"`
	CoacheeID       *string       `json:"coacheeId"`
	Date            time.Time     `json:"date"`
	DurationMinutes int           `json:"durationMinutes,omitempty"`
	Topic           string        `json:"topic,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	Status          SessionStatus `json:"status"`
	Billed          bool          `json:"billed"`
	PackageID       *string       `json:"packageId,omitempty"`
}

// BelongsTo reports whether the session is assigned to the given coachee.
func (s Session) BelongsTo(coacheeID string) bool {
	return s.CoacheeID != nil && *s.CoacheeID == coacheeID
}

// Unbilled reports whether the session can become an invoice line for
// coacheeID: completed, not yet billed and not covered by a package.
func (s Session) Unbilled(coacheeID string) bool {
	return s.BelongsTo(coacheeID) &&
		s.Status == SessionStatusCompleted &&
		!s.Billed &&
		s.PackageID == nil
}
