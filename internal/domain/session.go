package domain

import (
	"fmt"
	"time"
)

// SessionStatus is the lifecycle state of a reading session.
type SessionStatus string

// Session statuses.
const (
	StatusToRead   SessionStatus = "to-read"
	StatusReadNext SessionStatus = "read-next"
	StatusReading  SessionStatus = "reading"
	StatusRead     SessionStatus = "read"
	StatusDNF      SessionStatus = "dnf"
)

// ValidStatus reports whether s is a known session status.
func ValidStatus(s SessionStatus) bool {
	switch s {
	case StatusToRead, StatusReadNext, StatusReading, StatusRead, StatusDNF:
		return true
	}
	return false
}

// ReadingSession tracks one reading attempt of a book. A book accumulates
// sessions over time (re-reads, second chances after a DNF); at most one is
// active, the rest are archived history.
type ReadingSession struct {
	ID            string        `json:"id"`
	BookID        string        `json:"book_id"`
	SessionNumber int           `json:"session_number"` // 1-based, never reused per book
	Status        SessionStatus `json:"status"`
	IsActive      bool          `json:"is_active"`
	StartedDate   string        `json:"started_date,omitempty"`   // YYYY-MM-DD
	CompletedDate string        `json:"completed_date,omitempty"` // YYYY-MM-DD
	Rating        *int          `json:"rating,omitempty"`
	Review        string        `json:"review,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// NewReadingSession creates an active session with the given number and status.
func NewReadingSession(id, bookID string, sessionNumber int, status SessionStatus) *ReadingSession {
	now := time.Now()
	return &ReadingSession{
		ID:            id,
		BookID:        bookID,
		SessionNumber: sessionNumber,
		Status:        status,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Archive marks the session inactive, preserving it as history.
func (s *ReadingSession) Archive() {
	s.IsActive = false
	s.UpdatedAt = time.Now()
}

// IsTerminal reports whether the session's status represents a finished
// attempt (read or dnf).
func (s *ReadingSession) IsTerminal() bool {
	return s.Status == StatusRead || s.Status == StatusDNF
}

// CanTransitionTo validates a status change on an active session.
//
// The one forbidden edge is dnf -> read: a reader has to pick the book back
// up (to-read/read-next/reading) before it can be completed.
func (s *ReadingSession) CanTransitionTo(target SessionStatus) error {
	if !ValidStatus(target) {
		return fmt.Errorf("invalid status %q", target)
	}
	if s.Status == StatusDNF && target == StatusRead {
		return fmt.Errorf("Cannot mark DNF book as read directly")
	}
	return nil
}

// RequiresNewSession reports whether moving the active session to target
// must start a fresh session instead of mutating in place. Leaving DNF is
// the only such case: the DNF record stays archived and untouched.
func (s *ReadingSession) RequiresNewSession(target SessionStatus) bool {
	return s.Status == StatusDNF && target != StatusDNF && target != StatusRead
}

// ValidateRating checks a 1-5 star rating.
func ValidateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be an integer between 1 and 5, got %d", rating)
	}
	return nil
}
