package service

import (
	"fmt"

	"github.com/readleafapp/readleaf-server/internal/domain"
	"github.com/readleafapp/readleaf-server/internal/store"
)

// timelineCandidate is a prospective (date, value) pair to be checked
// against a session's existing progress entries.
type timelineCandidate struct {
	Date      string
	Value     domain.ProgressValue
	ExcludeID string // entry being edited, skipped entirely
}

// TimelineError reports a monotonicity conflict. Successor conflicts carry
// the entry the candidate collided with so the UI can point at it.
type TimelineError struct {
	Message     string
	Conflicting *domain.ProgressLog
}

func (e *TimelineError) Error() string { return e.Message }

// Unwrap maps timeline conflicts to the invalid-input class for HTTP,
// keeping the conflict message on the unwrapped error so handlers that
// match by type still see it.
func (e *TimelineError) Unwrap() error { return store.ErrInvalidInput.WithMessage(e.Message) }

// validateTimeline checks that accepting the candidate keeps the session's
// progress monotone over progressDate. Entries are compared in the
// candidate's unit; entries sharing the candidate's exact date are
// coincident and excluded from the check (same-day supersede semantics).
// An empty session is always valid.
func validateTimeline(entries []*domain.ProgressLog, cand timelineCandidate) *TimelineError {
	var predecessor, successor *domain.ProgressLog

	for _, e := range entries {
		if e.ID == cand.ExcludeID || e.ProgressDate == cand.Date {
			continue
		}
		if e.ProgressDate < cand.Date {
			if predecessor == nil || e.ProgressDate > predecessor.ProgressDate {
				predecessor = e
			}
		} else {
			if successor == nil || e.ProgressDate < successor.ProgressDate {
				successor = e
			}
		}
	}

	if predecessor != nil && candidateValue(cand) < entryValue(predecessor, cand) {
		return &TimelineError{
			Message: fmt.Sprintf("progress cannot be less than %s, logged on %s",
				formatValue(entryValue(predecessor, cand), cand), predecessor.ProgressDate),
		}
	}
	if successor != nil && candidateValue(cand) > entryValue(successor, cand) {
		return &TimelineError{
			Message: fmt.Sprintf("progress cannot exceed %s, logged on %s",
				formatValue(entryValue(successor, cand), cand), successor.ProgressDate),
			Conflicting: successor,
		}
	}
	return nil
}

// candidateValue returns the candidate's raw value in its own unit.
func candidateValue(cand timelineCandidate) int {
	if cand.Value.IsPage() {
		return cand.Value.Page()
	}
	return cand.Value.Percentage()
}

// entryValue returns an existing entry's value in the candidate's unit.
// Entries store both metrics, derived at write time from the book's page
// count, so no re-derivation is needed here.
func entryValue(e *domain.ProgressLog, cand timelineCandidate) int {
	if cand.Value.IsPage() {
		return e.CurrentPage
	}
	return e.CurrentPercentage
}

func formatValue(v int, cand timelineCandidate) string {
	if cand.Value.IsPage() {
		return fmt.Sprintf("page %d", v)
	}
	return fmt.Sprintf("%d%%", v)
}
