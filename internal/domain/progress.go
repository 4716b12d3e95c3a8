package domain

import (
	"fmt"
	"math"
	"time"
)

// ProgressLog is a dated measurement of reading position within a session.
type ProgressLog struct {
	ID                string    `json:"id"`
	BookID            string    `json:"book_id"`
	SessionID         string    `json:"session_id"`
	CurrentPage       int       `json:"current_page"`
	CurrentPercentage int       `json:"current_percentage"` // 0-100
	PagesRead         int       `json:"pages_read"`         // vs the previously created entry
	ProgressDate      string    `json:"progress_date"`      // YYYY-MM-DD
	Notes             string    `json:"notes,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ProgressValue is a tagged union of the two ways a reader can report
// position: an absolute page number or a percentage. Exactly one is
// authoritative; the other metric is derived from the book's total pages.
type ProgressValue struct {
	page       int
	percentage int
	isPage     bool
}

// PageValue reports position as an absolute page number.
func PageValue(page int) ProgressValue {
	return ProgressValue{page: page, isPage: true}
}

// PercentageValue reports position as a percentage of the book.
func PercentageValue(pct int) ProgressValue {
	return ProgressValue{percentage: pct}
}

// IsPage reports whether the page number is the authoritative metric.
func (v ProgressValue) IsPage() bool { return v.isPage }

// Page returns the raw page number (only meaningful when IsPage).
func (v ProgressValue) Page() int { return v.page }

// Percentage returns the raw percentage (only meaningful when !IsPage).
func (v ProgressValue) Percentage() int { return v.percentage }

// Validate checks the reported value's range.
func (v ProgressValue) Validate() error {
	if v.isPage {
		if v.page < 0 {
			return fmt.Errorf("currentPage must be >= 0, got %d", v.page)
		}
		return nil
	}
	if v.percentage < 0 || v.percentage > 100 {
		return fmt.Errorf("currentPercentage must be between 0 and 100, got %d", v.percentage)
	}
	return nil
}

// Resolve derives the (page, percentage) pair from the authoritative value
// and the book's total pages. Without a page count the percentage stays 0
// for page input, and percentage input resolves to page 0: only the
// authoritative metric is meaningful then.
func (v ProgressValue) Resolve(totalPages *int) (page, percentage int) {
	total := 0
	if totalPages != nil {
		total = *totalPages
	}
	if v.isPage {
		page = v.page
		if total > 0 {
			percentage = int(math.Floor(float64(page) / float64(total) * 100))
			if percentage > 100 {
				percentage = 100
			}
		}
		return page, percentage
	}
	percentage = v.percentage
	if total > 0 {
		page = int(math.Round(float64(percentage) / 100 * float64(total)))
	}
	return page, percentage
}
