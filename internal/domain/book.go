// Package domain contains the core business entities and domain logic for
// the ReadLeaf reading tracker.
package domain

import "time"

// Book represents a book ingested from the Calibre library.
//
// Metadata ownership stays with Calibre; the tracker only reads TotalPages
// and writes Rating when a reading session completes.
type Book struct {
	ID         string    `json:"id"`
	CalibreID  int64     `json:"calibre_id"`
	Title      string    `json:"title"`
	Authors    []string  `json:"authors,omitempty"`
	TotalPages *int      `json:"total_pages,omitempty"` // nil = page tracking unavailable
	Rating     *int      `json:"rating,omitempty"`      // 1-5, set on completion
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HasTotalPages reports whether page-based progress tracking is possible.
func (b *Book) HasTotalPages() bool {
	return b.TotalPages != nil && *b.TotalPages > 0
}
