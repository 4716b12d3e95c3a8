package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/readleafapp/readleaf-server/internal/calibre"
	"github.com/readleafapp/readleaf-server/internal/domain"
	"github.com/readleafapp/readleaf-server/internal/id"
	"github.com/readleafapp/readleaf-server/internal/store"
)

// CalibreSource provides book metadata from a Calibre library.
type CalibreSource interface {
	ReadBooks(ctx context.Context) ([]calibre.Book, error)
}

// BookSearcher resolves a free-text query to book IDs, best match first.
type BookSearcher interface {
	SearchBooks(ctx context.Context, query string, limit int) ([]string, error)
}

// NoopBookSearcher matches nothing. Used when no index is configured.
type NoopBookSearcher struct{}

// SearchBooks returns no matches.
func (NoopBookSearcher) SearchBooks(context.Context, string, int) ([]string, error) {
	return nil, nil
}

// LibraryService ingests Calibre metadata and serves the book catalog.
type LibraryService struct {
	store    store.Store
	calibre  CalibreSource
	searcher BookSearcher
	logger   *slog.Logger
}

// NewLibraryService creates a new library service. calibre may be nil when
// no library path is configured; ingest then reports an error.
func NewLibraryService(st store.Store, cal CalibreSource, logger *slog.Logger) *LibraryService {
	return &LibraryService{
		store:    st,
		calibre:  cal,
		searcher: NoopBookSearcher{},
		logger:   logger,
	}
}

// SetSearcher sets the full-text searcher.
func (s *LibraryService) SetSearcher(searcher BookSearcher) {
	s.searcher = searcher
}

// IngestResult summarizes one Calibre ingest pass.
type IngestResult struct {
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

// IngestCalibre scans the Calibre library and upserts books keyed by their
// Calibre ID. Title and authors follow Calibre; the count_pages custom
// column seeds totalPages but never overwrites a locally set value, and
// the tracker's own rating stays local.
func (s *LibraryService) IngestCalibre(ctx context.Context) (*IngestResult, error) {
	if s.calibre == nil {
		return nil, store.ErrInvalidInput.WithMessage("No Calibre library configured")
	}

	entries, err := s.calibre.ReadBooks(ctx)
	if err != nil {
		return nil, err
	}

	result := &IngestResult{}
	for _, entry := range entries {
		existing, err := s.store.GetBookByCalibreID(ctx, entry.CalibreID)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
			bookID, err := id.Generate(id.PrefixBook)
			if err != nil {
				return nil, err
			}
			now := time.Now()
			book := &domain.Book{
				ID:         bookID,
				CalibreID:  entry.CalibreID,
				Title:      entry.Title,
				Authors:    entry.Authors,
				Rating:     entry.Rating,
				TotalPages: entry.Pages,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := s.store.CreateBook(ctx, book); err != nil {
				return nil, err
			}
			result.Added++
			continue
		}

		seedPages := existing.TotalPages == nil && entry.Pages != nil
		if existing.Title == entry.Title && equalAuthors(existing.Authors, entry.Authors) && !seedPages {
			result.Unchanged++
			continue
		}
		existing.Title = entry.Title
		existing.Authors = entry.Authors
		if seedPages {
			existing.TotalPages = entry.Pages
		}
		if err := s.store.UpdateBook(ctx, existing); err != nil {
			return nil, err
		}
		result.Updated++
	}

	s.logger.Info("calibre ingest complete",
		"added", result.Added, "updated", result.Updated, "unchanged", result.Unchanged)
	return result, nil
}

// ListBooks returns the full catalog.
func (s *LibraryService) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	return s.store.ListBooks(ctx)
}

// GetBook returns one book by ID.
func (s *LibraryService) GetBook(ctx context.Context, bookID string) (*domain.Book, error) {
	return s.store.GetBook(ctx, bookID)
}

// UpdateBookInput carries the tracker-owned book fields.
type UpdateBookInput struct {
	TotalPages *int
	Rating     *float64
}

// UpdateBook edits the tracker-owned fields of a book. Setting totalPages
// is what enables page-based progress tracking for it.
func (s *LibraryService) UpdateBook(ctx context.Context, bookID string, in UpdateBookInput) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if in.TotalPages != nil {
		if *in.TotalPages <= 0 {
			return nil, store.ErrInvalidInput.WithMessage("totalPages must be a positive integer")
		}
		book.TotalPages = in.TotalPages
	}
	if in.Rating != nil {
		rating, err := ratingFromInput(in.Rating)
		if err != nil {
			return nil, err
		}
		book.Rating = rating
	}
	if err := s.store.UpdateBook(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

// SearchBooks runs a full-text query over the catalog.
func (s *LibraryService) SearchBooks(ctx context.Context, query string, limit int) ([]*domain.Book, error) {
	if limit <= 0 {
		limit = 20
	}
	ids, err := s.searcher.SearchBooks(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	books := make([]*domain.Book, 0, len(ids))
	for _, bookID := range ids {
		book, err := s.store.GetBook(ctx, bookID)
		if err != nil {
			// Index can lag a deletion; skip the stale hit.
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}
		books = append(books, book)
	}
	return books, nil
}

func equalAuthors(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
