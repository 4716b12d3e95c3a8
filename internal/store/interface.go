// Package store defines the persistence interface for the ReadLeaf server.
package store

import (
	"context"

	"github.com/readleafapp/readleaf-server/internal/domain"
)

// SearchIndexer keeps the search index in sync with book writes. The store
// calls it after mutations so callers never have to remember to.
type SearchIndexer interface {
	IndexBook(ctx context.Context, book *domain.Book) error
	DeleteBook(ctx context.Context, bookID string) error
}

// NoopSearchIndexer is a no-op implementation for testing.
type NoopSearchIndexer struct{}

// IndexBook is a no-op.
func (NoopSearchIndexer) IndexBook(context.Context, *domain.Book) error { return nil }

// DeleteBook is a no-op.
func (NoopSearchIndexer) DeleteBook(context.Context, string) error { return nil }

// NewNoopSearchIndexer creates a new no-op search indexer for testing.
func NewNoopSearchIndexer() SearchIndexer {
	return NoopSearchIndexer{}
}

// Store defines the interface for all persistence operations.
type Store interface {
	// Lifecycle
	Close() error
	SetSearchIndexer(indexer SearchIndexer)

	// Books
	CreateBook(ctx context.Context, book *domain.Book) error
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	GetBookByCalibreID(ctx context.Context, calibreID int64) (*domain.Book, error)
	UpdateBook(ctx context.Context, book *domain.Book) error
	ListBooks(ctx context.Context) ([]*domain.Book, error)
	DeleteBook(ctx context.Context, id string) error

	// Reading sessions
	CreateSession(ctx context.Context, session *domain.ReadingSession) error
	GetSession(ctx context.Context, id string) (*domain.ReadingSession, error)
	GetActiveSession(ctx context.Context, bookID string) (*domain.ReadingSession, error)
	GetBookSessions(ctx context.Context, bookID string) ([]*domain.ReadingSession, error)
	UpdateSession(ctx context.Context, session *domain.ReadingSession) error
	TouchSession(ctx context.Context, id string) error
	NextSessionNumber(ctx context.Context, bookID string) (int, error)

	// Progress logs
	CreateProgress(ctx context.Context, log *domain.ProgressLog) error
	GetProgress(ctx context.Context, id string) (*domain.ProgressLog, error)
	GetSessionProgress(ctx context.Context, sessionID string) ([]*domain.ProgressLog, error)
	GetLatestProgress(ctx context.Context, sessionID string) (*domain.ProgressLog, error)
	ListAllProgress(ctx context.Context) ([]*domain.ProgressLog, error)
	UpdateProgress(ctx context.Context, log *domain.ProgressLog) error
	DeleteProgress(ctx context.Context, id string) error

	// Streaks
	GetStreak(ctx context.Context, userID string) (*domain.Streak, error)
	UpsertStreak(ctx context.Context, streak *domain.Streak) error
}
