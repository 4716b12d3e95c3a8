package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/readleafapp/readleaf-server/internal/domain"
	"github.com/readleafapp/readleaf-server/internal/store"
	"github.com/readleafapp/readleaf-server/internal/store/sqlite"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func createTestBook(t *testing.T, st store.Store, bookID string, calibreID int64, totalPages int) *domain.Book {
	t.Helper()
	now := time.Now()
	book := &domain.Book{
		ID:        bookID,
		CalibreID: calibreID,
		Title:     "Test Book " + bookID,
		Authors:   []string{"Test Author"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if totalPages > 0 {
		book.TotalPages = &totalPages
	}
	require.NoError(t, st.CreateBook(context.Background(), book))
	return book
}

func createTestSession(t *testing.T, st store.Store, sessID, bookID string, number int, status domain.SessionStatus) *domain.ReadingSession {
	t.Helper()
	sess := domain.NewReadingSession(sessID, bookID, number, status)
	require.NoError(t, st.CreateSession(context.Background(), sess))
	return sess
}

func createTestProgress(t *testing.T, st store.Store, entry *domain.ProgressLog) *domain.ProgressLog {
	t.Helper()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
		entry.UpdatedAt = entry.CreatedAt
	}
	require.NoError(t, st.CreateProgress(context.Background(), entry))
	return entry
}

func intp(v int) *int { return &v }
func floatp(v float64) *float64 { return &v }
func strp(v string) *string { return &v }
