package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readleafapp/readleaf-server/internal/domain"
	"github.com/readleafapp/readleaf-server/internal/store"
)

func setupProgressService(t *testing.T) (*ProgressService, store.Store) {
	t.Helper()
	st := newTestStore(t)
	return NewProgressService(st, testLogger()), st
}

func TestLogProgressComputesPagesRead(t *testing.T) {
	svc, st := setupProgressService(t)
	ctx := context.Background()

	createTestBook(t, st, "book-1", 1, 300)
	createTestSession(t, st, "sess-1", "book-1", 1, domain.StatusReading)
	createTestProgress(t, st, &domain.ProgressLog{
		ID: "prog-0", BookID: "book-1", SessionID: "sess-1",
		CurrentPage: 100, CurrentPercentage: 33, PagesRead: 100,
		ProgressDate: "2025-01-01",
	})

	res, err := svc.LogProgress(ctx, "book-1", LogProgressInput{
		CurrentPage:  intp(250),
		ProgressDate: "2025-01-02",
	})
	require.NoError(t, err)

	assert.Equal(t, 250, res.Progress.CurrentPage)
	assert.Equal(t, 83, res.Progress.CurrentPercentage) // floor(250/300*100)
	assert.Equal(t, 150, res.Progress.PagesRead)
	assert.False(t, res.ShouldShowCompletionModal)
}

func TestLogProgressCompletionModal(t *testing.T) {
	svc, st := setupProgressService(t)
	ctx := context.Background()

	createTestBook(t, st, "book-2", 2, 300)
	createTestSession(t, st, "sess-2", "book-2", 1, domain.StatusReading)

	res, err := svc.LogProgress(ctx, "book-2", LogProgressInput{CurrentPage: intp(300)})
	require.NoError(t, err)

	assert.Equal(t, 100, res.Progress.CurrentPercentage)
	assert.True(t, res.ShouldShowCompletionModal)

	// The session is not auto-completed.
	sess, err := st.GetSession(ctx, "sess-2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReading, sess.Status)
	assert.True(t, sess.IsActive)
}

func TestLogProgressPercentageOnly(t *testing.T) {
	svc, st := setupProgressService(t)
	ctx := context.Background()

	createTestBook(t, st, "book-3", 3, 200)
	createTestSession(t, st, "sess-3", "book-3", 1, domain.StatusReading)

	res, err := svc.LogProgress(ctx, "book-3", LogProgressInput{CurrentPercentage: intp(50)})
	require.NoError(t, err)

	assert.Equal(t, 50, res.Progress.CurrentPercentage)
	assert.Equal(t, 100, res.Progress.CurrentPage) // round(50/100*200)
}

func TestLogProgressNoTotalPages(t *testing.T) {
	svc, st := setupProgressService(t)
	ctx := context.Background()

	createTestBook(t, st, "book-4", 4, 0)
	createTestSession(t, st, "sess-4", "book-4", 1, domain.StatusReading)

	res, err := svc.LogProgress(ctx, "book-4", LogProgressInput{CurrentPage: intp(75)})
	require.NoError(t, err)

	assert.Equal(t, 75, res.Progress.CurrentPage)
	assert.Equal(t, 0, res.Progress.CurrentPercentage)
}

func TestLogProgressValidationErrors(t *testing.T) {
	svc, st := setupProgressService(t)
	ctx := context.Background()

	createTestBook(t, st, "book-5", 5, 300)

	_, err := svc.LogProgress(ctx, "missing", LogProgressInput{CurrentPage: intp(10)})
	require.Error(t, err)
	assert.Equal(t, "Book not found", err.Error())

	_, err = svc.LogProgress(ctx, "book-5", LogProgressInput{CurrentPage: intp(10)})
	require.Error(t, err)
	assert.Equal(t, "No active reading session found for this book", err.Error())

	createTestSession(t, st, "sess-5", "book-5", 1, domain.StatusToRead)

	_, err = svc.LogProgress(ctx, "book-5", LogProgressInput{CurrentPage: intp(10)})
	require.Error(t, err)
	assert.Equal(t, "Can only log progress for books with 'reading' status", err.Error())

	sess, err := st.GetSession(ctx, "sess-5")
	require.NoError(t, err)
	sess.Status = domain.StatusReading
	require.NoError(t, st.UpdateSession(ctx, sess))

	_, err = svc.LogProgress(ctx, "book-5", LogProgressInput{})
	require.Error(t, err)
	assert.Equal(t, "Either currentPage or currentPercentage is required", err.Error())

	_, err = svc.LogProgress(ctx, "book-5", LogProgressInput{
		CurrentPage:  intp(10),
		ProgressDate: "01/05/2025",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YYYY-MM-DD")
}

func TestLogProgressTimelineConflictLeavesNoSideEffects(t *testing.T) {
	svc, st := setupProgressService(t)
	ctx := context.Background()

	createTestBook(t, st, "book-6", 6, 300)
	createTestSession(t, st, "sess-6", "book-6", 1, domain.StatusReading)
	createTestProgress(t, st, &domain.ProgressLog{
		ID: "prog-6a", BookID: "book-6", SessionID: "sess-6",
		CurrentPage: 50, ProgressDate: "2025-01-01",
	})
	createTestProgress(t, st, &domain.ProgressLog{
		ID: "prog-6b", BookID: "book-6", SessionID: "sess-6",
		CurrentPage: 200, ProgressDate: "2025-01-10",
	})

	_, err := svc.LogProgress(ctx, "book-6", LogProgressInput{
		CurrentPage:  intp(250),
		ProgressDate: "2025-01-05",
	})
	require.Error(t, err)

	var terr *TimelineError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "prog-6b", terr.Conflicting.ID)
	assert.True(t, errors.Is(err, store.ErrInvalidInput))

	// Nothing was written.
	logs, err := st.GetSessionProgress(ctx, "sess-6")
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestUpdateProgressRecomputesAgainstNeighbors(t *testing.T) {
	svc, st := setupProgressService(t)
	ctx := context.Background()

	createTestBook(t, st, "book-7", 7, 300)
	createTestSession(t, st, "sess-7", "book-7", 1, domain.StatusReading)
	createTestProgress(t, st, &domain.ProgressLog{
		ID: "prog-7a", BookID: "book-7", SessionID: "sess-7",
		CurrentPage: 50, ProgressDate: "2025-01-01",
	})
	createTestProgress(t, st, &domain.ProgressLog{
		ID: "prog-7b", BookID: "book-7", SessionID: "sess-7",
		CurrentPage: 100, PagesRead: 50, ProgressDate: "2025-01-05",
	})

	got, err := svc.UpdateProgress(ctx, "prog-7b", UpdateProgressInput{CurrentPage: intp(120)})
	require.NoError(t, err)
	assert.Equal(t, 120, got.CurrentPage)
	assert.Equal(t, 40, got.CurrentPercentage)
	// pagesRead recomputed against the chronologically previous entry.
	assert.Equal(t, 70, got.PagesRead)

	// Moving it before the first entry makes the base 0.
	got, err = svc.UpdateProgress(ctx, "prog-7b", UpdateProgressInput{
		CurrentPage:  intp(30),
		ProgressDate: strp("2024-12-20"),
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-12-20", got.ProgressDate)
	assert.Equal(t, 30, got.PagesRead)
}

func TestUpdateProgressTimelineConflict(t *testing.T) {
	svc, st := setupProgressService(t)
	ctx := context.Background()

	createTestBook(t, st, "book-8", 8, 300)
	createTestSession(t, st, "sess-8", "book-8", 1, domain.StatusReading)
	createTestProgress(t, st, &domain.ProgressLog{
		ID: "prog-8a", BookID: "book-8", SessionID: "sess-8",
		CurrentPage: 50, ProgressDate: "2025-01-01",
	})
	createTestProgress(t, st, &domain.ProgressLog{
		ID: "prog-8b", BookID: "book-8", SessionID: "sess-8",
		CurrentPage: 200, ProgressDate: "2025-01-10",
	})

	_, err := svc.UpdateProgress(ctx, "prog-8a", UpdateProgressInput{CurrentPage: intp(250)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot exceed page 200")
}

func TestUpdateProgressNotFound(t *testing.T) {
	svc, _ := setupProgressService(t)

	_, err := svc.UpdateProgress(context.Background(), "missing", UpdateProgressInput{})
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestDeleteProgress(t *testing.T) {
	svc, st := setupProgressService(t)
	ctx := context.Background()

	createTestBook(t, st, "book-9", 9, 300)
	createTestSession(t, st, "sess-9", "book-9", 1, domain.StatusReading)
	createTestProgress(t, st, &domain.ProgressLog{
		ID: "prog-9", BookID: "book-9", SessionID: "sess-9",
		CurrentPage: 50, ProgressDate: "2025-01-01",
	})

	require.NoError(t, svc.DeleteProgress(ctx, "prog-9"))

	err := svc.DeleteProgress(ctx, "prog-9")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

// recordingRebuilder captures streak maintenance invocations.
type recordingRebuilder struct {
	updates  int
	rebuilds int
}

func (r *recordingRebuilder) UpdateStreaks(context.Context, string, string) (*domain.Streak, error) {
	r.updates++
	return nil, nil
}

func (r *recordingRebuilder) RebuildStreak(context.Context, string, string) (*domain.Streak, error) {
	r.rebuilds++
	return nil, nil
}

// A same-day log takes the cheap incremental path; backdated logs and
// edits rewrite history and need the full rebuild.
func TestLogProgressStreakMaintenanceModes(t *testing.T) {
	svc, st := setupProgressService(t)
	rebuilder := &recordingRebuilder{}
	svc.SetStreakRebuilder(rebuilder)
	ctx := context.Background()

	createTestBook(t, st, "book-10", 10, 300)
	createTestSession(t, st, "sess-10", "book-10", 1, domain.StatusReading)

	// Defaulted date is today in the user's timezone.
	_, err := svc.LogProgress(ctx, "book-10", LogProgressInput{CurrentPage: intp(10)})
	require.NoError(t, err)
	assert.Equal(t, 1, rebuilder.updates)
	assert.Equal(t, 0, rebuilder.rebuilds)

	// A backdated entry can change past runs.
	_, err = svc.LogProgress(ctx, "book-10", LogProgressInput{
		CurrentPage:  intp(5),
		ProgressDate: "2020-01-01",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rebuilder.updates)
	assert.Equal(t, 1, rebuilder.rebuilds)
}

func TestUpdateAndDeleteProgressTriggerRebuild(t *testing.T) {
	svc, st := setupProgressService(t)
	rebuilder := &recordingRebuilder{}
	svc.SetStreakRebuilder(rebuilder)
	ctx := context.Background()

	createTestBook(t, st, "book-11", 11, 300)
	createTestSession(t, st, "sess-11", "book-11", 1, domain.StatusReading)
	createTestProgress(t, st, &domain.ProgressLog{
		ID: "prog-11", BookID: "book-11", SessionID: "sess-11",
		CurrentPage: 50, ProgressDate: "2025-01-01",
	})

	_, err := svc.UpdateProgress(ctx, "prog-11", UpdateProgressInput{CurrentPage: intp(60)})
	require.NoError(t, err)
	assert.Equal(t, 1, rebuilder.rebuilds)

	require.NoError(t, svc.DeleteProgress(ctx, "prog-11"))
	assert.Equal(t, 2, rebuilder.rebuilds)
	assert.Equal(t, 0, rebuilder.updates)
}
