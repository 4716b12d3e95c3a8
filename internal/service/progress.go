package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/readleafapp/readleaf-server/internal/dates"
	"github.com/readleafapp/readleaf-server/internal/domain"
	"github.com/readleafapp/readleaf-server/internal/id"
	"github.com/readleafapp/readleaf-server/internal/store"
)

// DefaultUserID is the single-user identity everything is recorded under.
const DefaultUserID = ""

// StreakRebuilder triggers streak maintenance after progress mutations.
// This avoids a circular dependency between ProgressService and
// StreakService. UpdateStreaks is the cheap same-day increment;
// RebuildStreak is the full-history recompute.
type StreakRebuilder interface {
	UpdateStreaks(ctx context.Context, userID, currentDate string) (*domain.Streak, error)
	RebuildStreak(ctx context.Context, userID, currentDate string) (*domain.Streak, error)
}

// NoopStreakRebuilder is a no-op implementation for testing.
type NoopStreakRebuilder struct{}

// UpdateStreaks is a no-op.
func (NoopStreakRebuilder) UpdateStreaks(context.Context, string, string) (*domain.Streak, error) {
	return nil, nil
}

// RebuildStreak is a no-op.
func (NoopStreakRebuilder) RebuildStreak(context.Context, string, string) (*domain.Streak, error) {
	return nil, nil
}

// ProgressService manages progress logs for reading sessions.
type ProgressService struct {
	store   store.Store
	streaks StreakRebuilder
	logger  *slog.Logger
}

// NewProgressService creates a new progress service.
func NewProgressService(st store.Store, logger *slog.Logger) *ProgressService {
	return &ProgressService{
		store:   st,
		streaks: NoopStreakRebuilder{},
		logger:  logger,
	}
}

// SetStreakRebuilder sets the streak rebuilder.
// This is set after construction to avoid circular dependencies.
func (s *ProgressService) SetStreakRebuilder(r StreakRebuilder) {
	s.streaks = r
}

// LogProgressInput carries one reported reading position. Exactly one of
// CurrentPage and CurrentPercentage must be set; when both are, the page
// number is authoritative.
type LogProgressInput struct {
	CurrentPage       *int
	CurrentPercentage *int
	Notes             string
	ProgressDate      string // YYYY-MM-DD, defaults to today in the user's timezone
}

// LogProgressResult is the outcome of logging progress.
type LogProgressResult struct {
	Progress *domain.ProgressLog `json:"progress"`
	// ShouldShowCompletionModal is true when the entry reached 100% but the
	// session is still "reading". Completing is a separate explicit action.
	ShouldShowCompletionModal bool `json:"should_show_completion_modal"`
}

// LogProgress records a new progress entry for a book's active session.
// The session must have status "reading". Validation happens strictly
// before persistence, so a rejected entry leaves no side effects.
func (s *ProgressService) LogProgress(ctx context.Context, bookID string, in LogProgressInput) (*LogProgressResult, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	sess, err := s.store.GetActiveSession(ctx, bookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrNotFound.WithMessage("No active reading session found for this book")
		}
		return nil, err
	}
	if sess.Status != domain.StatusReading {
		return nil, store.ErrInvalidInput.WithMessage("Can only log progress for books with 'reading' status")
	}

	value, err := progressValue(in.CurrentPage, in.CurrentPercentage)
	if err != nil {
		return nil, err
	}

	progressDate := in.ProgressDate
	if progressDate == "" {
		loc, err := s.userLocation(ctx)
		if err != nil {
			return nil, err
		}
		progressDate = dates.Today(loc)
	} else if _, err := dates.ParseDay(progressDate); err != nil {
		return nil, store.ErrInvalidInput.WithMessage(err.Error())
	}

	entries, err := s.store.GetSessionProgress(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if terr := validateTimeline(entries, timelineCandidate{Date: progressDate, Value: value}); terr != nil {
		return nil, terr
	}

	page, percentage := value.Resolve(book.TotalPages)

	// pagesRead is measured against the most recently created entry in the
	// session, which is not necessarily the latest by date.
	previousPage := 0
	latest, err := s.store.GetLatestProgress(ctx, sess.ID)
	if err == nil {
		previousPage = latest.CurrentPage
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	logID, err := id.Generate(id.PrefixProgress)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	entry := &domain.ProgressLog{
		ID:                logID,
		BookID:            bookID,
		SessionID:         sess.ID,
		CurrentPage:       page,
		CurrentPercentage: percentage,
		PagesRead:         max(0, page-previousPage),
		ProgressDate:      progressDate,
		Notes:             in.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.CreateProgress(ctx, entry); err != nil {
		return nil, err
	}

	// Bump the session so recency sorting reflects the new activity.
	if err := s.store.TouchSession(ctx, sess.ID); err != nil {
		s.logger.Warn("failed to touch session after progress", "session_id", sess.ID, "error", err)
	}

	s.notifyProgressChanged(ctx, progressDate)

	return &LogProgressResult{
		Progress:                  entry,
		ShouldShowCompletionModal: percentage >= 100 && sess.Status == domain.StatusReading,
	}, nil
}

// UpdateProgressInput carries partial updates to an existing entry. A nil
// field keeps the stored value.
type UpdateProgressInput struct {
	CurrentPage       *int
	CurrentPercentage *int
	Notes             *string
	ProgressDate      *string
}

// UpdateProgress edits an existing progress entry, re-validating the
// session timeline with the edited entry excluded.
func (s *ProgressService) UpdateProgress(ctx context.Context, progressID string, in UpdateProgressInput) (*domain.ProgressLog, error) {
	entry, err := s.store.GetProgress(ctx, progressID)
	if err != nil {
		return nil, err
	}
	book, err := s.store.GetBook(ctx, entry.BookID)
	if err != nil {
		return nil, err
	}

	// Recompute from whichever metric was supplied, falling back to the
	// stored page as the authoritative value.
	var value domain.ProgressValue
	switch {
	case in.CurrentPage != nil:
		value = domain.PageValue(*in.CurrentPage)
	case in.CurrentPercentage != nil:
		value = domain.PercentageValue(*in.CurrentPercentage)
	default:
		value = domain.PageValue(entry.CurrentPage)
	}
	if err := value.Validate(); err != nil {
		return nil, store.ErrInvalidInput.WithMessage(err.Error())
	}

	progressDate := entry.ProgressDate
	if in.ProgressDate != nil {
		progressDate = *in.ProgressDate
		if _, err := dates.ParseDay(progressDate); err != nil {
			return nil, store.ErrInvalidInput.WithMessage(err.Error())
		}
	}

	entries, err := s.store.GetSessionProgress(ctx, entry.SessionID)
	if err != nil {
		return nil, err
	}
	cand := timelineCandidate{Date: progressDate, Value: value, ExcludeID: entry.ID}
	if terr := validateTimeline(entries, cand); terr != nil {
		return nil, terr
	}

	page, percentage := value.Resolve(book.TotalPages)

	entry.CurrentPage = page
	entry.CurrentPercentage = percentage
	entry.PagesRead = max(0, page-previousEntryPage(entries, entry, progressDate))
	entry.ProgressDate = progressDate
	if in.Notes != nil {
		entry.Notes = *in.Notes
	}

	if err := s.store.UpdateProgress(ctx, entry); err != nil {
		return nil, err
	}

	s.rebuildStreaks(ctx, "")

	return entry, nil
}

// DeleteProgress removes a progress entry and rebuilds the streak.
func (s *ProgressService) DeleteProgress(ctx context.Context, progressID string) error {
	if err := s.store.DeleteProgress(ctx, progressID); err != nil {
		return err
	}
	s.rebuildStreaks(ctx, "")
	return nil
}

// notifyProgressChanged picks the streak maintenance mode for a new entry:
// a same-day entry folds in incrementally, a backdated one can rewrite past
// runs and needs the full rebuild.
func (s *ProgressService) notifyProgressChanged(ctx context.Context, progressDate string) {
	if loc, err := s.userLocation(ctx); err == nil && progressDate == dates.Today(loc) {
		if _, err := s.streaks.UpdateStreaks(ctx, DefaultUserID, progressDate); err != nil {
			s.logger.Warn("streak update failed after progress", "error", err)
		}
		return
	}
	s.rebuildStreaks(ctx, progressDate)
}

// rebuildStreaks triggers a best-effort streak recomputation. Streak
// subsystem faults never block the primary progress operation.
func (s *ProgressService) rebuildStreaks(ctx context.Context, currentDate string) {
	if _, err := s.streaks.RebuildStreak(ctx, DefaultUserID, currentDate); err != nil {
		s.logger.Warn("streak rebuild failed after progress change", "error", err)
	}
}

// userLocation loads the user's configured timezone, falling back to the
// default when no streak row exists yet.
func (s *ProgressService) userLocation(ctx context.Context) (*time.Location, error) {
	tz := domain.DefaultTimezone
	streak, err := s.store.GetStreak(ctx, DefaultUserID)
	if err == nil {
		tz = streak.UserTimezone
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	loc, err := dates.LoadLocation(tz)
	if err != nil {
		s.logger.Warn("invalid stored timezone, using UTC", "timezone", tz)
		return time.UTC, nil
	}
	return loc, nil
}

// progressValue builds the tagged union from the request fields, requiring
// at least one metric. Page wins when both are present.
func progressValue(page, percentage *int) (domain.ProgressValue, error) {
	var value domain.ProgressValue
	switch {
	case page != nil:
		value = domain.PageValue(*page)
	case percentage != nil:
		value = domain.PercentageValue(*percentage)
	default:
		return value, store.ErrInvalidInput.WithMessage("Either currentPage or currentPercentage is required")
	}
	if err := value.Validate(); err != nil {
		return value, store.ErrInvalidInput.WithMessage(err.Error())
	}
	return value, nil
}

// previousEntryPage finds the page of the chronologically previous entry
// relative to the edited entry's new date, skipping the edited entry
// itself. Entries are assumed sorted by (progressDate, createdAt).
func previousEntryPage(entries []*domain.ProgressLog, edited *domain.ProgressLog, newDate string) int {
	page := 0
	for _, e := range entries {
		if e.ID == edited.ID {
			continue
		}
		if e.ProgressDate < newDate ||
			(e.ProgressDate == newDate && e.CreatedAt.Before(edited.CreatedAt)) {
			page = e.CurrentPage
		}
	}
	return page
}
