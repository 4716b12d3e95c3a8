package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/readleafapp/readleaf-server/internal/dates"
	"github.com/readleafapp/readleaf-server/internal/domain"
	"github.com/readleafapp/readleaf-server/internal/id"
	"github.com/readleafapp/readleaf-server/internal/store"
)

// SessionService drives the reading-session status state machine.
type SessionService struct {
	store   store.Store
	streaks StreakRebuilder
	logger  *slog.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(st store.Store, logger *slog.Logger) *SessionService {
	return &SessionService{
		store:   st,
		streaks: NoopStreakRebuilder{},
		logger:  logger,
	}
}

// SetStreakRebuilder sets the streak rebuilder used after synthesized
// completion progress. Set after construction to avoid circular dependencies.
func (s *SessionService) SetStreakRebuilder(r StreakRebuilder) {
	s.streaks = r
}

// UpdateStatusInput is a requested status change. Rating arrives as a raw
// JSON number so non-integer values can be rejected explicitly.
type UpdateStatusInput struct {
	Status        domain.SessionStatus
	Rating        *float64
	Review        *string
	CompletedDate string // YYYY-MM-DD, defaults to today for terminal statuses
}

// StatusChangeResult describes what a status change actually did.
type StatusChangeResult struct {
	Session               *domain.ReadingSession `json:"session"`
	SessionArchived       bool                   `json:"session_archived"`
	ArchivedSessionNumber *int                   `json:"archived_session_number,omitempty"`
	ProgressCreated       bool                   `json:"progress_created"`
	RatingUpdated         bool                   `json:"rating_updated"`
	ReviewUpdated         bool                   `json:"review_updated"`
}

// UpdateStatus applies a status change to a book's current session.
//
// The current session is the active one, or the most recent archived one
// when nothing is active. A dnf current session can never go directly to
// read; moving it anywhere else starts a fresh session so the dnf record
// survives untouched. Marking an already-read book as read again updates
// the existing archived session in place instead of duplicating it.
func (s *SessionService) UpdateStatus(ctx context.Context, bookID string, in UpdateStatusInput) (*StatusChangeResult, error) {
	if !domain.ValidStatus(in.Status) {
		return nil, store.ErrInvalidInput.WithMessage(fmt.Sprintf("invalid status %q", in.Status))
	}

	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	rating, err := ratingFromInput(in.Rating)
	if err != nil {
		return nil, err
	}
	if in.CompletedDate != "" {
		if _, err := dates.ParseDay(in.CompletedDate); err != nil {
			return nil, store.ErrInvalidInput.WithMessage(err.Error())
		}
	}

	current, err := s.currentSession(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if current != nil {
		if err := current.CanTransitionTo(in.Status); err != nil {
			return nil, store.ErrInvalidInput.WithMessage(err.Error())
		}
	}

	switch in.Status {
	case domain.StatusRead:
		return s.markRead(ctx, book, current, rating, in.Review, in.CompletedDate)
	case domain.StatusDNF:
		return s.markDNF(ctx, current, in.CompletedDate)
	default:
		return s.moveToOpenStatus(ctx, bookID, current, in.Status)
	}
}

// GetBookSessions returns a book's full session history, newest first.
func (s *SessionService) GetBookSessions(ctx context.Context, bookID string) ([]*domain.ReadingSession, error) {
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		return nil, err
	}
	return s.store.GetBookSessions(ctx, bookID)
}

// currentSession returns the active session, or the highest-numbered
// archived one, or nil for a book with no history.
func (s *SessionService) currentSession(ctx context.Context, bookID string) (*domain.ReadingSession, error) {
	sess, err := s.store.GetActiveSession(ctx, bookID)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	sessions, err := s.store.GetBookSessions(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return sessions[0], nil
}

// moveToOpenStatus handles transitions into to-read, read-next or reading.
// An active session is mutated in place; a terminal current session (or no
// history at all) gets a fresh session with the next number.
func (s *SessionService) moveToOpenStatus(ctx context.Context, bookID string, current *domain.ReadingSession, target domain.SessionStatus) (*StatusChangeResult, error) {
	if current != nil && current.IsActive {
		current.Status = target
		if target == domain.StatusReading && current.StartedDate == "" {
			current.StartedDate = s.today(ctx)
		}
		if err := s.store.UpdateSession(ctx, current); err != nil {
			return nil, err
		}
		return &StatusChangeResult{Session: current}, nil
	}

	number, err := s.store.NextSessionNumber(ctx, bookID)
	if err != nil {
		return nil, err
	}
	sessID, err := id.Generate(id.PrefixSession)
	if err != nil {
		return nil, err
	}
	sess := domain.NewReadingSession(sessID, bookID, number, target)
	if target == domain.StatusReading {
		sess.StartedDate = s.today(ctx)
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return &StatusChangeResult{Session: sess}, nil
}

// markRead completes the current attempt. For an already-read most recent
// session the call is idempotent and just refreshes rating, review and
// completion date.
func (s *SessionService) markRead(ctx context.Context, book *domain.Book, current *domain.ReadingSession, rating *int, review *string, completedDate string) (*StatusChangeResult, error) {
	if completedDate == "" {
		completedDate = s.today(ctx)
	}

	// Re-marking a finished book updates the archived session in place.
	if current != nil && !current.IsActive && current.Status == domain.StatusRead {
		current.CompletedDate = completedDate
		result := &StatusChangeResult{Session: current}
		s.applyRatingAndReview(ctx, book, current, rating, review, result)
		if err := s.store.UpdateSession(ctx, current); err != nil {
			return nil, err
		}
		return result, nil
	}

	// A book with no open attempt gets one created and immediately completed.
	if current == nil || !current.IsActive {
		created, err := s.moveToOpenStatus(ctx, book.ID, current, domain.StatusToRead)
		if err != nil {
			return nil, err
		}
		current = created.Session
	}

	current.Status = domain.StatusRead
	current.CompletedDate = completedDate
	current.Archive()

	result := &StatusChangeResult{
		Session:               current,
		SessionArchived:       true,
		ArchivedSessionNumber: &current.SessionNumber,
	}
	s.applyRatingAndReview(ctx, book, current, rating, review, result)

	if err := s.store.UpdateSession(ctx, current); err != nil {
		return nil, err
	}

	if book.HasTotalPages() {
		created, err := s.ensureCompletionProgress(ctx, book, current, completedDate)
		if err != nil {
			return nil, err
		}
		result.ProgressCreated = created
	}

	return result, nil
}

// markDNF archives the current active session as abandoned.
func (s *SessionService) markDNF(ctx context.Context, current *domain.ReadingSession, completedDate string) (*StatusChangeResult, error) {
	if current == nil {
		return nil, store.ErrNotFound.WithMessage("No active reading session found for this book")
	}
	if completedDate == "" {
		completedDate = s.today(ctx)
	}

	// Already abandoned: just refresh when reading stopped.
	if !current.IsActive && current.Status == domain.StatusDNF {
		current.CompletedDate = completedDate
		if err := s.store.UpdateSession(ctx, current); err != nil {
			return nil, err
		}
		return &StatusChangeResult{Session: current}, nil
	}
	if !current.IsActive {
		return nil, store.ErrNotFound.WithMessage("No active reading session found for this book")
	}

	current.Status = domain.StatusDNF
	current.CompletedDate = completedDate
	current.Archive()
	if err := s.store.UpdateSession(ctx, current); err != nil {
		return nil, err
	}
	return &StatusChangeResult{
		Session:               current,
		SessionArchived:       true,
		ArchivedSessionNumber: &current.SessionNumber,
	}, nil
}

// ensureCompletionProgress synthesizes a 100% entry dated on completion,
// unless the session already reached 100%. A backdated completion is
// clamped to the newest logged day so the session timeline stays monotone.
func (s *SessionService) ensureCompletionProgress(ctx context.Context, book *domain.Book, sess *domain.ReadingSession, completedDate string) (bool, error) {
	entries, err := s.store.GetSessionProgress(ctx, sess.ID)
	if err != nil {
		return false, err
	}
	previousPage := 0
	progressDate := completedDate
	for _, e := range entries {
		if e.CurrentPercentage >= 100 {
			return false, nil
		}
		if e.ProgressDate > progressDate {
			progressDate = e.ProgressDate
		}
	}
	if latest, err := s.store.GetLatestProgress(ctx, sess.ID); err == nil {
		previousPage = latest.CurrentPage
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	logID, err := id.Generate(id.PrefixProgress)
	if err != nil {
		return false, err
	}
	now := time.Now()
	entry := &domain.ProgressLog{
		ID:                logID,
		BookID:            book.ID,
		SessionID:         sess.ID,
		CurrentPage:       *book.TotalPages,
		CurrentPercentage: 100,
		PagesRead:         max(0, *book.TotalPages-previousPage),
		ProgressDate:      progressDate,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.CreateProgress(ctx, entry); err != nil {
		return false, err
	}

	if _, err := s.streaks.RebuildStreak(ctx, DefaultUserID, ""); err != nil {
		s.logger.Warn("streak rebuild failed after completion progress", "error", err)
	}
	return true, nil
}

// applyRatingAndReview writes rating and review onto the session, and
// propagates the rating to the book record.
func (s *SessionService) applyRatingAndReview(ctx context.Context, book *domain.Book, sess *domain.ReadingSession, rating *int, review *string, result *StatusChangeResult) {
	if rating != nil {
		sess.Rating = rating
		book.Rating = rating
		if err := s.store.UpdateBook(ctx, book); err != nil {
			s.logger.Warn("failed to propagate rating to book", "book_id", book.ID, "error", err)
		}
		result.RatingUpdated = true
	}
	if review != nil {
		sess.Review = *review
		result.ReviewUpdated = true
	}
}

// today resolves the current calendar day in the user's timezone.
func (s *SessionService) today(ctx context.Context) string {
	tz := domain.DefaultTimezone
	if streak, err := s.store.GetStreak(ctx, DefaultUserID); err == nil {
		tz = streak.UserTimezone
	}
	loc, err := dates.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	return dates.Today(loc)
}

// ratingFromInput validates a raw JSON rating. Floats are rejected rather
// than truncated.
func ratingFromInput(rating *float64) (*int, error) {
	if rating == nil {
		return nil, nil
	}
	if *rating != math.Trunc(*rating) {
		return nil, store.ErrInvalidInput.WithMessage("Rating must be an integer between 1 and 5")
	}
	r := int(*rating)
	if err := domain.ValidateRating(r); err != nil {
		return nil, store.ErrInvalidInput.WithMessage(err.Error())
	}
	return &r, nil
}
