package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/readleafapp/readleaf-server/internal/dates"
	"github.com/readleafapp/readleaf-server/internal/domain"
	"github.com/readleafapp/readleaf-server/internal/id"
	"github.com/readleafapp/readleaf-server/internal/store"
)

// StreakService maintains the per-user reading streak. All day arithmetic
// uses the streak's configured timezone.
type StreakService struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time // clock seam for tests
}

// NewStreakService creates a new streak service.
func NewStreakService(st store.Store, logger *slog.Logger) *StreakService {
	return &StreakService{
		store:  st,
		logger: logger,
		now:    time.Now,
	}
}

// GetStreak returns the user's streak, creating the row on first access.
// The cheap daily staleness check runs on every read so a broken streak is
// visible without any new activity.
func (s *StreakService) GetStreak(ctx context.Context, userID string) (*domain.Streak, error) {
	streak, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.checkAndReset(ctx, streak, "")
}

// UpdateStreaks incrementally folds today's activity into the streak.
// currentDate overrides "today" for deterministic tests; empty means now
// in the user's timezone.
func (s *StreakService) UpdateStreaks(ctx context.Context, userID, currentDate string) (*domain.Streak, error) {
	streak, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !streak.StreakEnabled {
		return streak, nil
	}

	today, err := s.resolveDay(streak, currentDate)
	if err != nil {
		return nil, err
	}

	todayPages, err := s.pagesOnDay(ctx, today)
	if err != nil {
		return nil, err
	}
	met := todayPages >= streak.DailyThreshold

	switch {
	case streak.LastActivityDate == "":
		if !met {
			return streak, nil
		}
		streak.CurrentStreak = 1
		streak.LongestStreak = max(streak.LongestStreak, 1)
		streak.TotalDaysActive++
		streak.StreakStartDate = today
		streak.LastActivityDate = today

	case streak.LastActivityDate == today:
		if streak.CurrentStreak == 0 && met {
			// First qualifying activity after a reset or lowered threshold.
			streak.CurrentStreak = 1
			streak.LongestStreak = max(streak.LongestStreak, 1)
			streak.StreakStartDate = today
		} else if streak.CurrentStreak > 0 && !met {
			// Raised threshold disqualified today retroactively.
			streak.CurrentStreak = 0
		} else {
			return streak, nil
		}

	default:
		diff, err := dates.DaysBetween(streak.LastActivityDate, today)
		if err != nil {
			return nil, err
		}
		switch {
		case !met:
			// The new day does not count yet; more progress later today may
			// still qualify it.
			return streak, nil
		case diff == 1:
			streak.CurrentStreak++
			streak.LongestStreak = max(streak.LongestStreak, streak.CurrentStreak)
			streak.TotalDaysActive++
			streak.LastActivityDate = today
		default:
			// Gap broke the run; today starts a new one.
			streak.CurrentStreak = 1
			streak.LongestStreak = max(streak.LongestStreak, 1)
			streak.TotalDaysActive++
			streak.StreakStartDate = today
			streak.LastActivityDate = today
		}
	}

	if err := s.store.UpsertStreak(ctx, streak); err != nil {
		return nil, err
	}
	return streak, nil
}

// RebuildStreak recomputes the streak from the full progress history. It
// is idempotent and is the consistency backstop after out-of-order edits,
// deletions and threshold changes.
func (s *StreakService) RebuildStreak(ctx context.Context, userID, currentDate string) (*domain.Streak, error) {
	streak, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	today, err := s.resolveDay(streak, currentDate)
	if err != nil {
		return nil, err
	}

	logs, err := s.store.ListAllProgress(ctx)
	if err != nil {
		return nil, err
	}

	// Daily totals keyed by the already-normalized calendar-day string.
	byDay := make(map[string]int)
	for _, log := range logs {
		byDay[log.ProgressDate] += log.PagesRead
	}

	var qualifying []string
	for day, pages := range byDay {
		if pages >= streak.DailyThreshold {
			qualifying = append(qualifying, day)
		}
	}
	// Lexicographic order is date order for YYYY-MM-DD keys.
	sort.Strings(qualifying)

	current, longest, runStart := 0, 0, ""
	for i, day := range qualifying {
		if i == 0 {
			current, runStart = 1, day
		} else {
			diff, err := dates.DaysBetween(qualifying[i-1], day)
			if err != nil {
				return nil, err
			}
			if diff == 1 {
				current++
			} else {
				current, runStart = 1, day
			}
		}
		longest = max(longest, current)
	}

	streak.CurrentStreak = current
	streak.LongestStreak = longest
	streak.TotalDaysActive = len(qualifying)
	streak.StreakStartDate = runStart
	streak.LastActivityDate = ""
	if len(qualifying) > 0 {
		last := qualifying[len(qualifying)-1]
		streak.LastActivityDate = last

		// The final run goes stale once more than one day passes.
		diff, err := dates.DaysBetween(last, today)
		if err != nil {
			return nil, err
		}
		if diff > 1 {
			streak.CurrentStreak = 0
		}
	}

	if err := s.store.UpsertStreak(ctx, streak); err != nil {
		return nil, err
	}
	return streak, nil
}

// CheckAndResetStreakIfNeeded zeroes a stale current streak at most once
// per day, guarded by lastCheckedDate.
func (s *StreakService) CheckAndResetStreakIfNeeded(ctx context.Context, userID, currentDate string) (*domain.Streak, error) {
	streak, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.checkAndReset(ctx, streak, currentDate)
}

// UpdateThreshold changes the daily page threshold and rebuilds, since a
// threshold change can retroactively requalify history.
func (s *StreakService) UpdateThreshold(ctx context.Context, userID string, threshold float64) (*domain.Streak, error) {
	if threshold != math.Trunc(threshold) {
		return nil, store.ErrInvalidInput.WithMessage("Daily threshold must be an integer")
	}
	if err := domain.ValidateThreshold(int(threshold)); err != nil {
		return nil, store.ErrInvalidInput.WithMessage(err.Error())
	}

	streak, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	streak.DailyThreshold = int(threshold)
	if err := s.store.UpsertStreak(ctx, streak); err != nil {
		return nil, err
	}
	return s.RebuildStreak(ctx, userID, "")
}

// UpdateTimezone changes the user's timezone and rebuilds, since day
// bucketing shifts with the zone.
func (s *StreakService) UpdateTimezone(ctx context.Context, userID, timezone string) (*domain.Streak, error) {
	if _, err := dates.LoadLocation(timezone); err != nil {
		return nil, store.ErrInvalidInput.WithMessage(err.Error())
	}
	streak, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	streak.UserTimezone = timezone
	if err := s.store.UpsertStreak(ctx, streak); err != nil {
		return nil, err
	}
	return s.RebuildStreak(ctx, userID, "")
}

// SetEnabled toggles streak tracking. Re-enabling rebuilds to catch up on
// activity recorded while the feature was off.
func (s *StreakService) SetEnabled(ctx context.Context, userID string, enabled bool) (*domain.Streak, error) {
	streak, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	streak.StreakEnabled = enabled
	if err := s.store.UpsertStreak(ctx, streak); err != nil {
		return nil, err
	}
	if enabled {
		return s.RebuildStreak(ctx, userID, "")
	}
	return streak, nil
}

func (s *StreakService) getOrCreate(ctx context.Context, userID string) (*domain.Streak, error) {
	streak, err := s.store.GetStreak(ctx, userID)
	if err == nil {
		return streak, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	streakID, err := id.Generate(id.PrefixStreak)
	if err != nil {
		return nil, err
	}
	streak = domain.NewStreak(streakID, userID)
	if err := s.store.UpsertStreak(ctx, streak); err != nil {
		return nil, err
	}
	return streak, nil
}

func (s *StreakService) checkAndReset(ctx context.Context, streak *domain.Streak, currentDate string) (*domain.Streak, error) {
	today, err := s.resolveDay(streak, currentDate)
	if err != nil {
		return nil, err
	}
	if streak.LastCheckedDate == today {
		return streak, nil
	}

	streak.LastCheckedDate = today
	if streak.CurrentStreak > 0 && streak.LastActivityDate != "" {
		diff, err := dates.DaysBetween(streak.LastActivityDate, today)
		if err != nil {
			return nil, err
		}
		if diff > 1 {
			streak.CurrentStreak = 0
		}
	}

	if err := s.store.UpsertStreak(ctx, streak); err != nil {
		return nil, err
	}
	return streak, nil
}

// resolveDay returns currentDate validated, or today in the streak's zone.
func (s *StreakService) resolveDay(streak *domain.Streak, currentDate string) (string, error) {
	if currentDate != "" {
		if _, err := dates.ParseDay(currentDate); err != nil {
			return "", store.ErrInvalidInput.WithMessage(err.Error())
		}
		return currentDate, nil
	}
	loc, err := dates.LoadLocation(streak.UserTimezone)
	if err != nil {
		s.logger.Warn("invalid stored timezone, using UTC", "timezone", streak.UserTimezone)
		loc = time.UTC
	}
	return dates.DayString(s.now(), loc), nil
}

// pagesOnDay sums pagesRead across all sessions for one calendar day.
func (s *StreakService) pagesOnDay(ctx context.Context, day string) (int, error) {
	logs, err := s.store.ListAllProgress(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, log := range logs {
		if log.ProgressDate == day {
			total += log.PagesRead
		}
	}
	return total, nil
}
