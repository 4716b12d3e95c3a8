package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/readleafapp/readleaf-server/internal/domain"
	"github.com/readleafapp/readleaf-server/internal/store"
)

// streakColumns is the ordered list of columns selected in streak queries.
// Must match the scan order in scanStreak.
const streakColumns = `id, user_id, current_streak, longest_streak, total_days_active,
	daily_threshold, last_activity_date, streak_start_date, last_checked_date,
	user_timezone, streak_enabled, created_at, updated_at`

// scanStreak scans a row into a domain.Streak.
func scanStreak(scanner interface{ Scan(dest ...any) error }) (*domain.Streak, error) {
	var st domain.Streak

	var (
		lastActivity sql.NullString
		streakStart  sql.NullString
		lastChecked  sql.NullString
		enabled      int
		createdAt    string
		updatedAt    string
	)

	err := scanner.Scan(
		&st.ID,
		&st.UserID,
		&st.CurrentStreak,
		&st.LongestStreak,
		&st.TotalDaysActive,
		&st.DailyThreshold,
		&lastActivity,
		&streakStart,
		&lastChecked,
		&st.UserTimezone,
		&enabled,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	st.LastActivityDate = lastActivity.String
	st.StreakStartDate = streakStart.String
	st.LastCheckedDate = lastChecked.String
	st.StreakEnabled = enabled != 0

	st.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	st.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &st, nil
}

// GetStreak retrieves the streak row for a user.
// Returns store.ErrStreakNotFound if no row exists yet.
func (s *Store) GetStreak(ctx context.Context, userID string) (*domain.Streak, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+streakColumns+` FROM streaks WHERE user_id = ?`, userID)

	st, err := scanStreak(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrStreakNotFound
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

// UpsertStreak inserts or replaces the single streak row for a user.
// The UNIQUE(user_id) constraint makes the upsert target unambiguous.
func (s *Store) UpsertStreak(ctx context.Context, streak *domain.Streak) error {
	streak.UpdatedAt = time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO streaks (
			id, user_id, current_streak, longest_streak, total_days_active,
			daily_threshold, last_activity_date, streak_start_date, last_checked_date,
			user_timezone, streak_enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			current_streak = excluded.current_streak,
			longest_streak = excluded.longest_streak,
			total_days_active = excluded.total_days_active,
			daily_threshold = excluded.daily_threshold,
			last_activity_date = excluded.last_activity_date,
			streak_start_date = excluded.streak_start_date,
			last_checked_date = excluded.last_checked_date,
			user_timezone = excluded.user_timezone,
			streak_enabled = excluded.streak_enabled,
			updated_at = excluded.updated_at`,
		streak.ID, streak.UserID, streak.CurrentStreak, streak.LongestStreak,
		streak.TotalDaysActive, streak.DailyThreshold,
		nullString(streak.LastActivityDate), nullString(streak.StreakStartDate),
		nullString(streak.LastCheckedDate), streak.UserTimezone,
		boolToInt(streak.StreakEnabled),
		formatTime(streak.CreatedAt), formatTime(streak.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert streak: %w", err)
	}
	return nil
}
