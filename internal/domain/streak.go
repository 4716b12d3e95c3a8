package domain

import (
	"fmt"
	"time"
)

// Streak defaults.
const (
	DefaultDailyThreshold = 5
	DefaultTimezone       = "America/New_York"
	MinDailyThreshold     = 1
	MaxDailyThreshold     = 9999
)

// Streak is the per-user reading-streak row. One row exists per user,
// including the default (empty UserID) single-user identity; the storage
// layer enforces the uniqueness. Date fields hold YYYY-MM-DD strings.
// DailyThreshold is the pages read per day for the day to qualify, and
// LastCheckedDate guards the once-per-day lapse check.
type Streak struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id,omitempty"`
	CurrentStreak    int       `json:"current_streak"`
	LongestStreak    int       `json:"longest_streak"`
	TotalDaysActive  int       `json:"total_days_active"`
	DailyThreshold   int       `json:"daily_threshold"`
	LastActivityDate string    `json:"last_activity_date,omitempty"`
	StreakStartDate  string    `json:"streak_start_date,omitempty"`
	LastCheckedDate  string    `json:"last_checked_date,omitempty"`
	UserTimezone     string    `json:"user_timezone"`
	StreakEnabled    bool      `json:"streak_enabled"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewStreak creates a streak row with defaults for the given user.
func NewStreak(id, userID string) *Streak {
	now := time.Now()
	return &Streak{
		ID:             id,
		UserID:         userID,
		DailyThreshold: DefaultDailyThreshold,
		UserTimezone:   DefaultTimezone,
		StreakEnabled:  true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ValidateThreshold checks a daily pages threshold.
func ValidateThreshold(threshold int) error {
	if threshold < MinDailyThreshold || threshold > MaxDailyThreshold {
		return fmt.Errorf("daily threshold must be between %d and %d, got %d",
			MinDailyThreshold, MaxDailyThreshold, threshold)
	}
	return nil
}
