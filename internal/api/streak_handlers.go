package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/readleafapp/readleaf-server/internal/domain"
	"github.com/readleafapp/readleaf-server/internal/service"
)

func (s *Server) registerStreakRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getStreak",
		Method:      http.MethodGet,
		Path:        "/api/v1/streak",
		Summary:     "Get streak",
		Description: "Returns the reading streak, applying the daily staleness check",
		Tags:        []string{"Streak"},
	}, s.handleGetStreak)

	huma.Register(s.api, huma.Operation{
		OperationID: "rebuildStreak",
		Method:      http.MethodPost,
		Path:        "/api/v1/streak/rebuild",
		Summary:     "Rebuild streak",
		Description: "Recomputes the streak from the full progress history",
		Tags:        []string{"Streak"},
	}, s.handleRebuildStreak)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateStreakThreshold",
		Method:      http.MethodPut,
		Path:        "/api/v1/streak/threshold",
		Summary:     "Update daily threshold",
		Description: "Sets the pages-per-day threshold and rebuilds the streak",
		Tags:        []string{"Streak"},
	}, s.handleUpdateStreakThreshold)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateStreakSettings",
		Method:      http.MethodPut,
		Path:        "/api/v1/streak/settings",
		Summary:     "Update streak settings",
		Description: "Updates the streak timezone or enabled flag",
		Tags:        []string{"Streak"},
	}, s.handleUpdateStreakSettings)
}

// === DTOs ===

// StreakResponse contains streak data in API responses.
type StreakResponse struct {
	CurrentStreak    int       `json:"current_streak" doc:"Consecutive qualifying days ending at the last activity"`
	LongestStreak    int       `json:"longest_streak" doc:"Longest run ever recorded"`
	TotalDaysActive  int       `json:"total_days_active" doc:"Total qualifying days"`
	DailyThreshold   int       `json:"daily_threshold" doc:"Pages per day required to qualify"`
	LastActivityDate string    `json:"last_activity_date,omitempty" doc:"Last qualifying day (YYYY-MM-DD)"`
	StreakStartDate  string    `json:"streak_start_date,omitempty" doc:"First day of the current run (YYYY-MM-DD)"`
	UserTimezone     string    `json:"user_timezone" doc:"IANA timezone used for day boundaries"`
	StreakEnabled    bool      `json:"streak_enabled" doc:"Whether streak tracking is on"`
	UpdatedAt        time.Time `json:"updated_at" doc:"Last update time"`
}

// StreakOutput wraps the streak response for Huma.
type StreakOutput struct {
	Body StreakResponse
}

// UpdateThresholdRequest is the request body for setting the daily threshold.
type UpdateThresholdRequest struct {
	Threshold float64 `json:"threshold" required:"true" doc:"Pages per day, integer between 1 and 9999"`
}

// UpdateThresholdInput wraps the threshold request for Huma.
type UpdateThresholdInput struct {
	Body UpdateThresholdRequest
}

// UpdateStreakSettingsRequest is the request body for streak settings.
type UpdateStreakSettingsRequest struct {
	Timezone *string `json:"timezone,omitempty" validate:"omitempty,max=64" doc:"IANA timezone name"`
	Enabled  *bool   `json:"enabled,omitempty" doc:"Whether streak tracking is on"`
}

// UpdateStreakSettingsInput wraps the settings request for Huma.
type UpdateStreakSettingsInput struct {
	Body UpdateStreakSettingsRequest
}

func toStreakResponse(st *domain.Streak) StreakResponse {
	return StreakResponse{
		CurrentStreak:    st.CurrentStreak,
		LongestStreak:    st.LongestStreak,
		TotalDaysActive:  st.TotalDaysActive,
		DailyThreshold:   st.DailyThreshold,
		LastActivityDate: st.LastActivityDate,
		StreakStartDate:  st.StreakStartDate,
		UserTimezone:     st.UserTimezone,
		StreakEnabled:    st.StreakEnabled,
		UpdatedAt:        st.UpdatedAt,
	}
}

// === Handlers ===

func (s *Server) handleGetStreak(ctx context.Context, _ *struct{}) (*StreakOutput, error) {
	streak, err := s.services.Streak.GetStreak(ctx, service.DefaultUserID)
	if err != nil {
		return nil, err
	}
	return &StreakOutput{Body: toStreakResponse(streak)}, nil
}

func (s *Server) handleRebuildStreak(ctx context.Context, _ *struct{}) (*StreakOutput, error) {
	streak, err := s.services.Streak.RebuildStreak(ctx, service.DefaultUserID, "")
	if err != nil {
		return nil, err
	}
	return &StreakOutput{Body: toStreakResponse(streak)}, nil
}

func (s *Server) handleUpdateStreakThreshold(ctx context.Context, input *UpdateThresholdInput) (*StreakOutput, error) {
	streak, err := s.services.Streak.UpdateThreshold(ctx, service.DefaultUserID, input.Body.Threshold)
	if err != nil {
		return nil, err
	}
	return &StreakOutput{Body: toStreakResponse(streak)}, nil
}

func (s *Server) handleUpdateStreakSettings(ctx context.Context, input *UpdateStreakSettingsInput) (*StreakOutput, error) {
	if err := s.validator.Validate(&input.Body); err != nil {
		return nil, err
	}

	var streak *domain.Streak
	var err error

	if input.Body.Timezone != nil {
		streak, err = s.services.Streak.UpdateTimezone(ctx, service.DefaultUserID, *input.Body.Timezone)
		if err != nil {
			return nil, err
		}
	}
	if input.Body.Enabled != nil {
		streak, err = s.services.Streak.SetEnabled(ctx, service.DefaultUserID, *input.Body.Enabled)
		if err != nil {
			return nil, err
		}
	}
	if streak == nil {
		streak, err = s.services.Streak.GetStreak(ctx, service.DefaultUserID)
		if err != nil {
			return nil, err
		}
	}

	return &StreakOutput{Body: toStreakResponse(streak)}, nil
}
