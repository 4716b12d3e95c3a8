package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/readleafapp/readleaf-server/internal/domain"
	"github.com/readleafapp/readleaf-server/internal/service"
)

func (s *Server) registerProgressRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "logProgress",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/{id}/progress",
		Summary:     "Log progress",
		Description: "Records a progress entry for the book's active reading session",
		Tags:        []string{"Progress"},
	}, s.handleLogProgress)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateProgress",
		Method:      http.MethodPatch,
		Path:        "/api/v1/progress/{id}",
		Summary:     "Update progress entry",
		Description: "Edits an existing progress entry, re-validating the session timeline",
		Tags:        []string{"Progress"},
	}, s.handleUpdateProgress)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteProgress",
		Method:      http.MethodDelete,
		Path:        "/api/v1/progress/{id}",
		Summary:     "Delete progress entry",
		Description: "Removes a progress entry",
		Tags:        []string{"Progress"},
	}, s.handleDeleteProgress)
}

// === DTOs ===

// ProgressResponse contains progress entry data in API responses.
type ProgressResponse struct {
	ID                string    `json:"id" doc:"Progress entry ID"`
	BookID            string    `json:"book_id" doc:"Book ID"`
	SessionID         string    `json:"session_id" doc:"Reading session ID"`
	CurrentPage       int       `json:"current_page" doc:"Absolute page position"`
	CurrentPercentage int       `json:"current_percentage" doc:"Position as a percentage (0-100)"`
	PagesRead         int       `json:"pages_read" doc:"Pages read since the previous entry"`
	ProgressDate      string    `json:"progress_date" doc:"Reading day (YYYY-MM-DD)"`
	Notes             string    `json:"notes,omitempty" doc:"Free-form notes"`
	CreatedAt         time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt         time.Time `json:"updated_at" doc:"Last update time"`
}

// LogProgressRequest is the request body for logging progress.
type LogProgressRequest struct {
	CurrentPage       *int   `json:"current_page,omitempty" minimum:"0" doc:"Absolute page position"`
	CurrentPercentage *int   `json:"current_percentage,omitempty" minimum:"0" maximum:"100" doc:"Position as a percentage"`
	Notes             string `json:"notes,omitempty" validate:"omitempty,max=10000" doc:"Free-form notes"`
	ProgressDate      string `json:"progress_date,omitempty" doc:"Reading day (YYYY-MM-DD), defaults to today"`
}

// LogProgressInput wraps the log progress request for Huma.
type LogProgressInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body LogProgressRequest
}

// LogProgressResponse is the outcome of logging progress.
type LogProgressResponse struct {
	Progress ProgressResponse `json:"progress" doc:"The recorded entry"`
	// The client decides whether to offer completion; reaching 100% never
	// changes the session status on its own.
	ShouldShowCompletionModal bool `json:"should_show_completion_modal" doc:"True when the entry hit 100% and the session is still reading"`
}

// LogProgressOutput wraps the log progress response for Huma.
type LogProgressOutput struct {
	Body LogProgressResponse
}

// UpdateProgressRequest is the request body for editing a progress entry.
type UpdateProgressRequest struct {
	CurrentPage       *int    `json:"current_page,omitempty" minimum:"0" doc:"Absolute page position"`
	CurrentPercentage *int    `json:"current_percentage,omitempty" minimum:"0" maximum:"100" doc:"Position as a percentage"`
	Notes             *string `json:"notes,omitempty" validate:"omitempty,max=10000" doc:"Free-form notes"`
	ProgressDate      *string `json:"progress_date,omitempty" doc:"Reading day (YYYY-MM-DD)"`
}

// UpdateProgressInput wraps the update progress request for Huma.
type UpdateProgressInput struct {
	ID   string `path:"id" doc:"Progress entry ID"`
	Body UpdateProgressRequest
}

// ProgressOutput wraps a single progress entry for Huma.
type ProgressOutput struct {
	Body ProgressResponse
}

// DeleteProgressInput contains parameters for deleting a progress entry.
type DeleteProgressInput struct {
	ID string `path:"id" doc:"Progress entry ID"`
}

// MessageResponse is a simple success message response.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

// MessageOutput wraps a message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

func toProgressResponse(p *domain.ProgressLog) ProgressResponse {
	return ProgressResponse{
		ID:                p.ID,
		BookID:            p.BookID,
		SessionID:         p.SessionID,
		CurrentPage:       p.CurrentPage,
		CurrentPercentage: p.CurrentPercentage,
		PagesRead:         p.PagesRead,
		ProgressDate:      p.ProgressDate,
		Notes:             p.Notes,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

// === Handlers ===

func (s *Server) handleLogProgress(ctx context.Context, input *LogProgressInput) (*LogProgressOutput, error) {
	if err := s.validator.Validate(&input.Body); err != nil {
		return nil, err
	}

	result, err := s.services.Progress.LogProgress(ctx, input.ID, service.LogProgressInput{
		CurrentPage:       input.Body.CurrentPage,
		CurrentPercentage: input.Body.CurrentPercentage,
		Notes:             input.Body.Notes,
		ProgressDate:      input.Body.ProgressDate,
	})
	if err != nil {
		return nil, err
	}

	return &LogProgressOutput{Body: LogProgressResponse{
		Progress:                  toProgressResponse(result.Progress),
		ShouldShowCompletionModal: result.ShouldShowCompletionModal,
	}}, nil
}

func (s *Server) handleUpdateProgress(ctx context.Context, input *UpdateProgressInput) (*ProgressOutput, error) {
	if err := s.validator.Validate(&input.Body); err != nil {
		return nil, err
	}

	progress, err := s.services.Progress.UpdateProgress(ctx, input.ID, service.UpdateProgressInput{
		CurrentPage:       input.Body.CurrentPage,
		CurrentPercentage: input.Body.CurrentPercentage,
		Notes:             input.Body.Notes,
		ProgressDate:      input.Body.ProgressDate,
	})
	if err != nil {
		return nil, err
	}

	return &ProgressOutput{Body: toProgressResponse(progress)}, nil
}

func (s *Server) handleDeleteProgress(ctx context.Context, input *DeleteProgressInput) (*MessageOutput, error) {
	if err := s.services.Progress.DeleteProgress(ctx, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Progress entry deleted"}}, nil
}
