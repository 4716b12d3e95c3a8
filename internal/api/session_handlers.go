package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/readleafapp/readleaf-server/internal/domain"
	"github.com/readleafapp/readleaf-server/internal/service"
)

func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getBookSessions",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}/sessions",
		Summary:     "Get book sessions",
		Description: "Returns all reading sessions for a book, newest first",
		Tags:        []string{"Sessions"},
	}, s.handleGetBookSessions)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBookStatus",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}/status",
		Summary:     "Update reading status",
		Description: "Moves a book through the reading lifecycle (to-read, read-next, reading, read, dnf)",
		Tags:        []string{"Sessions"},
	}, s.handleUpdateBookStatus)
}

// === DTOs ===

// SessionResponse contains reading session data in API responses.
type SessionResponse struct {
	ID            string    `json:"id" doc:"Session ID"`
	BookID        string    `json:"book_id" doc:"Book ID"`
	SessionNumber int       `json:"session_number" doc:"1-based reading attempt number"`
	Status        string    `json:"status" doc:"Session status"`
	IsActive      bool      `json:"is_active" doc:"Whether this is the book's active session"`
	StartedDate   string    `json:"started_date,omitempty" doc:"Date reading started (YYYY-MM-DD)"`
	CompletedDate string    `json:"completed_date,omitempty" doc:"Date the attempt finished (YYYY-MM-DD)"`
	Rating        *int      `json:"rating,omitempty" doc:"1-5 star rating"`
	Review        string    `json:"review,omitempty" doc:"Review text"`
	CreatedAt     time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt     time.Time `json:"updated_at" doc:"Last update time"`
}

// ListSessionsResponse contains a book's reading sessions.
type ListSessionsResponse struct {
	Sessions []SessionResponse `json:"sessions" doc:"Reading sessions, newest first"`
}

// ListSessionsOutput wraps the list sessions response for Huma.
type ListSessionsOutput struct {
	Body ListSessionsResponse
}

// GetBookSessionsInput contains parameters for listing a book's sessions.
type GetBookSessionsInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// UpdateStatusRequest is the request body for a status change.
type UpdateStatusRequest struct {
	Status        string   `json:"status" required:"true" enum:"to-read,read-next,reading,read,dnf" doc:"Target status"`
	Rating        *float64 `json:"rating,omitempty" doc:"1-5 star rating, accepted with terminal statuses"`
	Review        *string  `json:"review,omitempty" validate:"omitempty,max=20000" doc:"Review text, accepted with terminal statuses"`
	CompletedDate string   `json:"completed_date,omitempty" doc:"Completion date (YYYY-MM-DD), defaults to today"`
}

// UpdateStatusInput wraps the status change request for Huma.
type UpdateStatusInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body UpdateStatusRequest
}

// StatusChangeResponse reports what a status change actually did.
type StatusChangeResponse struct {
	Session               SessionResponse `json:"session" doc:"The session after the change"`
	SessionArchived       bool            `json:"session_archived" doc:"Whether a session was archived"`
	ArchivedSessionNumber *int            `json:"archived_session_number,omitempty" doc:"Number of the archived session"`
	ProgressCreated       bool            `json:"progress_created" doc:"Whether a completion progress entry was synthesized"`
	RatingUpdated         bool            `json:"rating_updated" doc:"Whether the rating was applied"`
	ReviewUpdated         bool            `json:"review_updated" doc:"Whether the review was applied"`
}

// StatusChangeOutput wraps the status change response for Huma.
type StatusChangeOutput struct {
	Body StatusChangeResponse
}

func toSessionResponse(sess *domain.ReadingSession) SessionResponse {
	return SessionResponse{
		ID:            sess.ID,
		BookID:        sess.BookID,
		SessionNumber: sess.SessionNumber,
		Status:        string(sess.Status),
		IsActive:      sess.IsActive,
		StartedDate:   sess.StartedDate,
		CompletedDate: sess.CompletedDate,
		Rating:        sess.Rating,
		Review:        sess.Review,
		CreatedAt:     sess.CreatedAt,
		UpdatedAt:     sess.UpdatedAt,
	}
}

// === Handlers ===

func (s *Server) handleGetBookSessions(ctx context.Context, input *GetBookSessionsInput) (*ListSessionsOutput, error) {
	sessions, err := s.services.Session.GetBookSessions(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	resp := make([]SessionResponse, len(sessions))
	for i, sess := range sessions {
		resp[i] = toSessionResponse(sess)
	}
	return &ListSessionsOutput{Body: ListSessionsResponse{Sessions: resp}}, nil
}

func (s *Server) handleUpdateBookStatus(ctx context.Context, input *UpdateStatusInput) (*StatusChangeOutput, error) {
	if err := s.validator.Validate(&input.Body); err != nil {
		return nil, err
	}

	result, err := s.services.Session.UpdateStatus(ctx, input.ID, service.UpdateStatusInput{
		Status:        domain.SessionStatus(input.Body.Status),
		Rating:        input.Body.Rating,
		Review:        input.Body.Review,
		CompletedDate: input.Body.CompletedDate,
	})
	if err != nil {
		return nil, err
	}

	return &StatusChangeOutput{Body: StatusChangeResponse{
		Session:               toSessionResponse(result.Session),
		SessionArchived:       result.SessionArchived,
		ArchivedSessionNumber: result.ArchivedSessionNumber,
		ProgressCreated:       result.ProgressCreated,
		RatingUpdated:         result.RatingUpdated,
		ReviewUpdated:         result.ReviewUpdated,
	}}, nil
}
