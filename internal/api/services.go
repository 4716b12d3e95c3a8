package api

import (
	"github.com/readleafapp/readleaf-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Library  *service.LibraryService
	Session  *service.SessionService
	Progress *service.ProgressService
	Streak   *service.StreakService
}
