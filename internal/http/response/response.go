// Package response writes JSON error responses from middleware that sits
// outside the typed API layer, such as the rate limiter.
package response

import (
	"encoding/json/v2"
	"log/slog"
	"net/http"
)

// Envelope is the JSON shape for middleware-level errors. It mirrors the
// error body clients already handle from the API routes.
type Envelope struct {
	Error   string `json:"error,omitempty"`
	Success bool   `json:"success"`
}

// Error writes an error response with the given status code using json/v2.
func Error(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	envelope := Envelope{
		Success: false,
		Error:   message,
	}

	if err := json.MarshalWrite(w, envelope); err != nil {
		if logger != nil {
			logger.Error("Failed to encode error response", "error", err)
		}
	}
}

// TooManyRequests writes a 429 Too Many Requests response.
func TooManyRequests(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusTooManyRequests, message, logger)
}
