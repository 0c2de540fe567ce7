package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"qvox/internal/backend"
	"qvox/internal/orchestrator"
	"qvox/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var he HTTPError
	switch {
	case errors.As(err, &he):
		return he.StatusCode()
	case errors.Is(err, orchestrator.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, orchestrator.ErrTaskAlreadyActive), errors.Is(err, orchestrator.ErrTaskStillRunning):
		return http.StatusConflict
	case errors.Is(err, orchestrator.ErrBackendNotReady):
		return http.StatusServiceUnavailable
	case orchestrator.IsSubmissionError(err):
		return http.StatusBadGateway
	case errors.Is(err, orchestrator.ErrNoTask), errors.Is(err, orchestrator.ErrNoAudio), backend.IsNotFound(err):
		return http.StatusNotFound
	}
	var se *backend.StatusError
	if errors.As(err, &se) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
