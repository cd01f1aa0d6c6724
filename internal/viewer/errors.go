package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gridforma/massing/internal/logging"
)

var (
	// ErrBadRequest is a package-level sentinel for malformed client input.
	ErrBadRequest = errors.New("bad request")
	// ErrMethodNotAllowed is a package-level sentinel for unsupported HTTP methods.
	ErrMethodNotAllowed = errors.New("method not allowed")
	// ErrNoDataset signals that no feature dataset has been loaded yet.
	ErrNoDataset = errors.New("no dataset loaded")
)

// statusFromError maps handler errors onto HTTP status codes.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	case errors.Is(err, ErrNoDataset):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError renders err as a JSON body under the mapped status code.
func writeError(ctx context.Context, w http.ResponseWriter, log logging.Logger, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFromError(err))
	if encodeErr := json.NewEncoder(w).Encode(errorBody{Error: err.Error()}); encodeErr != nil {
		log.Warn(ctx, "write error response failed", logging.String("error", encodeErr.Error()))
	}
}

// writeJSON renders v as a 200 JSON response.
func writeJSON(ctx context.Context, w http.ResponseWriter, log logging.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn(ctx, "write response failed", logging.String("error", err.Error()))
	}
}
