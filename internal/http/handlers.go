package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	// Version is reported by the root endpoint
	Version = "1.0.0"

	defaultQueryTimeout = 5 * time.Second

	internalServerError = "Internal Server Error"
)

// UserCounter is the storage-backed operation set the API depends on
type UserCounter interface {
	CountUsers(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers for the API
type Handler struct {
	counter      UserCounter
	logger       zerolog.Logger
	queryTimeout time.Duration
	errorDetails bool
	startedAt    time.Time
}

// HandlerOption configures a Handler
type HandlerOption func(*Handler)

// WithQueryTimeout bounds each storage call made on behalf of a request
func WithQueryTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.queryTimeout = d
		}
	}
}

// WithErrorDetails includes full storage error text in 500 responses.
// Without it clients only see the short error kind.
func WithErrorDetails(enabled bool) HandlerOption {
	return func(h *Handler) {
		h.errorDetails = enabled
	}
}

// NewHandler creates a new HTTP handler
func NewHandler(counter UserCounter, logger zerolog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		counter:      counter,
		logger:       logger,
		queryTimeout: defaultQueryTimeout,
		startedAt:    time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Helper functions used across all handlers

// storageContext detaches storage work from client cancellation so a handle
// opened for the request always runs to completion and gets released.
func (h *Handler) storageContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), h.queryTimeout)
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response with the given status code
func writeError(w http.ResponseWriter, status int, message, details, code string) {
	writeJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Details: details,
		Code:    code,
	})
}
