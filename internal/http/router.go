package httpapi

import (
	"net/http"

	"github.com/dsjohal14/usercount/internal/libs/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the API routes and middleware.
// Unmatched paths fall through to chi's default 404.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(metrics.InstrumentHandler)
	r.Use(Recoverer(h.logger))

	// Routes
	r.Get("/", h.HandleRoot)
	r.Get("/health", h.HandleHealth)
	r.Get("/api/usercount", h.HandleUserCount)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}
