package httpapi

import (
	"net/http"
	"time"

	"github.com/dsjohal14/usercount/internal/libs/obs"
)

// HandleHealth reports process uptime and whether storage is reachable
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.storageContext(r)
	defer cancel()

	resp := HealthResponse{
		Status:   "healthy",
		Database: "connected",
		Uptime:   time.Since(h.startedAt).Round(time.Second).String(),
	}
	status := http.StatusOK

	if err := h.counter.Ping(ctx); err != nil {
		reqLogger := obs.RequestLogger(h.logger, r)
		reqLogger.Warn().Err(err).Msg("health check: storage unavailable")
		resp.Status = "degraded"
		resp.Database = "unavailable"
		status = http.StatusServiceUnavailable
	}

	h.logger.Debug().Str("database", resp.Database).Msg("health check")

	writeJSON(w, status, resp)
}
