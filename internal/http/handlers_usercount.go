package httpapi

import (
	"net/http"

	"github.com/dsjohal14/usercount/internal/libs/obs"
	"github.com/dsjohal14/usercount/internal/scope/db"
)

// HandleUserCount returns the number of rows in the users table
func (h *Handler) HandleUserCount(w http.ResponseWriter, r *http.Request) {
	logger := obs.RequestLogger(h.logger, r)

	ctx, cancel := h.storageContext(r)
	defer cancel()

	total, err := h.counter.CountUsers(ctx)
	if err != nil {
		kind := db.Kind(err)
		logger.Error().
			Err(err).
			Str("kind", kind.String()).
			Msg("failed to retrieve user count")

		writeError(w, http.StatusInternalServerError,
			"Failed to retrieve user count from database",
			h.errorDetail(err, kind),
			errorCode(kind),
		)
		return
	}

	logger.Debug().Int64("total_users", total).Msg("user count")

	writeJSON(w, http.StatusOK, UserCountResponse{TotalUsers: total})
}

// errorDetail returns the failure message shown to clients
func (h *Handler) errorDetail(err error, kind db.ErrorKind) string {
	if h.errorDetails {
		return err.Error()
	}
	switch kind {
	case db.KindConnection:
		return db.ErrConnection.Error()
	case db.KindQuery:
		return db.ErrQuery.Error()
	default:
		return "unexpected error"
	}
}

func errorCode(kind db.ErrorKind) string {
	switch kind {
	case db.KindConnection:
		return "DATABASE_UNAVAILABLE"
	case db.KindQuery:
		return "QUERY_FAILED"
	default:
		return "INTERNAL"
	}
}
