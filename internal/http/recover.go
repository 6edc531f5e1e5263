package httpapi

import (
	"net/http"
	"runtime/debug"

	"github.com/dsjohal14/usercount/internal/libs/obs"
	"github.com/rs/zerolog"
)

// Recoverer turns any panic below it into a logged, generic 500 response,
// so no request ends without a reply.
func Recoverer(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					// net/http aborts the response silently for this value
					panic(rvr)
				}

				reqLogger := obs.RequestLogger(logger, r)
				reqLogger.Error().
					Interface("panic", rvr).
					Bytes("stack", debug.Stack()).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("unhandled fault")

				writeJSON(w, http.StatusInternalServerError, ErrorResponse{
					Error:   internalServerError,
					Message: "Something went wrong!",
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
