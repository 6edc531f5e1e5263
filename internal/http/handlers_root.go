package httpapi

import "net/http"

// HandleRoot describes the service. It never touches storage.
func (h *Handler) HandleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Message: "User Count API is running!",
		Version: Version,
		Endpoints: Endpoints{
			UserCount: "/api/usercount",
			Health:    "/",
		},
	})
}
