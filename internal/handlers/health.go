package handlers

import (
	"net/http"
)

// HealthHandler responds with service health information.
type HealthHandler struct{}

// Handle implements GET /healthz. The body uses the same envelope as the API
// routes so probes and clients share one response shape.
func (HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	respondData(r.Context(), w, http.StatusOK, map[string]string{
		"service": "tubestream-api",
		"status":  "ok",
	}, "healthy")
}
