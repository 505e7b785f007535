package waitlist

import (
	"context"
	"net/http"
	"time"

	"github.com/circl-ai/circl/internal/events"
)

// HealthHandler exposes liveness and readiness probes for the waitlist API.
type HealthHandler struct {
	repo *Repository
	nats *events.Client
}

// NewHealthHandler creates a health handler. nats may be nil.
func NewHealthHandler(repo *Repository, nats *events.Client) *HealthHandler {
	return &HealthHandler{repo: repo, nats: nats}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /ready. It verifies the database and, when configured,
// the NATS connection.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.repo.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	if h.nats != nil && !h.nats.IsConnected() {
		writeError(w, http.StatusServiceUnavailable, "nats unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
