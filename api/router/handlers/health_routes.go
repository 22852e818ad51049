package handlers

import (
	"context"
	"net/http"
	"time"

	"inventory/logger"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) RegisterHealthRoutes(r chi.Router) {
	r.Get("/health", h.healthCheckHandler)
}

// healthCheckHandler godoc
// @Summary Liveness and database check
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]bool
// @Failure 503 {object} models.ErrorResponse
// @Router /health [get]
func (h *Handler) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		logger.Error("Health check: database unreachable: %v", err)
		writeError(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
