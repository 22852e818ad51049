package handlers

import (
	"inventory/api/middleware"

	"github.com/go-chi/chi/v5"
)

// RegisterAuthRoutes mounts the login endpoint behind the per-IP limiter.
func (h *Handler) RegisterAuthRoutes(r chi.Router) {
	r.With(middleware.LoginRateLimit(h.cfg.Auth.LoginRateLimit, h.cfg.Auth.LoginRateWindow)).
		Post("/auth/login", h.loginHandler)
}
