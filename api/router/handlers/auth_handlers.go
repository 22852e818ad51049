package handlers

import (
	"net/http"

	"inventory/api/middleware"
	"inventory/logger"
	"inventory/metrics"
	"inventory/models"
	"inventory/validation"

	"github.com/goccy/go-json"
)

// loginHandler godoc
// @Summary Exchange the configured credentials for a bearer token
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body models.LoginRequest true "Username and password"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /auth/login [post]
func (h *Handler) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req)
	if err == nil {
		err = validation.ValidateStruct(&req)
	}
	if err != nil {
		metrics.RecordLogin("malformed")
		writeError(w, http.StatusBadRequest, "Username and password required")
		return
	}
	if !middleware.CheckCredentials(req.Username, req.Password, h.cfg.Auth.Username, h.cfg.Auth.Password) {
		metrics.RecordLogin("invalid")
		logger.Warn("Failed login for user '%s' from %s", req.Username, r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	metrics.RecordLogin("success")
	writeJSON(w, http.StatusOK, models.LoginResponse{Token: middleware.Token(req.Username, req.Password)})
}
