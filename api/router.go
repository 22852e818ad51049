package api

import (
	"net/http"

	"inventory/api/middleware"
	"inventory/api/router/handlers"
	"inventory/config"
	"inventory/core"
	"inventory/database"
	"inventory/logger"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the complete HTTP handler: the JSON API under /api, the
// public upload files, optional metrics and the optional web client.
func NewRouter(store *database.Store, uploader *core.Uploader, cfg *config.Configuration) http.Handler {
	h := handlers.New(store, uploader, cfg)

	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.CORS(cfg.CORS.Origins))

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Instrument)

		h.RegisterAuthRoutes(r)
		h.RegisterHealthRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerAuth(cfg.Auth.Username, cfg.Auth.Password))
			h.RegisterItemRoutes(r)
			h.RegisterLocationRoutes(r)
			h.RegisterCategoryRoutes(r)
			h.RegisterTagRoutes(r)
			h.RegisterUploadRoutes(r)
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug("API catch-all: unhandled route %s %s", r.Method, r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"Not found"}`))
		})
	})

	router.Get("/uploads/{type}/{filename}", h.ServeUpload)

	if cfg.Metrics.Enabled {
		router.Handle("/metrics", promhttp.Handler())
	}

	if cfg.Server.StaticDir != "" {
		router.NotFound(spaHandler(cfg.Server.StaticDir))
		logger.Info("Serving web client from %s", cfg.Server.StaticDir)
	}

	return router
}
