package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterTagRoutes sets up the routes for tag management.
func (h *Handler) RegisterTagRoutes(r chi.Router) {
	r.Route("/tags", func(subRouter chi.Router) {
		subRouter.Get("/", h.listTagsHandler)
		subRouter.Post("/", h.createTagHandler)
		subRouter.Get("/with-counts", h.listTagsWithCountsHandler)
	})

	r.Route("/tags/{tagID}", func(subRouter chi.Router) {
		subRouter.Get("/", h.tagDetailsHandler)
		subRouter.Put("/", h.updateTagHandler)
		subRouter.Delete("/", h.deleteTagHandler)
	})
}
