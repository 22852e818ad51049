package handlers

import "github.com/go-chi/chi/v5"

func (h *Handler) RegisterCategoryRoutes(r chi.Router) {
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.listCategoriesHandler)
		r.Post("/", h.createCategoryHandler)
		r.Get("/with-counts", h.listCategoriesWithCountsHandler)

		r.Get("/{id}", h.categoryDetailsHandler)
		r.Put("/{id}", h.updateCategoryHandler)
		r.Delete("/{id}", h.deleteCategoryHandler)
	})
}
