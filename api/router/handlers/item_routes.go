package handlers

import "github.com/go-chi/chi/v5"

// RegisterItemRoutes sets up the routes for item management.
func (h *Handler) RegisterItemRoutes(r chi.Router) {
	r.Route("/items", func(r chi.Router) {
		r.Get("/", h.listItemsHandler)
		r.Post("/", h.createItemHandler)
		// static segments before {id}
		r.Get("/autocomplete/names", h.autocompleteNamesHandler)
		r.Post("/bulk-update", h.bulkUpdateItemsHandler)

		r.Get("/{id}", h.getItemHandler)
		r.Put("/{id}", h.updateItemHandler)
		r.Delete("/{id}", h.deleteItemHandler)
	})
}
