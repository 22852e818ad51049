package handlers

import "github.com/go-chi/chi/v5"

func (h *Handler) RegisterLocationRoutes(r chi.Router) {
	r.Route("/locations", func(r chi.Router) {
		r.Get("/", h.listLocationsHandler)
		r.Post("/", h.createLocationHandler)
		r.Get("/tree", h.locationTreeHandler)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getLocationHandler)
			r.Put("/", h.updateLocationHandler)
			r.Delete("/", h.deleteLocationHandler)
			r.Get("/details", h.locationDetailsHandler)
			r.Put("/details", h.updateLocationDetailsHandler)
		})
	})
}
