package handlers

import "github.com/go-chi/chi/v5"

func (h *Handler) RegisterUploadRoutes(r chi.Router) {
	r.Route("/upload", func(r chi.Router) {
		r.Post("/image", h.uploadImageHandler)
		r.Post("/datasheet", h.uploadDatasheetHandler)
		r.Post("/datasheet-from-url", h.datasheetFromURLHandler)
		r.Post("/delete", h.deleteFileHandler)
	})
}
