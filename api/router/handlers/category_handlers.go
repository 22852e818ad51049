package handlers

import (
	"net/http"
	"strings"

	"inventory/logger"
	"inventory/models"
)

func (h *Handler) listCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		respondError(w, r, err, "Category")
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) listCategoriesWithCountsHandler(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategoriesWithCounts(r.Context())
	if err != nil {
		respondError(w, r, err, "Category")
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// categoryDetailsHandler godoc
// @Summary A category with its items
// @Tags Categories
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} models.CategoryDetails
// @Failure 404 {object} models.ErrorResponse
// @Router /categories/{id} [get]
func (h *Handler) categoryDetailsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	details, err := h.store.GetCategoryDetails(r.Context(), id)
	if err != nil {
		respondError(w, r, err, "Category")
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func decodeCategoryRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req models.CategoryRequest
	if !decodeJSON(w, r, &req) {
		return "", false
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return "", false
	}
	return name, true
}

// createCategoryHandler answers 201 for a new category and 200 with the
// existing one when the name is already taken.
func (h *Handler) createCategoryHandler(w http.ResponseWriter, r *http.Request) {
	name, ok := decodeCategoryRequest(w, r)
	if !ok {
		return
	}
	c, created, err := h.store.CreateCategory(r.Context(), name)
	if err != nil {
		respondError(w, r, err, "Category")
		return
	}
	if !created {
		writeJSON(w, http.StatusOK, c)
		return
	}
	logger.Info("Created category %d '%s'", c.ID, c.Name)
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) updateCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	name, ok := decodeCategoryRequest(w, r)
	if !ok {
		return
	}
	c, err := h.store.UpdateCategory(r.Context(), id, name)
	if err != nil {
		respondError(w, r, err, "Category")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) deleteCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteCategory(r.Context(), id); err != nil {
		respondError(w, r, err, "Category")
		return
	}
	writeMessage(w, "Category deleted")
}
