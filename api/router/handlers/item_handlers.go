package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"inventory/logger"
	"inventory/models"
)

// Filter parameter names. The first present key of each list wins; the
// German names are what the web client sends, the singular forms are the
// pre-multi-select parameters.
var (
	categoryParams = []string{"kategorien[]", "kategorien", "categories[]", "categories", "kategorie"}
	locationParams = []string{"orte[]", "orte", "locations[]", "locations", "ort"}
	tagParams      = []string{"tags[]", "tags", "tag"}
)

func parseItemFilters(r *http.Request) (models.ItemFilters, error) {
	q := r.URL.Query()
	f := models.ItemFilters{
		Search:       strings.TrimSpace(q.Get("search")),
		CategoryMode: models.ParseFilterMode(q.Get("categoryMode")),
		LocationMode: models.ParseFilterMode(q.Get("locationMode")),
		TagMode:      models.ParseFilterMode(q.Get("tagMode")),
		SortBy:       q.Get("sort"),
		SortOrder:    q.Get("order"),
	}
	var err error
	if f.CategoryIDs, err = queryIDs(q, categoryParams...); err != nil {
		return f, err
	}
	if f.LocationIDs, err = queryIDs(q, locationParams...); err != nil {
		return f, err
	}
	if f.TagIDs, err = queryIDs(q, tagParams...); err != nil {
		return f, err
	}
	return f, nil
}

// listItemsHandler godoc
// @Summary List items
// @Description Filters combine with AND across facets; each facet has its own mode.
// @Tags Items
// @Produce json
// @Param search query string false "Whitespace separated terms, all must match"
// @Param kategorien[] query []int false "Category IDs"
// @Param orte[] query []int false "Location IDs"
// @Param tags[] query []int false "Tag IDs"
// @Param categoryMode query string false "union, intersect or exclude"
// @Param locationMode query string false "union, intersect or exclude"
// @Param tagMode query string false "union, intersect or exclude"
// @Param sort query string false "created_at, updated_at, name, quantity or price"
// @Param order query string false "asc or desc"
// @Success 200 {array} models.Item
// @Failure 400 {object} models.ErrorResponse
// @Router /items [get]
func (h *Handler) listItemsHandler(w http.ResponseWriter, r *http.Request) {
	filters, err := parseItemFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := h.store.ListItems(r.Context(), filters)
	if err != nil {
		respondError(w, r, err, "Item")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) getItemHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	item, err := h.store.GetItem(r.Context(), id)
	if err != nil {
		respondError(w, r, err, "Item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func decodeItemInput(w http.ResponseWriter, r *http.Request) (models.ItemInput, bool) {
	var in models.ItemInput
	if !decodeJSON(w, r, &in) {
		return in, false
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return in, false
	}
	return in, true
}

// createItemHandler godoc
// @Summary Create an item
// @Tags Items
// @Accept json
// @Produce json
// @Param item body models.ItemInput true "Item"
// @Success 201 {object} models.Item
// @Failure 400 {object} models.ErrorResponse
// @Router /items [post]
func (h *Handler) createItemHandler(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeItemInput(w, r)
	if !ok {
		return
	}
	item, err := h.store.CreateItem(r.Context(), in)
	if err != nil {
		respondError(w, r, err, "Item")
		return
	}
	logger.Info("Created item %d '%s'", item.ID, item.Name)
	writeJSON(w, http.StatusCreated, item)
}

// updateItemHandler replaces the item. Stored files the new version no
// longer references are removed afterwards.
func (h *Handler) updateItemHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	in, ok := decodeItemInput(w, r)
	if !ok {
		return
	}
	updated, previous, err := h.store.UpdateItem(r.Context(), id, in)
	if err != nil {
		respondError(w, r, err, "Item")
		return
	}
	h.uploader.RemoveReplacedFiles(r.Context(), h.store, previous, updated)
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteItemHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	item, err := h.store.DeleteItem(r.Context(), id)
	if err != nil {
		respondError(w, r, err, "Item")
		return
	}
	h.uploader.RemoveItemFiles(r.Context(), h.store, item)
	writeMessage(w, "Item deleted")
}

func (h *Handler) autocompleteNamesHandler(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.AutocompleteNames(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondError(w, r, err, "Item")
		return
	}
	writeJSON(w, http.StatusOK, names)
}

// bulkUpdateItemsHandler godoc
// @Summary Update many items at once
// @Description Absent fields are left alone, a null categoryId or locationId unassigns it. All or nothing.
// @Tags Items
// @Accept json
// @Produce json
// @Param request body models.BulkUpdateRequest true "Item IDs and the change"
// @Success 200 {object} models.BulkUpdateResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /items/bulk-update [post]
func (h *Handler) bulkUpdateItemsHandler(w http.ResponseWriter, r *http.Request) {
	var req models.BulkUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Updates.IsEmpty() {
		writeError(w, http.StatusBadRequest, "No updates given")
		return
	}
	n, err := h.store.BulkUpdateItems(r.Context(), req.ItemIDs, req.Updates)
	if err != nil {
		respondError(w, r, err, "Item")
		return
	}
	logger.Info("Bulk update applied to %d items", n)
	writeJSON(w, http.StatusOK, models.BulkUpdateResponse{
		Message: fmt.Sprintf("%d items updated", n),
		Updated: n,
	})
}
