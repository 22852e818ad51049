package handlers

import (
	"net/http"
	"strings"

	"inventory/logger"
	"inventory/models"
)

func (h *Handler) listLocationsHandler(w http.ResponseWriter, r *http.Request) {
	locations, err := h.store.ListLocations(r.Context())
	if err != nil {
		respondError(w, r, err, "Location")
		return
	}
	writeJSON(w, http.StatusOK, locations)
}

// locationTreeHandler godoc
// @Summary Locations as a nested tree
// @Tags Locations
// @Produce json
// @Success 200 {array} models.LocationNode
// @Router /locations/tree [get]
func (h *Handler) locationTreeHandler(w http.ResponseWriter, r *http.Request) {
	tree, err := h.store.GetLocationTree(r.Context())
	if err != nil {
		respondError(w, r, err, "Location")
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (h *Handler) getLocationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	loc, err := h.store.GetLocation(r.Context(), id)
	if err != nil {
		respondError(w, r, err, "Location")
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (h *Handler) locationDetailsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	details, err := h.store.GetLocationDetails(r.Context(), id)
	if err != nil {
		respondError(w, r, err, "Location")
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *Handler) createLocationHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LocationCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	loc, err := h.store.CreateLocation(r.Context(), req)
	if err != nil {
		respondError(w, r, err, "Location")
		return
	}
	logger.Info("Created location %d '%s'", loc.ID, loc.Path)
	writeJSON(w, http.StatusCreated, loc)
}

// updateLocationHandler godoc
// @Summary Rename, move or describe a location
// @Description Partial update. A rename or move recomputes the path of the whole subtree.
// @Tags Locations
// @Accept json
// @Produce json
// @Param id path int true "Location ID"
// @Param location body models.LocationUpdateRequest true "Changed fields"
// @Success 200 {object} models.Location
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /locations/{id} [put]
func (h *Handler) updateLocationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.LocationUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "Name cannot be empty")
			return
		}
		req.Name = &name
	}
	h.applyLocationUpdate(w, r, id, req)
}

// updateLocationDetailsHandler only touches description and inventory status.
func (h *Handler) updateLocationDetailsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.LocationUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.applyLocationUpdate(w, r, id, models.LocationUpdateRequest{
		Description:     req.Description,
		InventoryStatus: req.InventoryStatus,
	})
}

func (h *Handler) applyLocationUpdate(w http.ResponseWriter, r *http.Request, id int64, req models.LocationUpdateRequest) {
	loc, err := h.store.UpdateLocation(r.Context(), id, req)
	if err != nil {
		respondError(w, r, err, "Location")
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (h *Handler) deleteLocationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteLocation(r.Context(), id); err != nil {
		respondError(w, r, err, "Location")
		return
	}
	writeMessage(w, "Location deleted")
}
