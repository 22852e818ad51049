package handlers

import (
	"net/http"
	"strings"

	"inventory/logger"
	"inventory/models"
)

func (h *Handler) listTagsHandler(w http.ResponseWriter, r *http.Request) {
	tags, err := h.store.ListTags(r.Context())
	if err != nil {
		respondError(w, r, err, "Tag")
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (h *Handler) listTagsWithCountsHandler(w http.ResponseWriter, r *http.Request) {
	tags, err := h.store.ListTagsWithCounts(r.Context())
	if err != nil {
		respondError(w, r, err, "Tag")
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (h *Handler) tagDetailsHandler(w http.ResponseWriter, r *http.Request) {
	tagID, ok := pathID(w, r, "tagID")
	if !ok {
		return
	}
	details, err := h.store.GetTagDetails(r.Context(), tagID)
	if err != nil {
		respondError(w, r, err, "Tag")
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func decodeTagRequest(w http.ResponseWriter, r *http.Request) (models.TagRequest, bool) {
	var req models.TagRequest
	if !decodeJSON(w, r, &req) {
		return req, false
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return req, false
	}
	return req, true
}

// createTagHandler godoc
// @Summary Create a tag
// @Description Returns the existing tag with 200 when the name is taken, ignoring case.
// @Tags Tags
// @Accept json
// @Produce json
// @Param tag body models.TagRequest true "Tag"
// @Success 201 {object} models.Tag
// @Success 200 {object} models.Tag
// @Failure 400 {object} models.ErrorResponse
// @Router /tags [post]
func (h *Handler) createTagHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTagRequest(w, r)
	if !ok {
		return
	}
	tag, created, err := h.store.CreateTag(r.Context(), req.Name, req.Color)
	if err != nil {
		respondError(w, r, err, "Tag")
		return
	}
	if !created {
		writeJSON(w, http.StatusOK, tag)
		return
	}
	logger.Info("Created tag %d '%s' (%s)", tag.ID, tag.Name, tag.Color)
	writeJSON(w, http.StatusCreated, tag)
}

// updateTagHandler renames a tag; a missing color keeps the current one.
func (h *Handler) updateTagHandler(w http.ResponseWriter, r *http.Request) {
	tagID, ok := pathID(w, r, "tagID")
	if !ok {
		return
	}
	req, ok := decodeTagRequest(w, r)
	if !ok {
		return
	}
	tag, err := h.store.UpdateTag(r.Context(), tagID, req.Name, req.Color)
	if err != nil {
		respondError(w, r, err, "Tag")
		return
	}
	logger.Info("Successfully updated tag ID %d. New name: '%s', New color: '%s'", tag.ID, tag.Name, tag.Color)
	writeJSON(w, http.StatusOK, tag)
}

func (h *Handler) deleteTagHandler(w http.ResponseWriter, r *http.Request) {
	tagID, ok := pathID(w, r, "tagID")
	if !ok {
		return
	}
	if err := h.store.DeleteTag(r.Context(), tagID); err != nil {
		respondError(w, r, err, "Tag")
		return
	}
	writeMessage(w, "Tag deleted")
}
