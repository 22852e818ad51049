package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"inventory/config"
	"inventory/core"
	"inventory/database"
	"inventory/logger"
	"inventory/models"
	"inventory/validation"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

const maxJSONBody = 1 << 20

// Handler carries the dependencies shared by every API endpoint.
type Handler struct {
	store    *database.Store
	uploader *core.Uploader
	cfg      *config.Configuration
}

func New(store *database.Store, uploader *core.Uploader, cfg *config.Configuration) *Handler {
	return &Handler{store: store, uploader: uploader, cfg: cfg}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: msg})
}

// decodeJSON reads and validates a request body. It writes the 400 itself
// and reports whether the handler may continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	defer body.Close()
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "Request body is empty")
		} else {
			writeError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		}
		return false
	}
	if err := validation.ValidateStruct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// pathID parses a positive integer URL parameter, answering 400 otherwise.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid ID '%s'", raw))
		return 0, false
	}
	return id, true
}

// queryIDs collects IDs from the first of keys present in q. Every key may
// be repeated and every value may hold a comma separated list.
func queryIDs(q url.Values, keys ...string) ([]int64, error) {
	for _, key := range keys {
		values, ok := q[key]
		if !ok {
			continue
		}
		var ids []int64
		for _, v := range values {
			for _, part := range strings.Split(v, ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				id, err := strconv.ParseInt(part, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("invalid %s value '%s'", strings.TrimSuffix(key, "[]"), part)
				}
				ids = append(ids, id)
			}
		}
		if len(ids) > 0 {
			return ids, nil
		}
	}
	return nil, nil
}

// respondError maps store and upload errors onto HTTP statuses. entity names
// the resource for not-found and conflict messages.
func respondError(w http.ResponseWriter, r *http.Request, err error, entity string) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, entity+" not found")
	case errors.Is(err, database.ErrDuplicateName):
		writeError(w, http.StatusConflict, entity+" name already exists")
	case errors.Is(err, database.ErrCategoryInUse):
		writeError(w, http.StatusBadRequest, "Cannot delete category in use")
	case errors.Is(err, database.ErrLocationInUse):
		writeError(w, http.StatusBadRequest, "Cannot delete location in use")
	case errors.Is(err, database.ErrLocationHasChildren):
		writeError(w, http.StatusBadRequest, "Cannot delete location with child locations")
	case errors.Is(err, database.ErrLocationCycle):
		writeError(w, http.StatusBadRequest, "A location cannot be moved below itself or one of its descendants")
	case errors.Is(err, database.ErrInvalidReference):
		writeError(w, http.StatusBadRequest, "Referenced category, location or tag does not exist")
	case errors.Is(err, core.ErrFileNotFound):
		writeError(w, http.StatusNotFound, "File not found")
	case errors.Is(err, core.ErrNoFile),
		errors.Is(err, core.ErrInvalidFileType),
		errors.Is(err, core.ErrFileTooLarge),
		errors.Is(err, core.ErrInvalidURL),
		errors.Is(err, core.ErrUnsafeURL),
		errors.Is(err, core.ErrFetchFailed),
		errors.Is(err, core.ErrInvalidUploadKind):
		writeError(w, http.StatusBadRequest, uploadErrorMessage(err))
	default:
		logger.Error("%s %s: %v", r.Method, r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func uploadErrorMessage(err error) string {
	msg := err.Error()
	if msg == "" {
		return "Upload failed"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
