package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"

	"inventory/core"
	"inventory/logger"
	"inventory/metrics"
	"inventory/models"

	"github.com/go-chi/chi/v5"
)

// multipartOverhead is allowed on top of uploads.max_size for the form
// boundaries and headers.
const multipartOverhead = 1 << 20

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, core.ErrNoFile):
		return "no_file"
	case errors.Is(err, core.ErrInvalidFileType):
		return "file_type"
	case errors.Is(err, core.ErrFileTooLarge):
		return "too_large"
	case errors.Is(err, core.ErrInvalidURL):
		return "invalid_url"
	case errors.Is(err, core.ErrUnsafeURL):
		return "unsafe_url"
	case errors.Is(err, core.ErrFetchFailed):
		return "fetch_failed"
	default:
		return "error"
	}
}

// formFile extracts the "file" part, mapping oversized bodies and missing
// parts onto the upload errors.
func (h *Handler) formFile(w http.ResponseWriter, r *http.Request) (*multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Uploads.MaxSize+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, core.ErrFileTooLarge
		}
		return nil, fmt.Errorf("%w: %v", core.ErrNoFile, err)
	}
	_, fh, err := r.FormFile("file")
	if err != nil {
		return nil, core.ErrNoFile
	}
	return fh, nil
}

func (h *Handler) handleMultipartUpload(w http.ResponseWriter, r *http.Request, kind core.UploadKind, save func(*multipart.FileHeader) (string, error)) {
	fh, err := h.formFile(w, r)
	if err == nil {
		defer r.MultipartForm.RemoveAll()
		var filename string
		if filename, err = save(fh); err == nil {
			metrics.RecordUpload(string(kind), "multipart", fh.Size)
			writeJSON(w, http.StatusOK, models.UploadResponse{Filename: filename})
			return
		}
	}
	metrics.RecordUploadRejection(string(kind), rejectionReason(err))
	logger.Warn("Rejected %s upload: %v", kind, err)
	respondError(w, r, err, "File")
}

// uploadImageHandler godoc
// @Summary Upload an item image
// @Description Stores the image and a bounded thumbnail next to it.
// @Tags Uploads
// @Accept mpfd
// @Produce json
// @Param file formData file true "JPEG, PNG, GIF or WebP"
// @Success 200 {object} models.UploadResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /upload/image [post]
func (h *Handler) uploadImageHandler(w http.ResponseWriter, r *http.Request) {
	h.handleMultipartUpload(w, r, core.KindImage, h.uploader.SaveImage)
}

func (h *Handler) uploadDatasheetHandler(w http.ResponseWriter, r *http.Request) {
	h.handleMultipartUpload(w, r, core.KindDatasheet, h.uploader.SaveDatasheet)
}

// datasheetFromURLHandler downloads a document server side. Targets in
// private networks are refused unless explicitly allowed in the config.
func (h *Handler) datasheetFromURLHandler(w http.ResponseWriter, r *http.Request) {
	var req models.DatasheetURLRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	filename, err := h.uploader.SaveDatasheetFromURL(r.Context(), req.URL)
	if err != nil {
		metrics.RecordUploadRejection(string(core.KindDatasheet), rejectionReason(err))
		respondError(w, r, err, "File")
		return
	}
	metrics.RecordUpload(string(core.KindDatasheet), "url", 0)
	writeJSON(w, http.StatusOK, models.UploadResponse{Filename: filename})
}

func (h *Handler) deleteFileHandler(w http.ResponseWriter, r *http.Request) {
	var req models.DeleteFileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	kind, err := core.ParseUploadKind(req.Type)
	if err == nil {
		err = h.uploader.Delete(kind, req.Filename)
	}
	if err != nil {
		respondError(w, r, err, "File")
		return
	}
	writeMessage(w, "File deleted")
}

// ServeUpload streams a stored file. It is mounted outside /api and needs no
// token so that <img> tags can load images directly.
func (h *Handler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	kind, err := core.ParseUploadKind(chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	path, err := h.uploader.Path(kind, chi.URLParam(r, "filename"))
	if err != nil {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, path)
}
