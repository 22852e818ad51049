package models

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error" example:"Item not found"`
}

// MessageResponse is returned by operations that have no resource to echo back.
type MessageResponse struct {
	Message string `json:"message" example:"Item deleted"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string `json:"token" example:"YWRtaW46Y2hhbmdlbWU="`
}

// UploadResponse carries the generated filename of a stored upload.
type UploadResponse struct {
	Filename string `json:"filename" example:"18c3f0a1b2_9f2e4c1d.jpg"`
}

type DatasheetURLRequest struct {
	URL string `json:"url" validate:"required,url,max=2048"`
}

type DeleteFileRequest struct {
	Filename string `json:"filename" validate:"required"`
	Type     string `json:"type" validate:"required,oneof=image datasheet"`
}

type BulkUpdateResponse struct {
	Message string `json:"message"`
	Updated int    `json:"updated"`
}
