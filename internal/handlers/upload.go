package handlers

import (
	"context"
	"net/http"

	"sponup-backend/internal/middleware"
	"sponup-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// UploadAPI is the upload service as the handlers use it
type UploadAPI interface {
	GetPreSignedURL(ctx context.Context, userID string, req services.UploadRequest) (*services.UploadResponse, error)
}

// UploadHandler handles image upload requests
type UploadHandler struct {
	uploadService UploadAPI
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(uploadService UploadAPI) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
	}
}

// CreateUpload handles POST /api/v1/uploads
func (h *UploadHandler) CreateUpload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req services.UploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.uploadService.GetPreSignedURL(r.Context(), userID, req)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("kind", string(req.Kind)).
			Msg("Failed to generate pre-signed URL")
		respondServiceError(w, err)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("key", resp.Key).
		Msg("Upload URL generated")

	respondJSON(w, http.StatusOK, resp)
}
