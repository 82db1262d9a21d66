package handlers

import (
	"context"
	"net/http"

	"sponup-backend/internal/middleware"
	"sponup-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// RelationshipAPI is the relationship service as the handlers use it
type RelationshipAPI interface {
	Request(ctx context.Context, requesterID, targetID string) error
	Accept(ctx context.Context, userID, requesterID string) error
	Unlink(ctx context.Context, userID, otherID string) error
	List(ctx context.Context, userID string) (*services.LinksView, error)
}

// RelationshipHandler handles the athlete and sponsor link handshake
type RelationshipHandler struct {
	relationships RelationshipAPI
}

// NewRelationshipHandler creates a new relationship handler
func NewRelationshipHandler(relationships RelationshipAPI) *RelationshipHandler {
	return &RelationshipHandler{relationships: relationships}
}

// CreateLinkRequest represents the request body for adding a link
type CreateLinkRequest struct {
	TargetID string `json:"target_id" validate:"required"`
}

// CreateLink handles POST /api/v1/links
func (h *RelationshipHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req CreateLinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.relationships.Request(ctx, userID, req.TargetID); err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("target_id", req.TargetID).
			Msg("Failed to request link")
		respondServiceError(w, err)
		return
	}

	h.respondLinks(w, r, userID, http.StatusCreated)
}

// AcceptLink handles POST /api/v1/links/{user_id}/accept
func (h *RelationshipHandler) AcceptLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	requesterID := chi.URLParam(r, "user_id")

	if err := h.relationships.Accept(ctx, userID, requesterID); err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("requester_id", requesterID).
			Msg("Failed to accept link")
		respondServiceError(w, err)
		return
	}

	h.respondLinks(w, r, userID, http.StatusOK)
}

// DeleteLink handles DELETE /api/v1/links/{user_id}, which declines a
// pending request or removes a confirmed link
func (h *RelationshipHandler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	otherID := chi.URLParam(r, "user_id")

	if err := h.relationships.Unlink(ctx, userID, otherID); err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("other_id", otherID).
			Msg("Failed to remove link")
		respondServiceError(w, err)
		return
	}

	h.respondLinks(w, r, userID, http.StatusOK)
}

// GetLinks handles GET /api/v1/links
func (h *RelationshipHandler) GetLinks(w http.ResponseWriter, r *http.Request) {
	h.respondLinks(w, r, middleware.GetUserID(r.Context()), http.StatusOK)
}

func (h *RelationshipHandler) respondLinks(w http.ResponseWriter, r *http.Request, userID string, statusCode int) {
	view, err := h.relationships.List(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list links")
		respondServiceError(w, err)
		return
	}
	respondJSON(w, statusCode, view)
}
