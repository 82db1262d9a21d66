package handlers

import (
	"context"
	"net/http"

	"sponup-backend/internal/middleware"
	"sponup-backend/internal/models"
	"sponup-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// UserAPI is the user service as the handlers use it
type UserAPI interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, string, error)
	SignIn(ctx context.Context, idToken string) (*models.User, string, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetPublicProfile(ctx context.Context, id string) (*services.PublicUser, error)
	UpdateProfile(ctx context.Context, userID string, update services.ProfileUpdate) (*models.User, error)
}

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService UserAPI
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService UserAPI) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// SessionResponse is returned after registering or signing in
type SessionResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// SignInRequest represents the request body for signing in
type SignInRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// CreateUser handles POST /api/v1/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}

	user, token, err := h.userService.Register(r.Context(), req)
	if err != nil {
		log.Error().Err(err).Str("role", string(req.Role)).Msg("Failed to register user")
		respondServiceError(w, err)
		return
	}

	log.Info().
		Str("user_id", user.ID).
		Str("role", string(user.Role)).
		Msg("User created")

	respondJSON(w, http.StatusCreated, SessionResponse{User: user, Token: token})
}

// CreateSession handles POST /api/v1/sessions
func (h *UserHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, token, err := h.userService.SignIn(r.Context(), req.IDToken)
	if err != nil {
		log.Error().Err(err).Msg("Failed to sign in")
		respondServiceError(w, err)
		return
	}

	log.Info().Str("user_id", user.ID).Msg("User signed in")
	respondJSON(w, http.StatusOK, SessionResponse{User: user, Token: token})
}

// GetMe handles GET /api/v1/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to get user")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// UpdateMe handles PATCH /api/v1/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req services.ProfileUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to update profile")
		respondServiceError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Msg("Profile updated")
	respondJSON(w, http.StatusOK, user)
}

// GetUser handles GET /api/v1/users/{user_id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "user_id")

	profile, err := h.userService.GetPublicProfile(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("target_id", id).Msg("Failed to get user profile")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}
