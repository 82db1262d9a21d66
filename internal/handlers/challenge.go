package handlers

import (
	"context"
	"net/http"
	"strings"

	"sponup-backend/internal/middleware"
	"sponup-backend/internal/models"
	"sponup-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// ChallengeAPI is the challenge service as the handlers use it
type ChallengeAPI interface {
	Create(ctx context.Context, authorID string, in services.ChallengeInput) (*models.Challenge, error)
	ListForAthlete(ctx context.Context, athleteID string) ([]*services.AthleteChallenge, error)
	ListForOwner(ctx context.Context, ownerID string) ([]*services.OwnedChallenge, error)
	GetForAthlete(ctx context.Context, athleteID, challengeID string) (*services.AthleteChallenge, error)
	GetForOwner(ctx context.Context, ownerID, challengeID string) (*services.OwnedChallenge, error)
	AudienceSize(ctx context.Context, groups []string) (int, error)
	Delete(ctx context.Context, authorID, challengeID string) error
}

// ChallengeHandler handles challenge-related HTTP requests
type ChallengeHandler struct {
	challenges ChallengeAPI
}

// NewChallengeHandler creates a new challenge handler
func NewChallengeHandler(challenges ChallengeAPI) *ChallengeHandler {
	return &ChallengeHandler{challenges: challenges}
}

// AudienceResponse is the size of a retailer broadcast audience
type AudienceResponse struct {
	AgeGroups []string `json:"age_groups"`
	Athletes  int      `json:"athletes"`
}

// CreateChallenge handles POST /api/v1/challenges
func (h *ChallengeHandler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req services.ChallengeInput
	if !decodeJSON(w, r, &req) {
		return
	}

	challenge, err := h.challenges.Create(r.Context(), userID, req)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to create challenge")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, challenge)
}

// GetChallenges handles GET /api/v1/challenges. Athletes get the
// challenges open to them; sponsors and retailers get their own.
func (h *ChallengeHandler) GetChallenges(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var (
		list interface{}
		err  error
	)
	if middleware.GetRole(ctx) == models.RoleAthlete {
		var challenges []*services.AthleteChallenge
		challenges, err = h.challenges.ListForAthlete(ctx, userID)
		list = nonNilList(challenges)
	} else {
		var challenges []*services.OwnedChallenge
		challenges, err = h.challenges.ListForOwner(ctx, userID)
		list = nonNilList(challenges)
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list challenges")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, list)
}

// GetChallenge handles GET /api/v1/challenges/{challenge_id}
func (h *ChallengeHandler) GetChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	challengeID := chi.URLParam(r, "challenge_id")

	var (
		challenge interface{}
		err       error
	)
	if middleware.GetRole(ctx) == models.RoleAthlete {
		challenge, err = h.challenges.GetForAthlete(ctx, userID, challengeID)
	} else {
		challenge, err = h.challenges.GetForOwner(ctx, userID, challengeID)
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("challenge_id", challengeID).Msg("Failed to get challenge")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, challenge)
}

// GetAudience handles GET /api/v1/challenges/audience?age_groups=10u,12u
func (h *ChallengeHandler) GetAudience(w http.ResponseWriter, r *http.Request) {
	var groups []string
	for _, g := range strings.Split(r.URL.Query().Get("age_groups"), ",") {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}

	count, err := h.challenges.AudienceSize(r.Context(), groups)
	if err != nil {
		log.Error().Err(err).Strs("age_groups", groups).Msg("Failed to count audience")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, AudienceResponse{AgeGroups: nonNilList(groups), Athletes: count})
}

// DeleteChallenge handles DELETE /api/v1/challenges/{challenge_id}
func (h *ChallengeHandler) DeleteChallenge(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	challengeID := chi.URLParam(r, "challenge_id")

	if err := h.challenges.Delete(r.Context(), userID, challengeID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("challenge_id", challengeID).Msg("Failed to delete challenge")
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
