package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"sponup-backend/internal/middleware"
	"sponup-backend/internal/models"
	"sponup-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// SubmissionAPI is the athlete side of submissions as the handlers use it
type SubmissionAPI interface {
	Submit(ctx context.Context, athleteID, challengeID string, in services.SubmitInput) (*models.Submission, error)
	ListForAthlete(ctx context.Context, athleteID, statusFilter string) ([]*services.AthleteSubmission, error)
}

// ReviewAPI is the sponsor side of submissions as the handlers use it
type ReviewAPI interface {
	ListForChallenge(ctx context.Context, reviewerID, challengeID string) ([]*services.ReviewItem, error)
	Approve(ctx context.Context, reviewerID, submissionID string) (*models.Submission, error)
	Reject(ctx context.Context, reviewerID, submissionID string) (*models.Submission, error)
	Reward(ctx context.Context, reviewerID, submissionID string, delivery models.Delivery) (*models.Submission, error)
	ExportRewards(ctx context.Context, reviewerID, challengeID string, w io.Writer) error
}

// SubmissionHandler handles submitting, reviewing and rewarding
type SubmissionHandler struct {
	submissions SubmissionAPI
	review      ReviewAPI
}

// NewSubmissionHandler creates a new submission handler
func NewSubmissionHandler(submissions SubmissionAPI, review ReviewAPI) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions, review: review}
}

// RewardRequest represents the request body for rewarding a submission
type RewardRequest struct {
	DeliveryMethod        models.DeliveryMethod `json:"delivery_method"`
	RedemptionCode        *string               `json:"redemption_code"`
	TrackingNumber        *string               `json:"tracking_number"`
	Carrier               *string               `json:"carrier"`
	EstimatedDeliveryDate *string               `json:"estimated_delivery_date" validate:"omitempty,datetime=2006-01-02"`
	Notes                 *string               `json:"notes"`
}

func (req RewardRequest) delivery() models.Delivery {
	d := models.Delivery{
		Method:         req.DeliveryMethod,
		RedemptionCode: req.RedemptionCode,
		TrackingNumber: req.TrackingNumber,
		Carrier:        req.Carrier,
		Notes:          req.Notes,
	}
	if req.EstimatedDeliveryDate != nil {
		if t, err := time.Parse(time.DateOnly, *req.EstimatedDeliveryDate); err == nil {
			d.EstimatedDeliveryDate = &t
		}
	}
	return d
}

// PutSubmission handles PUT /api/v1/challenges/{challenge_id}/submission
func (h *SubmissionHandler) PutSubmission(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	challengeID := chi.URLParam(r, "challenge_id")

	var req services.SubmitInput
	if !decodeJSON(w, r, &req) {
		return
	}

	submission, err := h.submissions.Submit(r.Context(), userID, challengeID, req)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("challenge_id", challengeID).Msg("Failed to submit")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, submission)
}

// GetMySubmissions handles GET /api/v1/submissions?status=
func (h *SubmissionHandler) GetMySubmissions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	status := r.URL.Query().Get("status")

	submissions, err := h.submissions.ListForAthlete(r.Context(), userID, status)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("status", status).Msg("Failed to list submissions")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, nonNilList(submissions))
}

// GetChallengeSubmissions handles GET /api/v1/challenges/{challenge_id}/submissions
func (h *SubmissionHandler) GetChallengeSubmissions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	challengeID := chi.URLParam(r, "challenge_id")

	items, err := h.review.ListForChallenge(r.Context(), userID, challengeID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("challenge_id", challengeID).Msg("Failed to list challenge submissions")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, nonNilList(items))
}

// ApproveSubmission handles POST /api/v1/submissions/{submission_id}/approve
func (h *SubmissionHandler) ApproveSubmission(w http.ResponseWriter, r *http.Request) {
	h.applyReview(w, r, "approve", h.review.Approve)
}

// RejectSubmission handles POST /api/v1/submissions/{submission_id}/reject
func (h *SubmissionHandler) RejectSubmission(w http.ResponseWriter, r *http.Request) {
	h.applyReview(w, r, "reject", h.review.Reject)
}

func (h *SubmissionHandler) applyReview(
	w http.ResponseWriter,
	r *http.Request,
	action string,
	apply func(ctx context.Context, reviewerID, submissionID string) (*models.Submission, error),
) {
	userID := middleware.GetUserID(r.Context())
	submissionID := chi.URLParam(r, "submission_id")

	submission, err := apply(r.Context(), userID, submissionID)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("submission_id", submissionID).
			Str("action", action).
			Msg("Failed to review submission")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, submission)
}

// RewardSubmission handles POST /api/v1/submissions/{submission_id}/reward
func (h *SubmissionHandler) RewardSubmission(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	submissionID := chi.URLParam(r, "submission_id")

	var req RewardRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	submission, err := h.review.Reward(r.Context(), userID, submissionID, req.delivery())
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("submission_id", submissionID).
			Str("delivery_method", string(req.DeliveryMethod)).
			Msg("Failed to reward submission")

		var verr *services.ValidationError
		if errors.As(err, &verr) {
			respondValidation(w, verr, http.StatusUnprocessableEntity)
			return
		}
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, submission)
}

// ExportSubmissions handles GET /api/v1/challenges/{challenge_id}/submissions/export
func (h *SubmissionHandler) ExportSubmissions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	challengeID := chi.URLParam(r, "challenge_id")

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="rewards-%s.xlsx"`, challengeID))

	out := &trackingWriter{w: w}
	if err := h.review.ExportRewards(r.Context(), userID, challengeID, out); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("challenge_id", challengeID).Msg("Failed to export rewards")
		if out.written {
			return
		}
		w.Header().Del("Content-Disposition")
		respondServiceError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Str("challenge_id", challengeID).Msg("Rewards exported")
}

// trackingWriter records whether anything reached the client, so an error
// before the first byte can still be sent as JSON
type trackingWriter struct {
	w       http.ResponseWriter
	written bool
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	t.written = true
	return t.w.Write(p)
}
