package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sponup-backend/internal/models"
	"sponup-backend/internal/workflow"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxSubmissionImages = 10

var validate = validator.New()

// SubmissionService handles athletes submitting proof for challenges
type SubmissionService struct {
	challenges  ChallengeStore
	submissions SubmissionStore
	users       UserStore
	publisher   Publisher
	now         func() time.Time
}

// NewSubmissionService creates a new submission service
func NewSubmissionService(
	challenges ChallengeStore,
	submissions SubmissionStore,
	users UserStore,
	publisher Publisher,
) *SubmissionService {
	return &SubmissionService{
		challenges:  challenges,
		submissions: submissions,
		users:       users,
		publisher:   publisher,
		now:         time.Now,
	}
}

// SubmitInput is the proof an athlete uploads for a challenge, with where
// the reward should go
type SubmitInput struct {
	ImageURLs       []string `json:"image_urls" validate:"required,min=1,max=10,dive,required"`
	EmailForRewards string   `json:"email_for_rewards" validate:"required,email"`
	ShippingAddress string   `json:"shipping_address" validate:"required"`
}

// AthleteSubmission is a submission joined with the challenge it answers
type AthleteSubmission struct {
	*models.Submission
	ChallengeTitle string               `json:"challenge_title"`
	Reward         string               `json:"reward"`
	Achievements   []models.Achievement `json:"achievements"`
	Window         *workflow.Window     `json:"window,omitempty"`
}

// Submit creates the athlete's submission for a challenge or replaces the
// images of the existing one. The athlete's delivery info is saved in the
// same transaction.
func (s *SubmissionService) Submit(ctx context.Context, athleteID, challengeID string, in SubmitInput) (*models.Submission, error) {
	images, err := cleanImages(in.ImageURLs)
	if err != nil {
		return nil, err
	}
	email := strings.TrimSpace(in.EmailForRewards)
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, invalid("email_for_rewards", "a valid email for rewards is required")
	}
	address := strings.TrimSpace(in.ShippingAddress)
	if address == "" {
		return nil, invalid("shipping_address", "a shipping address is required")
	}

	athlete, err := s.users.GetByID(ctx, athleteID)
	if err != nil {
		return nil, err
	}
	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if !workflow.IsEligible(challenge, athlete) {
		return nil, fmt.Errorf("challenge %s: %w", challengeID, ErrNotFound)
	}

	now := s.now()
	window := workflow.ChallengeWindow(challenge, now)

	submission, err := s.submissions.Submit(ctx, athleteID, challengeID, email, address,
		func(existing *models.Submission) (*models.Submission, error) {
			var status *models.SubmissionStatus
			if existing != nil {
				status = &existing.Status
			}
			if !workflow.CanSubmit(window, status) {
				if !window.AcceptsSubmissions() {
					return nil, fmt.Errorf("challenge is %s: %w", window.State, ErrSubmissionsClosed)
				}
				return nil, fmt.Errorf("submission is %s: %w", *status, ErrInvalidTransition)
			}

			if existing == nil {
				return &models.Submission{
					ID:          uuid.New().String(),
					ImageURLs:   images,
					Status:      models.StatusPending,
					SubmittedAt: now,
				}, nil
			}

			next, err := workflow.Next(existing.Status, workflow.ActionResubmit)
			if err != nil {
				return nil, err
			}
			updated := *existing
			updated.ImageURLs = images
			updated.Status = next
			updated.SubmittedAt = now
			return &updated, nil
		})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("submission_id", submission.ID).
		Str("athlete_id", athleteID).
		Str("challenge_id", challengeID).
		Int("images", len(images)).
		Msg("Submission saved")

	publish(ctx, s.publisher, Change{
		Kind:        ChangeSubmission,
		ChallengeID: challengeID,
		AthleteID:   athleteID,
		AuthorID:    challenge.CreatedBy,
	})
	return submission, nil
}

// ListForAthlete returns the athlete's submissions, optionally only those
// with the given status (case-insensitive)
func (s *SubmissionService) ListForAthlete(ctx context.Context, athleteID, statusFilter string) ([]*AthleteSubmission, error) {
	var filter models.SubmissionStatus
	if strings.TrimSpace(statusFilter) != "" {
		status, ok := workflow.ParseStatus(statusFilter)
		if !ok {
			return nil, invalid("status", fmt.Sprintf("unknown status %q", statusFilter))
		}
		filter = status
	}

	submissions, err := s.submissions.ListByAthlete(ctx, athleteID)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, sub := range submissions {
		if filter == "" || sub.Status == filter {
			ids = append(ids, sub.ChallengeID)
		}
	}
	challenges, err := s.challenges.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Challenge, len(challenges))
	for _, c := range challenges {
		byID[c.ID] = c
	}

	now := s.now()
	out := make([]*AthleteSubmission, 0, len(ids))
	for _, sub := range submissions {
		if filter != "" && sub.Status != filter {
			continue
		}
		item := &AthleteSubmission{Submission: sub}
		if c, ok := byID[sub.ChallengeID]; ok {
			window := workflow.ChallengeWindow(c, now)
			item.ChallengeTitle = c.Title
			item.Reward = c.Reward
			item.Achievements = c.Achievements
			item.Window = &window
		}
		out = append(out, item)
	}
	return out, nil
}

func cleanImages(urls []string) ([]string, error) {
	images := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			images = append(images, u)
		}
	}
	if len(images) == 0 {
		return nil, invalid("image_urls", "upload at least one image")
	}
	if len(images) > maxSubmissionImages {
		return nil, invalid("image_urls", fmt.Sprintf("upload at most %d images", maxSubmissionImages))
	}
	return images, nil
}
