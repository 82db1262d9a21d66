package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"sponup-backend/internal/models"
	"sponup-backend/internal/workflow"

	"github.com/rs/zerolog/log"
)

// ReviewService handles sponsors reviewing and rewarding submissions
type ReviewService struct {
	challenges  ChallengeStore
	submissions SubmissionStore
	users       UserStore
	publisher   Publisher
	now         func() time.Time
}

// NewReviewService creates a new review service
func NewReviewService(
	challenges ChallengeStore,
	submissions SubmissionStore,
	users UserStore,
	publisher Publisher,
) *ReviewService {
	return &ReviewService{
		challenges:  challenges,
		submissions: submissions,
		users:       users,
		publisher:   publisher,
		now:         time.Now,
	}
}

// ReviewItem is a submission as the challenge author reviews it
type ReviewItem struct {
	*models.Submission
	AthleteName string                 `json:"athlete_name"`
	Actions     workflow.ReviewActions `json:"actions"`
}

// ownedChallenge loads a challenge and checks reviewerID authored it
func (s *ReviewService) ownedChallenge(ctx context.Context, reviewerID, challengeID string) (*models.Challenge, error) {
	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.CreatedBy != reviewerID {
		return nil, fmt.Errorf("challenge %s: %w", challengeID, ErrForbidden)
	}
	return challenge, nil
}

// ListForChallenge returns every submission for one of the reviewer's
// challenges with athlete names resolved in a single query
func (s *ReviewService) ListForChallenge(ctx context.Context, reviewerID, challengeID string) ([]*ReviewItem, error) {
	if _, err := s.ownedChallenge(ctx, reviewerID, challengeID); err != nil {
		return nil, err
	}
	return s.reviewItems(ctx, challengeID)
}

func (s *ReviewService) reviewItems(ctx context.Context, challengeID string) ([]*ReviewItem, error) {
	submissions, err := s.submissions.ListByChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(submissions))
	for _, sub := range submissions {
		ids = append(ids, sub.AthleteID)
	}
	athletes, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := usersByID(athletes)

	items := make([]*ReviewItem, 0, len(submissions))
	for _, sub := range submissions {
		item := &ReviewItem{Submission: sub, Actions: workflow.ActionsFor(sub.Status)}
		if a, ok := names[sub.AthleteID]; ok {
			item.AthleteName = a.DisplayName()
		}
		items = append(items, item)
	}
	return items, nil
}

// Approve accepts a pending submission
func (s *ReviewService) Approve(ctx context.Context, reviewerID, submissionID string) (*models.Submission, error) {
	return s.transition(ctx, reviewerID, submissionID, workflow.ActionApprove, nil)
}

// Reject turns down a pending submission. The athlete may resubmit while
// the window is open.
func (s *ReviewService) Reject(ctx context.Context, reviewerID, submissionID string) (*models.Submission, error) {
	return s.transition(ctx, reviewerID, submissionID, workflow.ActionReject, nil)
}

// Reward marks an approved submission as rewarded and records how the
// reward is delivered. Invalid delivery details change nothing.
func (s *ReviewService) Reward(ctx context.Context, reviewerID, submissionID string, delivery models.Delivery) (*models.Submission, error) {
	cleaned, err := workflow.ValidateDelivery(delivery)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, reviewerID, submissionID, workflow.ActionReward, cleaned)
}

func (s *ReviewService) transition(
	ctx context.Context,
	reviewerID, submissionID string,
	action workflow.Action,
	delivery *models.Delivery,
) (*models.Submission, error) {
	current, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedChallenge(ctx, reviewerID, current.ChallengeID); err != nil {
		return nil, err
	}

	now := s.now()
	updated, err := s.submissions.Transition(ctx, submissionID, func(locked *models.Submission) (*models.Submission, error) {
		next, err := workflow.Next(locked.Status, action)
		if err != nil {
			return nil, err
		}
		out := *locked
		out.Status = next
		if action == workflow.ActionReward {
			out.Delivery = delivery
			out.RewardedAt = &now
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("submission_id", submissionID).
		Str("reviewer_id", reviewerID).
		Str("action", string(action)).
		Str("status", string(updated.Status)).
		Msg("Submission reviewed")

	publish(ctx, s.publisher, Change{
		Kind:        ChangeSubmission,
		ChallengeID: updated.ChallengeID,
		AthleteID:   updated.AthleteID,
		AuthorID:    reviewerID,
	})
	return updated, nil
}

// ExportRewards writes the reward report of one of the reviewer's
// challenges as an XLSX workbook
func (s *ReviewService) ExportRewards(ctx context.Context, reviewerID, challengeID string, w io.Writer) error {
	challenge, err := s.ownedChallenge(ctx, reviewerID, challengeID)
	if err != nil {
		return err
	}
	items, err := s.reviewItems(ctx, challengeID)
	if err != nil {
		return err
	}
	return WriteRewardReport(w, challenge, items)
}
