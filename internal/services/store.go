package services

import (
	"context"

	"sponup-backend/internal/models"
)

// UserStore is the user persistence the services need
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	CountAthletes(ctx context.Context, groups []string, all bool) (int, error)
	UpdateLinks(ctx context.Context, ids []string, fn func(users map[string]*models.User) error) error
}

// EventStore is the event persistence the services need
type EventStore interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id string) (*models.Event, error)
	ListByAthlete(ctx context.Context, athleteID string) ([]*models.Event, error)
	Delete(ctx context.Context, id, athleteID string) error
}

// ChallengeStore is the challenge persistence the services need
type ChallengeStore interface {
	Create(ctx context.Context, challenge *models.Challenge) error
	GetByID(ctx context.Context, id string) (*models.Challenge, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.Challenge, error)
	ListByCreator(ctx context.Context, userID string) ([]*models.Challenge, error)
	ListCandidates(ctx context.Context, athleteID string) ([]*models.Challenge, error)
	DeleteUnused(ctx context.Context, id, createdBy string) error
}

// SubmissionStore is the submission persistence the services need
type SubmissionStore interface {
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	GetByAthleteAndChallenge(ctx context.Context, athleteID, challengeID string) (*models.Submission, error)
	ListByAthlete(ctx context.Context, athleteID string) ([]*models.Submission, error)
	ListByChallenge(ctx context.Context, challengeID string) ([]*models.Submission, error)
	CountByChallenges(ctx context.Context, challengeIDs []string) (map[string]map[models.SubmissionStatus]int, error)
	Submit(ctx context.Context, athleteID, challengeID, emailForRewards, shippingAddress string,
		fn func(existing *models.Submission) (*models.Submission, error)) (*models.Submission, error)
	Transition(ctx context.Context, id string,
		fn func(current *models.Submission) (*models.Submission, error)) (*models.Submission, error)
}

// usersByID indexes users for name lookups
func usersByID(users []*models.User) map[string]*models.User {
	out := make(map[string]*models.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out
}
