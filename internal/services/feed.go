package services

import (
	"context"

	"sponup-backend/internal/models"
	"sponup-backend/internal/workflow"

	"github.com/rs/zerolog/log"
)

// Realtime message types. Every message carries the full current list and
// replaces the client's copy.
const (
	MessageSubmissions          = "submissions"
	MessageChallengeSubmissions = "challenge_submissions"
	MessageChallenges           = "challenges"
	MessageError                = "error"
)

// Pusher delivers messages to connected users
type Pusher interface {
	SendToUser(userID string, message WSMessage) error
	IsOnline(userID string) bool
	ConnectedUsers() []string
}

// Feed turns committed changes into full-state pushes for the users on
// this replica
type Feed struct {
	pusher      Pusher
	users       UserStore
	challenges  ChallengeStore
	listings    *ChallengeService
	submissions *SubmissionService
	review      *ReviewService
}

// NewFeed creates a new realtime feed
func NewFeed(
	pusher Pusher,
	users UserStore,
	challenges ChallengeStore,
	listings *ChallengeService,
	submissions *SubmissionService,
	review *ReviewService,
) *Feed {
	return &Feed{
		pusher:      pusher,
		users:       users,
		challenges:  challenges,
		listings:    listings,
		submissions: submissions,
		review:      review,
	}
}

// Handle refreshes the snapshots affected by change
func (f *Feed) Handle(ctx context.Context, change Change) {
	switch change.Kind {
	case ChangeSubmission:
		if f.pusher.IsOnline(change.AthleteID) {
			f.pushAthleteSubmissions(ctx, change.AthleteID)
			f.pushAthleteChallenges(ctx, change.AthleteID)
		}
		if f.pusher.IsOnline(change.AuthorID) {
			f.pushChallengeSubmissions(ctx, change.AuthorID, change.ChallengeID)
			f.pushOwnedChallenges(ctx, change.AuthorID)
		}
	case ChangeChallenge:
		f.handleChallenge(ctx, change)
	default:
		log.Warn().Str("kind", string(change.Kind)).Msg("Unknown change kind")
	}
}

func (f *Feed) handleChallenge(ctx context.Context, change Change) {
	if f.pusher.IsOnline(change.AuthorID) {
		f.pushOwnedChallenges(ctx, change.AuthorID)
	}

	connected := f.pusher.ConnectedUsers()
	if len(connected) == 0 {
		return
	}
	challenge, err := f.challenges.GetByID(ctx, change.ChallengeID)
	if err != nil {
		log.Error().Err(err).Str("challenge_id", change.ChallengeID).Msg("Failed to load changed challenge")
		return
	}
	users, err := f.users.GetByIDs(ctx, connected)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load connected users")
		return
	}

	for _, u := range users {
		if u.Role == models.RoleAthlete && workflow.IsEligible(challenge, u) {
			f.pushAthleteChallenges(ctx, u.ID)
		}
	}
}

// Snapshot sends a newly connected user every list they subscribe to
func (f *Feed) Snapshot(ctx context.Context, userID string, role models.Role) {
	if role == models.RoleAthlete {
		f.pushAthleteChallenges(ctx, userID)
		f.pushAthleteSubmissions(ctx, userID)
		return
	}
	f.pushOwnedChallenges(ctx, userID)
}

func (f *Feed) pushAthleteChallenges(ctx context.Context, athleteID string) {
	list, err := f.listings.ListForAthlete(ctx, athleteID)
	if err != nil {
		log.Error().Err(err).Str("user_id", athleteID).Msg("Failed to build challenges snapshot")
		return
	}
	f.send(athleteID, WSMessage{Type: MessageChallenges, Data: list})
}

func (f *Feed) pushOwnedChallenges(ctx context.Context, ownerID string) {
	list, err := f.listings.ListForOwner(ctx, ownerID)
	if err != nil {
		log.Error().Err(err).Str("user_id", ownerID).Msg("Failed to build challenges snapshot")
		return
	}
	f.send(ownerID, WSMessage{Type: MessageChallenges, Data: list})
}

func (f *Feed) pushAthleteSubmissions(ctx context.Context, athleteID string) {
	list, err := f.submissions.ListForAthlete(ctx, athleteID, "")
	if err != nil {
		log.Error().Err(err).Str("user_id", athleteID).Msg("Failed to build submissions snapshot")
		return
	}
	f.send(athleteID, WSMessage{Type: MessageSubmissions, Data: list})
}

func (f *Feed) pushChallengeSubmissions(ctx context.Context, authorID, challengeID string) {
	list, err := f.review.ListForChallenge(ctx, authorID, challengeID)
	if err != nil {
		log.Error().Err(err).Str("user_id", authorID).Str("challenge_id", challengeID).Msg("Failed to build review snapshot")
		return
	}
	f.send(authorID, WSMessage{Type: MessageChallengeSubmissions, ChallengeID: challengeID, Data: list})
}

func (f *Feed) send(userID string, message WSMessage) {
	if err := f.pusher.SendToUser(userID, message); err != nil {
		log.Debug().Err(err).Str("user_id", userID).Str("type", message.Type).Msg("Realtime push skipped")
	}
}
