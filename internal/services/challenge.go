package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	_ "time/tzdata"

	"sponup-backend/internal/models"
	"sponup-backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ChallengeService handles challenge authoring and listing
type ChallengeService struct {
	challenges  ChallengeStore
	submissions SubmissionStore
	users       UserStore
	events      EventStore
	publisher   Publisher
	now         func() time.Time
}

// NewChallengeService creates a new challenge service
func NewChallengeService(
	challenges ChallengeStore,
	submissions SubmissionStore,
	users UserStore,
	events EventStore,
	publisher Publisher,
) *ChallengeService {
	return &ChallengeService{
		challenges:  challenges,
		submissions: submissions,
		users:       users,
		events:      events,
		publisher:   publisher,
		now:         time.Now,
	}
}

// ChallengeInput is what a sponsor or retailer submits to create a challenge
type ChallengeInput struct {
	Title            string               `json:"title" validate:"required"`
	Reward           string               `json:"reward" validate:"required"`
	Achievements     []models.Achievement `json:"achievements" validate:"required,min=1,dive"`
	StartDate        time.Time            `json:"start_date" validate:"required"`
	EndDate          time.Time            `json:"end_date" validate:"required"`
	TimeZone         string               `json:"time_zone" validate:"omitempty,timezone"`
	AssignedAthletes []string             `json:"assigned_athletes"`
	DesiredAgeGroups []string             `json:"desired_age_groups"`
	EventID          *string              `json:"event_id"`
	LogoURL          *string              `json:"logo_url" validate:"omitempty,url"`
	PromoVideoURL    *string              `json:"promo_video_url" validate:"omitempty,url"`
	TournamentName   *string              `json:"tournament_name"`
	TournamentLink   *string              `json:"tournament_link" validate:"omitempty,url"`
}

// AthleteChallenge is a challenge as an athlete sees it
type AthleteChallenge struct {
	*models.Challenge
	SponsorName      string                   `json:"sponsor_name"`
	Window           workflow.Window          `json:"window"`
	SubmissionStatus *models.SubmissionStatus `json:"submission_status,omitempty"`
	CanSubmit        bool                     `json:"can_submit"`
}

// OwnedChallenge is a challenge as its author sees it
type OwnedChallenge struct {
	*models.Challenge
	Window      workflow.Window                 `json:"window"`
	Submissions map[models.SubmissionStatus]int `json:"submission_counts"`
}

// Create validates and stores a challenge authored by authorID. Sponsors
// assign linked athletes; retailers target age groups.
func (s *ChallengeService) Create(ctx context.Context, authorID string, in ChallengeInput) (*models.Challenge, error) {
	author, err := s.users.GetByID(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if !author.Role.IsBacker() {
		return nil, fmt.Errorf("only sponsors and retailers create challenges: %w", ErrForbidden)
	}

	challenge, err := s.buildChallenge(author, in)
	if err != nil {
		return nil, err
	}

	switch author.Role {
	case models.RoleSponsor:
		if len(challenge.AssignedAthletes) == 0 {
			return nil, invalid("assigned_athletes", "assign at least one athlete")
		}
	case models.RoleRetailer:
		groups, err := workflow.NormalizeTargetGroups(in.DesiredAgeGroups)
		if err != nil {
			return nil, err
		}
		if challenge.PromoVideoURL == nil {
			return nil, invalid("promo_video_url", "a promo video is required for retailer challenges")
		}
		challenge.DesiredAgeGroups = groups
		challenge.Type = models.ChallengeRetailer
	}

	if challenge.EventID != nil {
		event, err := s.events.GetByID(ctx, *challenge.EventID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, invalid("event_id", "event not found")
			}
			return nil, err
		}
		if !slices.Contains(challenge.AssignedAthletes, event.AthleteID) {
			return nil, invalid("event_id", "the event must belong to an assigned athlete")
		}
	}

	if err := s.challenges.Create(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	log.Info().
		Str("challenge_id", challenge.ID).
		Str("created_by", authorID).
		Str("type", string(challenge.Type)).
		Msg("Challenge created")

	publish(ctx, s.publisher, Change{Kind: ChangeChallenge, ChallengeID: challenge.ID, AuthorID: authorID})
	return challenge, nil
}

func (s *ChallengeService) buildChallenge(author *models.User, in ChallengeInput) (*models.Challenge, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalid("title", "title is required")
	}
	reward := strings.TrimSpace(in.Reward)
	if reward == "" {
		return nil, invalid("reward", "reward is required")
	}
	if len(in.Achievements) == 0 {
		return nil, invalid("achievements", "add at least one achievement")
	}
	achievements := make([]models.Achievement, 0, len(in.Achievements))
	for _, a := range in.Achievements {
		a.Type = strings.TrimSpace(a.Type)
		if a.Type == "" || a.Quantity < 1 {
			return nil, invalid("achievements", "every achievement needs a type and a quantity of at least 1")
		}
		achievements = append(achievements, a)
	}

	// Day bounds follow the author's zone when given, otherwise the offset
	// carried by the timestamps.
	startDate, endDate := in.StartDate, in.EndDate
	if in.TimeZone != "" {
		loc, err := time.LoadLocation(in.TimeZone)
		if err != nil {
			return nil, invalid("time_zone", "unknown time zone")
		}
		startDate, endDate = startDate.In(loc), endDate.In(loc)
	}
	start := workflow.StartOfDay(startDate)
	end := workflow.EndOfDay(endDate)
	if end.Before(start) {
		return nil, invalid("end_date", "end date must not be before start date")
	}

	var assigned []string
	for _, id := range in.AssignedAthletes {
		id = strings.TrimSpace(id)
		if id == "" || slices.Contains(assigned, id) {
			continue
		}
		if !slices.Contains(author.SponsoredAthletes, id) {
			return nil, invalid("assigned_athletes", fmt.Sprintf("athlete %s is not linked with you", id))
		}
		assigned = append(assigned, id)
	}

	return &models.Challenge{
		ID:               uuid.New().String(),
		Title:            title,
		Reward:           reward,
		Achievements:     achievements,
		StartDate:        start,
		EndDate:          end,
		SponsorID:        author.ID,
		CreatedBy:        author.ID,
		AssignedAthletes: assigned,
		Type:             models.ChallengeSponsor,
		EventID:          optionalPtr(in.EventID),
		LogoURL:          optionalPtr(in.LogoURL),
		PromoVideoURL:    optionalPtr(in.PromoVideoURL),
		TournamentName:   optionalPtr(in.TournamentName),
		TournamentLink:   optionalPtr(in.TournamentLink),
		CreatedAt:        s.now(),
	}, nil
}

// ListForAthlete returns the challenges an athlete can see right now, each
// with the athlete's own submission status and the submission window
func (s *ChallengeService) ListForAthlete(ctx context.Context, athleteID string) ([]*AthleteChallenge, error) {
	athlete, err := s.users.GetByID(ctx, athleteID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.challenges.ListCandidates(ctx, athleteID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	visible := make([]*models.Challenge, 0, len(candidates))
	creators := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if workflow.IsVisible(c, athlete, now) {
			visible = append(visible, c)
			if !slices.Contains(creators, c.CreatedBy) {
				creators = append(creators, c.CreatedBy)
			}
		}
	}

	var (
		submissions []*models.Submission
		sponsors    []*models.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		submissions, err = s.submissions.ListByAthlete(gctx, athleteID)
		return err
	})
	g.Go(func() error {
		var err error
		sponsors, err = s.users.GetByIDs(gctx, creators)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	statuses := make(map[string]models.SubmissionStatus, len(submissions))
	for _, sub := range submissions {
		statuses[sub.ChallengeID] = sub.Status
	}
	names := usersByID(sponsors)

	out := make([]*AthleteChallenge, 0, len(visible))
	for _, c := range visible {
		out = append(out, s.athleteView(c, names[c.CreatedBy], statuses, now))
	}
	return out, nil
}

func (s *ChallengeService) athleteView(
	c *models.Challenge,
	sponsor *models.User,
	statuses map[string]models.SubmissionStatus,
	now time.Time,
) *AthleteChallenge {
	view := &AthleteChallenge{
		Challenge: c,
		Window:    workflow.ChallengeWindow(c, now),
	}
	if sponsor != nil {
		view.SponsorName = sponsor.DisplayName()
	}
	if status, ok := statuses[c.ID]; ok {
		view.SubmissionStatus = &status
	}
	view.CanSubmit = workflow.CanSubmit(view.Window, view.SubmissionStatus)
	return view
}

// ListForOwner returns the challenges a sponsor or retailer authored with
// their submission counts per status
func (s *ChallengeService) ListForOwner(ctx context.Context, ownerID string) ([]*OwnedChallenge, error) {
	challenges, err := s.challenges.ListByCreator(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(challenges))
	for _, c := range challenges {
		ids = append(ids, c.ID)
	}
	counts, err := s.submissions.CountByChallenges(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]*OwnedChallenge, 0, len(challenges))
	for _, c := range challenges {
		perStatus := counts[c.ID]
		if perStatus == nil {
			perStatus = map[models.SubmissionStatus]int{}
		}
		out = append(out, &OwnedChallenge{
			Challenge:   c,
			Window:      workflow.ChallengeWindow(c, now),
			Submissions: perStatus,
		})
	}
	return out, nil
}

// GetForOwner returns one of the author's own challenges with its
// submission counts
func (s *ChallengeService) GetForOwner(ctx context.Context, ownerID, challengeID string) (*OwnedChallenge, error) {
	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.CreatedBy != ownerID {
		return nil, fmt.Errorf("challenge %s: %w", challengeID, ErrForbidden)
	}

	counts, err := s.submissions.CountByChallenges(ctx, []string{challengeID})
	if err != nil {
		return nil, err
	}
	perStatus := counts[challengeID]
	if perStatus == nil {
		perStatus = map[models.SubmissionStatus]int{}
	}
	return &OwnedChallenge{
		Challenge:   challenge,
		Window:      workflow.ChallengeWindow(challenge, s.now()),
		Submissions: perStatus,
	}, nil
}

// GetForAthlete returns an eligible challenge, including one that has not
// started yet, with the athlete's own submission status
func (s *ChallengeService) GetForAthlete(ctx context.Context, athleteID, challengeID string) (*AthleteChallenge, error) {
	var (
		athlete   *models.User
		challenge *models.Challenge
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		athlete, err = s.users.GetByID(gctx, athleteID)
		return err
	})
	g.Go(func() error {
		var err error
		challenge, err = s.challenges.GetByID(gctx, challengeID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !workflow.IsEligible(challenge, athlete) {
		return nil, fmt.Errorf("challenge %s: %w", challengeID, ErrNotFound)
	}

	var (
		sponsor    *models.User
		submission *models.Submission
	)
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sponsor, err = s.users.GetByID(gctx, challenge.CreatedBy)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		var err error
		submission, err = s.submissions.GetByAthleteAndChallenge(gctx, athleteID, challengeID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	statuses := map[string]models.SubmissionStatus{}
	if submission != nil {
		statuses[challengeID] = submission.Status
	}
	return s.athleteView(challenge, sponsor, statuses, s.now()), nil
}

// AudienceSize counts the athletes a retailer broadcast to groups would
// reach
func (s *ChallengeService) AudienceSize(ctx context.Context, groups []string) (int, error) {
	normalized, err := workflow.NormalizeTargetGroups(groups)
	if err != nil {
		return 0, err
	}
	if slices.Contains(normalized, workflow.AllAgeGroups) {
		return s.users.CountAthletes(ctx, nil, true)
	}
	return s.users.CountAthletes(ctx, normalized, false)
}

// Delete removes a challenge its author no longer needs. Challenges with
// submissions are kept.
func (s *ChallengeService) Delete(ctx context.Context, authorID, challengeID string) error {
	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		return err
	}
	if challenge.CreatedBy != authorID {
		return fmt.Errorf("challenge %s: %w", challengeID, ErrForbidden)
	}
	if err := s.challenges.DeleteUnused(ctx, challengeID, authorID); err != nil {
		return err
	}

	log.Info().Str("challenge_id", challengeID).Str("created_by", authorID).Msg("Challenge deleted")
	return nil
}

// optionalPtr trims a nullable string and maps blank to nil
func optionalPtr(s *string) *string {
	if s == nil {
		return nil
	}
	return optional(*s)
}
