package services

import (
	"context"
	"testing"
	"time"

	"sponup-backend/internal/models"
	"sponup-backend/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type challengeFixture struct {
	db        *memDB
	publisher *recordingPublisher
	svc       *ChallengeService
}

func newChallengeFixture(t *testing.T, now time.Time) *challengeFixture {
	t.Helper()
	db := newMemDB()
	s := sponsor("S")
	s.SponsoredAthletes = []string{"B"}
	db.addUser(s)
	db.addUser(retailer("R", "Bats & Co"))
	db.addUser(athlete("B", "10u"))
	db.addUser(athlete("C", "11u"))
	db.addUser(athlete("D", "9u"))
	db.events["ev1"] = &models.Event{ID: "ev1", EventTitle: "Summer Slam", AthleteID: "B"}
	db.events["ev2"] = &models.Event{ID: "ev2", EventTitle: "Other", AthleteID: "C"}

	publisher := &recordingPublisher{}
	svc := NewChallengeService(memChallenges{db}, memSubmissions{db}, memUsers{db}, memEvents{db}, publisher)
	svc.now = func() time.Time { return now }
	return &challengeFixture{db: db, publisher: publisher, svc: svc}
}

func sponsorInput() ChallengeInput {
	return ChallengeInput{
		Title:            "Hit two home runs",
		Reward:           "Bat",
		Achievements:     []models.Achievement{{Type: "HR", Quantity: 2}},
		StartDate:        time.Date(2025, 6, 2, 15, 30, 0, 0, time.UTC),
		EndDate:          time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC),
		AssignedAthletes: []string{"B"},
	}
}

func retailerInput(groups ...string) ChallengeInput {
	in := sponsorInput()
	in.AssignedAthletes = nil
	in.DesiredAgeGroups = groups
	in.PromoVideoURL = strPtr("https://video.example.com/promo.mp4")
	return in
}

func TestCreateSponsorChallenge(t *testing.T) {
	f := newChallengeFixture(t, challengeStart)
	in := sponsorInput()
	in.EventID = strPtr("ev1")

	ch, err := f.svc.Create(context.Background(), "S", in)
	require.NoError(t, err)

	assert.Equal(t, models.ChallengeSponsor, ch.Type)
	assert.Equal(t, "S", ch.CreatedBy)
	assert.Equal(t, "S", ch.SponsorID)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), ch.StartDate)
	assert.Equal(t, time.Date(2025, 6, 5, 23, 59, 59, 0, time.UTC), ch.EndDate)
	assert.Contains(t, f.db.challenges, ch.ID)
	assert.Equal(t, []Change{{Kind: ChangeChallenge, ChallengeID: ch.ID, AuthorID: "S"}}, f.publisher.published())
}

func TestCreateChallengeUsesAuthorTimeZone(t *testing.T) {
	f := newChallengeFixture(t, challengeStart)
	in := sponsorInput()
	// 2025-06-02 02:30 UTC is still June 1st in New York.
	in.StartDate = time.Date(2025, 6, 2, 2, 30, 0, 0, time.UTC)
	in.EndDate = time.Date(2025, 6, 6, 1, 0, 0, 0, time.UTC)
	in.TimeZone = "America/New_York"

	ch, err := f.svc.Create(context.Background(), "S", in)
	require.NoError(t, err)

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 6, 1, 0, 0, 0, 0, ny).Equal(ch.StartDate), "start %s", ch.StartDate)
	assert.True(t, time.Date(2025, 6, 5, 23, 59, 59, 0, ny).Equal(ch.EndDate), "end %s", ch.EndDate)
}

func TestCreateChallengeValidation(t *testing.T) {
	tests := []struct {
		name   string
		author string
		edit   func(*ChallengeInput)
		field  string
	}{
		{name: "blank title", author: "S", edit: func(in *ChallengeInput) { in.Title = " " }, field: "title"},
		{name: "no achievements", author: "S", edit: func(in *ChallengeInput) { in.Achievements = nil }, field: "achievements"},
		{name: "zero quantity", author: "S", edit: func(in *ChallengeInput) { in.Achievements[0].Quantity = 0 }, field: "achievements"},
		{name: "end before start", author: "S", edit: func(in *ChallengeInput) { in.EndDate = in.StartDate.AddDate(0, 0, -1) }, field: "end_date"},
		{name: "unknown time zone", author: "S", edit: func(in *ChallengeInput) { in.TimeZone = "Mars/Olympus" }, field: "time_zone"},
		{name: "unlinked athlete", author: "S", edit: func(in *ChallengeInput) { in.AssignedAthletes = []string{"C"} }, field: "assigned_athletes"},
		{name: "no athletes", author: "S", edit: func(in *ChallengeInput) { in.AssignedAthletes = nil }, field: "assigned_athletes"},
		{name: "unknown event", author: "S", edit: func(in *ChallengeInput) { in.EventID = strPtr("nope") }, field: "event_id"},
		{name: "event of another athlete", author: "S", edit: func(in *ChallengeInput) { in.EventID = strPtr("ev2") }, field: "event_id"},
		{name: "retailer without promo", author: "R", edit: func(in *ChallengeInput) {
			*in = retailerInput("10u")
			in.PromoVideoURL = nil
		}, field: "promo_video_url"},
		{name: "retailer without groups", author: "R", edit: func(in *ChallengeInput) { *in = retailerInput() }, field: "desired_age_groups"},
		{name: "retailer unknown group", author: "R", edit: func(in *ChallengeInput) { *in = retailerInput("40u") }, field: "desired_age_groups"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newChallengeFixture(t, challengeStart)
			in := sponsorInput()
			tt.edit(&in)

			_, err := f.svc.Create(context.Background(), tt.author, in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Empty(t, f.db.challenges)
			assert.Empty(t, f.publisher.published())
		})
	}
}

func TestCreateByAthleteIsForbidden(t *testing.T) {
	f := newChallengeFixture(t, challengeStart)

	_, err := f.svc.Create(context.Background(), "B", sponsorInput())
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRetailerChallengeEligibility(t *testing.T) {
	now := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		groups  []string
		athlete string
		visible bool
	}{
		{name: "10u targeted", groups: []string{"10u", "12u"}, athlete: "B", visible: true},
		{name: "11u not targeted", groups: []string{"10u", "12u"}, athlete: "C", visible: false},
		{name: "9u with all age groups", groups: []string{"All Age Groups"}, athlete: "D", visible: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newChallengeFixture(t, now)
			ch, err := f.svc.Create(context.Background(), "R", retailerInput(tt.groups...))
			require.NoError(t, err)
			assert.Equal(t, models.ChallengeRetailer, ch.Type)

			list, err := f.svc.ListForAthlete(context.Background(), tt.athlete)
			require.NoError(t, err)
			if !tt.visible {
				assert.Empty(t, list)
				return
			}
			require.Len(t, list, 1)
			assert.Equal(t, "Bats & Co", list[0].SponsorName)
			assert.Equal(t, workflow.WindowOpen, list[0].Window.State)
			assert.True(t, list[0].CanSubmit)
		})
	}
}

func TestAllAgeGroupsCollapsesTargets(t *testing.T) {
	f := newChallengeFixture(t, challengeStart)

	ch, err := f.svc.Create(context.Background(), "R", retailerInput("10u", "all age groups"))
	require.NoError(t, err)
	assert.Equal(t, []string{workflow.AllAgeGroups}, ch.DesiredAgeGroups)
}

func TestListForAthleteHidesNotStarted(t *testing.T) {
	f := newChallengeFixture(t, challengeStart.AddDate(0, 0, -2))
	ch, err := f.svc.Create(context.Background(), "S", sponsorInput())
	require.NoError(t, err)

	list, err := f.svc.ListForAthlete(context.Background(), "B")
	require.NoError(t, err)
	assert.Empty(t, list)

	detail, err := f.svc.GetForAthlete(context.Background(), "B", ch.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.WindowNotStarted, detail.Window.State)
	assert.False(t, detail.CanSubmit)
	assert.Equal(t, 48*time.Hour, detail.Window.Remaining)
}

func TestListForAthleteCarriesSubmissionStatus(t *testing.T) {
	f := newChallengeFixture(t, challengeStart.AddDate(0, 0, 1))
	ch, err := f.svc.Create(context.Background(), "S", sponsorInput())
	require.NoError(t, err)
	f.db.submissions["sub1"] = &models.Submission{
		ID: "sub1", AthleteID: "B", ChallengeID: ch.ID, Status: models.StatusApproved, SubmittedAt: challengeStart,
	}

	list, err := f.svc.ListForAthlete(context.Background(), "B")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].SubmissionStatus)
	assert.Equal(t, models.StatusApproved, *list[0].SubmissionStatus)
	assert.False(t, list[0].CanSubmit)
	assert.Equal(t, "Spon S", list[0].SponsorName)
}

func TestGetForAthleteHidesIneligible(t *testing.T) {
	f := newChallengeFixture(t, challengeStart)
	ch, err := f.svc.Create(context.Background(), "S", sponsorInput())
	require.NoError(t, err)

	_, err = f.svc.GetForAthlete(context.Background(), "C", ch.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListForOwnerCountsByStatus(t *testing.T) {
	f := newChallengeFixture(t, challengeStart)
	ch, err := f.svc.Create(context.Background(), "S", sponsorInput())
	require.NoError(t, err)
	f.db.submissions["sub1"] = &models.Submission{ID: "sub1", AthleteID: "B", ChallengeID: ch.ID, Status: models.StatusPending}

	list, err := f.svc.ListForOwner(context.Background(), "S")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].Submissions[models.StatusPending])

	_, err = f.svc.GetForOwner(context.Background(), "R", ch.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAudienceSize(t *testing.T) {
	f := newChallengeFixture(t, challengeStart)
	ctx := context.Background()

	n, err := f.svc.AudienceSize(ctx, []string{"10u", " 11U "})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.svc.AudienceSize(ctx, []string{"All Age Groups"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = f.svc.AudienceSize(ctx, []string{"9u", " all age groups "})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDeleteChallenge(t *testing.T) {
	f := newChallengeFixture(t, challengeStart)
	ctx := context.Background()
	ch, err := f.svc.Create(ctx, "S", sponsorInput())
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, "R", ch.ID), ErrForbidden)

	f.db.submissions["sub1"] = &models.Submission{ID: "sub1", AthleteID: "B", ChallengeID: ch.ID, Status: models.StatusPending}
	assert.ErrorIs(t, f.svc.Delete(ctx, "S", ch.ID), ErrConflict)

	delete(f.db.submissions, "sub1")
	require.NoError(t, f.svc.Delete(ctx, "S", ch.ID))
	assert.Empty(t, f.db.challenges)
}
