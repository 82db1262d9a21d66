package repository

import (
	"sort"
	"testing"

	"sponup-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallengeRoundTrip(t *testing.T) {
	ctx := resetDatabase(t)
	seedUser(t, ctx, "S", models.RoleSponsor, "")
	want := seedChallenge(t, ctx, "ch1", "S", models.ChallengeSponsor, "B", "C")

	got, err := NewChallengeRepository(testPool).GetByID(ctx, "ch1")
	require.NoError(t, err)
	assert.Equal(t, want.Achievements, got.Achievements)
	assert.Equal(t, []string{"B", "C"}, got.AssignedAthletes)
	assert.Equal(t, []string{}, got.DesiredAgeGroups)
	assert.Equal(t, models.ChallengeSponsor, got.Type)
	assert.True(t, want.StartDate.Equal(got.StartDate))
	assert.True(t, want.EndDate.Equal(got.EndDate))
	assert.Nil(t, got.EventID)

	_, err = NewChallengeRepository(testPool).GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListCandidatesAndGetByIDs(t *testing.T) {
	ctx := resetDatabase(t)
	seedUser(t, ctx, "S", models.RoleSponsor, "")
	seedUser(t, ctx, "R", models.RoleRetailer, "")
	seedChallenge(t, ctx, "mine", "S", models.ChallengeSponsor, "B")
	seedChallenge(t, ctx, "other", "S", models.ChallengeSponsor, "C")
	seedChallenge(t, ctx, "broadcast", "R", models.ChallengeRetailer)
	repo := NewChallengeRepository(testPool)

	candidates, err := repo.ListCandidates(ctx, "B")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mine", "broadcast"}, challengeIDs(candidates))

	byID, err := repo.GetByIDs(ctx, []string{"other", "broadcast", "ghost"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"other", "broadcast"}, challengeIDs(byID))

	owned, err := repo.ListByCreator(ctx, "R")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, []string{"10u", "12u"}, owned[0].DesiredAgeGroups)
	require.NotNil(t, owned[0].PromoVideoURL)
}

func TestDeleteUnusedRefusesWithSubmissions(t *testing.T) {
	ctx := resetDatabase(t)
	seedUser(t, ctx, "B", models.RoleAthlete, "10u")
	seedUser(t, ctx, "S", models.RoleSponsor, "")
	seedChallenge(t, ctx, "used", "S", models.ChallengeSponsor, "B")
	seedChallenge(t, ctx, "unused", "S", models.ChallengeSponsor, "B")
	repo := NewChallengeRepository(testPool)

	_, err := NewSubmissionRepository(testPool).Submit(ctx, "B", "used", "bo@example.com", "1 Main St",
		newPending("s1", "https://cdn.example.com/a.jpg"))
	require.NoError(t, err)

	assert.ErrorIs(t, repo.DeleteUnused(ctx, "used", "S"), ErrConflict)
	assert.ErrorIs(t, repo.DeleteUnused(ctx, "unused", "someone-else"), ErrConflict)
	require.NoError(t, repo.DeleteUnused(ctx, "unused", "S"))

	_, err = repo.GetByID(ctx, "unused")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetByID(ctx, "used")
	assert.NoError(t, err)
}

func challengeIDs(challenges []*models.Challenge) []string {
	ids := make([]string, 0, len(challenges))
	for _, c := range challenges {
		ids = append(ids, c.ID)
	}
	sort.Strings(ids)
	return ids
}
