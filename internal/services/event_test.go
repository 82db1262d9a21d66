package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvents(t *testing.T) {
	db := newMemDB()
	s := sponsor("S")
	s.SponsoredAthletes = []string{"B"}
	db.addUser(s)
	db.addUser(sponsor("X"))
	db.addUser(athlete("B", "10u"))
	svc := NewEventService(memEvents{db}, memUsers{db})
	ctx := context.Background()
	start := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	event, err := svc.Create(ctx, "B", EventInput{EventTitle: "Summer Slam", StartDate: start, EndDate: start.Add(48 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, "B", event.AthleteID)

	_, err = svc.Create(ctx, "B", EventInput{EventTitle: "Backwards", StartDate: start, EndDate: start.Add(-time.Hour)})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "end_date", verr.Field)

	own, err := svc.List(ctx, "B")
	require.NoError(t, err)
	assert.Len(t, own, 1)

	linked, err := svc.ListForAthlete(ctx, "S", "B")
	require.NoError(t, err)
	assert.Len(t, linked, 1)

	_, err = svc.ListForAthlete(ctx, "X", "B")
	assert.ErrorIs(t, err, ErrForbidden)

	assert.ErrorIs(t, svc.Delete(ctx, "X", event.ID), ErrNotFound)
	require.NoError(t, svc.Delete(ctx, "B", event.ID))
	assert.Empty(t, db.events)
}
