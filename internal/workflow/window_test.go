package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"sponup-backend/internal/models"
)

func statusPtr(s models.SubmissionStatus) *models.SubmissionStatus {
	return &s
}

func TestWindowAt(t *testing.T) {
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 3)

	tests := []struct {
		name string
		now  time.Time
		want WindowState
	}{
		{"before start", start.Add(-time.Second), WindowNotStarted},
		{"at start", start, WindowOpen},
		{"middle", start.Add(36 * time.Hour), WindowOpen},
		{"at end", end, WindowOpen},
		{"just after end", end.Add(time.Second), WindowGracePeriod},
		{"four hours into grace", end.Add(4 * time.Hour), WindowGracePeriod},
		{"last instant of grace", end.AddDate(0, 0, 5), WindowGracePeriod},
		{"past grace", end.AddDate(0, 0, 5).Add(time.Second), WindowClosed},
		{"six days after end", end.AddDate(0, 0, 6), WindowClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := WindowAt(start, end, tt.now)
			assert.Equal(t, tt.want, w.State)
			// open <=> start <= now <= end + 5 days
			inRange := !tt.now.Before(start) && !tt.now.After(end.AddDate(0, 0, 5))
			assert.Equal(t, inRange, w.AcceptsSubmissions())
		})
	}
}

func TestWindowAt_Remaining(t *testing.T) {
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 3)

	w := WindowAt(start, end, start.Add(-2*time.Hour))
	assert.Equal(t, 2*time.Hour, w.Remaining)

	w = WindowAt(start, end, end.Add(time.Hour))
	assert.Equal(t, 5*24*time.Hour-time.Hour, w.Remaining)
	assert.Equal(t, int64(5*24*3600-3600), w.RemainingSeconds())

	w = WindowAt(start, end, end.AddDate(0, 1, 0))
	assert.Zero(t, w.Remaining)
}

func TestCanSubmit_GraceScenario(t *testing.T) {
	T := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	ch := &models.Challenge{StartDate: T, EndDate: T.AddDate(0, 0, 3)}

	inGrace := ChallengeWindow(ch, T.AddDate(0, 0, 3).Add(4*time.Hour))
	assert.True(t, CanSubmit(inGrace, nil))

	pastGrace := ChallengeWindow(ch, T.AddDate(0, 0, 3+6))
	assert.False(t, CanSubmit(pastGrace, nil))
}

func TestCanSubmit_Status(t *testing.T) {
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	open := WindowAt(start, start.AddDate(0, 0, 1), start.Add(time.Hour))
	notStarted := WindowAt(start, start.AddDate(0, 0, 1), start.Add(-time.Hour))

	assert.True(t, CanSubmit(open, nil))
	assert.True(t, CanSubmit(open, statusPtr(models.StatusPending)))
	assert.True(t, CanSubmit(open, statusPtr(models.StatusRejected)))
	assert.False(t, CanSubmit(open, statusPtr(models.StatusApproved)))
	assert.False(t, CanSubmit(open, statusPtr(models.StatusRewarded)))
	assert.False(t, CanSubmit(notStarted, nil))
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	ts := time.Date(2026, 4, 2, 15, 30, 0, 0, loc)

	assert.Equal(t, time.Date(2026, 4, 2, 0, 0, 0, 0, loc), StartOfDay(ts))
	assert.Equal(t, time.Date(2026, 4, 2, 23, 59, 59, 0, loc), EndOfDay(ts))
}
