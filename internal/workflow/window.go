package workflow

import (
	"encoding/json"
	"time"

	"sponup-backend/internal/models"
)

// GraceDays is how long after a challenge ends submissions are still accepted
const GraceDays = 5

// WindowState is the position of "now" relative to a challenge's dates
type WindowState string

const (
	WindowNotStarted  WindowState = "not_started"
	WindowOpen        WindowState = "open"
	WindowGracePeriod WindowState = "grace_period"
	WindowClosed      WindowState = "closed"
)

// Window describes the submission window of a challenge at a given instant.
// It is derived on every read and never stored.
type Window struct {
	State       WindowState   `json:"state"`
	OpensAt     time.Time     `json:"opens_at"`
	EndsAt      time.Time     `json:"closes_at"`
	GraceEndsAt time.Time     `json:"grace_ends_at"`
	Remaining   time.Duration `json:"-"`
}

// MarshalJSON adds the remaining time in whole seconds
func (w Window) MarshalJSON() ([]byte, error) {
	type window Window
	return json.Marshal(struct {
		window
		RemainingSeconds int64 `json:"remaining_seconds"`
	}{window(w), w.RemainingSeconds()})
}

// RemainingSeconds is the time left until the next boundary, for display
func (w Window) RemainingSeconds() int64 {
	return int64(w.Remaining / time.Second)
}

// AcceptsSubmissions reports whether the window lets athletes submit
func (w Window) AcceptsSubmissions() bool {
	return w.State == WindowOpen || w.State == WindowGracePeriod
}

// GraceEnd returns the last instant a late submission is accepted
func GraceEnd(endDate time.Time) time.Time {
	return endDate.AddDate(0, 0, GraceDays)
}

// WindowAt computes the submission window for [start, end] at now
func WindowAt(start, end, now time.Time) Window {
	w := Window{
		OpensAt:     start,
		EndsAt:      end,
		GraceEndsAt: GraceEnd(end),
	}

	switch {
	case now.Before(start):
		w.State = WindowNotStarted
		w.Remaining = start.Sub(now)
	case !now.After(end):
		w.State = WindowOpen
		w.Remaining = end.Sub(now)
	case !now.After(w.GraceEndsAt):
		w.State = WindowGracePeriod
		w.Remaining = w.GraceEndsAt.Sub(now)
	default:
		w.State = WindowClosed
	}
	return w
}

// ChallengeWindow computes the submission window of a challenge at now
func ChallengeWindow(challenge *models.Challenge, now time.Time) Window {
	return WindowAt(challenge.StartDate, challenge.EndDate, now)
}

// CanSubmit reports whether an athlete may create or replace a submission.
// A nil status means the athlete has not submitted yet.
func CanSubmit(w Window, status *models.SubmissionStatus) bool {
	if !w.AcceptsSubmissions() {
		return false
	}
	if status == nil {
		return true
	}
	return *status == models.StatusPending || *status == models.StatusRejected
}

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last second of t's day in its own location
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Second)
}
