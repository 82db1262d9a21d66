package workflow

import (
	"errors"
	"fmt"
	"strings"

	"sponup-backend/internal/models"
)

// ErrInvalidTransition is returned when a submission cannot move to the
// requested status from its current one
var ErrInvalidTransition = errors.New("invalid status transition")

// Action is something a sponsor or athlete does to a submission
type Action string

const (
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionReward   Action = "reward"
	ActionResubmit Action = "resubmit"
)

var transitions = map[models.SubmissionStatus]map[Action]models.SubmissionStatus{
	models.StatusPending: {
		ActionApprove:  models.StatusApproved,
		ActionReject:   models.StatusRejected,
		ActionResubmit: models.StatusPending,
	},
	// Approved can only move on to Rewarded. Rejecting it is not allowed.
	models.StatusApproved: {
		ActionReward: models.StatusRewarded,
	},
	models.StatusRejected: {
		ActionResubmit: models.StatusPending,
	},
	// Rewarded is terminal
	models.StatusRewarded: {},
}

// Next returns the status reached by applying action to from
func Next(from models.SubmissionStatus, action Action) (models.SubmissionStatus, error) {
	next, ok := transitions[from][action]
	if !ok {
		return "", fmt.Errorf("%w: cannot %s a %s submission", ErrInvalidTransition, action, from)
	}
	return next, nil
}

// CanTransition reports whether any action moves from to to
func CanTransition(from, to models.SubmissionStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func IsTerminal(status models.SubmissionStatus) bool {
	return len(transitions[status]) == 0
}

// ReviewActions tells the sponsor UI which buttons are enabled
type ReviewActions struct {
	CanApprove bool `json:"can_approve"`
	CanReject  bool `json:"can_reject"`
	CanReward  bool `json:"can_reward"`
}

// ActionsFor returns the review actions available for status
func ActionsFor(status models.SubmissionStatus) ReviewActions {
	_, approve := transitions[status][ActionApprove]
	_, reject := transitions[status][ActionReject]
	_, reward := transitions[status][ActionReward]
	return ReviewActions{CanApprove: approve, CanReject: reject, CanReward: reward}
}

// ParseStatus maps user input such as "rejected" onto a status
func ParseStatus(s string) (models.SubmissionStatus, bool) {
	for status := range transitions {
		if strings.EqualFold(strings.TrimSpace(s), string(status)) {
			return status, true
		}
	}
	return "", false
}
