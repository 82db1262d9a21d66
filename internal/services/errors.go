package services

import (
	"errors"

	"sponup-backend/internal/repository"
	"sponup-backend/internal/workflow"
)

var (
	// ErrNotFound is returned when a user, event, challenge or submission
	// does not exist
	ErrNotFound = repository.ErrNotFound
	// ErrConflict is returned when a write would break a uniqueness or
	// reference constraint
	ErrConflict = repository.ErrConflict
	// ErrInvalidTransition is returned for a status change the review
	// workflow does not allow
	ErrInvalidTransition = workflow.ErrInvalidTransition

	ErrForbidden         = errors.New("forbidden")
	ErrInvalidToken      = errors.New("invalid token")
	ErrAlreadyLinked     = errors.New("already linked")
	ErrAlreadyPending    = errors.New("already pending")
	ErrSubmissionsClosed = errors.New("submissions are closed")
)

// ValidationError reports a single invalid input field
type ValidationError = workflow.ValidationError

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
