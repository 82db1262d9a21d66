package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"sponup-backend/internal/models"

	"github.com/google/uuid"
)

// EventService handles athlete calendar events
type EventService struct {
	events EventStore
	users  UserStore
	now    func() time.Time
}

// NewEventService creates a new event service
func NewEventService(events EventStore, users UserStore) *EventService {
	return &EventService{events: events, users: users, now: time.Now}
}

// EventInput is what an athlete submits to create an event
type EventInput struct {
	EventTitle string    `json:"event_title" validate:"required"`
	StartDate  time.Time `json:"start_date" validate:"required"`
	EndDate    time.Time `json:"end_date" validate:"required"`
}

// Create adds an event to an athlete's calendar
func (s *EventService) Create(ctx context.Context, athleteID string, in EventInput) (*models.Event, error) {
	title := strings.TrimSpace(in.EventTitle)
	if title == "" {
		return nil, invalid("event_title", "event title is required")
	}
	if in.EndDate.Before(in.StartDate) {
		return nil, invalid("end_date", "end date must not be before start date")
	}

	event := &models.Event{
		ID:         uuid.New().String(),
		EventTitle: title,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		AthleteID:  athleteID,
		CreatedAt:  s.now(),
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return event, nil
}

// List returns the athlete's own events
func (s *EventService) List(ctx context.Context, athleteID string) ([]*models.Event, error) {
	return s.events.ListByAthlete(ctx, athleteID)
}

// ListForAthlete returns an athlete's events to a sponsor or retailer the
// athlete is linked with
func (s *EventService) ListForAthlete(ctx context.Context, viewerID, athleteID string) ([]*models.Event, error) {
	viewer, err := s.users.GetByID(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if !viewer.Role.IsBacker() || !slices.Contains(viewer.SponsoredAthletes, athleteID) {
		return nil, fmt.Errorf("athlete %s is not linked with you: %w", athleteID, ErrForbidden)
	}
	return s.events.ListByAthlete(ctx, athleteID)
}

// Delete removes one of the athlete's own events
func (s *EventService) Delete(ctx context.Context, athleteID, eventID string) error {
	return s.events.Delete(ctx, eventID, athleteID)
}
