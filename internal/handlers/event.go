package handlers

import (
	"context"
	"net/http"

	"sponup-backend/internal/middleware"
	"sponup-backend/internal/models"
	"sponup-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// EventAPI is the event service as the handlers use it
type EventAPI interface {
	Create(ctx context.Context, athleteID string, in services.EventInput) (*models.Event, error)
	List(ctx context.Context, athleteID string) ([]*models.Event, error)
	ListForAthlete(ctx context.Context, viewerID, athleteID string) ([]*models.Event, error)
	Delete(ctx context.Context, athleteID, eventID string) error
}

// EventHandler handles athlete calendar events
type EventHandler struct {
	events EventAPI
}

// NewEventHandler creates a new event handler
func NewEventHandler(events EventAPI) *EventHandler {
	return &EventHandler{events: events}
}

// CreateEvent handles POST /api/v1/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req services.EventInput
	if !decodeJSON(w, r, &req) {
		return
	}

	event, err := h.events.Create(r.Context(), userID, req)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to create event")
		respondServiceError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Str("event_id", event.ID).Msg("Event created")
	respondJSON(w, http.StatusCreated, event)
}

// GetEvents handles GET /api/v1/events
func (h *EventHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	events, err := h.events.List(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list events")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, nonNilList(events))
}

// GetAthleteEvents handles GET /api/v1/athletes/{user_id}/events
func (h *EventHandler) GetAthleteEvents(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	athleteID := chi.URLParam(r, "user_id")

	events, err := h.events.ListForAthlete(r.Context(), userID, athleteID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("athlete_id", athleteID).Msg("Failed to list athlete events")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, nonNilList(events))
}

// DeleteEvent handles DELETE /api/v1/events/{event_id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	eventID := chi.URLParam(r, "event_id")

	if err := h.events.Delete(r.Context(), userID, eventID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("event_id", eventID).Msg("Failed to delete event")
		respondServiceError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Str("event_id", eventID).Msg("Event deleted")
	w.WriteHeader(http.StatusNoContent)
}

// nonNilList keeps empty lists encoding as [] instead of null
func nonNilList[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
