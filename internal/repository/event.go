package repository

import (
	"context"
	"errors"
	"fmt"

	"sponup-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepository handles database operations for athlete events
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create stores an event, replacing one with the same ID
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (id, event_title, start_date, end_date, athlete_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			event_title = EXCLUDED.event_title,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			athlete_id = EXCLUDED.athlete_id
	`
	_, err := r.db.Exec(ctx, query,
		event.ID, event.EventTitle, event.StartDate, event.EndDate, event.AthleteID, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// GetByID retrieves an event by ID
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	query := `
		SELECT id, event_title, start_date, end_date, athlete_id, created_at
		FROM events
		WHERE id = $1
	`
	var event models.Event
	err := r.db.QueryRow(ctx, query, id).Scan(
		&event.ID, &event.EventTitle, &event.StartDate, &event.EndDate, &event.AthleteID, &event.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &event, nil
}

// ListByAthlete retrieves an athlete's events ordered by start date
func (r *EventRepository) ListByAthlete(ctx context.Context, athleteID string) ([]*models.Event, error) {
	query := `
		SELECT id, event_title, start_date, end_date, athlete_id, created_at
		FROM events
		WHERE athlete_id = $1
		ORDER BY start_date ASC
	`
	rows, err := r.db.Query(ctx, query, athleteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		var event models.Event
		err := rows.Scan(
			&event.ID, &event.EventTitle, &event.StartDate, &event.EndDate, &event.AthleteID, &event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// Delete deletes an event owned by athleteID
func (r *EventRepository) Delete(ctx context.Context, id, athleteID string) error {
	query := `DELETE FROM events WHERE id = $1 AND athlete_id = $2`
	result, err := r.db.Exec(ctx, query, id, athleteID)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	return nil
}
