package repository

import (
	"context"
	"errors"
	"fmt"

	"sponup-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const challengeColumns = `id, title, reward, achievements, start_date, end_date, sponsor_id, created_by,
	assigned_athletes, desired_age_groups, type, event_id, logo_url, promo_video_url,
	tournament_name, tournament_link, created_at`

// ChallengeRepository handles database operations for challenges
type ChallengeRepository struct {
	db *pgxpool.Pool
}

// NewChallengeRepository creates a new challenge repository
func NewChallengeRepository(db *pgxpool.Pool) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

func scanChallenge(row rowScanner) (*models.Challenge, error) {
	var c models.Challenge
	err := row.Scan(
		&c.ID, &c.Title, &c.Reward, &c.Achievements, &c.StartDate, &c.EndDate, &c.SponsorID, &c.CreatedBy,
		&c.AssignedAthletes, &c.DesiredAgeGroups, &c.Type, &c.EventID, &c.LogoURL, &c.PromoVideoURL,
		&c.TournamentName, &c.TournamentLink, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ChallengeRepository) list(ctx context.Context, query string, args ...any) ([]*models.Challenge, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenges: %w", err)
	}
	defer rows.Close()

	var challenges []*models.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		challenges = append(challenges, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating challenges: %w", err)
	}

	return challenges, nil
}

// Create stores a challenge, replacing one with the same ID
func (r *ChallengeRepository) Create(ctx context.Context, c *models.Challenge) error {
	achievements := c.Achievements
	if achievements == nil {
		achievements = []models.Achievement{}
	}
	query := `
		INSERT INTO challenges (` + challengeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			reward = EXCLUDED.reward,
			achievements = EXCLUDED.achievements,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			sponsor_id = EXCLUDED.sponsor_id,
			created_by = EXCLUDED.created_by,
			assigned_athletes = EXCLUDED.assigned_athletes,
			desired_age_groups = EXCLUDED.desired_age_groups,
			type = EXCLUDED.type,
			event_id = EXCLUDED.event_id,
			logo_url = EXCLUDED.logo_url,
			promo_video_url = EXCLUDED.promo_video_url,
			tournament_name = EXCLUDED.tournament_name,
			tournament_link = EXCLUDED.tournament_link
	`
	_, err := r.db.Exec(ctx, query,
		c.ID, c.Title, c.Reward, achievements, c.StartDate, c.EndDate, c.SponsorID, c.CreatedBy,
		nonNil(c.AssignedAthletes), nonNil(c.DesiredAgeGroups), c.Type, c.EventID, c.LogoURL, c.PromoVideoURL,
		c.TournamentName, c.TournamentLink, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	return nil
}

// GetByID retrieves a challenge by ID
func (r *ChallengeRepository) GetByID(ctx context.Context, id string) (*models.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE id = $1`
	c, err := scanChallenge(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("challenge %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return c, nil
}

// GetByIDs retrieves every existing challenge among ids in a single query
func (r *ChallengeRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.Challenge, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.list(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = ANY($1)`, ids)
}

// ListByCreator retrieves the challenges a sponsor or retailer authored,
// newest first
func (r *ChallengeRepository) ListByCreator(ctx context.Context, userID string) ([]*models.Challenge, error) {
	query := `
		SELECT ` + challengeColumns + `
		FROM challenges
		WHERE created_by = $1
		ORDER BY start_date DESC
	`
	return r.list(ctx, query, userID)
}

// ListCandidates retrieves every challenge that could be eligible for an
// athlete: the ones assigned to them and all retailer broadcasts. The
// caller applies the eligibility rules.
func (r *ChallengeRepository) ListCandidates(ctx context.Context, athleteID string) ([]*models.Challenge, error) {
	query := `
		SELECT ` + challengeColumns + `
		FROM challenges
		WHERE type = 'retailer' OR $1 = ANY(assigned_athletes)
		ORDER BY start_date ASC
	`
	return r.list(ctx, query, athleteID)
}

// DeleteUnused deletes a challenge authored by createdBy as long as no
// submission references it
func (r *ChallengeRepository) DeleteUnused(ctx context.Context, id, createdBy string) error {
	query := `
		DELETE FROM challenges
		WHERE id = $1 AND created_by = $2
		AND NOT EXISTS (SELECT 1 FROM submissions WHERE challenge_id = $1)
	`
	result, err := r.db.Exec(ctx, query, id, createdBy)
	if err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("challenge %s has submissions or is not yours: %w", id, ErrConflict)
	}
	return nil
}
