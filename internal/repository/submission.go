package repository

import (
	"context"
	"errors"
	"fmt"

	"sponup-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const submissionColumns = `id, athlete_id, challenge_id, image_urls, status, submitted_at,
	delivery_method, redemption_code, tracking_number, carrier, estimated_delivery_date, notes,
	rewarded_at`

// SubmissionRepository handles database operations for submissions
type SubmissionRepository struct {
	db *pgxpool.Pool
}

// NewSubmissionRepository creates a new submission repository
func NewSubmissionRepository(db *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func scanSubmission(row rowScanner) (*models.Submission, error) {
	var s models.Submission
	var method *string
	var d models.Delivery
	err := row.Scan(
		&s.ID, &s.AthleteID, &s.ChallengeID, &s.ImageURLs, &s.Status, &s.SubmittedAt,
		&method, &d.RedemptionCode, &d.TrackingNumber, &d.Carrier, &d.EstimatedDeliveryDate, &d.Notes,
		&s.RewardedAt,
	)
	if err != nil {
		return nil, err
	}
	if method != nil {
		d.Method = models.DeliveryMethod(*method)
		s.Delivery = &d
	}
	return &s, nil
}

func (r *SubmissionRepository) list(ctx context.Context, query string, args ...any) ([]*models.Submission, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get submissions: %w", err)
	}
	defer rows.Close()

	var submissions []*models.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		submissions = append(submissions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submissions: %w", err)
	}

	return submissions, nil
}

// deliveryArgs flattens the optional delivery into its columns
func deliveryArgs(d *models.Delivery) []any {
	if d == nil {
		return []any{nil, nil, nil, nil, nil, nil}
	}
	method := string(d.Method)
	return []any{&method, d.RedemptionCode, d.TrackingNumber, d.Carrier, d.EstimatedDeliveryDate, d.Notes}
}

// GetByID retrieves a submission by ID
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	s, err := scanSubmission(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("submission %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return s, nil
}

// GetByAthleteAndChallenge retrieves the single submission an athlete made
// for a challenge
func (r *SubmissionRepository) GetByAthleteAndChallenge(ctx context.Context, athleteID, challengeID string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE athlete_id = $1 AND challenge_id = $2`
	s, err := scanSubmission(r.db.QueryRow(ctx, query, athleteID, challengeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("submission of %s for %s: %w", athleteID, challengeID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return s, nil
}

// ListByAthlete retrieves an athlete's submissions, newest first
func (r *SubmissionRepository) ListByAthlete(ctx context.Context, athleteID string) ([]*models.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE athlete_id = $1
		ORDER BY submitted_at DESC
	`
	return r.list(ctx, query, athleteID)
}

// ListByChallenge retrieves every submission for a challenge, newest first
func (r *SubmissionRepository) ListByChallenge(ctx context.Context, challengeID string) ([]*models.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE challenge_id = $1
		ORDER BY submitted_at DESC
	`
	return r.list(ctx, query, challengeID)
}

// CountByChallenges counts submissions per challenge and status for the
// given IDs. Challenges without submissions are absent from the result.
func (r *SubmissionRepository) CountByChallenges(ctx context.Context, challengeIDs []string) (map[string]map[models.SubmissionStatus]int, error) {
	counts := make(map[string]map[models.SubmissionStatus]int)
	if len(challengeIDs) == 0 {
		return counts, nil
	}

	query := `
		SELECT challenge_id, status, COUNT(*)
		FROM submissions
		WHERE challenge_id = ANY($1)
		GROUP BY challenge_id, status
	`
	rows, err := r.db.Query(ctx, query, challengeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to count submissions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var status models.SubmissionStatus
		var n int
		if err := rows.Scan(&id, &status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan submission count: %w", err)
		}
		if counts[id] == nil {
			counts[id] = make(map[models.SubmissionStatus]int)
		}
		counts[id][status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submission counts: %w", err)
	}
	return counts, nil
}

// Submit creates or replaces the athlete's submission for a challenge and
// saves the athlete's delivery info, all in one transaction. fn receives
// the locked existing submission (nil if none) and returns the row to
// write, or an error to abort without changes.
func (r *SubmissionRepository) Submit(
	ctx context.Context,
	athleteID, challengeID string,
	emailForRewards, shippingAddress string,
	fn func(existing *models.Submission) (*models.Submission, error),
) (*models.Submission, error) {
	var saved *models.Submission
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		query := `SELECT ` + submissionColumns + ` FROM submissions WHERE athlete_id = $1 AND challenge_id = $2 FOR UPDATE`
		existing, err := scanSubmission(tx.QueryRow(ctx, query, athleteID, challengeID))
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("failed to lock submission: %w", err)
			}
			existing = nil
		}

		next, err := fn(existing)
		if err != nil {
			return err
		}

		upsert := `
			INSERT INTO submissions (` + submissionColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT ON CONSTRAINT submissions_athlete_challenge_key DO UPDATE SET
				image_urls = EXCLUDED.image_urls,
				status = EXCLUDED.status,
				submitted_at = EXCLUDED.submitted_at
			RETURNING id
		`
		args := append([]any{
			next.ID, athleteID, challengeID, nonNil(next.ImageURLs), next.Status, next.SubmittedAt,
		}, deliveryArgs(next.Delivery)...)
		args = append(args, next.RewardedAt)
		if err := tx.QueryRow(ctx, upsert, args...).Scan(&next.ID); err != nil {
			return fmt.Errorf("failed to save submission: %w", err)
		}

		result, err := tx.Exec(ctx,
			`UPDATE users SET email_for_rewards = $2, shipping_address = $3 WHERE id = $1`,
			athleteID, emailForRewards, shippingAddress,
		)
		if err != nil {
			return fmt.Errorf("failed to save delivery info: %w", err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("user %s: %w", athleteID, ErrNotFound)
		}

		next.AthleteID = athleteID
		next.ChallengeID = challengeID
		saved = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// Transition locks a submission, lets fn compute its next state and writes
// the status, delivery and reward time back. An error from fn leaves the
// row untouched.
func (r *SubmissionRepository) Transition(
	ctx context.Context,
	id string,
	fn func(current *models.Submission) (*models.Submission, error),
) (*models.Submission, error) {
	var saved *models.Submission
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1 FOR UPDATE`
		current, err := scanSubmission(tx.QueryRow(ctx, query, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("submission %s: %w", id, ErrNotFound)
			}
			return fmt.Errorf("failed to lock submission: %w", err)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		update := `
			UPDATE submissions SET
				status = $2,
				delivery_method = $3, redemption_code = $4, tracking_number = $5,
				carrier = $6, estimated_delivery_date = $7, notes = $8,
				rewarded_at = $9
			WHERE id = $1
		`
		args := append([]any{id, next.Status}, deliveryArgs(next.Delivery)...)
		args = append(args, next.RewardedAt)
		if _, err := tx.Exec(ctx, update, args...); err != nil {
			return fmt.Errorf("failed to update submission: %w", err)
		}

		saved = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// Upsert writes an imported submission as-is
func (r *SubmissionRepository) Upsert(ctx context.Context, s *models.Submission) error {
	query := `
		INSERT INTO submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT ON CONSTRAINT submissions_athlete_challenge_key DO UPDATE SET
			image_urls = EXCLUDED.image_urls,
			status = EXCLUDED.status,
			submitted_at = EXCLUDED.submitted_at,
			delivery_method = EXCLUDED.delivery_method,
			redemption_code = EXCLUDED.redemption_code,
			tracking_number = EXCLUDED.tracking_number,
			carrier = EXCLUDED.carrier,
			estimated_delivery_date = EXCLUDED.estimated_delivery_date,
			notes = EXCLUDED.notes,
			rewarded_at = EXCLUDED.rewarded_at
	`
	args := append([]any{
		s.ID, s.AthleteID, s.ChallengeID, nonNil(s.ImageURLs), s.Status, s.SubmittedAt,
	}, deliveryArgs(s.Delivery)...)
	args = append(args, s.RewardedAt)
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert submission: %w", err)
	}
	return nil
}
