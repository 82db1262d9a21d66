package repository

import (
	"context"
	"errors"
	"fmt"

	"sponup-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, role, email, first_name, last_name, age_group, company_name,
	sponsor_ids, pending_sponsors, sponsored_athletes, pending_athletes,
	profile_image_url, email_for_rewards, shipping_address, created_at`

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Role, &u.Email, &u.FirstName, &u.LastName, &u.AgeGroup, &u.CompanyName,
		&u.SponsorIDs, &u.PendingSponsors, &u.SponsoredAthletes, &u.PendingAthletes,
		&u.ProfileImageURL, &u.EmailForRewards, &u.ShippingAddress, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func collectUsers(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.db.Exec(ctx, query,
		user.ID, user.Role, user.Email, user.FirstName, user.LastName, user.AgeGroup, user.CompanyName,
		nonNil(user.SponsorIDs), nonNil(user.PendingSponsors), nonNil(user.SponsoredAthletes), nonNil(user.PendingAthletes),
		user.ProfileImageURL, user.EmailForRewards, user.ShippingAddress, user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s already exists: %w", user.ID, ErrConflict)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Upsert inserts a user or replaces every column of an existing one
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			role = EXCLUDED.role,
			email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			age_group = EXCLUDED.age_group,
			company_name = EXCLUDED.company_name,
			sponsor_ids = EXCLUDED.sponsor_ids,
			pending_sponsors = EXCLUDED.pending_sponsors,
			sponsored_athletes = EXCLUDED.sponsored_athletes,
			pending_athletes = EXCLUDED.pending_athletes,
			profile_image_url = EXCLUDED.profile_image_url,
			email_for_rewards = EXCLUDED.email_for_rewards,
			shipping_address = EXCLUDED.shipping_address
	`
	_, err := r.db.Exec(ctx, query,
		user.ID, user.Role, user.Email, user.FirstName, user.LastName, user.AgeGroup, user.CompanyName,
		nonNil(user.SponsorIDs), nonNil(user.PendingSponsors), nonNil(user.SponsoredAthletes), nonNil(user.PendingAthletes),
		user.ProfileImageURL, user.EmailForRewards, user.ShippingAddress, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByIDs retrieves every existing user among ids in a single query
func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1)`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	return collectUsers(rows)
}

// UpdateProfile writes the editable profile fields of a user. Role and the
// relationship lists are never touched here.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET
			first_name = $2, last_name = $3, age_group = $4, company_name = $5,
			profile_image_url = $6, email_for_rewards = $7, shipping_address = $8
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query,
		user.ID, user.FirstName, user.LastName, user.AgeGroup, user.CompanyName,
		user.ProfileImageURL, user.EmailForRewards, user.ShippingAddress,
	)
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", user.ID, ErrNotFound)
	}
	return nil
}

// CountAthletes counts athletes in any of the given normalized age groups,
// or every athlete when all is set
func (r *UserRepository) CountAthletes(ctx context.Context, groups []string, all bool) (int, error) {
	var count int
	var err error
	if all {
		err = r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = 'athlete'`).Scan(&count)
	} else {
		err = r.db.QueryRow(ctx,
			`SELECT COUNT(*) FROM users WHERE role = 'athlete' AND lower(trim(age_group)) = ANY($1)`,
			nonNil(groups),
		).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count athletes: %w", err)
	}
	return count, nil
}

// UpdateLinks locks the given users, lets fn edit their relationship lists
// and writes every list back in the same transaction. Users that do not
// exist are absent from the map passed to fn. Returning an error from fn
// rolls the whole change back.
func (r *UserRepository) UpdateLinks(ctx context.Context, ids []string, fn func(users map[string]*models.User) error) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`
		rows, err := tx.Query(ctx, query, ids)
		if err != nil {
			return fmt.Errorf("failed to lock users: %w", err)
		}
		locked, err := collectUsers(rows)
		if err != nil {
			return err
		}

		users := make(map[string]*models.User, len(locked))
		for _, u := range locked {
			users[u.ID] = u
		}

		if err := fn(users); err != nil {
			return err
		}

		update := `
			UPDATE users SET
				sponsor_ids = $2, pending_sponsors = $3,
				sponsored_athletes = $4, pending_athletes = $5
			WHERE id = $1
		`
		for _, u := range locked {
			_, err := tx.Exec(ctx, update,
				u.ID, nonNil(u.SponsorIDs), nonNil(u.PendingSponsors),
				nonNil(u.SponsoredAthletes), nonNil(u.PendingAthletes),
			)
			if err != nil {
				return fmt.Errorf("failed to update links of user %s: %w", u.ID, err)
			}
		}
		return nil
	})
}
