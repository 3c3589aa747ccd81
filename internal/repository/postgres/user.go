package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
)

const userColumns = `id, name, email, password_hash, role, city, country,
	is_doctor_verified, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (
			id, name, email, password_hash, role, city, country,
			is_doctor_verified, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.City,
		user.Country,
		user.IsDoctorVerified,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapError(err))
	}
	return nil
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", mapError(err))
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", mapError(err))
	}
	return &user, nil
}

func (r *userRepository) SearchVerifiedDoctors(ctx context.Context, city, country string) ([]*model.DoctorSummary, error) {
	query := `
		SELECT id, name, city, country
		FROM users
		WHERE role = $1
		AND is_doctor_verified = TRUE
		AND city ILIKE $2
		AND country ILIKE $3
		ORDER BY name ASC
	`

	doctors := []*model.DoctorSummary{}
	err := r.db.SelectContext(ctx, &doctors, query, model.RoleDoctor, containsPattern(city), containsPattern(country))
	if err != nil {
		return nil, fmt.Errorf("failed to search doctors: %w", err)
	}
	return doctors, nil
}

func (r *userRepository) ListByRole(ctx context.Context, role model.Role, verified *bool, orderBy repository.UserOrder) ([]*model.UserSummary, error) {
	query := `
		SELECT id, name, email, city, country, created_at
		FROM users
		WHERE role = $1
	`
	args := []interface{}{role}

	if verified != nil {
		query += fmt.Sprintf(" AND is_doctor_verified = $%d", len(args)+1)
		args = append(args, *verified)
	}

	switch orderBy {
	case repository.OrderByCreatedAt:
		query += " ORDER BY created_at ASC"
	default:
		query += " ORDER BY name ASC"
	}

	users := []*model.UserSummary{}
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *userRepository) SetDoctorVerified(ctx context.Context, id uuid.UUID, verified bool) (bool, error) {
	query := `
		UPDATE users
		SET is_doctor_verified = $1, updated_at = NOW()
		WHERE id = $2 AND role = $3
	`
	result, err := r.db.ExecContext(ctx, query, verified, id, model.RoleDoctor)
	if err != nil {
		return false, fmt.Errorf("failed to update verification: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *userRepository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	// Dependents first; nothing relies on ON DELETE CASCADE.
	steps := []struct {
		name  string
		query string
	}{
		{"appointments", `DELETE FROM appointments WHERE patient_id = $1 OR doctor_id = $1`},
		{"doctor profile", `DELETE FROM doctor_profiles WHERE user_id = $1`},
		{"doctor availability", `DELETE FROM doctor_availability WHERE doctor_id = $1`},
	}

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, step := range steps {
			if _, err := tx.ExecContext(ctx, step.query, id); err != nil {
				return fmt.Errorf("failed to delete %s: %w", step.name, err)
			}
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}
