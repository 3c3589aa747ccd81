package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/telehealth-api/internal/model"
)

func (r *doctorRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*model.DoctorProfile, error) {
	query := `
		SELECT id, user_id, profession, clinic_address, created_at, updated_at
		FROM doctor_profiles
		WHERE user_id = $1
	`
	var profile model.DoctorProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get doctor profile: %w", mapError(err))
	}
	return &profile, nil
}

func (r *doctorRepository) UpsertProfile(ctx context.Context, userID uuid.UUID, profession, clinicAddress string) (*model.DoctorProfile, error) {
	query := `
		INSERT INTO doctor_profiles (id, user_id, profession, clinic_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET profession = EXCLUDED.profession,
			clinic_address = EXCLUDED.clinic_address,
			updated_at = NOW()
		RETURNING id, user_id, profession, clinic_address, created_at, updated_at
	`
	var profile model.DoctorProfile
	if err := r.db.GetContext(ctx, &profile, query, uuid.New(), userID, profession, clinicAddress); err != nil {
		return nil, fmt.Errorf("failed to upsert doctor profile: %w", err)
	}
	return &profile, nil
}

func (r *doctorRepository) ListAvailability(ctx context.Context, doctorID uuid.UUID) ([]model.AvailabilityBlock, error) {
	query := `
		SELECT day_of_week, start_time, end_time
		FROM doctor_availability
		WHERE doctor_id = $1
		ORDER BY day_of_week
	`
	blocks := []model.AvailabilityBlock{}
	if err := r.db.SelectContext(ctx, &blocks, query, doctorID); err != nil {
		return nil, fmt.Errorf("failed to list availability: %w", err)
	}
	return blocks, nil
}

func (r *doctorRepository) ReplaceAvailability(ctx context.Context, doctorID uuid.UUID, blocks []model.AvailabilityBlock) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM doctor_availability WHERE doctor_id = $1`, doctorID); err != nil {
			return fmt.Errorf("failed to clear availability: %w", err)
		}

		insert := `
			INSERT INTO doctor_availability (id, doctor_id, day_of_week, start_time, end_time)
			VALUES ($1, $2, $3, $4, $5)
		`
		for i, b := range blocks {
			if _, err := tx.ExecContext(ctx, insert, uuid.New(), doctorID, b.DayOfWeek, b.StartTime, b.EndTime); err != nil {
				return fmt.Errorf("failed to insert availability block %d: %w", i, err)
			}
		}
		return nil
	})
}
