package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/model"
)

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, patient_id, doctor_id, status, request_message,
			appointment_date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	appointment.ID = uuid.New()
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = appointment.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.PatientID,
		appointment.DoctorID,
		appointment.Status,
		appointment.RequestMessage,
		appointment.AppointmentDate,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", mapError(err))
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, patient_id, doctor_id, status, request_message,
			   appointment_date, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id); err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", mapError(err))
	}
	return &appointment, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id, doctorID uuid.UUID, from, to model.AppointmentStatus, date *time.Time) (bool, error) {
	query := `
		UPDATE appointments
		SET status = $1,
			appointment_date = COALESCE($2::timestamptz, appointment_date),
			updated_at = NOW()
		WHERE id = $3 AND doctor_id = $4 AND status = $5
	`
	result, err := r.db.ExecContext(ctx, query, to, date, id, doctorID, from)
	if err != nil {
		return false, fmt.Errorf("failed to update appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id, doctorID uuid.UUID) (bool, error) {
	query := `
		DELETE FROM appointments
		WHERE id = $1 AND doctor_id = $2
	`
	result, err := r.db.ExecContext(ctx, query, id, doctorID)
	if err != nil {
		return false, fmt.Errorf("failed to delete appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *appointmentRepository) ListPendingForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.PendingAppointment, error) {
	query := `
		SELECT a.id AS appointment_id,
			   a.request_message,
			   a.created_at,
			   u.id AS patient_id,
			   u.name AS patient_name,
			   u.email AS patient_email
		FROM appointments a
		JOIN users u ON a.patient_id = u.id
		WHERE a.doctor_id = $1 AND a.status = $2
		ORDER BY a.created_at ASC
	`
	appointments := []*model.PendingAppointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, doctorID, model.AppointmentStatusPending); err != nil {
		return nil, fmt.Errorf("failed to list pending appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.PatientAppointment, error) {
	query := `
		SELECT a.id AS appointment_id,
			   a.status,
			   a.appointment_date,
			   a.request_message,
			   d.name AS doctor_name,
			   d.email AS doctor_email,
			   d.city AS doctor_city
		FROM appointments a
		JOIN users d ON a.doctor_id = d.id
		WHERE a.patient_id = $1
		ORDER BY a.created_at DESC
	`
	appointments := []*model.PatientAppointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list patient appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) HistoryForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.HistoryEntry, error) {
	query := `
		SELECT a.id AS appointment_id,
			   a.status,
			   a.appointment_date,
			   a.created_at,
			   u.name AS patient_name,
			   u.email AS patient_email
		FROM appointments a
		JOIN users u ON a.patient_id = u.id
		WHERE a.doctor_id = $1 AND a.status IN ($2, $3)
		ORDER BY a.created_at DESC
	`
	entries := []*model.HistoryEntry{}
	err := r.db.SelectContext(ctx, &entries, query, doctorID,
		model.AppointmentStatusAccepted, model.AppointmentStatusRejected)
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor history: %w", err)
	}
	return entries, nil
}

func (r *appointmentRepository) HistoryForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.HistoryEntry, error) {
	query := `
		SELECT a.id AS appointment_id,
			   a.status,
			   a.appointment_date,
			   a.created_at,
			   u.name AS doctor_name,
			   u.email AS doctor_email
		FROM appointments a
		JOIN users u ON a.doctor_id = u.id
		WHERE a.patient_id = $1
		ORDER BY a.created_at DESC
	`
	entries := []*model.HistoryEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to get patient history: %w", err)
	}
	return entries, nil
}
