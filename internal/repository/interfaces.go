package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/model"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// All repository interfaces in one file
type (
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		SearchVerifiedDoctors(ctx context.Context, city, country string) ([]*model.DoctorSummary, error)
		ListByRole(ctx context.Context, role model.Role, verified *bool, orderBy UserOrder) ([]*model.UserSummary, error)
		SetDoctorVerified(ctx context.Context, id uuid.UUID, verified bool) (bool, error)
		// DeleteCascade removes the user and every dependent row in one transaction.
		DeleteCascade(ctx context.Context, id uuid.UUID) error
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		// UpdateStatus changes status only while the row still has status from
		// and belongs to doctorID. It reports whether a row changed.
		UpdateStatus(ctx context.Context, id, doctorID uuid.UUID, from, to model.AppointmentStatus, date *time.Time) (bool, error)
		Delete(ctx context.Context, id, doctorID uuid.UUID) (bool, error)
		ListPendingForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.PendingAppointment, error)
		ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.PatientAppointment, error)
		HistoryForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.HistoryEntry, error)
		HistoryForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.HistoryEntry, error)
	}

	DoctorRepository interface {
		GetProfile(ctx context.Context, userID uuid.UUID) (*model.DoctorProfile, error)
		UpsertProfile(ctx context.Context, userID uuid.UUID, profession, clinicAddress string) (*model.DoctorProfile, error)
		ListAvailability(ctx context.Context, doctorID uuid.UUID) ([]model.AvailabilityBlock, error)
		// ReplaceAvailability deletes the doctor's blocks and inserts blocks atomically.
		ReplaceAvailability(ctx context.Context, doctorID uuid.UUID, blocks []model.AvailabilityBlock) error
	}
)

// UserOrder selects the sort order of a user listing.
type UserOrder int

const (
	OrderByName UserOrder = iota
	OrderByCreatedAt
)
