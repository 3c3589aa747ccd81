package admin

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	apperrors "github.com/jwalitptl/telehealth-api/pkg/errors"
)

type Service struct {
	userRepo        repository.UserRepository
	appointmentRepo repository.AppointmentRepository
}

func NewService(userRepo repository.UserRepository, appointmentRepo repository.AppointmentRepository) *Service {
	return &Service{
		userRepo:        userRepo,
		appointmentRepo: appointmentRepo,
	}
}

// Dashboard returns unverified doctors (oldest first), verified doctors and
// patients (both by name).
func (s *Service) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	unverified, verified := false, true

	pending, err := s.userRepo.ListByRole(ctx, model.RoleDoctor, &unverified, repository.OrderByCreatedAt)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	doctors, err := s.userRepo.ListByRole(ctx, model.RoleDoctor, &verified, repository.OrderByName)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	patients, err := s.userRepo.ListByRole(ctx, model.RolePatient, nil, repository.OrderByName)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	return &model.Dashboard{
		VerificationList: pending,
		VerifiedDoctors:  doctors,
		AllPatients:      patients,
	}, nil
}

// VerifyDoctor marks a doctor verified. Ids that are not doctors are ignored.
func (s *Service) VerifyDoctor(ctx context.Context, id uuid.UUID) error {
	changed, err := s.userRepo.SetDoctorVerified(ctx, id, true)
	if err != nil {
		return apperrors.Internal(err)
	}
	if !changed {
		log.Debug().Str("user_id", id.String()).Msg("verify ignored, not a doctor")
	}
	return nil
}

// DeleteUser removes the user with their appointments, profile and availability.
func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := s.userRepo.DeleteCascade(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("user", err)
		}
		return apperrors.Internal(err)
	}
	log.Info().Str("user_id", id.String()).Msg("user deleted")
	return nil
}

// UserHistory lists a user's appointments. Doctors see only resolved ones.
func (s *Service) UserHistory(ctx context.Context, id uuid.UUID) ([]*model.HistoryEntry, error) {
	user, err := s.userRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, apperrors.Internal(err)
	}

	var entries []*model.HistoryEntry
	switch user.Role {
	case model.RoleDoctor:
		entries, err = s.appointmentRepo.HistoryForDoctor(ctx, id)
	case model.RolePatient:
		entries, err = s.appointmentRepo.HistoryForPatient(ctx, id)
	default:
		return nil, apperrors.BadRequest("invalid user role for inspection", nil)
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return entries, nil
}
