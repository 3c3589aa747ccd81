package doctor

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	apperrors "github.com/jwalitptl/telehealth-api/pkg/errors"
)

type Options struct {
	// StrictAvailability rejects incomplete blocks instead of dropping them.
	StrictAvailability bool
}

type Service struct {
	userRepo   repository.UserRepository
	doctorRepo repository.DoctorRepository
	opts       Options
}

func NewService(userRepo repository.UserRepository, doctorRepo repository.DoctorRepository, opts Options) *Service {
	return &Service{
		userRepo:   userRepo,
		doctorRepo: doctorRepo,
		opts:       opts,
	}
}

// Search lists verified doctors whose city and country contain the given terms.
func (s *Service) Search(ctx context.Context, q model.DoctorSearch) ([]*model.DoctorSummary, error) {
	city, country := strings.TrimSpace(q.City), strings.TrimSpace(q.Country)
	if city == "" || country == "" {
		return nil, apperrors.BadRequest("city and country are required for search", nil)
	}

	doctors, err := s.userRepo.SearchVerifiedDoctors(ctx, city, country)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return doctors, nil
}

// Profile returns the doctor's identity with profile and availability.
// Profile fields are empty until the doctor saves one.
func (s *Service) Profile(ctx context.Context, doctor *model.Identity) (*model.ProfileView, error) {
	profile, err := s.doctorRepo.GetProfile(ctx, doctor.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Internal(err)
		}
		profile = &model.DoctorProfile{UserID: doctor.ID}
	}

	blocks, err := s.doctorRepo.ListAvailability(ctx, doctor.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	return &model.ProfileView{
		User: doctor,
		Profile: &model.ProfileWithBlocks{
			DoctorProfile: profile,
			Availability:  blocks,
		},
	}, nil
}

func (s *Service) UpdateProfile(ctx context.Context, doctorID uuid.UUID, req *model.UpdateProfileRequest) (*model.DoctorProfile, error) {
	profession := strings.TrimSpace(req.Profession)
	address := strings.TrimSpace(req.ClinicAddress)
	if profession == "" || address == "" {
		return nil, apperrors.BadRequest("profession and clinic address are required", nil)
	}

	profile, err := s.doctorRepo.UpsertProfile(ctx, doctorID, profession, address)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return profile, nil
}

// SetAvailability replaces the doctor's weekly blocks as one unit.
func (s *Service) SetAvailability(ctx context.Context, doctorID uuid.UUID, blocks []model.AvailabilityBlock) ([]model.AvailabilityBlock, error) {
	kept := make([]model.AvailabilityBlock, 0, len(blocks))
	for i, b := range blocks {
		if b.Complete() {
			kept = append(kept, b)
			continue
		}
		if s.opts.StrictAvailability {
			return nil, apperrors.BadRequest("availability block is incomplete", nil)
		}
		log.Debug().
			Str("doctor_id", doctorID.String()).
			Int("index", i).
			Msg("skipping incomplete availability block")
	}

	if err := s.doctorRepo.ReplaceAvailability(ctx, doctorID, kept); err != nil {
		return nil, apperrors.Internal(err)
	}
	return kept, nil
}
