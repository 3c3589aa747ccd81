package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	"github.com/jwalitptl/telehealth-api/pkg/auth"
	apperrors "github.com/jwalitptl/telehealth-api/pkg/errors"
	"github.com/jwalitptl/telehealth-api/pkg/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
)

type Service struct {
	userRepo repository.UserRepository
	hasher   security.PasswordHasher
	jwtSvc   auth.JWTService
}

func NewService(userRepo repository.UserRepository, hasher security.PasswordHasher, jwtSvc auth.JWTService) *Service {
	return &Service{
		userRepo: userRepo,
		hasher:   hasher,
		jwtSvc:   jwtSvc,
	}
}

// Register creates a patient or doctor account and returns a session token.
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResult, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return nil, apperrors.BadRequest("please provide all required fields", nil)
	}

	role := req.RequestedRole()
	user := &model.User{
		Name:  name,
		Email: email,
		Role:  role,
	}
	if role == model.RoleDoctor {
		city, country := strings.TrimSpace(req.City), strings.TrimSpace(req.Country)
		if city == "" || country == "" {
			return nil, apperrors.BadRequest("doctors must provide city and country", nil)
		}
		user.City = &city
		user.Country = &country
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.BadRequest(ErrUserExists.Error(), ErrUserExists)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to hash password: %w", err))
	}
	user.PasswordHash = hash

	if err := s.userRepo.Create(ctx, user); err != nil {
		// Lost a race with a concurrent registration for the same email.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.BadRequest(ErrUserExists.Error(), ErrUserExists)
		}
		return nil, apperrors.Internal(err)
	}

	token, err := s.jwtSvc.GenerateToken(user.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	log.Info().
		Str("user_id", user.ID.String()).
		Str("role", string(user.Role)).
		Msg("user registered")

	return &model.AuthResult{User: user, Token: token}, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*model.AuthResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.BadRequest(ErrInvalidCredentials.Error(), ErrInvalidCredentials)
		}
		return nil, apperrors.Internal(err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, apperrors.BadRequest(ErrInvalidCredentials.Error(), ErrInvalidCredentials)
	}

	token, err := s.jwtSvc.GenerateToken(user.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &model.AuthResult{User: user, Token: token}, nil
}

// Authenticate verifies token and loads the current user. Every failure is
// reported as unauthorized without saying which check failed.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.Identity, error) {
	if token == "" {
		return nil, apperrors.Unauthorized(auth.ErrInvalidToken)
	}

	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}

	user, err := s.userRepo.Get(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized(err)
		}
		return nil, apperrors.Internal(err)
	}
	return user.Identity(), nil
}

// Me reloads the acting user's record.
func (s *Service) Me(ctx context.Context, id uuid.UUID) (*model.Identity, error) {
	user, err := s.userRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, apperrors.Internal(err)
	}
	return user.Identity(), nil
}

// TokenTTL is the lifetime of issued session tokens.
func (s *Service) TokenTTL() int {
	return int(s.jwtSvc.Expiry().Seconds())
}
