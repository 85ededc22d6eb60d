package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/security"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

var ErrTokenGeneration = errors.New("failed to generate token")

type Service struct {
	users     repository.UserRepository
	jwtSvc    auth.JWTService
	hasher    security.PasswordHasher
	validator validator.Validator
	logger    *logger.Logger
}

func NewService(users repository.UserRepository, jwtSvc auth.JWTService, hasher security.PasswordHasher, v validator.Validator, log *logger.Logger) *Service {
	return &Service{
		users:     users,
		jwtSvc:    jwtSvc,
		hasher:    hasher,
		validator: v,
		logger:    log,
	}
}

// Login checks the credentials and issues an access token carrying the
// user's station role. Unknown users and wrong passwords are indistinguishable.
func (s *Service) Login(ctx context.Context, req model.LoginRequest) (*model.TokenResponse, error) {
	if err := s.validator.Validate(&req); err != nil {
		return nil, err
	}

	user, err := s.users.GetByUsername(ctx, req.Username)
	if errors.Is(err, repository.ErrNotFound) {
		s.hasher.CompareMissing(req.Password)
		s.logger.Warn("login failed", "username", req.Username)
		return nil, apperrors.Unauthorized(model.ErrInvalidCredentials)
	}
	if err != nil {
		return nil, repository.Translate("user", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		s.logger.Warn("login failed", "username", req.Username)
		return nil, apperrors.Unauthorized(model.ErrInvalidCredentials)
	}

	token, err := s.jwtSvc.GenerateAccessToken(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("%w: %v", ErrTokenGeneration, err))
	}

	s.logger.Info("user logged in", "user_id", user.ID.String(), "role", string(user.Role))
	return &model.TokenResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.jwtSvc.TTL().Seconds()),
		User:        user,
	}, nil
}
