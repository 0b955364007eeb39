// Package service holds the account and poll use cases on top of the
// repositories.
package service

import (
	"context"
	"errors"
	"fmt"

	"pollhub/internal/forms"
	"pollhub/internal/messages"
	"pollhub/internal/models"
	"pollhub/internal/observability"
	"pollhub/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when the username is unknown so both
// failure paths cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("pollhub-timing-equalizer"), bcrypt.MinCost)

type AuthService struct {
	users          repository.UserRepository
	avatars        AvatarStore
	avatarMaxBytes int64
	bcryptCost     int
	logger         *observability.StructuredLogger
}

// NewAuthService wires registration and login.
func NewAuthService(users repository.UserRepository, avatars AvatarStore, avatarMaxBytes int64) *AuthService {
	return &AuthService{
		users:          users,
		avatars:        avatars,
		avatarMaxBytes: avatarMaxBytes,
		bcryptCost:     bcrypt.DefaultCost,
		logger:         observability.NewStructuredLogger(),
	}
}

// Register validates the form and creates the account. A false result with a
// nil error means the form now carries errors and nothing was stored.
func (s *AuthService) Register(ctx context.Context, form *forms.RegistrationForm) (*models.User, bool, error) {
	ok, err := form.Validate(ctx, s.users, s.avatarMaxBytes)
	if err != nil {
		return nil, false, models.NewInternalError(err)
	}
	if !ok {
		return nil, false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), s.bcryptCost)
	if err != nil {
		return nil, false, models.NewInternalError(fmt.Errorf("hash password: %w", err))
	}

	avatar, err := s.avatars.Save(ctx, form.Avatar)
	if err != nil {
		return nil, false, models.NewInternalError(err)
	}

	user := &models.User{
		Username: form.Username,
		Email:    form.Email,
		Avatar:   avatar,
		Password: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.avatars.Remove(avatar)
		if addDuplicateError(&form.Errors, err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	observability.RegistrationsTotal.Inc()
	s.logger.LogServiceCall(ctx, "AuthService", "Register", map[string]any{"user_id": user.ID})
	return user, true, nil
}

// Authenticate checks the credentials and returns the matching user.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// addDuplicateError maps a unique-constraint race back onto the form.
func addDuplicateError(errs *forms.Errors, err error) bool {
	switch {
	case errors.Is(err, repository.ErrDuplicateUsername):
		errs.Add(forms.FieldUsername, forms.Failure{Key: messages.UsernameTaken})
		return true
	case errors.Is(err, repository.ErrDuplicateEmail):
		errs.Add(forms.FieldEmail, forms.Failure{Key: messages.EmailTaken})
		return true
	}
	return false
}
