package service

import (
	"context"

	"pollhub/internal/forms"
	"pollhub/internal/models"
	"pollhub/internal/repository"
)

type UserService struct {
	users          repository.UserRepository
	avatars        AvatarStore
	avatarMaxBytes int64
}

func NewUserService(users repository.UserRepository, avatars AvatarStore, avatarMaxBytes int64) *UserService {
	return &UserService{users: users, avatars: avatars, avatarMaxBytes: avatarMaxBytes}
}

// Profile returns the user shown on the profile page.
func (s *UserService) Profile(ctx context.Context, userID uint) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile applies a valid edit form. The previous avatar is removed
// only after the new one is saved.
func (s *UserService) UpdateProfile(ctx context.Context, form *forms.ProfileForm) (*models.User, bool, error) {
	ok, err := form.Validate(ctx, s.users, s.avatarMaxBytes)
	if err != nil {
		return nil, false, models.NewInternalError(err)
	}
	if !ok {
		return nil, false, nil
	}

	user, err := s.users.GetByID(ctx, form.UserID)
	if err != nil {
		return nil, false, err
	}

	oldAvatar := user.Avatar
	newAvatar := ""
	if form.Avatar != nil {
		newAvatar, err = s.avatars.Save(ctx, form.Avatar)
		if err != nil {
			return nil, false, models.NewInternalError(err)
		}
		user.Avatar = newAvatar
	}
	user.Username = form.Username
	user.Email = form.Email

	if err := s.users.Update(ctx, user); err != nil {
		s.avatars.Remove(newAvatar)
		if addDuplicateError(&form.Errors, err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	if newAvatar != "" && oldAvatar != newAvatar {
		s.avatars.Remove(oldAvatar)
	}
	return user, true, nil
}

// Delete removes the account, its voter rows and its avatar files.
func (s *UserService) Delete(ctx context.Context, userID uint) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	s.avatars.Remove(user.Avatar)
	return nil
}
