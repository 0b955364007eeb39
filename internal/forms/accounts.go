package forms

import (
	"context"
	"mime/multipart"
	"strings"

	"pollhub/internal/messages"
	"pollhub/internal/validation"
)

// Field names shared by the account forms and templates.
const (
	FieldUsername       = "username"
	FieldEmail          = "email"
	FieldAvatar         = "avatar"
	FieldPassword       = "password"
	FieldPasswordRepeat = "password_repeat"
)

// RegistrationForm validates a new account.
type RegistrationForm struct {
	Username       string
	Email          string
	Password       string
	PasswordRepeat string
	Avatar         *multipart.FileHeader

	Errors Errors
}

// NewRegistrationForm trims the text inputs. Passwords are kept verbatim.
func NewRegistrationForm(username, email, password, passwordRepeat string, avatar *multipart.FileHeader) *RegistrationForm {
	return &RegistrationForm{
		Username:       strings.TrimSpace(username),
		Email:          strings.TrimSpace(email),
		Password:       password,
		PasswordRepeat: passwordRepeat,
		Avatar:         avatar,
	}
}

// Validate runs every field's checks and the cross-field password comparison.
// It returns false when any failure was recorded.
func (f *RegistrationForm) Validate(ctx context.Context, lookup UserLookup, avatarMaxBytes int64) (bool, error) {
	if err := f.Errors.check(ctx, FieldUsername, f.Username, []Check[string]{
		Required,
		MaxLength(validation.UsernameMaxLen),
		UsernameAvailable(lookup, 0),
		UsernamePattern,
	}); err != nil {
		return false, err
	}

	if err := f.Errors.check(ctx, FieldEmail, f.Email, []Check[string]{
		Required,
		MaxLength(validation.EmailMaxLen),
		EmailPattern,
		EmailAvailable(lookup, 0),
	}); err != nil {
		return false, err
	}

	if failure, err := run(ctx, f.Avatar, []Check[*multipart.FileHeader]{
		FileRequired,
		AvatarExtension,
		AvatarSize(avatarMaxBytes),
	}); err != nil {
		return false, err
	} else if failure != nil {
		f.Errors.Add(FieldAvatar, *failure)
	}

	if err := f.Errors.check(ctx, FieldPassword, f.Password, []Check[string]{Required}); err != nil {
		return false, err
	}
	if err := f.Errors.check(ctx, FieldPasswordRepeat, f.PasswordRepeat, []Check[string]{Required}); err != nil {
		return false, err
	}

	if f.Password != "" && f.PasswordRepeat != "" && f.Password != f.PasswordRepeat {
		f.Errors.AddForm(Failure{Key: messages.PasswordMismatch})
	}

	return !f.Errors.Any(), nil
}

// LoginForm validates the presence of credentials. The credential check itself
// happens in the auth service.
type LoginForm struct {
	Username string
	Password string

	Errors Errors
}

// NewLoginForm trims the username.
func NewLoginForm(username, password string) *LoginForm {
	return &LoginForm{Username: strings.TrimSpace(username), Password: password}
}

// Validate checks both fields are present.
func (f *LoginForm) Validate(ctx context.Context) (bool, error) {
	if err := f.Errors.check(ctx, FieldUsername, f.Username, []Check[string]{Required}); err != nil {
		return false, err
	}
	if err := f.Errors.check(ctx, FieldPassword, f.Password, []Check[string]{Required}); err != nil {
		return false, err
	}
	return !f.Errors.Any(), nil
}

// ProfileForm edits an existing account. The avatar is optional here.
type ProfileForm struct {
	UserID   uint
	Username string
	Email    string
	Avatar   *multipart.FileHeader

	Errors Errors
}

// NewProfileForm binds the edit inputs for userID.
func NewProfileForm(userID uint, username, email string, avatar *multipart.FileHeader) *ProfileForm {
	if avatar != nil && avatar.Filename == "" {
		avatar = nil
	}
	return &ProfileForm{
		UserID:   userID,
		Username: strings.TrimSpace(username),
		Email:    strings.TrimSpace(email),
		Avatar:   avatar,
	}
}

// Validate applies the registration rules to the edited fields, excluding the
// user's own row from uniqueness checks.
func (f *ProfileForm) Validate(ctx context.Context, lookup UserLookup, avatarMaxBytes int64) (bool, error) {
	if err := f.Errors.check(ctx, FieldUsername, f.Username, []Check[string]{
		Required,
		MaxLength(validation.UsernameMaxLen),
		UsernameAvailable(lookup, f.UserID),
		UsernamePattern,
	}); err != nil {
		return false, err
	}

	if err := f.Errors.check(ctx, FieldEmail, f.Email, []Check[string]{
		Required,
		MaxLength(validation.EmailMaxLen),
		EmailPattern,
		EmailAvailable(lookup, f.UserID),
	}); err != nil {
		return false, err
	}

	if f.Avatar != nil {
		failure, err := run(ctx, f.Avatar, []Check[*multipart.FileHeader]{
			AvatarExtension,
			AvatarSize(avatarMaxBytes),
		})
		if err != nil {
			return false, err
		}
		if failure != nil {
			f.Errors.Add(FieldAvatar, *failure)
		}
	}

	return !f.Errors.Any(), nil
}
