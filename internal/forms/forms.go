// Package forms binds submitted values, runs ordered per-field checks and
// collects localizable errors before anything is persisted.
package forms

import (
	"context"
	"mime/multipart"
	"strings"

	"pollhub/internal/messages"
	"pollhub/internal/validation"
)

// NonFieldKey is the Errors.Fields key used for form-level failures.
const NonFieldKey = "__all__"

// Failure is a failed check: a catalog key plus its format arguments.
type Failure struct {
	Key  messages.Key
	Args []any
}

// Fail builds a Failure.
func Fail(key messages.Key, args ...any) *Failure {
	return &Failure{Key: key, Args: args}
}

// Check validates one value. A nil Failure means the value passed; a non-nil
// error means the check itself could not run.
type Check[T any] func(ctx context.Context, value T) (*Failure, error)

// run applies checks in order and stops at the first failure.
func run[T any](ctx context.Context, value T, checks []Check[T]) (*Failure, error) {
	for _, check := range checks {
		failure, err := check(ctx, value)
		if err != nil {
			return nil, err
		}
		if failure != nil {
			return failure, nil
		}
	}
	return nil, nil
}

// Errors collects failures per field and for the form as a whole.
type Errors struct {
	Fields map[string][]Failure
}

// Add attaches a failure to field.
func (e *Errors) Add(field string, f Failure) {
	if e.Fields == nil {
		e.Fields = make(map[string][]Failure)
	}
	e.Fields[field] = append(e.Fields[field], f)
}

// AddForm attaches a form-level failure.
func (e *Errors) AddForm(f Failure) {
	e.Add(NonFieldKey, f)
}

// Any reports whether any failure was recorded.
func (e *Errors) Any() bool {
	return len(e.Fields) > 0
}

// Has reports whether field carries a failure with key.
func (e *Errors) Has(field string, key messages.Key) bool {
	for _, f := range e.Fields[field] {
		if f.Key == key {
			return true
		}
	}
	return false
}

// Localize renders every failure through the catalog.
func (e *Errors) Localize(cat *messages.Catalog, locale string) map[string][]string {
	out := make(map[string][]string, len(e.Fields))
	for field, failures := range e.Fields {
		for _, f := range failures {
			out[field] = append(out[field], cat.Get(locale, f.Key, f.Args...))
		}
	}
	return out
}

func (e *Errors) check(ctx context.Context, field string, value string, checks []Check[string]) error {
	failure, err := run(ctx, value, checks)
	if err != nil {
		return err
	}
	if failure != nil {
		e.Add(field, *failure)
	}
	return nil
}

// UserLookup answers uniqueness questions for user fields. excludeID skips
// the user being edited; zero excludes nobody.
type UserLookup interface {
	UsernameExists(ctx context.Context, username string, excludeID uint) (bool, error)
	EmailExists(ctx context.Context, email string, excludeID uint) (bool, error)
}

// Required fails on blank input.
func Required(_ context.Context, value string) (*Failure, error) {
	if strings.TrimSpace(value) == "" {
		return Fail(messages.FieldRequired), nil
	}
	return nil, nil
}

// MaxLength fails when value is longer than max characters.
func MaxLength(max int) Check[string] {
	return func(_ context.Context, value string) (*Failure, error) {
		if validation.MaxLen(value, max) != nil {
			return Fail(messages.FieldTooLong, max), nil
		}
		return nil, nil
	}
}

// UsernamePattern fails on characters outside latin letters and hyphens.
func UsernamePattern(_ context.Context, value string) (*Failure, error) {
	if validation.ValidateUsername(value) != nil {
		return Fail(messages.UsernameChars), nil
	}
	return nil, nil
}

// EmailPattern fails on addresses that do not look like local@domain.tld.
func EmailPattern(_ context.Context, value string) (*Failure, error) {
	if validation.ValidateEmail(value) != nil {
		return Fail(messages.EmailInvalid), nil
	}
	return nil, nil
}

// UsernameAvailable fails when another user already has the username.
func UsernameAvailable(lookup UserLookup, excludeID uint) Check[string] {
	return func(ctx context.Context, value string) (*Failure, error) {
		taken, err := lookup.UsernameExists(ctx, value, excludeID)
		if err != nil {
			return nil, err
		}
		if taken {
			return Fail(messages.UsernameTaken), nil
		}
		return nil, nil
	}
}

// EmailAvailable fails when another user already has the email.
func EmailAvailable(lookup UserLookup, excludeID uint) Check[string] {
	return func(ctx context.Context, value string) (*Failure, error) {
		taken, err := lookup.EmailExists(ctx, value, excludeID)
		if err != nil {
			return nil, err
		}
		if taken {
			return Fail(messages.EmailTaken), nil
		}
		return nil, nil
	}
}

// FileRequired fails when no file was uploaded.
func FileRequired(_ context.Context, fh *multipart.FileHeader) (*Failure, error) {
	if fh == nil || fh.Filename == "" {
		return Fail(messages.FieldRequired), nil
	}
	return nil, nil
}

// AvatarExtension fails on extensions other than jpg, jpeg, png and bmp.
func AvatarExtension(_ context.Context, fh *multipart.FileHeader) (*Failure, error) {
	if validation.ValidateAvatarExtension(fh.Filename) != nil {
		return Fail(messages.AvatarExtension, strings.Join(validation.AllowedAvatarExtensions, ", ")), nil
	}
	return nil, nil
}

// AvatarSize fails when the upload exceeds maxBytes.
func AvatarSize(maxBytes int64) Check[*multipart.FileHeader] {
	if maxBytes <= 0 {
		maxBytes = validation.DefaultAvatarMaxBytes
	}
	return func(_ context.Context, fh *multipart.FileHeader) (*Failure, error) {
		if validation.ValidateAvatarSize(fh.Size, maxBytes) != nil {
			return Fail(messages.AvatarTooLarge, maxBytes/(1024*1024)), nil
		}
		return nil, nil
	}
}
