// Package validation provides input validation utilities
package validation

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	UsernameMaxLen = 100
	EmailMaxLen    = 320

	// DefaultAvatarMaxBytes is the upload limit used when none is configured.
	DefaultAvatarMaxBytes int64 = 2 * 1024 * 1024
)

var (
	ErrTooLong           = errors.New("value too long")
	ErrUsernameChars     = errors.New("username may contain only latin letters and hyphens")
	ErrEmailShape        = errors.New("email address is not valid")
	ErrAvatarExtension   = errors.New("avatar extension is not allowed")
	ErrAvatarTooLarge    = errors.New("avatar file too large")
	ErrAvatarFileMissing = errors.New("avatar file missing")
)

var (
	usernameRegex = regexp.MustCompile(`^[A-Za-z-]+$`)
	emailRegex    = regexp.MustCompile(`^[A-Za-z][\w.-]+@[\w.-]+\.[A-Za-z]{2,6}$`)
)

// AllowedAvatarExtensions lists accepted avatar file extensions, lower case and without the dot.
var AllowedAvatarExtensions = []string{"jpg", "jpeg", "png", "bmp"}

// MaxLen fails when s has more than max characters.
func MaxLen(s string, max int) error {
	if utf8.RuneCountInString(s) > max {
		return ErrTooLong
	}
	return nil
}

// ValidateUsername checks the username alphabet.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return ErrUsernameChars
	}
	return nil
}

// ValidateEmail checks the basic local@domain.tld shape.
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return ErrEmailShape
	}
	return nil
}

// AvatarExtension returns the lower-cased extension of filename without the dot.
func AvatarExtension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// ValidateAvatarExtension accepts jpg, jpeg, png and bmp in any case.
func ValidateAvatarExtension(filename string) error {
	ext := AvatarExtension(filename)
	for _, allowed := range AllowedAvatarExtensions {
		if ext == allowed {
			return nil
		}
	}
	return ErrAvatarExtension
}

// ValidateAvatarSize fails when size exceeds maxBytes. A non-positive maxBytes uses the default limit.
func ValidateAvatarSize(size, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultAvatarMaxBytes
	}
	if size > maxBytes {
		return ErrAvatarTooLarge
	}
	return nil
}
