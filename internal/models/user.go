// Package models defines the persistent entities of the poll application.
package models

import (
	"path"
	"strings"
	"time"
)

// User is a registered account. Passwords are stored as bcrypt hashes only.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:100;uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"size:320;uniqueIndex;not null" json:"email"`
	Avatar    string    `gorm:"size:255" json:"avatar"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AvatarURL returns the public URL of the stored avatar, or "" when none is set.
func (u *User) AvatarURL() string {
	if u == nil || u.Avatar == "" {
		return ""
	}
	return "/media/" + strings.TrimPrefix(path.Clean("/"+u.Avatar), "/")
}

// ThumbnailURL returns the URL of the generated square thumbnail.
func (u *User) ThumbnailURL() string {
	if u == nil || u.Avatar == "" {
		return ""
	}
	ext := path.Ext(u.Avatar)
	return "/media/" + strings.TrimPrefix(path.Clean("/"+strings.TrimSuffix(u.Avatar, ext)+"_thumb.webp"), "/")
}

func (u *User) String() string {
	return u.Username
}

// Viewer is the identity attached to a request. The zero value is anonymous.
type Viewer struct {
	UserID   uint
	Username string
}

// IsAuthenticated reports whether the viewer resolved to a user.
func (v Viewer) IsAuthenticated() bool {
	return v.UserID != 0
}
