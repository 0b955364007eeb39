package middleware

import (
	"context"
	"errors"
	"net/url"

	"pollhub/internal/models"
	"pollhub/internal/session"

	"github.com/gofiber/fiber/v2"
)

// Locals keys written by LoadViewer.
const (
	LocalViewer   = "viewer"
	LocalIdentity = "session"
	LocalUserID   = "userID"
)

// LoginPath is where LoginRequired sends anonymous visitors.
const LoginPath = "/accounts/login"

// UserLookup loads the account behind a session.
type UserLookup interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// LoadViewer resolves the session cookie into a models.Viewer stored in
// locals. Invalid or revoked cookies, and sessions whose account no longer
// exists, are cleared and the request continues anonymously.
func LoadViewer(sessions *session.Manager, users UserLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(LocalViewer, models.Viewer{})

		token := c.Cookies(session.CookieName)
		if token == "" {
			return c.Next()
		}

		id, err := sessions.Resolve(c.UserContext(), token)
		if err != nil {
			if !errors.Is(err, session.ErrInvalidToken) && !errors.Is(err, session.ErrRevoked) {
				Logger.WarnContext(c.UserContext(), "session lookup failed", "error", err)
				return c.Next()
			}
			c.Cookie(sessions.ExpiredCookie())
			return c.Next()
		}

		user, err := users.GetByID(c.UserContext(), id.UserID)
		if err != nil {
			if !models.IsNotFound(err) {
				Logger.WarnContext(c.UserContext(), "session user lookup failed", "error", err, "user_id", id.UserID)
				return c.Next()
			}
			if rerr := sessions.Revoke(c.UserContext(), id); rerr != nil {
				Logger.WarnContext(c.UserContext(), "revoke orphaned session failed", "error", rerr)
			}
			c.Cookie(sessions.ExpiredCookie())
			return c.Next()
		}

		c.Locals(LocalIdentity, id)
		c.Locals(LocalUserID, user.ID)
		c.Locals(LocalViewer, models.Viewer{UserID: user.ID, Username: user.Username})
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, id.UserID))
		return c.Next()
	}
}

// LoginRequired redirects anonymous visitors to the login page, carrying the
// requested page in the next parameter for safe methods.
func LoginRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ViewerFrom(c).IsAuthenticated() {
			return c.Next()
		}
		target := LoginPath
		if c.Method() == fiber.MethodGet || c.Method() == fiber.MethodHead {
			target += "?next=" + url.QueryEscape(c.OriginalURL())
		}
		return c.Redirect(target, fiber.StatusSeeOther)
	}
}

// ViewerFrom returns the viewer stored by LoadViewer, or an anonymous one.
func ViewerFrom(c *fiber.Ctx) models.Viewer {
	if v, ok := c.Locals(LocalViewer).(models.Viewer); ok {
		return v
	}
	return models.Viewer{}
}

// IdentityFrom returns the resolved session, or nil for anonymous requests.
func IdentityFrom(c *fiber.Ctx) *session.Identity {
	id, _ := c.Locals(LocalIdentity).(*session.Identity)
	return id
}
