package server

import (
	"context"
	"net/url"
	"strings"

	"pollhub/internal/middleware"
	"pollhub/internal/models"

	"github.com/gofiber/fiber/v2"
)

// parseID extracts a route parameter as a positive uint. Anything else is
// treated as an unknown resource.
func parseID(c *fiber.Ctx, param, resource string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, models.NewNotFoundError(resource, c.Params(param))
	}
	return uint(id), nil
}

// serviceContext derives the context handed to services, bounded by requestTimeout.
func serviceContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), requestTimeout)
}

// safeNext returns next when it is a local absolute path, otherwise "/".
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return next
}

// startSession issues a session cookie for user.
func (s *Server) startSession(c *fiber.Ctx, user *models.User) error {
	token, expires, err := s.sessions.Issue(user.ID, user.Username)
	if err != nil {
		return models.NewInternalError(err)
	}
	c.Cookie(s.sessions.Cookie(token, expires))
	return nil
}

// endSession revokes the request's session and clears the cookie.
func (s *Server) endSession(ctx context.Context, c *fiber.Ctx) {
	if id := middleware.IdentityFrom(c); id != nil {
		if err := s.sessions.Revoke(ctx, id); err != nil {
			middleware.Logger.WarnContext(ctx, "session revoke failed", "error", err)
		}
	}
	c.Cookie(s.sessions.ExpiredCookie())
}

func viewerID(c *fiber.Ctx) uint {
	return middleware.ViewerFrom(c).UserID
}
