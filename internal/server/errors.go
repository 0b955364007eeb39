package server

import (
	"errors"

	"pollhub/internal/messages"
	"pollhub/internal/middleware"
	"pollhub/internal/models"

	"github.com/gofiber/fiber/v2"
)

// statusFor maps a handler error to an HTTP status and catalog key.
func statusFor(err error) (int, messages.Key) {
	status := fiber.StatusInternalServerError

	var appErr *models.AppError
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &appErr):
		status = appErr.Status()
	case errors.As(err, &fiberErr):
		status = fiberErr.Code
	}

	switch {
	case status == fiber.StatusNotFound:
		return status, messages.NotFound
	case status == fiber.StatusTooManyRequests:
		return status, messages.TooManyRequests
	case status >= fiber.StatusInternalServerError:
		return status, messages.InternalError
	default:
		return status, messages.RequestRejected
	}
}

// ErrorHandler renders the error page for any error a handler returns.
// Server-side failures are logged with the request id.
func (s *Server) ErrorHandler(c *fiber.Ctx, err error) error {
	status, key := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"error", err,
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
		)
	}

	requestID, _ := c.Locals("requestid").(string)
	if rerr := s.render(c, status, "errors/status", fiber.Map{
		"Title":     s.text(c, messages.TitleError, status),
		"Status":    status,
		"Message":   s.text(c, key),
		"RequestID": requestID,
	}); rerr != nil {
		return c.Status(status).SendString(s.text(c, key))
	}
	return nil
}
