package server

import (
	"errors"
	"mime/multipart"

	"pollhub/internal/forms"
	"pollhub/internal/messages"
	"pollhub/internal/middleware"
	"pollhub/internal/models"
	"pollhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// uploadedFile returns the named multipart file, or nil when none was sent.
func uploadedFile(c *fiber.Ctx, field string) *multipart.FileHeader {
	fh, err := c.FormFile(field)
	if err != nil || fh == nil || fh.Filename == "" {
		return nil
	}
	return fh
}

// LoginPage renders the login form.
func (s *Server) LoginPage(c *fiber.Ctx) error {
	return s.renderLogin(c, forms.NewLoginForm("", ""), c.Query("next"))
}

func (s *Server) renderLogin(c *fiber.Ctx, form *forms.LoginForm, next string) error {
	return s.render(c, fiber.StatusOK, "accounts/login", fiber.Map{
		"Title":    s.text(c, messages.TitleLogin),
		"Username": form.Username,
		"Next":     next,
		"Errors":   form.Errors.Localize(s.catalog, s.locale(c)),
	})
}

// Login checks the credentials and starts a session.
func (s *Server) Login(c *fiber.Ctx) error {
	ctx, cancel := serviceContext(c)
	defer cancel()

	next := c.FormValue("next")
	form := forms.NewLoginForm(c.FormValue(forms.FieldUsername), c.FormValue(forms.FieldPassword))
	ok, err := form.Validate(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return s.renderLogin(c, form, next)
	}

	user, err := s.authService.Authenticate(ctx, form.Username, form.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		form.Errors.AddForm(forms.Failure{Key: messages.InvalidCredentials})
		return s.renderLogin(c, form, next)
	}
	if err != nil {
		return err
	}

	if err := s.startSession(c, user); err != nil {
		return err
	}
	return c.Redirect(safeNext(next), fiber.StatusSeeOther)
}

// RegisterPage renders the empty registration form.
func (s *Server) RegisterPage(c *fiber.Ctx) error {
	return s.renderRegister(c, forms.NewRegistrationForm("", "", "", "", nil))
}

func (s *Server) renderRegister(c *fiber.Ctx, form *forms.RegistrationForm) error {
	return s.render(c, fiber.StatusOK, "accounts/register", fiber.Map{
		"Title":    s.text(c, messages.TitleRegister),
		"Username": form.Username,
		"Email":    form.Email,
		"Errors":   form.Errors.Localize(s.catalog, s.locale(c)),
	})
}

// Register creates the account, logs the new user in and redirects to the index.
func (s *Server) Register(c *fiber.Ctx) error {
	ctx, cancel := serviceContext(c)
	defer cancel()

	form := forms.NewRegistrationForm(
		c.FormValue(forms.FieldUsername),
		c.FormValue(forms.FieldEmail),
		c.FormValue(forms.FieldPassword),
		c.FormValue(forms.FieldPasswordRepeat),
		uploadedFile(c, forms.FieldAvatar),
	)
	user, ok, err := s.authService.Register(ctx, form)
	if err != nil {
		return err
	}
	if !ok {
		return s.renderRegister(c, form)
	}

	if err := s.startSession(c, user); err != nil {
		return err
	}
	return c.Redirect("/", fiber.StatusSeeOther)
}

// Logout revokes the session and shows the confirmation page.
func (s *Server) Logout(c *fiber.Ctx) error {
	ctx, cancel := serviceContext(c)
	defer cancel()

	s.endSession(ctx, c)
	c.Locals(middleware.LocalViewer, models.Viewer{})
	return s.render(c, fiber.StatusOK, "accounts/logged_out", fiber.Map{
		"Title": s.text(c, messages.TitleLoggedOut),
	})
}
