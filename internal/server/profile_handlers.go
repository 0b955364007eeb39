package server

import (
	"pollhub/internal/forms"
	"pollhub/internal/messages"
	"pollhub/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// Profile shows the current user.
func (s *Server) Profile(c *fiber.Ctx) error {
	ctx, cancel := serviceContext(c)
	defer cancel()

	user, err := s.userService.Profile(ctx, viewerID(c))
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "accounts/profile", fiber.Map{
		"Title": s.text(c, messages.TitleProfile, user.Username),
		"User":  user,
	})
}

// EditProfilePage renders the edit form bound to the current user.
func (s *Server) EditProfilePage(c *fiber.Ctx) error {
	ctx, cancel := serviceContext(c)
	defer cancel()

	user, err := s.userService.Profile(ctx, viewerID(c))
	if err != nil {
		return err
	}
	return s.renderEditProfile(c, forms.NewProfileForm(user.ID, user.Username, user.Email, nil))
}

func (s *Server) renderEditProfile(c *fiber.Ctx, form *forms.ProfileForm) error {
	return s.render(c, fiber.StatusOK, "accounts/edit", fiber.Map{
		"Title":    s.text(c, messages.TitleEditProfile),
		"Username": form.Username,
		"Email":    form.Email,
		"Errors":   form.Errors.Localize(s.catalog, s.locale(c)),
	})
}

// EditProfile saves the edit form and returns to the profile page. A changed
// username is carried into a fresh session cookie.
func (s *Server) EditProfile(c *fiber.Ctx) error {
	ctx, cancel := serviceContext(c)
	defer cancel()

	form := forms.NewProfileForm(
		viewerID(c),
		c.FormValue(forms.FieldUsername),
		c.FormValue(forms.FieldEmail),
		uploadedFile(c, forms.FieldAvatar),
	)
	user, ok, err := s.userService.UpdateProfile(ctx, form)
	if err != nil {
		return err
	}
	if !ok {
		return s.renderEditProfile(c, form)
	}

	if user.Username != middleware.ViewerFrom(c).Username {
		s.endSession(ctx, c)
		if err := s.startSession(c, user); err != nil {
			return err
		}
	}
	return c.Redirect("/accounts/profile", fiber.StatusSeeOther)
}

// DeleteProfilePage asks for confirmation.
func (s *Server) DeleteProfilePage(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "accounts/delete", fiber.Map{
		"Title": s.text(c, messages.TitleDeleteProfile),
	})
}

// DeleteProfile removes the account and ends the session.
func (s *Server) DeleteProfile(c *fiber.Ctx) error {
	ctx, cancel := serviceContext(c)
	defer cancel()

	if err := s.userService.Delete(ctx, viewerID(c)); err != nil {
		return err
	}
	s.endSession(ctx, c)
	return c.Redirect("/", fiber.StatusSeeOther)
}
