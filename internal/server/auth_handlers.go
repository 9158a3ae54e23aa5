package server

import (
	"errors"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/session"
	"warbler/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const msgInvalidCredentials = "Invalid credentials."

// Homepage handles GET /: the landing page for visitors, the timeline otherwise.
func (s *Server) Homepage(c *fiber.Ctx) error {
	user := currentUser(c)
	if user == nil {
		return s.render(c, "home-anon", nil)
	}

	ctx := c.UserContext()
	msgs, err := s.messageService.Timeline(ctx, user.ID)
	if err != nil {
		return s.handleError(c, err)
	}
	stats, err := s.userService.Stats(ctx, user.ID)
	if err != nil {
		return s.handleError(c, err)
	}

	return s.render(c, "home", fiber.Map{
		"Messages": msgs,
		"Stats":    stats,
	})
}

// ShowSignup handles GET /signup
func (s *Server) ShowSignup(c *fiber.Ctx) error {
	return s.render(c, "users/signup", fiber.Map{"Form": validation.SignupInput{}})
}

// Signup handles POST /signup. A successful signup logs the new user in.
func (s *Server) Signup(c *fiber.Ctx) error {
	var in validation.SignupInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}

	user, err := s.authService.Signup(c.UserContext(), in)
	if err != nil {
		var appErr *models.AppError
		if !errors.As(err, &appErr) || appErr.Fields == nil {
			middleware.AuthAttempts.WithLabelValues("signup", "error").Inc()
			return s.handleError(c, err)
		}
		outcome := "invalid"
		var flashes []session.Flash
		if appErr.Code == models.CodeConflict {
			outcome = "conflict"
			flashes = []session.Flash{{Category: session.FlashDanger, Message: appErr.Message}}
		}
		middleware.AuthAttempts.WithLabelValues("signup", outcome).Inc()

		in.Password = ""
		return s.render(c, "users/signup", fiber.Map{
			"Form":    in,
			"Errors":  appErr.Fields,
			"Flashes": flashes,
		})
	}

	middleware.AuthAttempts.WithLabelValues("signup", "success").Inc()
	middleware.Logger.InfoContext(c.UserContext(), "User signed up", "user_id", user.ID)
	if err := s.sessions.Login(c, user.ID); err != nil {
		return err
	}
	return c.Redirect("/")
}

// ShowLogin handles GET /login
func (s *Server) ShowLogin(c *fiber.Ctx) error {
	return s.render(c, "users/login", fiber.Map{"Form": validation.LoginInput{}})
}

// Login handles POST /login
func (s *Server) Login(c *fiber.Ctx) error {
	var in validation.LoginInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}
	in.Normalize()

	rerender := func(fields models.FieldErrors) error {
		in.Password = ""
		return s.render(c, "users/login", fiber.Map{
			"Form":    in,
			"Errors":  fields,
			"Flashes": []session.Flash{{Category: session.FlashDanger, Message: msgInvalidCredentials}},
		})
	}

	if err := in.Validate(); err != nil {
		middleware.AuthAttempts.WithLabelValues("login", "invalid").Inc()
		var fields models.FieldErrors
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			fields = appErr.Fields
		}
		return rerender(fields)
	}

	user, err := s.authService.Authenticate(c.UserContext(), in.Username, in.Password)
	if errors.Is(err, models.ErrInvalidCredentials) {
		middleware.AuthAttempts.WithLabelValues("login", "failure").Inc()
		return rerender(nil)
	}
	if err != nil {
		middleware.AuthAttempts.WithLabelValues("login", "error").Inc()
		return s.handleError(c, err)
	}

	middleware.AuthAttempts.WithLabelValues("login", "success").Inc()
	if err := s.sessions.Login(c, user.ID, session.Flash{
		Category: session.FlashSuccess,
		Message:  "Hello, " + user.Username + "!",
	}); err != nil {
		return err
	}
	return c.Redirect("/")
}

// Logout handles POST /logout
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.sessions.Logout(c, session.Flash{
		Category: session.FlashSuccess,
		Message:  "Successfully logged out!",
	}); err != nil {
		return err
	}
	return c.Redirect("/login")
}
