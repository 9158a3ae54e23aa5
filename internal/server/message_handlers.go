package server

import (
	"errors"

	"warbler/internal/models"
	"warbler/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// ShowNewMessage handles GET /messages/new
func (s *Server) ShowNewMessage(c *fiber.Ctx) error {
	return s.render(c, "messages/new", fiber.Map{"Form": validation.MessageInput{}})
}

// CreateMessage handles POST /messages/new. The author is always the
// logged-in user.
func (s *Server) CreateMessage(c *fiber.Ctx) error {
	var in validation.MessageInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}

	viewer := currentUserID(c)
	if _, err := s.messageService.Create(c.UserContext(), viewer, in); err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeValidation {
			return s.render(c, "messages/new", fiber.Map{
				"Form":   in,
				"Errors": appErr.Fields,
			})
		}
		return s.handleError(c, err)
	}

	return c.Redirect(userPath(viewer))
}

// ShowMessage handles GET /messages/:id
func (s *Server) ShowMessage(c *fiber.Ctx) error {
	id, err := pageID(c, "id")
	if err != nil {
		return err
	}

	msg, err := s.messageService.Get(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return s.handleError(c, err)
	}
	return s.render(c, "messages/show", fiber.Map{"Message": msg})
}

// DeleteMessage handles POST /messages/:id/delete. Only the author may delete.
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	id, err := pageID(c, "id")
	if err != nil {
		return err
	}

	viewer := currentUserID(c)
	if err := s.messageService.Delete(c.UserContext(), viewer, id); err != nil {
		return s.handleError(c, err)
	}
	return c.Redirect(userPath(viewer))
}

// LikeMessage handles POST /messages/:id/like
func (s *Server) LikeMessage(c *fiber.Ctx) error {
	id, err := pageID(c, "id")
	if err != nil {
		return err
	}

	if err := s.likeService.Like(c.UserContext(), currentUserID(c), id); err != nil {
		return s.handleError(c, err)
	}
	return c.Redirect(backURL(c, "/"))
}

// UnlikeMessage handles POST /messages/:id/unlike
func (s *Server) UnlikeMessage(c *fiber.Ctx) error {
	id, err := pageID(c, "id")
	if err != nil {
		return err
	}

	if err := s.likeService.Unlike(c.UserContext(), currentUserID(c), id); err != nil {
		return s.handleError(c, err)
	}
	return c.Redirect(backURL(c, "/"))
}
