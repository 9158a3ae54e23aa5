package server

import (
	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
)

// UserResponse is a user with relationship counts.
type UserResponse struct {
	*models.User
	Stats *models.UserStats `json:"stats"`
}

// GetUserAPI godoc
// @Summary Get a user
// @Description Returns a user with message, follower, following and like counts
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} UserResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUserAPI(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	ctx := c.UserContext()
	user, err := s.userService.GetUser(ctx, id)
	if err != nil {
		return models.RespondWithError(c, models.StatusFor(err), err)
	}
	stats, err := s.userService.Stats(ctx, id)
	if err != nil {
		return models.RespondWithError(c, models.StatusFor(err), err)
	}

	return c.JSON(UserResponse{User: user, Stats: stats})
}

// GetUserMessagesAPI godoc
// @Summary List a user's messages
// @Description Newest first, paginated with limit and offset
// @Tags messages
// @Produce json
// @Param id path int true "User ID"
// @Param limit query int false "Page size (max 100)" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} models.Message
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/messages [get]
func (s *Server) GetUserMessagesAPI(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 20)

	ctx := c.UserContext()
	if _, err := s.userService.GetUser(ctx, id); err != nil {
		return models.RespondWithError(c, models.StatusFor(err), err)
	}
	msgs, err := s.messageService.ListByUser(ctx, id, currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, models.StatusFor(err), err)
	}

	return c.JSON(msgs)
}

// GetMessageAPI godoc
// @Summary Get a message
// @Description Includes the like count and whether the session user liked it
// @Tags messages
// @Produce json
// @Param id path int true "Message ID"
// @Success 200 {object} models.Message
// @Failure 404 {object} models.ErrorResponse
// @Router /messages/{id} [get]
func (s *Server) GetMessageAPI(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	msg, err := s.messageService.Get(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return models.RespondWithError(c, models.StatusFor(err), err)
	}
	return c.JSON(msg)
}

// ToggleLikeAPI godoc
// @Summary Toggle a like
// @Description Likes the message if the session user has not liked it yet, unlikes it otherwise
// @Tags messages
// @Produce json
// @Param id path int true "Message ID"
// @Success 200 {object} service.LikeState
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /messages/{id}/like [post]
func (s *Server) ToggleLikeAPI(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	state, err := s.likeService.Toggle(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.RespondWithError(c, models.StatusFor(err), err)
	}
	return c.JSON(state)
}
