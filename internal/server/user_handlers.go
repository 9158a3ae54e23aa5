package server

import (
	"errors"
	"strings"

	"warbler/internal/models"
	"warbler/internal/session"
	"warbler/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const directoryPageSize = 100

// ListUsers handles GET /users?q=...
func (s *Server) ListUsers(c *fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	page := parsePagination(c, directoryPageSize)

	users, err := s.userService.ListUsers(c.UserContext(), q, page.Limit, page.Offset)
	if err != nil {
		return s.handleError(c, err)
	}

	following, err := s.followingSet(c)
	if err != nil {
		return s.handleError(c, err)
	}

	return s.render(c, "users/index", fiber.Map{
		"Users":     users,
		"Query":     q,
		"Following": following,
	})
}

// ShowUser handles GET /users/:id
func (s *Server) ShowUser(c *fiber.Ctx) error {
	id, err := pageID(c, "id")
	if err != nil {
		return err
	}

	profile, err := s.userService.GetProfile(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return s.handleError(c, err)
	}

	return s.render(c, "users/show", fiber.Map{
		"User":        profile.User,
		"Stats":       profile.Stats,
		"IsFollowing": profile.IsFollowing,
		"Messages":    profile.Messages,
	})
}

// ShowFollowing handles GET /users/:id/following
func (s *Server) ShowFollowing(c *fiber.Ctx) error {
	id, err := pageID(c, "id")
	if err != nil {
		return err
	}

	user, users, err := s.userService.ListFollowing(c.UserContext(), id)
	if err != nil {
		return s.handleError(c, err)
	}
	return s.renderUserList(c, "users/following", user, users)
}

// ShowFollowers handles GET /users/:id/followers
func (s *Server) ShowFollowers(c *fiber.Ctx) error {
	id, err := pageID(c, "id")
	if err != nil {
		return err
	}

	user, users, err := s.userService.ListFollowers(c.UserContext(), id)
	if err != nil {
		return s.handleError(c, err)
	}
	return s.renderUserList(c, "users/followers", user, users)
}

func (s *Server) renderUserList(c *fiber.Ctx, view string, user *models.User, users []models.User) error {
	stats, err := s.userService.Stats(c.UserContext(), user.ID)
	if err != nil {
		return s.handleError(c, err)
	}
	following, err := s.followingSet(c)
	if err != nil {
		return s.handleError(c, err)
	}

	return s.render(c, view, fiber.Map{
		"User":        user,
		"Stats":       stats,
		"IsFollowing": following[user.ID],
		"Users":       users,
		"Following":   following,
	})
}

// ShowLikes handles GET /users/:id/likes
func (s *Server) ShowLikes(c *fiber.Ctx) error {
	id, err := pageID(c, "id")
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	user, msgs, err := s.userService.ListLikedMessages(ctx, id, currentUserID(c))
	if err != nil {
		return s.handleError(c, err)
	}
	stats, err := s.userService.Stats(ctx, id)
	if err != nil {
		return s.handleError(c, err)
	}
	following, err := s.followingSet(c)
	if err != nil {
		return s.handleError(c, err)
	}

	return s.render(c, "users/likes", fiber.Map{
		"User":        user,
		"Stats":       stats,
		"IsFollowing": following[user.ID],
		"Messages":    msgs,
	})
}

// Follow handles POST /users/follow/:id
func (s *Server) Follow(c *fiber.Ctx) error {
	id, err := pageID(c, "id")
	if err != nil {
		return err
	}

	viewer := currentUserID(c)
	if err := s.followService.Follow(c.UserContext(), viewer, id); err != nil {
		return s.handleError(c, err)
	}
	return c.Redirect(userPath(viewer, "/following"))
}

// StopFollowing handles POST /users/stop-following/:id
func (s *Server) StopFollowing(c *fiber.Ctx) error {
	id, err := pageID(c, "id")
	if err != nil {
		return err
	}

	viewer := currentUserID(c)
	if err := s.followService.Unfollow(c.UserContext(), viewer, id); err != nil {
		return s.handleError(c, err)
	}
	return c.Redirect(userPath(viewer, "/following"))
}

// ShowEditProfile handles GET /users/profile
func (s *Server) ShowEditProfile(c *fiber.Ctx) error {
	user := currentUser(c)
	return s.render(c, "users/edit", fiber.Map{
		"Form": validation.ProfileUpdateInput{
			Username:       user.Username,
			Email:          user.Email,
			ImageURL:       user.ImageURL,
			HeaderImageURL: user.HeaderImageURL,
			Bio:            user.Bio,
		},
	})
}

// UpdateProfile handles POST /users/profile. The current password must verify
// before any field changes.
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var in validation.ProfileUpdateInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}

	viewer := currentUserID(c)
	user, err := s.userService.UpdateProfile(c.UserContext(), viewer, viewer, in)
	if err != nil {
		var appErr *models.AppError
		if !errors.As(err, &appErr) {
			return err
		}

		data := fiber.Map{"Form": in}
		switch {
		case errors.Is(err, models.ErrInvalidPassword):
			data["Flashes"] = []session.Flash{{Category: session.FlashDanger, Message: appErr.Message}}
		case appErr.Fields != nil:
			data["Errors"] = appErr.Fields
			if appErr.Code == models.CodeConflict {
				data["Flashes"] = []session.Flash{{Category: session.FlashDanger, Message: appErr.Message}}
			}
		default:
			return s.handleError(c, err)
		}

		in.Password = ""
		data["Form"] = in
		return s.render(c, "users/edit", data)
	}

	s.flash(c, session.FlashSuccess, "Profile updated.")
	return c.Redirect(userPath(user.ID))
}

// DeleteUser handles POST /users/delete: removes the logged-in user and
// everything they own, then logs out.
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	if err := s.userService.DeleteAccount(c.UserContext(), currentUserID(c)); err != nil {
		return s.handleError(c, err)
	}
	if err := s.sessions.Logout(c); err != nil {
		return err
	}
	return c.Redirect("/signup")
}

// followingSet returns the ids the logged-in user follows, for follow buttons.
func (s *Server) followingSet(c *fiber.Ctx) (map[uint]bool, error) {
	viewer := currentUserID(c)
	if viewer == 0 {
		return nil, nil
	}
	ids, err := s.followRepo.FollowingIDs(c.UserContext(), viewer)
	if err != nil {
		return nil, err
	}
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
