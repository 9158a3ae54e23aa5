package server

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

const (
	localUserID      = "userID"
	localCurrentUser = "currentUser"
	csrfContextKey   = "csrf"
)

const msgAccessUnauthorized = "Access unauthorized."

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	maxPaginationLimit = 100
)

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid ID"))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// pageID is parseID for HTML routes, where a malformed id is just a missing page.
func pageID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, fiber.ErrNotFound
	}
	return uint(id), nil
}

// currentUserID returns the logged-in user's id, or 0.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals(localUserID).(uint)
	return id
}

func currentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(localCurrentUser).(*models.User)
	return u
}

// CurrentUser loads the user named by the session marker. A marker pointing
// at a deleted user is cleared and the request proceeds anonymously.
func (s *Server) CurrentUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if isStaticPath(c.Path()) {
			return c.Next()
		}

		id, ok, err := s.sessions.CurrentUserID(c)
		if err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "Failed to load session", "error", err)
			return c.Next()
		}
		if !ok {
			return c.Next()
		}

		user, err := s.userService.GetUser(c.UserContext(), id)
		if err != nil {
			var appErr *models.AppError
			if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
				_ = s.sessions.Logout(c)
				return c.Next()
			}
			return err
		}

		c.Locals(localUserID, id)
		c.Locals(localCurrentUser, user)
		// Sync to UserContext for logging and downstream services
		c.SetUserContext(context.WithValue(c.UserContext(), middleware.UserIDKey, id))
		return c.Next()
	}
}

// AuthRequired sends anonymous visitors home with an "Access unauthorized." flash.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentUserID(c) == 0 {
			return s.denyAccess(c)
		}
		return c.Next()
	}
}

// APIAuthRequired is AuthRequired for JSON routes.
func (s *Server) APIAuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentUserID(c) == 0 {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.ErrUnauthenticated)
		}
		return c.Next()
	}
}

func (s *Server) denyAccess(c *fiber.Ctx) error {
	s.flash(c, session.FlashDanger, msgAccessUnauthorized)
	return c.Redirect("/")
}

func (s *Server) flash(c *fiber.Ctx, category, message string) {
	if err := s.sessions.AddFlash(c, session.Flash{Category: category, Message: message}); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "Failed to store flash", "error", err)
	}
}

// handleError maps service errors onto the HTML surface: auth failures flash
// and go home, missing entities render the 404 page, anything else the user
// can fix is flashed on the previous page.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return err
	}
	switch appErr.Code {
	case models.CodeUnauthorized, models.CodeForbidden:
		return s.denyAccess(c)
	case models.CodeNotFound:
		return fiber.ErrNotFound
	case models.CodeInternal:
		return err
	default:
		s.flash(c, session.FlashDanger, appErr.Message)
		return c.Redirect(backURL(c, "/"))
	}
}

// backURL returns the path of a same-site Referer, or fallback.
func backURL(c *fiber.Ctx, fallback string) string {
	ref := c.Get(fiber.HeaderReferer)
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != c.Hostname()) || !strings.HasPrefix(u.Path, "/") {
		return fallback
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}

func userPath(id uint, suffix ...string) string {
	return "/users/" + strconv.FormatUint(uint64(id), 10) + strings.Join(suffix, "")
}

// render fills in the data every page needs and renders name in the base layout.
func (s *Server) render(c *fiber.Ctx, name string, data fiber.Map) error {
	return s.renderStatus(c, fiber.StatusOK, name, data)
}

func (s *Server) renderStatus(c *fiber.Ctx, status int, name string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}

	flashes, err := s.sessions.PopFlashes(c)
	if err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "Failed to read flashes", "error", err)
	}
	if inline, ok := data["Flashes"].([]session.Flash); ok {
		flashes = append(flashes, inline...)
	}
	data["Flashes"] = flashes
	if _, ok := data["Errors"]; !ok {
		data["Errors"] = models.FieldErrors{}
	}
	data["CurrentUser"] = currentUser(c)
	if token, ok := c.Locals(csrfContextKey).(string); ok {
		data["CSRFToken"] = token
	}

	return c.Status(status).Render(name, data)
}

// csrfExtractor accepts the token from the X-Csrf-Token header (JSON clients)
// or the _csrf form field (HTML forms).
func csrfExtractor(c *fiber.Ctx) (string, error) {
	if token := c.Get("X-Csrf-Token"); token != "" {
		return token, nil
	}
	return csrf.CsrfFromForm("_csrf")(c)
}
