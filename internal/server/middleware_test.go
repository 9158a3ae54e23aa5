package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"warbler/internal/config"
	"warbler/internal/models"
	"warbler/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// asUser stands in for CurrentUser in isolated middleware tests.
func asUser(id uint) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id != 0 {
			c.Locals(localUserID, id)
		}
		return c.Next()
	}
}

func TestServer_AuthRequired(t *testing.T) {
	s := &Server{sessions: session.NewManager(session.Config{})}

	tests := []struct {
		name         string
		userID       uint
		wantStatus   int
		wantLocation string
	}{
		{"logged in", 123, http.StatusOK, ""},
		{"anonymous", 0, http.StatusFound, "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/protected", asUser(tt.userID), s.AuthRequired(), func(c *fiber.Ctx) error {
				return c.JSON(fiber.Map{"userID": currentUserID(c)})
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/protected", nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantLocation, resp.Header.Get(fiber.HeaderLocation))
			if tt.wantStatus == http.StatusFound {
				// The flash rides on the session cookie.
				assert.NotEmpty(t, resp.Header.Get(fiber.HeaderSetCookie))
			}
		})
	}
}

func TestServer_APIAuthRequired(t *testing.T) {
	s := &Server{}

	app := fiber.New()
	app.Get("/api/protected", asUser(0), s.APIAuthRequired(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/protected", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, models.CodeUnauthorized, body.Code)
	assert.Equal(t, "Access unauthorized.", body.Error)
}

func TestSetupMiddleware_GlobalLimiter(t *testing.T) {
	srv := &Server{config: &config.Config{}, sessions: session.NewManager(session.Config{})}

	app := fiber.New()
	srv.SetupMiddleware(app)
	app.Get("/limited", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/health/live", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 100; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/limited", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/limited", nil), -1)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	// Probes are never throttled.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/health/live", nil), -1)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSetupMiddleware_APIRateLimitIsJSON(t *testing.T) {
	srv := &Server{config: &config.Config{}, sessions: session.NewManager(session.Config{})}

	app := fiber.New()
	srv.SetupMiddleware(app)
	app.Get("/api/thing", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	var last *http.Response
	for i := 0; i < 101; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/thing", nil), -1)
		require.NoError(t, err)
		if last != nil {
			_ = last.Body.Close()
		}
		last = resp
	}
	defer func() { _ = last.Body.Close() }()

	assert.Equal(t, fiber.StatusTooManyRequests, last.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(last.Body).Decode(&body))
	assert.Contains(t, body["error"], "Too many requests")
}

func TestCredentialRoutes_LimiterStoreDown(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	form := url.Values{"username": {"nobody"}, "password": {"whatever"}}

	tests := []struct {
		name   string
		env    string
		status int
	}{
		{"production fails closed", "production", fiber.StatusServiceUnavailable},
		{"staging fails open", "staging", fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := newTestApp(t, func(cfg *config.Config) { cfg.Env = tt.env })
			c := newClient(t, app)

			for _, path := range []string{"/login", "/signup"} {
				resp := c.postNoFollow(path, form)
				assert.Equal(t, tt.status, resp.StatusCode, path)
			}
		})
	}
}
