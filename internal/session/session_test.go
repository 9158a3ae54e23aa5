package session

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionApp(m *Manager) *fiber.App {
	app := fiber.New()
	app.Post("/login/:id", func(c *fiber.Ctx) error {
		id, _ := c.ParamsInt("id")
		if err := m.Login(c, uint(id), Flash{Category: FlashSuccess, Message: "Hello!"}); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Post("/logout", func(c *fiber.Ctx) error {
		if err := m.Logout(c, Flash{Category: FlashSuccess, Message: "Successfully logged out!"}); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/whoami", func(c *fiber.Ctx) error {
		id, ok, err := m.CurrentUserID(c)
		if err != nil {
			return err
		}
		if !ok {
			return c.SendString("anonymous")
		}
		return c.JSON(fiber.Map{"id": id})
	})
	app.Get("/flashes", func(c *fiber.Ctx) error {
		flashes, err := m.PopFlashes(c)
		if err != nil {
			return err
		}
		return c.JSON(flashes)
	})
	return app
}

func sessionCookie(resp *http.Response) string {
	for _, ck := range resp.Cookies() {
		if ck.Name == "warbler_session" {
			return ck.Name + "=" + ck.Value
		}
	}
	return ""
}

func do(t *testing.T, app *fiber.App, method, path, cookie string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestManager_LoginLogoutCycle(t *testing.T) {
	app := newSessionApp(NewManager(Config{}))

	_, body := do(t, app, http.MethodGet, "/whoami", "")
	assert.Equal(t, "anonymous", body)

	resp, _ := do(t, app, http.MethodPost, "/login/42", "")
	cookie := sessionCookie(resp)
	require.NotEmpty(t, cookie)

	_, body = do(t, app, http.MethodGet, "/whoami", cookie)
	assert.JSONEq(t, `{"id":42}`, body)

	_, body = do(t, app, http.MethodGet, "/flashes", cookie)
	assert.Contains(t, body, "Hello!")
	_, body = do(t, app, http.MethodGet, "/flashes", cookie)
	assert.Equal(t, "null", body)

	do(t, app, http.MethodPost, "/logout", cookie)
	_, body = do(t, app, http.MethodGet, "/whoami", cookie)
	assert.Equal(t, "anonymous", body)

	_, body = do(t, app, http.MethodGet, "/flashes", cookie)
	assert.Contains(t, body, "Successfully logged out!")
}

func TestManager_LogoutWhenAnonymous(t *testing.T) {
	app := newSessionApp(NewManager(Config{}))
	resp, _ := do(t, app, http.MethodPost, "/logout", "")
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestManager_RedisStorage(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	app := newSessionApp(NewManager(Config{Storage: NewRedisStorage(rdb), Expiration: time.Hour}))

	resp, _ := do(t, app, http.MethodPost, "/login/7", "")
	cookie := sessionCookie(resp)
	require.NotEmpty(t, cookie)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "sess:"))
	assert.Equal(t, time.Hour, mr.TTL(keys[0]))

	_, body := do(t, app, http.MethodGet, "/whoami", cookie)
	assert.JSONEq(t, `{"id":7}`, body)
}

func TestRedisStorage_Operations(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	s := NewRedisStorage(rdb)

	val, err := s.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, s.Set("a", []byte("1"), time.Minute))
	require.NoError(t, s.Set("b", []byte("2"), 0))
	require.NoError(t, mr.Set("other", "x"))

	val, err = s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), val)

	require.NoError(t, s.Delete("a"))
	val, err = s.Get("a")
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, s.Reset())
	assert.False(t, mr.Exists("sess:b"))
	assert.True(t, mr.Exists("other"))
	assert.NoError(t, s.Close())
}
