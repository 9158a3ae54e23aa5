package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"warbler/internal/config"
	"warbler/internal/models"
	"warbler/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var csrfFieldRe = regexp.MustCompile(`name="_csrf" value="([^"]+)"`)

func testConfig() *config.Config {
	return &config.Config{
		Port:                "0",
		Env:                 "test",
		SessionTTLHours:     1,
		BcryptCost:          testutil.TestPasswordCost,
		EdgeDuplicatePolicy: config.EdgePolicyIgnore,
		AllowSelfFollow:     true,
		AllowSelfLike:       true,
	}
}

// newTestApp builds the full app over a private SQLite database without Redis.
func newTestApp(t *testing.T, mutate ...func(*config.Config)) (*fiber.App, *gorm.DB) {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	db := testutil.NewSQLiteDB(t)
	srv, err := NewServerWithDeps(cfg, db, nil)
	require.NoError(t, err)
	app, err := srv.NewApp()
	require.NoError(t, err)
	return app, db
}

// client is a cookie-carrying browser stand-in for app.Test.
type client struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]string
}

func newClient(t *testing.T, app *fiber.App) *client {
	return &client{t: t, app: app, cookies: map[string]string{}}
}

func (c *client) do(method, path string, form url.Values, header ...string) *http.Response {
	c.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	for name, value := range c.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := c.app.Test(req, -1)
	require.NoError(c.t, err)
	for _, ck := range resp.Cookies() {
		if ck.Value == "" || ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck.Value
	}
	return resp
}

// follow reads resp, following redirects with GET until a page is rendered.
func (c *client) follow(resp *http.Response) (int, string) {
	c.t.Helper()
	for i := 0; i < 5 && isRedirect(resp.StatusCode); i++ {
		_ = resp.Body.Close()
		resp = c.do(http.MethodGet, resp.Header.Get(fiber.HeaderLocation), nil)
	}
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, string(b)
}

func (c *client) get(path string) (int, string) {
	c.t.Helper()
	return c.follow(c.do(http.MethodGet, path, nil))
}

func (c *client) post(path string, form url.Values) (int, string) {
	c.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	return c.follow(c.do(http.MethodPost, path, form))
}

// postNoFollow returns the raw response, for asserting on redirects.
func (c *client) postNoFollow(path string, form url.Values) *http.Response {
	c.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	resp := c.do(http.MethodPost, path, form)
	c.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// login signs in a user created by testutil.CreateUser, whose password is its username.
func (c *client) login(u *models.User) {
	c.t.Helper()
	resp := c.postNoFollow("/login", url.Values{"username": {u.Username}, "password": {u.Username}})
	require.Equal(c.t, fiber.StatusFound, resp.StatusCode)
}

func isRedirect(code int) bool {
	return code == fiber.StatusFound || code == fiber.StatusSeeOther || code == fiber.StatusMovedPermanently
}

func idStr(n uint) string {
	return strconv.FormatUint(uint64(n), 10)
}
