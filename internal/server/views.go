package server

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/template/html/v2"
)

//go:embed views
var viewsFS embed.FS

//go:embed static
var staticFS embed.FS

// NewViews parses the embedded templates. Templates are named by their path
// under views/ without the extension, e.g. "users/show".
func NewViews() (*html.Engine, error) {
	sub, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return nil, err
	}

	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("date", func(t time.Time) string {
		return t.Format("Jan 2, 2006")
	})
	engine.AddFunc("userURL", func(id uint, suffix ...string) string {
		return userPath(id, suffix...)
	})
	engine.AddFunc("messageURL", func(id uint, suffix ...string) string {
		url := fmt.Sprintf("/messages/%d", id)
		for _, s := range suffix {
			url += s
		}
		return url
	})
	engine.AddFunc("dict", func(kv ...interface{}) (map[string]interface{}, error) {
		if len(kv)%2 != 0 {
			return nil, fmt.Errorf("dict needs key/value pairs, got %d args", len(kv))
		}
		m := make(map[string]interface{}, len(kv)/2)
		for i := 0; i < len(kv); i += 2 {
			key, ok := kv[i].(string)
			if !ok {
				return nil, fmt.Errorf("dict key %v is not a string", kv[i])
			}
			m[key] = kv[i+1]
		}
		return m, nil
	})
	engine.AddFunc("contains", func(set map[uint]bool, id uint) bool {
		return set[id]
	})

	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	return engine, nil
}

// mountStatic serves the embedded stylesheet and default images under /static.
func mountStatic(app *fiber.App) {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	app.Use("/static", filesystem.New(filesystem.Config{
		Root:   http.FS(sub),
		MaxAge: 3600,
	}))
}
