// Package session keeps the logged-in user and flash messages in a server-side session.
package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"
)

// CurrentUserKey is the session key holding the logged-in user's id.
const CurrentUserKey = "curr_user"

const flashKey = "_flashes"

// Flash categories used by the templates.
const (
	FlashSuccess = "success"
	FlashDanger  = "danger"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Config controls the session cookie.
type Config struct {
	Expiration   time.Duration
	CookieSecure bool
	// Storage is optional; nil keeps sessions in process memory.
	Storage fiber.Storage
}

// Manager wraps a Fiber session store with the operations the handlers need.
type Manager struct {
	store *fibersession.Store
}

// NewManager builds a Manager from cfg.
func NewManager(cfg Config) *Manager {
	exp := cfg.Expiration
	if exp <= 0 {
		exp = 7 * 24 * time.Hour
	}
	store := fibersession.New(fibersession.Config{
		Expiration:     exp,
		Storage:        cfg.Storage,
		KeyLookup:      "cookie:warbler_session",
		CookieHTTPOnly: true,
		CookieSecure:   cfg.CookieSecure,
		CookieSameSite: "Lax",
		KeyGenerator:   uuid.NewString,
	})
	return &Manager{store: store}
}

// CurrentUserID returns the id stored by Login, if any.
func (m *Manager) CurrentUserID(c *fiber.Ctx) (uint, bool, error) {
	sess, err := m.store.Get(c)
	if err != nil {
		return 0, false, fmt.Errorf("load session: %w", err)
	}
	id, ok := sess.Get(CurrentUserKey).(uint)
	if !ok || id == 0 {
		return 0, false, nil
	}
	return id, true, nil
}

// Login marks userID as logged in under a fresh session id, queueing any flashes.
// The previous session id is dropped from storage.
func (m *Manager) Login(c *fiber.Ctx, userID uint, flashes ...Flash) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if err := sess.Regenerate(); err != nil {
		return fmt.Errorf("regenerate session: %w", err)
	}
	sess.Set(CurrentUserKey, userID)
	appendFlashes(sess, flashes)
	if err := sess.Save(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Logout removes the logged-in marker. It is a no-op when nobody is logged in.
func (m *Manager) Logout(c *fiber.Ctx, flashes ...Flash) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	sess.Delete(CurrentUserKey)
	appendFlashes(sess, flashes)
	if err := sess.Save(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// AddFlash queues messages for the next rendered page.
func (m *Manager) AddFlash(c *fiber.Ctx, flashes ...Flash) error {
	if len(flashes) == 0 {
		return nil
	}
	sess, err := m.store.Get(c)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	appendFlashes(sess, flashes)
	return sess.Save()
}

// PopFlashes returns and clears queued messages.
func (m *Manager) PopFlashes(c *fiber.Ctx) ([]Flash, error) {
	sess, err := m.store.Get(c)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	flashes := readFlashes(sess)
	if len(flashes) == 0 {
		return nil, nil
	}
	sess.Delete(flashKey)
	if err := sess.Save(); err != nil {
		return nil, err
	}
	return flashes, nil
}

// Flashes are kept as a JSON string so the gob-encoded session needs no type registration.
func readFlashes(sess *fibersession.Session) []Flash {
	raw, ok := sess.Get(flashKey).(string)
	if !ok || raw == "" {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal([]byte(raw), &flashes); err != nil {
		return nil
	}
	return flashes
}

func appendFlashes(sess *fibersession.Session, add []Flash) {
	if len(add) == 0 {
		return
	}
	flashes := append(readFlashes(sess), add...)
	b, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	sess.Set(flashKey, string(b))
}
