package seed

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"warbler/internal/models"
	"warbler/internal/validation"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed fixtures/demo.yml
var demoFixture []byte

// Fixture is a hand-written data set. Users are referenced by username and
// messages by their key.
type Fixture struct {
	Users    []FixtureUser    `yaml:"users"`
	Messages []FixtureMessage `yaml:"messages"`
	Follows  []FixtureFollow  `yaml:"follows"`
	Likes    []FixtureLike    `yaml:"likes"`
}

// FixtureUser is a user row. An empty password defaults to DefaultPassword.
type FixtureUser struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	ImageURL string `yaml:"image_url"`
	Bio      string `yaml:"bio"`
}

// FixtureMessage is a message by Author. AgeMinutes backdates it.
type FixtureMessage struct {
	Key        string `yaml:"key"`
	Author     string `yaml:"author"`
	Text       string `yaml:"text"`
	AgeMinutes int    `yaml:"age_minutes"`
}

// FixtureFollow makes Follower follow Followed.
type FixtureFollow struct {
	Follower string `yaml:"follower"`
	Followed string `yaml:"followed"`
}

// FixtureLike makes User like the message with key Message.
type FixtureLike struct {
	User    string `yaml:"user"`
	Message string `yaml:"message"`
}

// ParseFixture decodes YAML, rejecting unknown fields, and checks references.
func ParseFixture(data []byte) (*Fixture, error) {
	var fx Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	if err := fx.Validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

// LoadFixture reads and parses a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path) // #nosec G304: operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// DemoFixture returns the built-in demo data set.
func DemoFixture() (*Fixture, error) {
	return ParseFixture(demoFixture)
}

// Validate checks fields with the same rules as signup and message posting,
// and that every reference resolves.
func (fx *Fixture) Validate() error {
	users := make(map[string]bool, len(fx.Users))
	for i, u := range fx.Users {
		in := validation.SignupInput{Username: u.Username, Email: u.Email, Password: u.password(), ImageURL: u.ImageURL}
		in.Normalize()
		if err := in.Validate(); err != nil {
			return fmt.Errorf("users[%d]: %w", i, err)
		}
		if users[in.Username] {
			return fmt.Errorf("users[%d]: duplicate username %q", i, in.Username)
		}
		users[in.Username] = true
	}

	keys := make(map[string]bool, len(fx.Messages))
	for i, m := range fx.Messages {
		if !users[m.Author] {
			return fmt.Errorf("messages[%d]: unknown author %q", i, m.Author)
		}
		if err := validation.ValidateMessageText(m.Text); err != nil {
			return fmt.Errorf("messages[%d]: %w", i, err)
		}
		if m.Key != "" {
			if keys[m.Key] {
				return fmt.Errorf("messages[%d]: duplicate key %q", i, m.Key)
			}
			keys[m.Key] = true
		}
	}

	for i, f := range fx.Follows {
		if !users[f.Follower] || !users[f.Followed] {
			return fmt.Errorf("follows[%d]: unknown user in %s -> %s", i, f.Follower, f.Followed)
		}
	}
	for i, l := range fx.Likes {
		if !users[l.User] {
			return fmt.Errorf("likes[%d]: unknown user %q", i, l.User)
		}
		if !keys[l.Message] {
			return fmt.Errorf("likes[%d]: unknown message key %q", i, l.Message)
		}
	}
	return nil
}

func (u FixtureUser) password() string {
	if u.Password == "" {
		return DefaultPassword
	}
	return u.Password
}

// Apply inserts the fixture in one transaction. Rows that already exist are
// left untouched, so applying the same fixture twice is harmless.
func (fx *Fixture) Apply(db *gorm.DB, bcryptCost int) (*Summary, error) {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	sum := &Summary{}

	err := db.Transaction(func(tx *gorm.DB) error {
		users := make(map[string]*models.User, len(fx.Users))
		for _, fu := range fx.Users {
			var existing models.User
			err := tx.Where("username = ?", fu.Username).First(&existing).Error
			if err == nil {
				users[fu.Username] = &existing
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			hashed, err := bcrypt.GenerateFromPassword([]byte(fu.password()), bcryptCost)
			if err != nil {
				return fmt.Errorf("hash password for %s: %w", fu.Username, err)
			}
			u := &models.User{
				Username:       fu.Username,
				Email:          strings.ToLower(strings.TrimSpace(fu.Email)),
				Password:       string(hashed),
				ImageURL:       fu.ImageURL,
				HeaderImageURL: models.DefaultHeaderImageURL,
				Bio:            fu.Bio,
			}
			if u.ImageURL == "" {
				u.ImageURL = models.DefaultImageURL
			}
			if err := tx.Create(u).Error; err != nil {
				return fmt.Errorf("create user %s: %w", fu.Username, err)
			}
			users[fu.Username] = u
			sum.Users++
		}

		now := time.Now().UTC()
		msgs := make(map[string]*models.Message, len(fx.Messages))
		for _, fm := range fx.Messages {
			m := &models.Message{
				Text:      strings.TrimSpace(fm.Text),
				UserID:    users[fm.Author].ID,
				Timestamp: now.Add(-time.Duration(fm.AgeMinutes) * time.Minute),
			}
			if err := tx.Omit("User").Create(m).Error; err != nil {
				return fmt.Errorf("create message %q: %w", fm.Key, err)
			}
			if fm.Key != "" {
				msgs[fm.Key] = m
			}
			sum.Messages++
		}

		for _, ff := range fx.Follows {
			res := tx.Omit("Follower", "Followed").Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.Follow{FollowerID: users[ff.Follower].ID, FollowedID: users[ff.Followed].ID})
			if res.Error != nil {
				return res.Error
			}
			sum.Follows += int(res.RowsAffected)
		}

		for _, fl := range fx.Likes {
			res := tx.Omit("User", "Message").Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.Like{UserID: users[fl.User].ID, MessageID: msgs[fl.Message].ID})
			if res.Error != nil {
				return res.Error
			}
			sum.Likes += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sum, nil
}
