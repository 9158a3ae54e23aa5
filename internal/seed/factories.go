package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"warbler/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the password of every generated user.
const DefaultPassword = "password123"

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder and tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
	// cached hash; bcrypt per user dominates seeding time otherwise
	passwordHash string
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	// #nosec G404: acceptable for seeding
	return &Factory{db: db, opts: opts, rng: rand.New(rand.NewSource(seed)), nextID: 1000}
}

func (f *Factory) hash() string {
	if f.passwordHash != "" {
		return f.passwordHash
	}
	if f.opts.SkipBcrypt {
		f.passwordHash = DefaultPassword
		return f.passwordHash
	}
	cost := f.opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		// Only an out-of-range cost fails here; fall back to the default.
		hashed, _ = bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	}
	f.passwordHash = string(hashed)
	return f.passwordHash
}

// BuildUser constructs a user without persisting it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	base := strings.ToLower(gofakeit.Username())
	suffix := fmt.Sprintf("%d", gofakeit.Number(100, 999))
	if limit := models.MaxUsernameLen - len(suffix); len(base) > limit {
		base = base[:limit]
	}
	username := base + suffix

	user := &models.User{
		Username:       username,
		Email:          username + "@" + gofakeit.DomainName(),
		Password:       f.hash(),
		Bio:            truncate(gofakeit.Sentence(10), models.MaxBioLen),
		ImageURL:       fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		HeaderImageURL: models.DefaultHeaderImageURL,
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser constructs and persists a sample user.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateUser: %s", user)
		return user, nil
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildMessage constructs a message for author without persisting it.
// Timestamps spread over the last MaxDays days.
func (f *Factory) BuildMessage(author *models.User, overrides ...func(*models.Message)) *models.Message {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute

	msg := &models.Message{
		Text:      truncate(gofakeit.Sentence(f.rng.Intn(12)+3), models.MaxMessageLen),
		UserID:    author.ID,
		Timestamp: time.Now().UTC().Add(-back),
	}
	for _, override := range overrides {
		override(msg)
	}
	return msg
}

// CreateMessagesBatch persists multiple messages in batches.
func (f *Factory) CreateMessagesBatch(msgs []*models.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, m := range msgs {
			f.nextID++
			m.ID = f.nextID
		}
		log.Printf("[dry-run] CreateMessagesBatch: %d messages (no DB write)", len(msgs))
		return nil
	}
	return f.db.Omit("User").CreateInBatches(msgs, f.batchSize()).Error
}

// CreateFollow persists follower -> followed. Existing edges are left alone.
func (f *Factory) CreateFollow(follower, followed *models.User) error {
	if f.opts.DryRun {
		return nil
	}
	return f.db.Omit("Follower", "Followed").Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{FollowerID: follower.ID, FollowedID: followed.ID}).Error
}

// CreateLike persists a like from user on msg. Existing likes are left alone.
func (f *Factory) CreateLike(user *models.User, msg *models.Message) error {
	if f.opts.DryRun {
		return nil
	}
	return f.db.Omit("User", "Message").Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Like{UserID: user.ID, MessageID: msg.ID}).Error
}

func (f *Factory) batchSize() int {
	if f.opts.BatchSize > 0 {
		return f.opts.BatchSize
	}
	return 100
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
