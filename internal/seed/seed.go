// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"

	"warbler/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers       int
	NumMessages    int
	FollowsPerUser int
	LikesPerUser   int
	// Clean removes existing users, messages, follows and likes first.
	Clean bool
	// SkipBcrypt stores the plain default password. Only for throwaway databases.
	SkipBcrypt bool
	BcryptCost int
	DryRun     bool
	BatchSize  int
	MaxDays    int
	// RandSeed makes a run reproducible; 0 seeds from the clock.
	RandSeed int64
}

// Summary reports what a seeding run created.
type Summary struct {
	Users    int
	Messages int
	Follows  int
	Likes    int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d users, %d messages, %d follows, %d likes", s.Users, s.Messages, s.Follows, s.Likes)
}

// Seeder fills a database with generated users and their activity.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

// NewSeeder creates a Seeder for db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, opts: opts, factory: NewFactory(db, opts)}
}

// Seed populates the database with test data
func (s *Seeder) Seed() (*Summary, error) {
	log.Printf("🌱 Starting database seeding with %d users and %d messages...", s.opts.NumUsers, s.opts.NumMessages)

	if s.opts.Clean && !s.opts.DryRun {
		if err := ClearData(s.db); err != nil {
			return nil, fmt.Errorf("failed to clear existing data: %w", err)
		}
	}

	sum := &Summary{}

	users, err := s.createUsers(s.opts.NumUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to create users: %w", err)
	}
	sum.Users = len(users)
	log.Printf("✓ %d users created", sum.Users)
	if len(users) == 0 {
		return sum, nil
	}

	msgs, err := s.createMessages(users, s.opts.NumMessages)
	if err != nil {
		return nil, fmt.Errorf("failed to create messages: %w", err)
	}
	sum.Messages = len(msgs)
	log.Printf("✓ %d messages created", sum.Messages)

	if sum.Follows, err = s.createFollows(users, s.opts.FollowsPerUser); err != nil {
		return nil, fmt.Errorf("failed to create follows: %w", err)
	}
	log.Printf("✓ %d follows created", sum.Follows)

	if sum.Likes, err = s.createLikes(users, msgs, s.opts.LikesPerUser); err != nil {
		return nil, fmt.Errorf("failed to create likes: %w", err)
	}
	log.Printf("✓ %d likes created", sum.Likes)

	log.Printf("🎉 Database seeding completed: %s", sum)
	return sum, nil
}

// ClearData deletes all rows, children first, so it works without CASCADE support.
func ClearData(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	return db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.Like{}, &models.Follow{}, &models.Message{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Seeder) createUsers(count int) ([]*models.User, error) {
	users := make([]*models.User, 0, count)
	for i := 0; i < count; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			// gofakeit can repeat a username; skip rather than abort.
			log.Printf("Failed to create user: %v", err)
			continue
		}
		users = append(users, user)

		if i > 0 && i%100 == 0 {
			log.Printf("Created %d users...", i)
		}
	}
	return users, nil
}

func (s *Seeder) createMessages(users []*models.User, count int) ([]*models.Message, error) {
	msgs := make([]*models.Message, 0, count)
	for i := 0; i < count; i++ {
		author := users[s.factory.rng.Intn(len(users))]
		msgs = append(msgs, s.factory.BuildMessage(author))
	}
	if err := s.factory.CreateMessagesBatch(msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *Seeder) createFollows(users []*models.User, perUser int) (int, error) {
	if perUser <= 0 || len(users) < 2 {
		return 0, nil
	}
	if perUser > len(users)-1 {
		perUser = len(users) - 1
	}

	created := 0
	for i, follower := range users {
		// Follow the next perUser users around the ring: no self edges, no repeats.
		for k := 1; k <= perUser; k++ {
			followed := users[(i+k)%len(users)]
			if err := s.factory.CreateFollow(follower, followed); err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}

func (s *Seeder) createLikes(users []*models.User, msgs []*models.Message, perUser int) (int, error) {
	if perUser <= 0 || len(msgs) == 0 {
		return 0, nil
	}
	if perUser > len(msgs) {
		perUser = len(msgs)
	}

	created := 0
	for _, user := range users {
		for _, idx := range s.factory.rng.Perm(len(msgs))[:perUser] {
			if err := s.factory.CreateLike(user, msgs[idx]); err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}
