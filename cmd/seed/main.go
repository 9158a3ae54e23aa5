// Command seed fills the Warbler database with fake users and activity, or
// with a YAML fixture.
package main

import (
	"flag"
	"log"

	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numMessages := flag.Int("messages", 300, "Number of messages to create")
	follows := flag.Int("follows", 5, "Follows per user")
	likes := flag.Int("likes", 10, "Likes per user")
	shouldClean := flag.Bool("clean", false, "Delete existing users, messages, follows and likes first")
	fixture := flag.String("fixture", "", "Load this YAML fixture instead of generating data (\"demo\" for the built-in set)")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing it")
	flag.Parse()

	log.Println("🌱 Warbler Seeder")
	log.Println("=================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if *fixture != "" {
		var fx *seed.Fixture
		if *fixture == "demo" {
			fx, err = seed.DemoFixture()
		} else {
			fx, err = seed.LoadFixture(*fixture)
		}
		if err != nil {
			log.Fatalf("❌ Fixture invalid: %v", err)
		}
		if *shouldClean {
			if err := seed.ClearData(db); err != nil {
				log.Fatalf("❌ Cleanup failed: %v", err)
			}
		}
		sum, err := fx.Apply(db, cfg.BcryptCost)
		if err != nil {
			log.Fatalf("❌ Fixture seeding failed: %v", err)
		}
		log.Printf("✨ Fixture applied: %s", sum)
		return
	}

	log.Printf("Target: %d users, %d messages, clean=%v", *numUsers, *numMessages, *shouldClean)
	s := seed.NewSeeder(db, seed.Options{
		NumUsers:       *numUsers,
		NumMessages:    *numMessages,
		FollowsPerUser: *follows,
		LikesPerUser:   *likes,
		Clean:          *shouldClean,
		BcryptCost:     cfg.BcryptCost,
		DryRun:         *dryRun,
	})
	if _, err := s.Seed(); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with test data.")
	log.Printf("📧 All generated users have the password: %s", seed.DefaultPassword)
}
