// Package bootstrap connects the runtime dependencies shared by the server and
// the command-line tools.
package bootstrap

import (
	"fmt"
	"strings"

	"warbler/internal/cache"
	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo loads the built-in demo fixture into an empty development database.
	SeedDemo bool
}

// InitRuntime connects to the primary DB, the optional read replica and
// Redis, then optionally seeds demo data. The Redis client is nil when Redis
// is unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if err := database.ConnectReadReplica(cfg); err != nil {
		middleware.Logger.Warn("Read replica unavailable, serving reads from primary", "error", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.SeedDemo {
		if err := ensureDemoData(cfg, db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}

// ensureDemoData applies the demo fixture in development when no users exist yet.
func ensureDemoData(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") {
		middleware.Logger.Warn("Demo seeding skipped outside development", "env", cfg.Env)
		return nil
	}

	var users int64
	if err := db.Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		return nil
	}

	fx, err := seed.DemoFixture()
	if err != nil {
		return err
	}
	sum, err := fx.Apply(db, cfg.BcryptCost)
	if err != nil {
		return err
	}

	middleware.Logger.Info("Demo data seeded", "summary", sum.String())
	return nil
}
