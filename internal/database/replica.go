package database

import (
	"fmt"

	"warbler/internal/config"
	"warbler/internal/middleware"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var readDB *gorm.DB

// GetReadDB returns the read replica connection, or nil when none is configured.
func GetReadDB() *gorm.DB {
	return readDB
}

// SetReadDB installs db as the read replica. Passing nil routes reads back to the primary.
func SetReadDB(db *gorm.DB) {
	readDB = db
}

// ConnectReadReplica opens DB_READ_DSN when set. SQLite has no replicas.
func ConnectReadReplica(cfg *config.Config) error {
	if cfg.DBReadDSN == "" {
		return nil
	}

	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "mysql":
		dialector = mysql.Open(cfg.DBReadDSN)
	case "postgres", "":
		dialector = postgres.Open(cfg.DBReadDSN)
	default:
		return fmt.Errorf("read replicas are not supported for driver %q", cfg.DBDriver)
	}

	db, err := ConnectWithDialector(dialector, cfg)
	if err != nil {
		return fmt.Errorf("read replica: %w", err)
	}
	readDB = db
	middleware.Logger.Info("Read replica connected")
	return nil
}
