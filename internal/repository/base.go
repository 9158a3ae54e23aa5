// Package repository implements the data access layer for the application.
package repository

import (
	"errors"
	"strings"

	"warbler/internal/database"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// MaxTimelineSize caps the home timeline and per-user message lists.
const MaxTimelineSize = 100

func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}

// dbSystem names the backend for tracing attributes.
func dbSystem(db *gorm.DB) string {
	switch db.Dialector.Name() {
	case "postgres":
		return "postgresql"
	default:
		return db.Dialector.Name()
	}
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}

// uniqueConstraintField guesses which column a unique violation concerns.
func uniqueConstraintField(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName != "" {
		return columnFromConstraint(pgErr.ConstraintName)
	}
	return columnFromConstraint(err.Error())
}

func columnFromConstraint(s string) string {
	s = strings.ToLower(s)
	switch {
	case strings.Contains(s, "username"):
		return "username"
	case strings.Contains(s, "email"):
		return "email"
	default:
		return ""
	}
}

// supportsRowLocking reports whether SELECT ... FOR UPDATE is available.
func supportsRowLocking(db *gorm.DB) bool {
	return db.Dialector.Name() != "sqlite"
}
