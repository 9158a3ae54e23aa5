// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"warbler/internal/database"
	"warbler/internal/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Uint64

// NewSQLiteDB opens a private in-memory SQLite database with the full schema.
// The database lives until the test ends.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:warbler_test_%d?mode=memory&cache=shared&_foreign_keys=1", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// TestPasswordCost keeps bcrypt fast in tests.
const TestPasswordCost = bcrypt.MinCost

// CreateUser inserts a user whose password is the username.
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(username), TestPasswordCost)
	require.NoError(t, err)

	u := &models.User{
		Username:       username,
		Email:          username + "@test.com",
		Password:       string(hash),
		ImageURL:       models.DefaultImageURL,
		HeaderImageURL: models.DefaultHeaderImageURL,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateMessage inserts a message by userID. Later calls get later timestamps.
func CreateMessage(t testing.TB, db *gorm.DB, userID uint, text string) *models.Message {
	t.Helper()
	m := &models.Message{
		Text:      text,
		UserID:    userID,
		Timestamp: time.Now().UTC().Add(time.Duration(dbSeq.Add(1)) * time.Millisecond),
	}
	require.NoError(t, db.Omit("User").Create(m).Error)
	return m
}

// Follow inserts a follows edge.
func Follow(t testing.TB, db *gorm.DB, followerID, followedID uint) {
	t.Helper()
	require.NoError(t, db.Omit("Follower", "Followed").Create(&models.Follow{FollowerID: followerID, FollowedID: followedID}).Error)
}

// Like inserts a like edge.
func Like(t testing.TB, db *gorm.DB, userID, messageID uint) {
	t.Helper()
	require.NoError(t, db.Omit("User", "Message").Create(&models.Like{UserID: userID, MessageID: messageID}).Error)
}

// Count returns the number of rows for model.
func Count(t testing.TB, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
