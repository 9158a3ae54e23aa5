// Package models contains data structures for the application's domain models.
package models

import (
	"fmt"
	"time"
)

// Default profile images used when a user does not supply one.
const (
	DefaultImageURL       = "/static/images/default-pic.png"
	DefaultHeaderImageURL = "/static/images/warbler-hero.jpg"
)

// Field limits shared by validation and the schema.
const (
	MaxUsernameLen    = 30
	MaxBioLen         = 300
	MaxMessageLen     = 140
	MinPasswordLen    = 6
	MaxPasswordLen    = 72
	MaxEmailLen       = 254
	MaxImageURLLength = 2048
)

// User represents an account in the Warbler application.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"size:30;uniqueIndex;not null" json:"username"`
	Email          string    `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Password       string    `gorm:"not null" json:"-"`
	ImageURL       string    `gorm:"size:2048;not null;default:'/static/images/default-pic.png'" json:"image_url"`
	HeaderImageURL string    `gorm:"size:2048;not null;default:'/static/images/warbler-hero.jpg'" json:"header_image_url"`
	Bio            string    `gorm:"size:300;not null;default:''" json:"bio"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

func (u User) String() string {
	return fmt.Sprintf("<User #%d: %s, %s>", u.ID, u.Username, u.Email)
}

// UserStats holds the relationship counts shown on a profile.
type UserStats struct {
	Messages  int64 `json:"messages"`
	Following int64 `json:"following"`
	Followers int64 `json:"followers"`
	Likes     int64 `json:"likes"`
}
