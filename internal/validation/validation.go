// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"warbler/internal/models"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9\-]+(\.[a-zA-Z0-9\-]+)*\.[a-zA-Z]{2,}$`)

// ValidatePassword checks the length bounds accepted by bcrypt.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < models.MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", models.MinPasswordLen)
	}
	if len(password) > models.MaxPasswordLen {
		return fmt.Errorf("password must not exceed %d bytes", models.MaxPasswordLen)
	}
	return nil
}

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if utf8.RuneCountInString(username) > models.MaxUsernameLen {
		return fmt.Errorf("username must not exceed %d characters", models.MaxUsernameLen)
	}
	for _, r := range username {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("username cannot contain whitespace")
		}
	}
	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if len(email) > models.MaxEmailLen {
		return fmt.Errorf("email must not exceed %d characters", models.MaxEmailLen)
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateImageURL accepts an empty value, a site-relative path or an http(s) URL.
func ValidateImageURL(raw string) error {
	if raw == "" {
		return nil
	}
	if len(raw) > models.MaxImageURLLength {
		return fmt.Errorf("URL must not exceed %d characters", models.MaxImageURLLength)
	}
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid URL")
	}
	return nil
}

// ValidateMessageText requires 1 to 140 characters after trimming.
func ValidateMessageText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("text is required")
	}
	if utf8.RuneCountInString(text) > models.MaxMessageLen {
		return fmt.Errorf("text must not exceed %d characters", models.MaxMessageLen)
	}
	return nil
}

// ValidateBio bounds the optional profile bio.
func ValidateBio(bio string) error {
	if utf8.RuneCountInString(bio) > models.MaxBioLen {
		return fmt.Errorf("bio must not exceed %d characters", models.MaxBioLen)
	}
	return nil
}
