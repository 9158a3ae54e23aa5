package validation

import (
	"strings"

	"warbler/internal/models"
)

// SignupInput is the signup form.
type SignupInput struct {
	Username string `form:"username" json:"username"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	ImageURL string `form:"image_url" json:"image_url"`
}

// Normalize trims surrounding whitespace. Passwords are taken verbatim.
func (in *SignupInput) Normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.ImageURL = strings.TrimSpace(in.ImageURL)
}

// Validate returns a field error for every invalid field, or nil.
func (in *SignupInput) Validate() error {
	fields := models.FieldErrors{}
	check(fields, "username", ValidateUsername(in.Username))
	check(fields, "email", ValidateEmail(in.Email))
	check(fields, "password", ValidatePassword(in.Password))
	check(fields, "image_url", ValidateImageURL(in.ImageURL))
	return result(fields)
}

// LoginInput is the login form.
type LoginInput struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

func (in *LoginInput) Normalize() {
	in.Username = strings.TrimSpace(in.Username)
}

func (in *LoginInput) Validate() error {
	fields := models.FieldErrors{}
	if in.Username == "" {
		fields["username"] = "username is required"
	}
	if in.Password == "" {
		fields["password"] = "password is required"
	}
	return result(fields)
}

// MessageInput is the new-message form.
type MessageInput struct {
	Text string `form:"text" json:"text"`
}

func (in *MessageInput) Normalize() {
	in.Text = strings.TrimSpace(in.Text)
}

func (in *MessageInput) Validate() error {
	fields := models.FieldErrors{}
	check(fields, "text", ValidateMessageText(in.Text))
	return result(fields)
}

// ProfileUpdateInput is the edit-profile form. Password is the current
// password and is only used for re-verification.
type ProfileUpdateInput struct {
	Username       string `form:"username" json:"username"`
	Email          string `form:"email" json:"email"`
	ImageURL       string `form:"image_url" json:"image_url"`
	HeaderImageURL string `form:"header_image_url" json:"header_image_url"`
	Bio            string `form:"bio" json:"bio"`
	Password       string `form:"password" json:"password"`
}

func (in *ProfileUpdateInput) Normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.HeaderImageURL = strings.TrimSpace(in.HeaderImageURL)
	in.Bio = strings.TrimSpace(in.Bio)
}

func (in *ProfileUpdateInput) Validate() error {
	fields := models.FieldErrors{}
	check(fields, "username", ValidateUsername(in.Username))
	check(fields, "email", ValidateEmail(in.Email))
	check(fields, "image_url", ValidateImageURL(in.ImageURL))
	check(fields, "header_image_url", ValidateImageURL(in.HeaderImageURL))
	check(fields, "bio", ValidateBio(in.Bio))
	if in.Password == "" {
		fields["password"] = "password is required"
	}
	return result(fields)
}

func check(fields models.FieldErrors, name string, err error) {
	if err != nil {
		fields[name] = err.Error()
	}
}

func result(fields models.FieldErrors) error {
	if len(fields) == 0 {
		return nil
	}
	return models.NewFieldValidationError(fields)
}
