package validation

import (
	"strings"
	"testing"

	"warbler/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "testuser", false},
		{"Exactly Min Length", "abcdef", false},
		{"Exactly Max Length", strings.Repeat("b", 72), false},
		{"Too Short", "abcde", true},
		{"Too Long", strings.Repeat("b", 73), true},
		{"Empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"Valid", "testuser", false},
		{"Punctuation", "test.user-1", false},
		{"Empty", "", true},
		{"Too Long", strings.Repeat("u", 31), true},
		{"Whitespace", "test user", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	// 254 chars total: 64 local + @ + 185 domain label + ".com" (4)
	emailAt254 := strings.Repeat("a", 64) + "@" + strings.Repeat("b", 185) + ".com"
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"Valid", "test@test.com", false},
		{"Exactly 254 Characters", emailAt254, false},
		{"Too Long", "a" + emailAt254, true},
		{"Invalid Format", "not-an-email", true},
		{"Missing Domain", "user@", true},
		{"Multiple At Symbols", "user@@example.com", true},
		{"Space In Local Part", "user @example.com", true},
		{"Trailing Dot In Domain", "user@example.com.", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateImageURL(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateImageURL(""))
	assert.NoError(t, ValidateImageURL("/static/images/default-pic.png"))
	assert.NoError(t, ValidateImageURL("https://example.com/a.png"))
	assert.Error(t, ValidateImageURL("javascript:alert(1)"))
	assert.Error(t, ValidateImageURL("//evil.example/a.png"))
	assert.Error(t, ValidateImageURL("https://"+strings.Repeat("a", 2050)))
}

func TestSignupInput(t *testing.T) {
	in := SignupInput{Username: "  testuser ", Email: " Test@Test.com ", Password: "testuser"}
	in.Normalize()
	assert.Equal(t, "testuser", in.Username)
	assert.Equal(t, "test@test.com", in.Email)
	assert.NoError(t, in.Validate())

	bad := SignupInput{Email: "nope", Password: "123"}
	err := bad.Validate()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)
	assert.Contains(t, appErr.Fields, "username")
	assert.Contains(t, appErr.Fields, "email")
	assert.Contains(t, appErr.Fields, "password")
}

func TestMessageInput(t *testing.T) {
	in := MessageInput{Text: "   "}
	in.Normalize()
	assert.Error(t, in.Validate())

	in = MessageInput{Text: strings.Repeat("x", 140)}
	assert.NoError(t, in.Validate())
	in = MessageInput{Text: strings.Repeat("x", 141)}
	assert.Error(t, in.Validate())
}

func TestProfileUpdateInput_RequiresPassword(t *testing.T) {
	in := ProfileUpdateInput{Username: "alice", Email: "alice@test.com"}
	err := in.Validate()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "password is required", appErr.Fields["password"])

	in.Password = "secret"
	in.Bio = strings.Repeat("b", 301)
	require.ErrorAs(t, in.Validate(), &appErr)
	assert.Contains(t, appErr.Fields, "bio")
}

func TestLoginInput(t *testing.T) {
	in := LoginInput{Username: " alice "}
	in.Normalize()
	assert.Equal(t, "alice", in.Username)
	assert.Error(t, in.Validate())
	in.Password = "x"
	assert.NoError(t, in.Validate())
}
