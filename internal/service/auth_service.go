package service

import (
	"context"

	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
	"warbler/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// AuthService handles signup and credential checks. Session handling stays in
// the HTTP layer.
type AuthService struct {
	userRepo  repository.UserRepository
	cost      int
	dummyHash []byte
}

// NewAuthService returns a new AuthService. A cost of 0 selects bcrypt.DefaultCost.
func NewAuthService(userRepo repository.UserRepository, cost int) *AuthService {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	// Compared against for unknown usernames so both failure paths cost one bcrypt run.
	dummy, err := bcrypt.GenerateFromPassword([]byte("warbler-not-a-password"), cost)
	if err != nil {
		observability.GlobalLogger.Error("bcrypt dummy hash unavailable, unknown usernames will fail faster",
			"cost", cost, "error", err)
	}
	return &AuthService{
		userRepo:  userRepo,
		cost:      cost,
		dummyHash: dummy,
	}
}

// Signup validates the input, hashes the password and stores the new user.
func (s *AuthService) Signup(ctx context.Context, in validation.SignupInput) (*models.User, error) {
	span, ctx := observability.StartServiceSpan(ctx, "AuthService", "Signup")
	defer span.End()

	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	taken := models.FieldErrors{}
	existing, err := s.userRepo.GetByUsername(ctx, in.Username)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if existing != nil {
		taken["username"] = "Username already taken"
	}
	existing, err = s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if existing != nil {
		taken["email"] = "Email already taken"
	}
	if len(taken) > 0 {
		conflict := models.NewFieldValidationError(taken)
		conflict.Code = models.CodeConflict
		return nil, conflict
	}

	hash, err := s.HashPassword(in.Password)
	if err != nil {
		span.SetError(err)
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:       in.Username,
		Email:          in.Email,
		Password:       hash,
		ImageURL:       in.ImageURL,
		HeaderImageURL: models.DefaultHeaderImageURL,
	}
	if user.ImageURL == "" {
		user.ImageURL = models.DefaultImageURL
	}

	// The unique indexes still decide races between the checks above and the insert.
	if err := s.userRepo.Create(ctx, user); err != nil {
		span.SetError(err)
		return nil, err
	}
	user.Password = ""
	return user, nil
}

// Authenticate returns the user when password matches the stored hash and
// ErrInvalidCredentials otherwise, including for unknown usernames.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	span, ctx := observability.StartServiceSpan(ctx, "AuthService", "Authenticate")
	defer span.End()

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, models.ErrInvalidCredentials
	}
	if !CheckPassword(user.Password, password) {
		return nil, models.ErrInvalidCredentials
	}

	user.Password = ""
	return user, nil
}

// HashPassword returns the bcrypt hash of password at the configured cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
