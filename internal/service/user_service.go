package service

import (
	"context"

	"warbler/internal/models"
	"warbler/internal/repository"
	"warbler/internal/validation"
)

// UserService serves profile reads, profile updates and account deletion.
type UserService struct {
	userRepo    repository.UserRepository
	messageRepo repository.MessageRepository
	followRepo  repository.FollowRepository
}

// Profile is everything the profile page shows about one user.
type Profile struct {
	User        *models.User
	Stats       *models.UserStats
	Messages    []models.Message
	IsFollowing bool
	IsOwner     bool
}

// NewUserService returns a new UserService.
func NewUserService(userRepo repository.UserRepository, messageRepo repository.MessageRepository, followRepo repository.FollowRepository) *UserService {
	return &UserService{
		userRepo:    userRepo,
		messageRepo: messageRepo,
		followRepo:  followRepo,
	}
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// ListUsers returns the directory, filtered by a username substring when search is set.
func (s *UserService) ListUsers(ctx context.Context, search string, limit, offset int) ([]models.User, error) {
	return s.userRepo.List(ctx, search, limit, offset)
}

func (s *UserService) Stats(ctx context.Context, id uint) (*models.UserStats, error) {
	return s.userRepo.Stats(ctx, id)
}

// GetProfile loads a user, their counts and newest messages as seen by viewerID
// (0 for anonymous).
func (s *UserService) GetProfile(ctx context.Context, id, viewerID uint) (*Profile, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	stats, err := s.userRepo.Stats(ctx, id)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messageRepo.ListByUser(ctx, id, repository.MaxTimelineSize, 0)
	if err != nil {
		return nil, err
	}
	if err := s.messageRepo.AnnotateLikes(ctx, msgs, viewerID); err != nil {
		return nil, err
	}

	p := &Profile{User: user, Stats: stats, Messages: msgs, IsOwner: viewerID != 0 && viewerID == id}
	if viewerID != 0 && !p.IsOwner {
		if p.IsFollowing, err = s.followRepo.Exists(ctx, viewerID, id); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ListFollowing returns the users id follows. The user must exist.
func (s *UserService) ListFollowing(ctx context.Context, id uint) (*models.User, []models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	users, err := s.userRepo.ListFollowing(ctx, id)
	return user, users, err
}

// ListFollowers returns the users following id. The user must exist.
func (s *UserService) ListFollowers(ctx context.Context, id uint) (*models.User, []models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	users, err := s.userRepo.ListFollowers(ctx, id)
	return user, users, err
}

// ListLikedMessages returns the messages id liked, annotated for viewerID.
func (s *UserService) ListLikedMessages(ctx context.Context, id, viewerID uint) (*models.User, []models.Message, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.messageRepo.ListLikedBy(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := s.messageRepo.AnnotateLikes(ctx, msgs, viewerID); err != nil {
		return nil, nil, err
	}
	return user, msgs, nil
}

// UpdateProfile applies in to targetID's profile. Only the owner may update,
// and only after the current password verifies. Nothing changes on failure.
func (s *UserService) UpdateProfile(ctx context.Context, actorID, targetID uint, in validation.ProfileUpdateInput) (*models.User, error) {
	if actorID == 0 {
		return nil, models.ErrUnauthenticated
	}
	if actorID != targetID {
		return nil, models.ErrForbidden
	}

	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	return s.userRepo.UpdateProfile(ctx, targetID, func(u *models.User) error {
		if !CheckPassword(u.Password, in.Password) {
			return models.ErrInvalidPassword
		}
		u.Username = in.Username
		u.Email = in.Email
		u.ImageURL = in.ImageURL
		if u.ImageURL == "" {
			u.ImageURL = models.DefaultImageURL
		}
		u.HeaderImageURL = in.HeaderImageURL
		if u.HeaderImageURL == "" {
			u.HeaderImageURL = models.DefaultHeaderImageURL
		}
		u.Bio = in.Bio
		return nil
	})
}

// DeleteAccount removes the acting user and everything they own.
func (s *UserService) DeleteAccount(ctx context.Context, actorID uint) error {
	if actorID == 0 {
		return models.ErrUnauthenticated
	}
	return s.userRepo.Delete(ctx, actorID)
}
