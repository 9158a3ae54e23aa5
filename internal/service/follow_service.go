package service

import (
	"context"

	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
)

// FollowService manages follows edges between users.
type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	policy     EdgePolicy
}

// NewFollowService returns a new FollowService.
func NewFollowService(followRepo repository.FollowRepository, userRepo repository.UserRepository, policy EdgePolicy) *FollowService {
	return &FollowService{
		followRepo: followRepo,
		userRepo:   userRepo,
		policy:     policy,
	}
}

// Follow makes followerID follow followedID.
func (s *FollowService) Follow(ctx context.Context, followerID, followedID uint) error {
	if followerID == 0 {
		return models.ErrUnauthenticated
	}
	if followerID == followedID && !s.policy.AllowSelf {
		observability.RecordEdge("follow", "create", "self")
		return models.ErrSelfRelation
	}
	if _, err := s.userRepo.GetByID(ctx, followedID); err != nil {
		return err
	}

	created, err := s.followRepo.Create(ctx, followerID, followedID)
	if err != nil {
		observability.RecordEdge("follow", "create", "error")
		return err
	}
	observability.RecordEdge("follow", "create", edgeResult(created))
	if !created && s.policy.RejectDuplicates {
		return models.ErrDuplicateEdge
	}
	return nil
}

// Unfollow removes the edge. A missing edge is not an error.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followedID uint) error {
	if followerID == 0 {
		return models.ErrUnauthenticated
	}
	removed, err := s.followRepo.Delete(ctx, followerID, followedID)
	if err != nil {
		observability.RecordEdge("follow", "delete", "error")
		return err
	}
	if removed {
		observability.RecordEdge("follow", "delete", "removed")
	} else {
		observability.RecordEdge("follow", "delete", "missing")
	}
	return nil
}

// IsFollowing reports whether self follows other.
func (s *FollowService) IsFollowing(ctx context.Context, self, other uint) (bool, error) {
	return s.followRepo.Exists(ctx, self, other)
}

// IsFollowedBy reports whether other follows self.
func (s *FollowService) IsFollowedBy(ctx context.Context, self, other uint) (bool, error) {
	return s.followRepo.Exists(ctx, other, self)
}
