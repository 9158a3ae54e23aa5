package service

import (
	"context"

	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
)

// LikeService manages likes on messages.
type LikeService struct {
	likeRepo    repository.LikeRepository
	messageRepo repository.MessageRepository
	policy      EdgePolicy
}

// LikeState is the outcome of a like toggle.
type LikeState struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likes_count"`
}

// NewLikeService returns a new LikeService.
func NewLikeService(likeRepo repository.LikeRepository, messageRepo repository.MessageRepository, policy EdgePolicy) *LikeService {
	return &LikeService{
		likeRepo:    likeRepo,
		messageRepo: messageRepo,
		policy:      policy,
	}
}

// Like records that userID likes messageID.
func (s *LikeService) Like(ctx context.Context, userID, messageID uint) error {
	if userID == 0 {
		return models.ErrUnauthenticated
	}
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.UserID == userID && !s.policy.AllowSelf {
		observability.RecordEdge("like", "create", "self")
		return models.ErrSelfRelation
	}

	created, err := s.likeRepo.Create(ctx, userID, messageID)
	if err != nil {
		observability.RecordEdge("like", "create", "error")
		return err
	}
	observability.RecordEdge("like", "create", edgeResult(created))
	if !created && s.policy.RejectDuplicates {
		return models.ErrDuplicateEdge
	}
	return nil
}

// Unlike removes the like. A missing like is not an error.
func (s *LikeService) Unlike(ctx context.Context, userID, messageID uint) error {
	if userID == 0 {
		return models.ErrUnauthenticated
	}
	removed, err := s.likeRepo.Delete(ctx, userID, messageID)
	if err != nil {
		observability.RecordEdge("like", "delete", "error")
		return err
	}
	if removed {
		observability.RecordEdge("like", "delete", "removed")
	} else {
		observability.RecordEdge("like", "delete", "missing")
	}
	return nil
}

// Toggle likes the message when userID has not liked it yet and unlikes it otherwise.
func (s *LikeService) Toggle(ctx context.Context, userID, messageID uint) (*LikeState, error) {
	if userID == 0 {
		return nil, models.ErrUnauthenticated
	}
	liked, err := s.likeRepo.Exists(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}
	if liked {
		err = s.Unlike(ctx, userID, messageID)
	} else {
		err = s.Like(ctx, userID, messageID)
	}
	if err != nil {
		return nil, err
	}

	count, err := s.likeRepo.CountForMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return &LikeState{Liked: !liked, LikesCount: count}, nil
}
