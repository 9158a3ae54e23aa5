package repository

import (
	"context"
	"errors"

	"warbler/internal/cache"
	"warbler/internal/models"
	"warbler/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	Delete(ctx context.Context, id uint) error
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Message, error)
	Timeline(ctx context.Context, userID uint, limit int) ([]models.Message, error)
	ListLikedBy(ctx context.Context, userID uint) ([]models.Message, error)
	AnnotateLikes(ctx context.Context, msgs []models.Message, viewerID uint) error
}

type messageRepository struct {
	db      *gorm.DB
	log     *observability.RepoLogger
	metrics *observability.DatabaseMetrics
}

// NewMessageRepository returns a new MessageRepository implementation.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{
		db:      db,
		log:     observability.NewRepoLogger("messages"),
		metrics: observability.NewDatabaseMetrics("messages"),
	}
}

func (r *messageRepository) Create(ctx context.Context, msg *models.Message) error {
	defer r.metrics.TrackQuery("create")()
	ctx, span := observability.StartRepositorySpan(ctx, dbSystem(r.db), "Create", "messages")
	defer span.End()

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(msg).Error; err != nil {
		span.RecordError(err)
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	cache.InvalidateStats(ctx, msg.UserID)
	r.log.LogCreate(ctx, map[string]interface{}{"message_id": msg.ID, "user_id": msg.UserID})
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	defer r.metrics.TrackQuery("get_by_id")()
	var msg models.Message
	if err := readDB(r.db).WithContext(ctx).Preload("User").First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Message", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &msg, nil
}

// Delete hard-deletes the message and the likes pointing at it.
func (r *messageRepository) Delete(ctx context.Context, id uint) error {
	defer r.metrics.TrackQuery("delete")()
	ctx, span := observability.StartRepositorySpan(ctx, dbSystem(r.db), "Delete", "messages")
	defer span.End()

	var ownerID uint
	var likers []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var msg models.Message
		if err := tx.Select("id", "user_id").First(&msg, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Message", id)
			}
			return err
		}
		ownerID = msg.UserID

		if err := tx.Model(&models.Like{}).Where("message_id = ?", id).Pluck("user_id", &likers).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Message{}, id).Error
	})
	if err != nil {
		span.RecordError(err)
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return err
		}
		r.log.LogError(ctx, err, "delete")
		return models.NewInternalError(err)
	}

	cache.InvalidateStats(ctx, append(likers, ownerID)...)
	r.log.LogDelete(ctx, map[string]interface{}{"message_id": id})
	return nil
}

// ListByUser returns the user's messages, newest first.
func (r *messageRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Message, error) {
	defer r.metrics.TrackQuery("list_by_user")()
	if limit <= 0 || limit > MaxTimelineSize {
		limit = MaxTimelineSize
	}
	var msgs []models.Message
	if err := readDB(r.db).WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		Order("timestamp DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&msgs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return msgs, nil
}

// Timeline returns the newest messages written by userID or anyone they follow.
func (r *messageRepository) Timeline(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	defer r.metrics.TrackQuery("timeline")()
	if limit <= 0 || limit > MaxTimelineSize {
		limit = MaxTimelineSize
	}
	db := readDB(r.db).WithContext(ctx)
	followed := db.Model(&models.Follow{}).Select("followed_id").Where("follower_id = ?", userID)

	var msgs []models.Message
	if err := db.
		Preload("User").
		Where("user_id = ? OR user_id IN (?)", userID, followed).
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return msgs, nil
}

// ListLikedBy returns the messages userID liked, most recently liked first.
func (r *messageRepository) ListLikedBy(ctx context.Context, userID uint) ([]models.Message, error) {
	defer r.metrics.TrackQuery("list_liked_by")()
	var msgs []models.Message
	if err := readDB(r.db).WithContext(ctx).
		Preload("User").
		Joins("JOIN likes ON likes.message_id = messages.id").
		Where("likes.user_id = ?", userID).
		Order("likes.created_at DESC, messages.id DESC").
		Find(&msgs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return msgs, nil
}

type likeCount struct {
	MessageID uint
	Count     int64
}

// AnnotateLikes fills LikesCount and, for a logged-in viewer, Liked.
func (r *messageRepository) AnnotateLikes(ctx context.Context, msgs []models.Message, viewerID uint) error {
	if len(msgs) == 0 {
		return nil
	}
	defer r.metrics.TrackQuery("annotate_likes")()

	ids := make([]uint, len(msgs))
	for i := range msgs {
		ids[i] = msgs[i].ID
	}
	db := readDB(r.db).WithContext(ctx)

	var counts []likeCount
	if err := db.Model(&models.Like{}).
		Select("message_id, COUNT(*) AS count").
		Where("message_id IN ?", ids).
		Group("message_id").
		Scan(&counts).Error; err != nil {
		return models.NewInternalError(err)
	}
	byID := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byID[c.MessageID] = c.Count
	}

	liked := map[uint]bool{}
	if viewerID != 0 {
		var likedIDs []uint
		if err := db.Model(&models.Like{}).
			Where("user_id = ? AND message_id IN ?", viewerID, ids).
			Pluck("message_id", &likedIDs).Error; err != nil {
			return models.NewInternalError(err)
		}
		for _, id := range likedIDs {
			liked[id] = true
		}
	}

	for i := range msgs {
		msgs[i].LikesCount = byID[msgs[i].ID]
		msgs[i].Liked = liked[msgs[i].ID]
	}
	return nil
}
