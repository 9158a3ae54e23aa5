package repository

import (
	"context"

	"warbler/internal/cache"
	"warbler/internal/models"
	"warbler/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository manages user -> message like edges.
type LikeRepository interface {
	// Create inserts the edge and reports false when it already existed.
	Create(ctx context.Context, userID, messageID uint) (bool, error)
	// Delete removes the edge and reports false when there was none.
	Delete(ctx context.Context, userID, messageID uint) (bool, error)
	Exists(ctx context.Context, userID, messageID uint) (bool, error)
	CountForMessage(ctx context.Context, messageID uint) (int64, error)
}

type likeRepository struct {
	db      *gorm.DB
	log     *observability.RepoLogger
	metrics *observability.DatabaseMetrics
}

// NewLikeRepository returns a new LikeRepository implementation.
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{
		db:      db,
		log:     observability.NewRepoLogger("likes"),
		metrics: observability.NewDatabaseMetrics("likes"),
	}
}

func (r *likeRepository) Create(ctx context.Context, userID, messageID uint) (bool, error) {
	defer r.metrics.TrackQuery("create")()
	ctx, span := observability.StartRepositorySpan(ctx, dbSystem(r.db), "Create", "likes")
	defer span.End()

	edge := models.Like{UserID: userID, MessageID: messageID}
	res := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&edge)
	if res.Error != nil {
		span.RecordError(res.Error)
		if isUniqueConstraintError(res.Error) {
			return false, nil
		}
		r.log.LogError(ctx, res.Error, "create")
		return false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	cache.InvalidateStats(ctx, userID)
	r.log.LogCreate(ctx, map[string]interface{}{"user_id": userID, "message_id": messageID})
	return true, nil
}

func (r *likeRepository) Delete(ctx context.Context, userID, messageID uint) (bool, error) {
	defer r.metrics.TrackQuery("delete")()
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Delete(&models.Like{})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "delete")
		return false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	cache.InvalidateStats(ctx, userID)
	r.log.LogDelete(ctx, map[string]interface{}{"user_id": userID, "message_id": messageID})
	return true, nil
}

func (r *likeRepository) Exists(ctx context.Context, userID, messageID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *likeRepository) CountForMessage(ctx context.Context, messageID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("message_id = ?", messageID).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
