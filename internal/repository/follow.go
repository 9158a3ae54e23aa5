package repository

import (
	"context"

	"warbler/internal/cache"
	"warbler/internal/models"
	"warbler/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository manages follower -> followed edges.
type FollowRepository interface {
	// Create inserts the edge and reports false when it already existed.
	Create(ctx context.Context, followerID, followedID uint) (bool, error)
	// Delete removes the edge and reports false when there was none.
	Delete(ctx context.Context, followerID, followedID uint) (bool, error)
	Exists(ctx context.Context, followerID, followedID uint) (bool, error)
	FollowingIDs(ctx context.Context, followerID uint) ([]uint, error)
}

type followRepository struct {
	db      *gorm.DB
	log     *observability.RepoLogger
	metrics *observability.DatabaseMetrics
}

// NewFollowRepository returns a new FollowRepository implementation.
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{
		db:      db,
		log:     observability.NewRepoLogger("follows"),
		metrics: observability.NewDatabaseMetrics("follows"),
	}
}

func (r *followRepository) Create(ctx context.Context, followerID, followedID uint) (bool, error) {
	defer r.metrics.TrackQuery("create")()
	ctx, span := observability.StartRepositorySpan(ctx, dbSystem(r.db), "Create", "follows")
	defer span.End()

	edge := models.Follow{FollowerID: followerID, FollowedID: followedID}
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

	cache.InvalidateStats(ctx, followerID, followedID)
	r.log.LogCreate(ctx, map[string]interface{}{"follower_id": followerID, "followed_id": followedID})
	return true, nil
}

func (r *followRepository) Delete(ctx context.Context, followerID, followedID uint) (bool, error) {
	defer r.metrics.TrackQuery("delete")()
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&models.Follow{})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "delete")
		return false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	cache.InvalidateStats(ctx, followerID, followedID)
	r.log.LogDelete(ctx, map[string]interface{}{"follower_id": followerID, "followed_id": followedID})
	return true, nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, followedID uint) (bool, error) {
	var count int64
	if err := readDB(r.db).WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// FollowingIDs returns the ids followerID follows.
func (r *followRepository) FollowingIDs(ctx context.Context, followerID uint) ([]uint, error) {
	var ids []uint
	if err := readDB(r.db).WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", followerID).
		Pluck("followed_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}
