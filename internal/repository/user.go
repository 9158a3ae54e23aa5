package repository

import (
	"context"
	"errors"
	"strings"

	"warbler/internal/cache"
	"warbler/internal/models"
	"warbler/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, id uint, apply func(user *models.User) error) (*models.User, error)
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, search string, limit, offset int) ([]models.User, error)
	ListFollowing(ctx context.Context, id uint) ([]models.User, error)
	ListFollowers(ctx context.Context, id uint) ([]models.User, error)
	Stats(ctx context.Context, id uint) (*models.UserStats, error)
}

type userRepository struct {
	db      *gorm.DB
	log     *observability.RepoLogger
	metrics *observability.DatabaseMetrics
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{
		db:      db,
		log:     observability.NewRepoLogger("users"),
		metrics: observability.NewDatabaseMetrics("users"),
	}
}

// GetByID reads through the cache. The cached copy never carries the password hash.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		defer r.metrics.TrackQuery("get_by_id")()
		if err := readDB(r.db).WithContext(ctx).First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	user.Password = ""
	return &user, nil
}

// GetByUsername returns nil, nil when no user has that username.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	defer r.metrics.TrackQuery("get_by_username")()
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetByEmail returns nil, nil when no user has that email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	defer r.metrics.TrackQuery("get_by_email")()
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	defer r.metrics.TrackQuery("create")()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return duplicateUserError(err)
		}
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"user_id": user.ID})
	return nil
}

// UpdateProfile loads the row inside a transaction, lets apply mutate it and
// writes the profile columns back. An error from apply aborts with no change.
func (r *userRepository) UpdateProfile(ctx context.Context, id uint, apply func(user *models.User) error) (*models.User, error) {
	defer r.metrics.TrackQuery("update_profile")()
	var user models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if supportsRowLocking(tx) {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return err
		}

		if err := apply(&user); err != nil {
			return err
		}

		return tx.Model(&user).
			Select("username", "email", "image_url", "header_image_url", "bio").
			Updates(&user).Error
	})
	if err != nil {
		var appErr *models.AppError
		switch {
		case errors.As(err, &appErr):
			return nil, err
		case isUniqueConstraintError(err):
			return nil, duplicateUserError(err)
		default:
			r.log.LogError(ctx, err, "update_profile")
			return nil, models.NewInternalError(err)
		}
	}

	cache.InvalidateUser(ctx, id)
	r.log.LogUpdate(ctx, map[string]interface{}{"user_id": id})
	user.Password = ""
	return &user, nil
}

// Delete removes the user together with their messages, the likes on those
// messages, their own likes and every follows edge touching them.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	defer r.metrics.TrackQuery("delete")()
	var affected []uint

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var followers, followees, likers []uint
		if err := tx.Model(&models.Follow{}).Where("followed_id = ?", id).Pluck("follower_id", &followers).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Follow{}).Where("follower_id = ?", id).Pluck("followed_id", &followees).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Like{}).
			Joins("JOIN messages ON messages.id = likes.message_id").
			Where("messages.user_id = ? AND likes.user_id <> ?", id, id).
			Distinct().Pluck("likes.user_id", &likers).Error; err != nil {
			return err
		}

		ownMessages := tx.Model(&models.Message{}).Select("id").Where("user_id = ?", id)
		if err := tx.Where("user_id = ? OR message_id IN (?)", id, ownMessages).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("follower_id = ? OR followed_id = ?", id, id).Delete(&models.Follow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("User", id)
		}

		affected = append(append(append(affected, followers...), followees...), likers...)
		return nil
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return err
		}
		r.log.LogError(ctx, err, "delete")
		return models.NewInternalError(err)
	}

	cache.InvalidateUser(ctx, id)
	cache.InvalidateStats(ctx, affected...)
	r.log.LogDelete(ctx, map[string]interface{}{"user_id": id})
	return nil
}

// List returns users ordered by username, optionally filtered by a
// case-insensitive username substring.
func (r *userRepository) List(ctx context.Context, search string, limit, offset int) ([]models.User, error) {
	defer r.metrics.TrackQuery("list")()
	var users []models.User
	q := readDB(r.db).WithContext(ctx).Order("username ASC")
	if search = strings.TrimSpace(search); search != "" {
		q = q.Where("LOWER(username) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// ListFollowing returns the users id follows.
func (r *userRepository) ListFollowing(ctx context.Context, id uint) ([]models.User, error) {
	defer r.metrics.TrackQuery("list_following")()
	var users []models.User
	if err := readDB(r.db).WithContext(ctx).
		Joins("JOIN follows ON follows.followed_id = users.id").
		Where("follows.follower_id = ?", id).
		Order("users.username ASC").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// ListFollowers returns the users following id.
func (r *userRepository) ListFollowers(ctx context.Context, id uint) ([]models.User, error) {
	defer r.metrics.TrackQuery("list_followers")()
	var users []models.User
	if err := readDB(r.db).WithContext(ctx).
		Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.followed_id = ?", id).
		Order("users.username ASC").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) Stats(ctx context.Context, id uint) (*models.UserStats, error) {
	var stats models.UserStats
	err := cache.Aside(ctx, cache.UserStatsKey(id), &stats, cache.UserStatsTTL, func() error {
		defer r.metrics.TrackQuery("stats")()
		db := readDB(r.db).WithContext(ctx)
		if err := db.Model(&models.Message{}).Where("user_id = ?", id).Count(&stats.Messages).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := db.Model(&models.Follow{}).Where("follower_id = ?", id).Count(&stats.Following).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := db.Model(&models.Follow{}).Where("followed_id = ?", id).Count(&stats.Followers).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := db.Model(&models.Like{}).Where("user_id = ?", id).Count(&stats.Likes).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func duplicateUserError(err error) *models.AppError {
	field, msg := "username", "Username already taken"
	if uniqueConstraintField(err) == "email" {
		field, msg = "email", "Email already taken"
	}
	appErr := models.NewConflictError(msg, err)
	appErr.Fields = models.FieldErrors{field: msg}
	return appErr
}
