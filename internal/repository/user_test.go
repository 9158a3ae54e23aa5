package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"warbler/internal/models"
	"warbler/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	tests := []struct {
		name          string
		userID        uint
		mockBehavior  func()
		expectedUser  *models.User
		expectedError bool
	}{
		{
			name:   "Success",
			userID: 1,
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "username", "email", "password"}).
					AddRow(1, "testuser", "test@example.com", "$2a$hash")
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(1, 1).
					WillReturnRows(rows)
			},
			expectedUser: &models.User{ID: 1, Username: "testuser", Email: "test@example.com"},
		},
		{
			name:   "Not Found",
			userID: 99,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(99, 1).
					WillReturnError(gorm.ErrRecordNotFound)
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.GetByID(ctx, tt.userID)

			if tt.expectedError {
				var appErr *models.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, models.CodeNotFound, appErr.Code)
			} else if assert.NotNil(t, user) {
				assert.Equal(t, tt.expectedUser.Username, user.Username)
				assert.Empty(t, user.Password, "cached reads never expose the hash")
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_CreateDuplicatePostgres(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_users_email"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.User{Username: "a", Email: "a@x.io", Password: "h"})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeConflict, appErr.Code)
	assert.Contains(t, appErr.Fields, "email")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueConstraintError(t *testing.T) {
	assert.False(t, isUniqueConstraintError(nil))
	assert.True(t, isUniqueConstraintError(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueConstraintError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueConstraintError(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isUniqueConstraintError(errors.New("UNIQUE constraint failed: users.username")))
	assert.False(t, isUniqueConstraintError(errors.New("connection refused")))
}

func TestUserRepository_CreateAndLookup(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := &models.User{Username: "alice", Email: "alice@test.com", Password: "hash"}
	require.NoError(t, repo.Create(ctx, u))
	assert.NotZero(t, u.ID)

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hash", got.Password)

	missing, err := repo.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	byEmail, err := repo.GetByEmail(ctx, "alice@test.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)

	err = repo.Create(ctx, &models.User{Username: "alice", Email: "other@test.com", Password: "hash"})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeConflict, appErr.Code)
	assert.Equal(t, models.FieldErrors{"username": "Username already taken"}, appErr.Fields)
	assert.NotNil(t, appErr.Unwrap(), "driver error is kept")

	err = repo.Create(ctx, &models.User{Username: "bob", Email: "alice@test.com", Password: "hash"})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeConflict, appErr.Code)
	assert.Equal(t, "Email already taken", appErr.Message)
	assert.Equal(t, models.FieldErrors{"email": "Email already taken"}, appErr.Fields)
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	testutil.CreateUser(t, db, "bob")

	updated, err := repo.UpdateProfile(ctx, alice.ID, func(u *models.User) error {
		u.Bio = "hello"
		u.Username = "alice2"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "alice2", updated.Username)

	var stored models.User
	require.NoError(t, db.First(&stored, alice.ID).Error)
	assert.Equal(t, "hello", stored.Bio)
	assert.Equal(t, alice.Password, stored.Password, "password column untouched")

	t.Run("apply error leaves row unchanged", func(t *testing.T) {
		_, err := repo.UpdateProfile(ctx, alice.ID, func(u *models.User) error {
			u.Bio = "changed"
			return models.ErrInvalidPassword
		})
		assert.ErrorIs(t, err, models.ErrInvalidPassword)
		require.NoError(t, db.First(&stored, alice.ID).Error)
		assert.Equal(t, "hello", stored.Bio)
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := repo.UpdateProfile(ctx, alice.ID, func(u *models.User) error {
			u.Username = "bob"
			return nil
		})
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeConflict, appErr.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := repo.UpdateProfile(ctx, 9999, func(u *models.User) error { return nil })
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeNotFound, appErr.Code)
	})
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	aliceMsg := testutil.CreateMessage(t, db, alice.ID, "alice says hi")
	bobMsg := testutil.CreateMessage(t, db, bob.ID, "bob says hi")
	testutil.Follow(t, db, alice.ID, bob.ID)
	testutil.Follow(t, db, bob.ID, alice.ID)
	testutil.Like(t, db, bob.ID, aliceMsg.ID)
	testutil.Like(t, db, alice.ID, bobMsg.ID)

	require.NoError(t, repo.Delete(ctx, alice.ID))

	assert.Equal(t, int64(1), testutil.Count(t, db, &models.User{}))
	assert.Equal(t, int64(1), testutil.Count(t, db, &models.Message{}))
	assert.Equal(t, int64(0), testutil.Count(t, db, &models.Follow{}))
	assert.Equal(t, int64(0), testutil.Count(t, db, &models.Like{}))

	err := repo.Delete(ctx, alice.ID)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

func TestUserRepository_ListsAndStats(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	carol := testutil.CreateUser(t, db, "Carol")
	testutil.Follow(t, db, alice.ID, bob.ID)
	testutil.Follow(t, db, alice.ID, carol.ID)
	testutil.Follow(t, db, bob.ID, alice.ID)
	msg := testutil.CreateMessage(t, db, bob.ID, "hey")
	testutil.CreateMessage(t, db, alice.ID, "mine")
	testutil.Like(t, db, alice.ID, msg.ID)

	following, err := repo.ListFollowing(ctx, alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bob", "Carol"}, usernames(following))

	followers, err := repo.ListFollowers(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, usernames(followers))

	stats, err := repo.Stats(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserStats{Messages: 1, Following: 2, Followers: 1, Likes: 1}, *stats)

	found, err := repo.List(ctx, "car", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Carol"}, usernames(found))

	all, err := repo.List(ctx, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func usernames(users []models.User) []string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.Username
	}
	return out
}
