package repository

import (
	"context"
	"testing"

	"warbler/internal/models"
	"warbler/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowRepository_Lifecycle(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	created, err := repo.Create(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Create(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, created, "duplicate edge is not inserted twice")
	assert.Equal(t, int64(1), testutil.Count(t, db, &models.Follow{}))

	ok, err := repo.Exists(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Exists(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, ok, "edges are directed")

	ids, err := repo.FollowingIDs(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{bob.ID}, ids)

	deleted, err := repo.Delete(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = repo.Delete(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestLikeRepository_Lifecycle(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	msg := testutil.CreateMessage(t, db, alice.ID, "hi")

	created, err := repo.Create(ctx, alice.ID, msg.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Create(ctx, alice.ID, msg.ID)
	require.NoError(t, err)
	assert.False(t, created)

	count, err := repo.CountForMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	ok, err := repo.Exists(ctx, alice.ID, msg.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	deleted, err := repo.Delete(ctx, alice.ID, msg.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = repo.Delete(ctx, alice.ID, msg.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}
