package service

import (
	"context"
	"strings"
	"testing"

	"warbler/internal/models"
	"warbler/internal/repository"
	"warbler/internal/testutil"
	"warbler/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newMessageService(t *testing.T) (*MessageService, *gorm.DB) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	return NewMessageService(repository.NewMessageRepository(db)), db
}

func TestMessageCreate(t *testing.T) {
	svc, db := newMessageService(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "testuser")

	msg, err := svc.Create(ctx, u.ID, validation.MessageInput{Text: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, msg.UserID)
	assert.False(t, msg.Timestamp.IsZero())
	assert.Equal(t, int64(1), testutil.Count(t, db, &models.Message{}))
}

func TestMessageCreate_Rejected(t *testing.T) {
	svc, db := newMessageService(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "testuser")

	_, err := svc.Create(ctx, 0, validation.MessageInput{Text: "Hello"})
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	_, err = svc.Create(ctx, u.ID, validation.MessageInput{Text: ""})
	assert.Equal(t, 400, models.StatusFor(err))

	_, err = svc.Create(ctx, u.ID, validation.MessageInput{Text: strings.Repeat("x", 141)})
	assert.Equal(t, 400, models.StatusFor(err))

	assert.Zero(t, testutil.Count(t, db, &models.Message{}))
}

func TestMessageDelete_OwnerOnly(t *testing.T) {
	svc, db := newMessageService(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")
	msg := testutil.CreateMessage(t, db, b.ID, "bob's message")
	testutil.Like(t, db, a.ID, msg.ID)

	assert.ErrorIs(t, svc.Delete(ctx, a.ID, msg.ID), models.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, 0, msg.ID), models.ErrUnauthenticated)
	assert.Equal(t, int64(1), testutil.Count(t, db, &models.Message{}))

	require.NoError(t, svc.Delete(ctx, b.ID, msg.ID))
	assert.Zero(t, testutil.Count(t, db, &models.Message{}))
	assert.Zero(t, testutil.Count(t, db, &models.Like{}))

	assert.Equal(t, 404, models.StatusFor(svc.Delete(ctx, b.ID, msg.ID)))
}

func TestMessageGetAndTimeline(t *testing.T) {
	svc, db := newMessageService(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")
	c := testutil.CreateUser(t, db, "carol")
	testutil.Follow(t, db, a.ID, b.ID)

	own := testutil.CreateMessage(t, db, a.ID, "mine")
	followed := testutil.CreateMessage(t, db, b.ID, "bob's")
	testutil.CreateMessage(t, db, c.ID, "carol's")
	testutil.Like(t, db, a.ID, followed.ID)

	msgs, err := svc.Timeline(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, followed.ID, msgs[0].ID)
	assert.True(t, msgs[0].Liked)
	assert.Equal(t, int64(1), msgs[0].LikesCount)
	assert.Equal(t, own.ID, msgs[1].ID)

	got, err := svc.Get(ctx, followed.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.User.Username)
	assert.False(t, got.Liked)
	assert.Equal(t, int64(1), got.LikesCount)
}
