package service

import (
	"context"

	"warbler/internal/models"

	"github.com/stretchr/testify/mock"
)

type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	getByEmailFn    func(context.Context, string) (*models.User, error)
	createFn        func(context.Context, *models.User) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) UpdateProfile(context.Context, uint, func(*models.User) error) (*models.User, error) {
	panic("unexpected UpdateProfile")
}
func (s *userRepoStub) Delete(context.Context, uint) error { panic("unexpected Delete") }
func (s *userRepoStub) List(context.Context, string, int, int) ([]models.User, error) {
	return nil, nil
}
func (s *userRepoStub) ListFollowing(context.Context, uint) ([]models.User, error) { return nil, nil }
func (s *userRepoStub) ListFollowers(context.Context, uint) ([]models.User, error) { return nil, nil }
func (s *userRepoStub) Stats(context.Context, uint) (*models.UserStats, error) {
	return &models.UserStats{}, nil
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:       func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getByUsernameFn: func(context.Context, string) (*models.User, error) { return nil, nil },
		getByEmailFn:    func(context.Context, string) (*models.User, error) { return nil, nil },
		createFn:        func(context.Context, *models.User) error { return nil },
	}
}

// likeRepoMock is a testify mock of repository.LikeRepository.
type likeRepoMock struct {
	mock.Mock
}

func (m *likeRepoMock) Create(ctx context.Context, userID, messageID uint) (bool, error) {
	args := m.Called(ctx, userID, messageID)
	return args.Bool(0), args.Error(1)
}
func (m *likeRepoMock) Delete(ctx context.Context, userID, messageID uint) (bool, error) {
	args := m.Called(ctx, userID, messageID)
	return args.Bool(0), args.Error(1)
}
func (m *likeRepoMock) Exists(ctx context.Context, userID, messageID uint) (bool, error) {
	args := m.Called(ctx, userID, messageID)
	return args.Bool(0), args.Error(1)
}
func (m *likeRepoMock) CountForMessage(ctx context.Context, messageID uint) (int64, error) {
	args := m.Called(ctx, messageID)
	return args.Get(0).(int64), args.Error(1)
}

// messageRepoMock is a testify mock of repository.MessageRepository.
type messageRepoMock struct {
	mock.Mock
}

func (m *messageRepoMock) Create(ctx context.Context, msg *models.Message) error {
	return m.Called(ctx, msg).Error(0)
}
func (m *messageRepoMock) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	args := m.Called(ctx, id)
	msg, _ := args.Get(0).(*models.Message)
	return msg, args.Error(1)
}
func (m *messageRepoMock) Delete(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}
func (m *messageRepoMock) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Message, error) {
	args := m.Called(ctx, userID, limit, offset)
	msgs, _ := args.Get(0).([]models.Message)
	return msgs, args.Error(1)
}
func (m *messageRepoMock) Timeline(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	args := m.Called(ctx, userID, limit)
	msgs, _ := args.Get(0).([]models.Message)
	return msgs, args.Error(1)
}
func (m *messageRepoMock) ListLikedBy(ctx context.Context, userID uint) ([]models.Message, error) {
	args := m.Called(ctx, userID)
	msgs, _ := args.Get(0).([]models.Message)
	return msgs, args.Error(1)
}
func (m *messageRepoMock) AnnotateLikes(ctx context.Context, msgs []models.Message, viewerID uint) error {
	return m.Called(ctx, msgs, viewerID).Error(0)
}
