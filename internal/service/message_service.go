package service

import (
	"context"

	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
	"warbler/internal/validation"
)

// MessageService creates, reads and deletes messages.
type MessageService struct {
	messageRepo repository.MessageRepository
}

// NewMessageService returns a new MessageService.
func NewMessageService(messageRepo repository.MessageRepository) *MessageService {
	return &MessageService{messageRepo: messageRepo}
}

// Create posts a message owned by authorID. Any owner in the input is ignored.
func (s *MessageService) Create(ctx context.Context, authorID uint, in validation.MessageInput) (*models.Message, error) {
	if authorID == 0 {
		return nil, models.ErrUnauthenticated
	}
	span, ctx := observability.StartServiceSpan(ctx, "MessageService", "Create")
	defer span.End()

	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	msg := &models.Message{Text: in.Text, UserID: authorID}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		span.SetError(err)
		return nil, err
	}
	observability.MessagesPosted.Inc()
	return msg, nil
}

// Get returns the message annotated for viewerID (0 for anonymous).
func (s *MessageService) Get(ctx context.Context, id, viewerID uint) (*models.Message, error) {
	msg, err := s.messageRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	msgs := []models.Message{*msg}
	if err := s.messageRepo.AnnotateLikes(ctx, msgs, viewerID); err != nil {
		return nil, err
	}
	return &msgs[0], nil
}

// Delete removes the message when actorID owns it.
func (s *MessageService) Delete(ctx context.Context, actorID, id uint) error {
	if actorID == 0 {
		return models.ErrUnauthenticated
	}
	msg, err := s.messageRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if msg.UserID != actorID {
		return models.ErrForbidden
	}
	return s.messageRepo.Delete(ctx, id)
}

// ListByUser returns a page of the user's messages annotated for viewerID.
func (s *MessageService) ListByUser(ctx context.Context, userID, viewerID uint, limit, offset int) ([]models.Message, error) {
	msgs, err := s.messageRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	if err := s.messageRepo.AnnotateLikes(ctx, msgs, viewerID); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Timeline returns the newest messages by userID and the users they follow.
func (s *MessageService) Timeline(ctx context.Context, userID uint) ([]models.Message, error) {
	msgs, err := s.messageRepo.Timeline(ctx, userID, repository.MaxTimelineSize)
	if err != nil {
		return nil, err
	}
	if err := s.messageRepo.AnnotateLikes(ctx, msgs, userID); err != nil {
		return nil, err
	}
	return msgs, nil
}
