package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"casecounsel/internal/cache"
	"casecounsel/internal/model"
	"casecounsel/internal/repository"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("user is not a participant in this conversation")
)

// AsyncMessagePublisher hands a message to the durable queue; the persist
// worker writes it to the database out of band.
type AsyncMessagePublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

type MessagingService struct {
	conversationRepo *repository.ConversationRepository
	messageRepo      *repository.MessageRepository
	lawyerRepo       *repository.LawyerRepository
	publisher        AsyncMessagePublisher
	threadCache      *cache.ThreadCache
}

func NewMessagingService(
	conversationRepo *repository.ConversationRepository,
	messageRepo *repository.MessageRepository,
	lawyerRepo *repository.LawyerRepository,
	publisher AsyncMessagePublisher,
	threadCache *cache.ThreadCache,
) *MessagingService {
	return &MessagingService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		lawyerRepo:       lawyerRepo,
		publisher:        publisher,
		threadCache:      threadCache,
	}
}

// StartConversation opens (or reuses) the thread between a client and a
// lawyer profile.
func (s *MessagingService) StartConversation(clientID, lawyerID uint) (*model.Conversation, error) {
	if clientID == 0 || lawyerID == 0 {
		return nil, ErrInvalidInput
	}
	lawyer, err := s.lawyerRepo.GetByID(lawyerID)
	if err != nil {
		return nil, err
	}
	if lawyer == nil {
		return nil, ErrLawyerNotFound
	}
	if lawyer.UserID == clientID {
		return nil, ErrInvalidInput
	}
	return s.conversationRepo.GetOrCreate(clientID, lawyer.UserID)
}

// SendMessage queues the message for asynchronous persistence and marks
// the thread dirty so history reads fall back to the database until the
// worker catches up.
func (s *MessagingService) SendMessage(ctx context.Context, senderID, conversationID uint, body string) (*model.Message, error) {
	body = strings.TrimSpace(body)
	if senderID == 0 || conversationID == 0 || body == "" {
		return nil, ErrInvalidInput
	}

	conv, err := s.conversationRepo.GetByID(conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	if conv.ClientID != senderID && conv.LawyerID != senderID {
		return nil, ErrNotParticipant
	}

	msg := model.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
	}
	msg.CreatedAt = time.Now()

	if err := s.publisher.Publish(ctx, msg); err != nil {
		return nil, err
	}

	// Cache invalidation is best effort; a stale entry expires on its own.
	_ = s.threadCache.DeleteHistory(ctx, conversationID)
	_ = s.threadCache.MarkDirty(ctx, conversationID)

	return &msg, nil
}

// History reads the thread cache-aside. While the dirty marker is set the
// database is read directly and the result is not cached.
func (s *MessagingService) History(ctx context.Context, userID, conversationID uint, limit int) ([]model.Message, error) {
	if userID == 0 || conversationID == 0 {
		return nil, ErrInvalidInput
	}

	conv, err := s.conversationRepo.GetByID(conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	if conv.ClientID != userID && conv.LawyerID != userID {
		return nil, ErrNotParticipant
	}

	dirty, err := s.threadCache.IsDirty(ctx, conversationID)
	if err != nil {
		dirty = true
	}
	if dirty {
		return s.messageRepo.ListByConversationID(conversationID, limit)
	}

	if cached, ok, err := s.threadCache.GetHistory(ctx, conversationID); err == nil && ok {
		return cached, nil
	}

	messages, err := s.messageRepo.ListByConversationID(conversationID, limit)
	if err != nil {
		return nil, err
	}
	_ = s.threadCache.SetHistory(ctx, conversationID, messages)
	return messages, nil
}

func (s *MessagingService) ListConversations(userID uint) ([]model.Conversation, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.conversationRepo.ListByUserID(userID)
}
