package repository

import (
	"context"
	"time"

	"intake-chat/internal/domain/conversation"
	"intake-chat/internal/domain/message"
	"intake-chat/internal/domain/notification"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) Create(ctx context.Context, c *conversation.Conversation) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(conversation.Conversation), args.Error(1)
}

func (m *MockConversationRepository) GetByPracticeAndUser(ctx context.Context, practiceID, userID uuid.UUID) (conversation.Conversation, error) {
	args := m.Called(ctx, practiceID, userID)
	return args.Get(0).(conversation.Conversation), args.Error(1)
}

func (m *MockConversationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockConversationRepository) UpdateMetadata(ctx context.Context, id uuid.UUID, metadata string) error {
	args := m.Called(ctx, id, metadata)
	return args.Error(0)
}

func (m *MockConversationRepository) TouchLastMessage(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockConversationRepository) AddParticipant(ctx context.Context, p *conversation.Participant) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockConversationRepository) GetParticipants(ctx context.Context, conversationID uuid.UUID) ([]conversation.Participant, error) {
	args := m.Called(ctx, conversationID)
	return args.Get(0).([]conversation.Participant), args.Error(1)
}

func (m *MockConversationRepository) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockConversationRepository) IsPracticeMember(ctx context.Context, practiceID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, practiceID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockConversationRepository) IncrementSequence(ctx context.Context, conversationID uuid.UUID) (int64, error) {
	args := m.Called(ctx, conversationID)
	return args.Get(0).(int64), args.Error(1)
}

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *message.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(message.Message), args.Error(1)
}

func (m *MockMessageRepository) GetConversationMessages(ctx context.Context, conversationID uuid.UUID, afterSeq int64, limit int) ([]message.Message, error) {
	args := m.Called(ctx, conversationID, afterSeq, limit)
	return args.Get(0).([]message.Message), args.Error(1)
}

func (m *MockMessageRepository) UpsertReaction(ctx context.Context, r *message.MessageReaction) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockMessageRepository) RemoveReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) error {
	args := m.Called(ctx, messageID, userID, emoji)
	return args.Error(0)
}

func (m *MockMessageRepository) GetMessageReactions(ctx context.Context, messageID uuid.UUID) ([]message.MessageReaction, error) {
	args := m.Called(ctx, messageID)
	return args.Get(0).([]message.MessageReaction), args.Error(1)
}

func (m *MockMessageRepository) GetUserReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (message.MessageReaction, error) {
	args := m.Called(ctx, messageID, userID, emoji)
	return args.Get(0).(message.MessageReaction), args.Error(1)
}

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) IncrementUnread(ctx context.Context, userID uuid.UUID, category string, delta int64) (int64, error) {
	args := m.Called(ctx, userID, category, delta)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) ResetUnread(ctx context.Context, userID uuid.UUID, category string) error {
	args := m.Called(ctx, userID, category)
	return args.Error(0)
}

func (m *MockNotificationRepository) GetUnread(ctx context.Context, userID uuid.UUID) ([]notification.UnreadCounter, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]notification.UnreadCounter), args.Error(1)
}

func (m *MockNotificationRepository) GetUnreadByCategory(ctx context.Context, userID uuid.UUID, category string) (int64, error) {
	args := m.Called(ctx, userID, category)
	return args.Get(0).(int64), args.Error(1)
}
