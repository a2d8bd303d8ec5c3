package repository

import (
	"context"
	"time"

	"intake-chat/internal/domain/conversation"
	"intake-chat/internal/domain/message"
	"intake-chat/internal/domain/notification"

	"github.com/google/uuid"
)

// ConversationRepository owns conversations, participants, practice
// membership and the per-conversation sequence counter.
type ConversationRepository interface {
	Create(ctx context.Context, c *conversation.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error)
	GetByPracticeAndUser(ctx context.Context, practiceID, userID uuid.UUID) (conversation.Conversation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateMetadata(ctx context.Context, id uuid.UUID, metadata string) error
	TouchLastMessage(ctx context.Context, id uuid.UUID, at time.Time) error

	AddParticipant(ctx context.Context, p *conversation.Participant) error
	GetParticipants(ctx context.Context, conversationID uuid.UUID) ([]conversation.Participant, error)
	IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
	IsPracticeMember(ctx context.Context, practiceID, userID uuid.UUID) (bool, error)

	IncrementSequence(ctx context.Context, conversationID uuid.UUID) (int64, error)
}

// MessageRepository owns messages and reactions.
type MessageRepository interface {
	Create(ctx context.Context, m *message.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (message.Message, error)
	GetConversationMessages(ctx context.Context, conversationID uuid.UUID, afterSeq int64, limit int) ([]message.Message, error)

	UpsertReaction(ctx context.Context, r *message.MessageReaction) error
	RemoveReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) error
	GetMessageReactions(ctx context.Context, messageID uuid.UUID) ([]message.MessageReaction, error)
	GetUserReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (message.MessageReaction, error)
}

// NotificationRepository owns the persisted unread counters.
type NotificationRepository interface {
	IncrementUnread(ctx context.Context, userID uuid.UUID, category string, delta int64) (int64, error)
	ResetUnread(ctx context.Context, userID uuid.UUID, category string) error
	GetUnread(ctx context.Context, userID uuid.UUID) ([]notification.UnreadCounter, error)
	GetUnreadByCategory(ctx context.Context, userID uuid.UUID, category string) (int64, error)
}
