package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"intake-chat/internal/domain/conversation"
	"intake-chat/internal/domain/message"
	"intake-chat/internal/repository"
	intake_errors "intake-chat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultMaxContentBytes = 16384

// AppendMessageInput carries everything needed to append one message.
// SenderID is null for system-authored messages.
type AppendMessageInput struct {
	ConversationID uuid.UUID
	SenderID       uuid.NullUUID
	Role           string
	Content        string
	ReplyToMsgID   uuid.NullUUID
	Metadata       string
}

type MessageService struct {
	db               *gorm.DB
	messageRepo      repository.MessageRepository
	conversationRepo repository.ConversationRepository
	maxContentBytes  int
}

func NewMessageService(db *gorm.DB, messageRepo repository.MessageRepository, conversationRepo repository.ConversationRepository, maxContentBytes int) *MessageService {
	if maxContentBytes <= 0 {
		maxContentBytes = DefaultMaxContentBytes
	}
	return &MessageService{
		db:               db,
		messageRepo:      messageRepo,
		conversationRepo: conversationRepo,
		maxContentBytes:  maxContentBytes,
	}
}

// Append validates and persists one message, assigning its id, timestamp and
// per-conversation sequence. All socket and REST writes land here, so a
// single code path enforces the append-only invariants.
func (s *MessageService) Append(ctx context.Context, in AppendMessageInput) (message.Message, error) {
	if err := s.validate(in); err != nil {
		return message.Message{}, err
	}

	if s.db == nil {
		return s.appendDirect(ctx, s.messageRepo, s.conversationRepo, in)
	}

	var result message.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msgRepo := repository.NewMessageRepository(tx)
		convRepo := repository.NewConversationRepository(tx)
		res, err := s.appendDirect(ctx, msgRepo, convRepo, in)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return message.Message{}, err
	}
	return result, nil
}

func (s *MessageService) validate(in AppendMessageInput) error {
	if strings.TrimSpace(in.Content) == "" {
		return intake_errors.ErrInvalidInput
	}
	if len(in.Content) > s.maxContentBytes {
		return intake_errors.ErrTooLarge
	}
	if !message.ValidRole(in.Role) {
		return intake_errors.ErrInvalidInput
	}
	return nil
}

func (s *MessageService) appendDirect(ctx context.Context, msgRepo repository.MessageRepository, convRepo repository.ConversationRepository, in AppendMessageInput) (message.Message, error) {
	conv, err := convRepo.GetByID(ctx, in.ConversationID)
	if err != nil {
		return message.Message{}, err
	}
	if conv.Status != conversation.StatusActive {
		return message.Message{}, intake_errors.ErrConversationClosed
	}

	// A reply must target a message that already exists in this conversation.
	if in.ReplyToMsgID.Valid {
		parent, err := msgRepo.GetByID(ctx, in.ReplyToMsgID.UUID)
		if err != nil {
			return message.Message{}, err
		}
		if parent.ConversationID != in.ConversationID {
			return message.Message{}, intake_errors.ErrNotFound
		}
	}

	seq, err := convRepo.IncrementSequence(ctx, in.ConversationID)
	if err != nil {
		return message.Message{}, err
	}

	metadata := in.Metadata
	if metadata == "" {
		metadata = "{}"
	}

	now := time.Now()
	msg := message.Message{
		ID:             uuid.New(),
		ConversationID: in.ConversationID,
		SeqID:          seq,
		SenderID:       in.SenderID,
		Role:           in.Role,
		Content:        in.Content,
		ReplyToMsgID:   in.ReplyToMsgID,
		Metadata:       metadata,
		CreatedAt:      now,
	}
	if err := msgRepo.Create(ctx, &msg); err != nil {
		return message.Message{}, err
	}

	if err := convRepo.TouchLastMessage(ctx, in.ConversationID, now); err != nil {
		return message.Message{}, err
	}
	return msg, nil
}

// List returns messages in creation order using an opaque sequence cursor.
func (s *MessageService) List(ctx context.Context, conversationID uuid.UUID, cursor string, limit int) ([]message.Message, string, error) {
	afterSeq, err := DecodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	if limit <= 0 {
		limit = 50
	}

	messages, err := s.messageRepo.GetConversationMessages(ctx, conversationID, afterSeq, limit)
	if err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(messages) == limit {
		nextCursor = EncodeCursor(messages[len(messages)-1].SeqID)
	}
	return messages, nextCursor, nil
}

func (s *MessageService) GetByID(ctx context.Context, messageID uuid.UUID) (message.Message, error) {
	return s.messageRepo.GetByID(ctx, messageID)
}

// ToggleReaction flips the (message, user, emoji) triple: absent becomes
// present, present is retracted. The message must belong to the given
// conversation. Returns the message's reaction set after the change and
// whether the reaction is now present.
func (s *MessageService) ToggleReaction(ctx context.Context, conversationID, messageID, userID uuid.UUID, emoji string) ([]message.MessageReaction, bool, error) {
	if emoji == "" || utf8.RuneCountInString(emoji) > 8 {
		return nil, false, intake_errors.ErrInvalidInput
	}

	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, false, err
	}
	if msg.ConversationID != conversationID {
		return nil, false, intake_errors.ErrNotFound
	}

	added := false
	_, err = s.messageRepo.GetUserReaction(ctx, msg.ID, userID, emoji)
	switch {
	case err == nil:
		if err := s.messageRepo.RemoveReaction(ctx, msg.ID, userID, emoji); err != nil && !errors.Is(err, intake_errors.ErrNotFound) {
			return nil, false, err
		}
	case errors.Is(err, intake_errors.ErrNotFound):
		now := time.Now()
		reaction := &message.MessageReaction{
			MessageID: msg.ID,
			UserID:    userID,
			Emoji:     emoji,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.messageRepo.UpsertReaction(ctx, reaction); err != nil {
			return nil, false, err
		}
		added = true
	default:
		return nil, false, err
	}

	reactions, err := s.messageRepo.GetMessageReactions(ctx, msg.ID)
	if err != nil {
		return nil, false, err
	}
	return reactions, added, nil
}

func (s *MessageService) GetMessageReactions(ctx context.Context, messageID uuid.UUID) ([]message.MessageReaction, error) {
	return s.messageRepo.GetMessageReactions(ctx, messageID)
}
