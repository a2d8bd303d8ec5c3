package repository

import (
	"context"
	"errors"
	"time"

	"intake-chat/internal/domain/message"
	intake_errors "intake-chat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, m *message.Message) error {
	res := r.db.WithContext(ctx).Create(m)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return intake_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	var m message.Message
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Message{}, intake_errors.ErrNotFound
		}
		return message.Message{}, err
	}
	return m, nil
}

func (r *PostgresMessageRepository) GetConversationMessages(ctx context.Context, conversationID uuid.UUID, afterSeq int64, limit int) ([]message.Message, error) {
	var messages []message.Message
	q := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID)

	if afterSeq > 0 {
		q = q.Where("seq_id > ?", afterSeq)
	}

	err := q.Order("seq_id ASC").Limit(limit).Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *PostgresMessageRepository) UpsertReaction(ctx context.Context, reaction *message.MessageReaction) error {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "message_id"},
				{Name: "user_id"},
				{Name: "emoji"},
			},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"updated_at": time.Now(),
			}),
		}).
		Create(reaction)
	return res.Error
}

func (r *PostgresMessageRepository) RemoveReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) error {
	res := r.db.WithContext(ctx).
		Delete(&message.MessageReaction{}, "message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return intake_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresMessageRepository) GetMessageReactions(ctx context.Context, messageID uuid.UUID) ([]message.MessageReaction, error) {
	var reactions []message.MessageReaction
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at ASC").
		Find(&reactions).Error
	if err != nil {
		return nil, err
	}
	return reactions, nil
}

func (r *PostgresMessageRepository) GetUserReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (message.MessageReaction, error) {
	var reaction message.MessageReaction
	err := r.db.WithContext(ctx).
		Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
		First(&reaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.MessageReaction{}, intake_errors.ErrNotFound
		}
		return message.MessageReaction{}, err
	}
	return reaction, nil
}
