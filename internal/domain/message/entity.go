package message

import (
	"time"

	"github.com/google/uuid"
)

// Sender roles
const (
	RoleUser      = "USER"
	RoleSystem    = "SYSTEM"
	RoleAssistant = "ASSISTANT"
)

// Message represents the messages table. Messages are append-only; reactions
// are a separate entity, not message mutation.
type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConversationID uuid.UUID `gorm:"type:uuid;index:idx_messages_conversation_seq,priority:1"`
	SeqID          int64     `gorm:"index:idx_messages_conversation_seq,priority:2"`
	SenderID       uuid.NullUUID
	Role           string
	Content        string
	ReplyToMsgID   uuid.NullUUID `gorm:"column:reply_to_message_id;index"`
	Metadata       string        `gorm:"type:jsonb;default:'{}'"`
	CreatedAt      time.Time
}

// MessageReaction represents message_reactions, keyed by
// (message_id, user_id, emoji). Re-sending the same triple is an upsert.
type MessageReaction struct {
	MessageID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Emoji     string    `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Message) TableName() string {
	return "messages"
}

func (MessageReaction) TableName() string {
	return "message_reactions"
}

// ValidRole reports whether r is a recognized sender role.
func ValidRole(r string) bool {
	switch r {
	case RoleUser, RoleSystem, RoleAssistant:
		return true
	}
	return false
}
