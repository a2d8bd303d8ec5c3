package conversation

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Conversation status values
const (
	StatusActive   = "ACTIVE"
	StatusArchived = "ARCHIVED"
	StatusClosed   = "CLOSED"
)

// Participant roles
const (
	RoleClient = "CLIENT"
	RoleStaff  = "STAFF"
)

// Conversation represents the conversations table. A conversation is never
// hard-deleted; it is archived or closed instead.
type Conversation struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	PracticeID    uuid.UUID `gorm:"type:uuid;index"`
	Status        string
	CreatedBy     uuid.NullUUID
	Metadata      string `gorm:"type:jsonb;default:'{}'"`
	LastMessageAt sql.NullTime
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Participants  []Participant `gorm:"foreignKey:ConversationID"`
}

// Participant represents conversation_participants. Participants may be
// added but never removed.
type Participant struct {
	ConversationID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Role           string
	JoinedAt       time.Time
}

// ConversationSequence represents conversation_sequences. The per-conversation
// counter is bumped inside the append transaction, which both orders messages
// and serializes concurrent writers on the same conversation.
type ConversationSequence struct {
	ConversationID uuid.UUID `gorm:"type:uuid;primaryKey"`
	LastSequence   int64
	UpdatedAt      time.Time
}

func (Conversation) TableName() string {
	return "conversations"
}

func (Participant) TableName() string {
	return "conversation_participants"
}

func (ConversationSequence) TableName() string {
	return "conversation_sequences"
}

// ValidStatus reports whether s is a recognized conversation status.
func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusArchived, StatusClosed:
		return true
	}
	return false
}
