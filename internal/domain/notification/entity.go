package notification

import (
	"time"

	"github.com/google/uuid"
)

// UnreadCounter represents unread_counters, one row per (user, category).
// Category is typically a conversation id. Count never goes negative.
type UnreadCounter struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Category  string    `gorm:"primaryKey"`
	Count     int64
	UpdatedAt time.Time
}

func (UnreadCounter) TableName() string {
	return "unread_counters"
}
