package database

import (
	"fmt"

	"intake-chat/internal/domain/conversation"
	"intake-chat/internal/domain/message"
	"intake-chat/internal/domain/notification"
	"intake-chat/internal/domain/practice"
)

// Migrate brings the schema up to date for every entity the service owns.
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not connected")
	}
	return DB.AutoMigrate(
		&conversation.Conversation{},
		&conversation.Participant{},
		&conversation.ConversationSequence{},
		&message.Message{},
		&message.MessageReaction{},
		&notification.UnreadCounter{},
		&practice.Member{},
	)
}
