package database

import (
	"fmt"
	"log"
	"time"

	"intake-chat/internal/domain/conversation"
	"intake-chat/internal/domain/message"
	"intake-chat/internal/domain/practice"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedConfig holds configuration for seeding a development database.
type SeedConfig struct {
	PracticeID  uuid.UUID
	StaffCount  int
	ClientCount int
}

func DefaultSeedConfig() *SeedConfig {
	return &SeedConfig{
		PracticeID:  uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		StaffCount:  2,
		ClientCount: 3,
	}
}

// SeedResult reports what the seeding produced.
type SeedResult struct {
	PracticeID    uuid.UUID
	StaffIDs      []uuid.UUID
	ClientIDs     []uuid.UUID
	Conversations []conversation.Conversation
}

// Seed populates a development database with one practice, staff members
// and an intake conversation per client. Idempotent per run only; rerunning
// adds fresh clients.
func Seed(cfg *SeedConfig) (*SeedResult, error) {
	if cfg == nil {
		cfg = DefaultSeedConfig()
	}
	if DB == nil {
		return nil, fmt.Errorf("database not connected")
	}

	result := &SeedResult{PracticeID: cfg.PracticeID}
	now := time.Now()

	log.Println("Starting database seeding...")

	for i := 0; i < cfg.StaffCount; i++ {
		role := practice.RoleLawyer
		if i == 0 {
			role = practice.RoleOwner
		}
		member := practice.Member{
			PracticeID: cfg.PracticeID,
			UserID:     uuid.New(),
			Role:       role,
			CreatedAt:  now,
		}
		if err := DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error; err != nil {
			return nil, fmt.Errorf("failed to seed staff member: %w", err)
		}
		result.StaffIDs = append(result.StaffIDs, member.UserID)
	}

	for i := 0; i < cfg.ClientCount; i++ {
		clientID := uuid.New()
		result.ClientIDs = append(result.ClientIDs, clientID)

		conv, err := seedConversation(cfg.PracticeID, clientID, result.StaffIDs, now)
		if err != nil {
			return nil, err
		}
		result.Conversations = append(result.Conversations, conv)
	}

	log.Printf("Seeded practice %s with %d staff and %d conversations",
		cfg.PracticeID, len(result.StaffIDs), len(result.Conversations))
	return result, nil
}

func seedConversation(practiceID, clientID uuid.UUID, staffIDs []uuid.UUID, now time.Time) (conversation.Conversation, error) {
	conv := conversation.Conversation{
		ID:         uuid.New(),
		PracticeID: practiceID,
		Status:     conversation.StatusActive,
		CreatedBy:  uuid.NullUUID{UUID: clientID, Valid: true},
		Metadata:   `{"source":"seed"}`,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	sampleMessages := []string{
		"Hi, I need help with a contract dispute.",
		"Thanks for reaching out. Could you describe what happened?",
		"My landlord is withholding my deposit without cause.",
	}

	err := DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&conv).Error; err != nil {
			return err
		}

		participants := []conversation.Participant{
			{ConversationID: conv.ID, UserID: clientID, Role: conversation.RoleClient, JoinedAt: now},
		}
		if len(staffIDs) > 0 {
			participants = append(participants, conversation.Participant{
				ConversationID: conv.ID,
				UserID:         staffIDs[0],
				Role:           conversation.RoleStaff,
				JoinedAt:       now,
			})
		}
		if err := tx.Create(&participants).Error; err != nil {
			return err
		}

		seq := conversation.ConversationSequence{ConversationID: conv.ID, UpdatedAt: now}
		if err := tx.Create(&seq).Error; err != nil {
			return err
		}

		for i, content := range sampleMessages {
			sender := clientID
			if i%2 == 1 && len(staffIDs) > 0 {
				sender = staffIDs[0]
			}
			msg := message.Message{
				ID:             uuid.New(),
				ConversationID: conv.ID,
				SeqID:          int64(i + 1),
				SenderID:       uuid.NullUUID{UUID: sender, Valid: true},
				Role:           message.RoleUser,
				Content:        content,
				Metadata:       "{}",
				CreatedAt:      now.Add(time.Duration(i) * time.Minute),
			}
			if err := tx.Create(&msg).Error; err != nil {
				return err
			}
		}

		return tx.Model(&conversation.ConversationSequence{}).
			Where("conversation_id = ?", conv.ID).
			Updates(map[string]interface{}{
				"last_sequence": int64(len(sampleMessages)),
				"updated_at":    now,
			}).Error
	})
	if err != nil {
		return conversation.Conversation{}, fmt.Errorf("failed to seed conversation: %w", err)
	}
	return conv, nil
}
