package services

import (
	"context"
	"errors"
	"time"

	"intake-chat/internal/domain/conversation"
	"intake-chat/internal/repository"
	intake_errors "intake-chat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConversationService struct {
	db   *gorm.DB
	repo repository.ConversationRepository
}

func NewConversationService(db *gorm.DB, repo repository.ConversationRepository) *ConversationService {
	return &ConversationService{db: db, repo: repo}
}

// GetOrCreate returns the existing conversation for a (practice, user) pair
// or lazily creates one with the user as its first participant.
func (s *ConversationService) GetOrCreate(ctx context.Context, practiceID, userID uuid.UUID) (conversation.Conversation, error) {
	conv, err := s.repo.GetByPracticeAndUser(ctx, practiceID, userID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, intake_errors.ErrNotFound) {
		return conversation.Conversation{}, err
	}

	now := time.Now()
	conv = conversation.Conversation{
		ID:         uuid.New(),
		PracticeID: practiceID,
		Status:     conversation.StatusActive,
		CreatedBy:  uuid.NullUUID{UUID: userID, Valid: true},
		Metadata:   "{}",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, &conv); err != nil {
		return conversation.Conversation{}, err
	}

	p := &conversation.Participant{
		ConversationID: conv.ID,
		UserID:         userID,
		Role:           conversation.RoleClient,
		JoinedAt:       now,
	}
	if err := s.repo.AddParticipant(ctx, p); err != nil && !errors.Is(err, intake_errors.ErrAlreadyExists) {
		return conversation.Conversation{}, err
	}
	conv.Participants = []conversation.Participant{*p}
	return conv, nil
}

func (s *ConversationService) GetByID(ctx context.Context, conversationID uuid.UUID) (conversation.Conversation, error) {
	return s.repo.GetByID(ctx, conversationID)
}

// UpdateStatus transitions a conversation between active, archived and
// closed. Conversations are never deleted.
func (s *ConversationService) UpdateStatus(ctx context.Context, conversationID uuid.UUID, status string) error {
	if !conversation.ValidStatus(status) {
		return intake_errors.ErrInvalidInput
	}
	return s.repo.UpdateStatus(ctx, conversationID, status)
}

func (s *ConversationService) UpdateMetadata(ctx context.Context, conversationID uuid.UUID, metadata string) error {
	if metadata == "" {
		metadata = "{}"
	}
	return s.repo.UpdateMetadata(ctx, conversationID, metadata)
}

// AddParticipants adds users to a conversation. The actor must be a member
// of the owning practice or an existing participant. Adding an existing
// participant is a no-op.
func (s *ConversationService) AddParticipants(ctx context.Context, conversationID uuid.UUID, actorID uuid.UUID, userIDs []uuid.UUID) error {
	conv, err := s.repo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}

	allowed, err := s.repo.IsPracticeMember(ctx, conv.PracticeID, actorID)
	if err != nil {
		return err
	}
	if !allowed {
		allowed, err = s.repo.IsParticipant(ctx, conversationID, actorID)
		if err != nil {
			return err
		}
	}
	if !allowed {
		return intake_errors.ErrForbidden
	}

	for _, userID := range userIDs {
		role := conversation.RoleClient
		if member, err := s.repo.IsPracticeMember(ctx, conv.PracticeID, userID); err == nil && member {
			role = conversation.RoleStaff
		}
		p := &conversation.Participant{
			ConversationID: conversationID,
			UserID:         userID,
			Role:           role,
			JoinedAt:       time.Now(),
		}
		if err := s.repo.AddParticipant(ctx, p); err != nil && !errors.Is(err, intake_errors.ErrAlreadyExists) {
			return err
		}
	}
	return nil
}

func (s *ConversationService) GetParticipants(ctx context.Context, conversationID uuid.UUID) ([]conversation.Participant, error) {
	return s.repo.GetParticipants(ctx, conversationID)
}

func (s *ConversationService) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	return s.repo.IsParticipant(ctx, conversationID, userID)
}
