package httpdto

import (
	"encoding/json"
	"time"

	"intake-chat/internal/domain/conversation"
)

type ConversationResponse struct {
	ID            string                `json:"id"`
	PracticeID    string                `json:"practiceId"`
	Status        string                `json:"status"`
	CreatedBy     *string               `json:"createdBy,omitempty"`
	Metadata      json.RawMessage       `json:"metadata,omitempty"`
	LastMessageAt *time.Time            `json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time             `json:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
	Participants  []ParticipantResponse `json:"participants,omitempty"`
}

type ParticipantResponse struct {
	UserID   string    `json:"userId"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

func FromConversation(c conversation.Conversation) ConversationResponse {
	resp := ConversationResponse{
		ID:         c.ID.String(),
		PracticeID: c.PracticeID.String(),
		Status:     c.Status,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
	if c.CreatedBy.Valid {
		creator := c.CreatedBy.UUID.String()
		resp.CreatedBy = &creator
	}
	if c.Metadata != "" {
		resp.Metadata = json.RawMessage(c.Metadata)
	}
	if c.LastMessageAt.Valid {
		at := c.LastMessageAt.Time
		resp.LastMessageAt = &at
	}
	for _, p := range c.Participants {
		resp.Participants = append(resp.Participants, FromParticipant(p))
	}
	return resp
}

func FromParticipant(p conversation.Participant) ParticipantResponse {
	return ParticipantResponse{
		UserID:   p.UserID.String(),
		Role:     p.Role,
		JoinedAt: p.JoinedAt,
	}
}

type CreateConversationRequest struct {
	PracticeID string `json:"practiceId" binding:"required"`
}

type UpdateConversationRequest struct {
	Status   string          `json:"status,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type AddParticipantsRequest struct {
	UserIDs []string `json:"userIds" binding:"required,min=1"`
}

// ConversationDetail bundles a conversation with a page of its history for
// the read fallback endpoint.
type ConversationDetail struct {
	Conversation ConversationResponse `json:"conversation"`
	Messages     []MessageResponse    `json:"messages"`
	NextCursor   string               `json:"nextCursor,omitempty"`
}
