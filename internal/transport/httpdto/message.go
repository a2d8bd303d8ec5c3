package httpdto

import (
	"encoding/json"
	"time"

	"intake-chat/internal/domain/message"
)

// MessageResponse is the wire shape of a message, shared by the REST
// surface and the message.new socket frame.
type MessageResponse struct {
	ID               string          `json:"id"`
	ConversationID   string          `json:"conversationId"`
	Seq              int64           `json:"seq"`
	SenderID         *string         `json:"senderId"`
	Role             string          `json:"role"`
	Content          string          `json:"content"`
	ReplyToMessageID *string         `json:"replyToMessageId,omitempty"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
}

func FromMessage(m message.Message) MessageResponse {
	resp := MessageResponse{
		ID:             m.ID.String(),
		ConversationID: m.ConversationID.String(),
		Seq:            m.SeqID,
		Role:           m.Role,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
	if m.SenderID.Valid {
		sender := m.SenderID.UUID.String()
		resp.SenderID = &sender
	}
	if m.ReplyToMsgID.Valid {
		parent := m.ReplyToMsgID.UUID.String()
		resp.ReplyToMessageID = &parent
	}
	if m.Metadata != "" {
		resp.Metadata = json.RawMessage(m.Metadata)
	}
	return resp
}

func FromMessages(msgs []message.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, FromMessage(m))
	}
	return out
}

// ReactionResponse is one row of a message's reaction set.
type ReactionResponse struct {
	MessageID string    `json:"messageId"`
	UserID    string    `json:"userId"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"createdAt"`
}

func FromReactions(reactions []message.MessageReaction) []ReactionResponse {
	out := make([]ReactionResponse, 0, len(reactions))
	for _, r := range reactions {
		out = append(out, ReactionResponse{
			MessageID: r.MessageID.String(),
			UserID:    r.UserID.String(),
			Emoji:     r.Emoji,
			CreatedAt: r.CreatedAt,
		})
	}
	return out
}

// MessagePage is a cursor-paginated slice of a conversation's history.
type MessagePage struct {
	Messages   []MessageResponse `json:"messages"`
	NextCursor string            `json:"nextCursor,omitempty"`
}
