package server

import (
	"encoding/json"
	"errors"

	intake_errors "intake-chat/pkg/errors"
)

// ProtocolVersion is the single frame protocol version this server speaks.
const ProtocolVersion = 1

// Frame is one discrete JSON message on the socket, in either direction.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client-to-server frame types
const (
	FrameAuth           = "auth"
	FrameMessageSend    = "message.send"
	FrameReactionToggle = "reaction.toggle"
	FrameMarkRead       = "mark.read"
	FramePing           = "ping"
)

// Server-to-client frame types
const (
	FrameAuthOK          = "auth.ok"
	FrameAuthError       = "auth.error"
	FrameMessageNew      = "message.new"
	FrameReactionUpdated = "reaction.updated"
	FrameUnreadUpdated   = "unread.updated"
	FrameError           = "error"
	FramePong            = "pong"
)

// AuthPayload opens the handshake. Its fields are snake_case on the wire,
// unlike every other frame; clients already speak it that way. The token is
// optional when credentials were already presented on the upgrade request.
type AuthPayload struct {
	ProtocolVersion int               `json:"protocol_version"`
	Token           string            `json:"token,omitempty"`
	ClientInfo      map[string]string `json:"client_info,omitempty"`
}

type AuthOKPayload struct {
	UserID    string `json:"userId"`
	Anonymous bool   `json:"anonymous,omitempty"`
}

type MessageSendPayload struct {
	Content          string `json:"content"`
	ReplyToMessageID string `json:"replyToMessageId,omitempty"`
}

type ReactionTogglePayload struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
}

type MarkReadPayload struct {
	Category string `json:"category"`
}

type ReactionUpdatedPayload struct {
	MessageID string      `json:"messageId"`
	Reactions interface{} `json:"reactions"`
}

type UnreadUpdatedPayload struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// ErrorPayload is carried by both error and auth.error frames. Clients key
// off reason; code is a machine-readable extension.
type ErrorPayload struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// Error codes surfaced to clients
const (
	CodeAuth               = "AUTH"
	CodeProtocol           = "PROTOCOL"
	CodeNotFound           = "NOT_FOUND"
	CodeValidation         = "VALIDATION"
	CodeRateLimited        = "RATE_LIMITED"
	CodeConversationClosed = "CONVERSATION_CLOSED"
	CodeStorage            = "STORAGE"
)

// encodeFrame marshals a complete outbound frame. The payload types are all
// our own structs, so a marshal failure is a programming error.
func encodeFrame(frameType string, data interface{}) []byte {
	var raw json.RawMessage
	if data != nil {
		raw, _ = json.Marshal(data)
	}
	out, _ := json.Marshal(Frame{Type: frameType, Data: raw})
	return out
}

// decodeFrame parses one inbound frame. Anything that is not a JSON object
// with a non-empty type is a protocol violation.
func decodeFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, intake_errors.ErrProtocol
	}
	if f.Type == "" {
		return Frame{}, intake_errors.ErrProtocol
	}
	return f, nil
}

// errorCode maps internal errors onto the wire-level error taxonomy.
func errorCode(err error) string {
	switch {
	case errors.Is(err, intake_errors.ErrUnauthorized), errors.Is(err, intake_errors.ErrForbidden):
		return CodeAuth
	case errors.Is(err, intake_errors.ErrProtocol):
		return CodeProtocol
	case errors.Is(err, intake_errors.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, intake_errors.ErrInvalidInput), errors.Is(err, intake_errors.ErrTooLarge):
		return CodeValidation
	case errors.Is(err, intake_errors.ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, intake_errors.ErrConversationClosed):
		return CodeConversationClosed
	default:
		return CodeStorage
	}
}
