package server

import (
	"context"
	"time"

	"intake-chat/internal/domain/conversation"
	"intake-chat/internal/domain/message"
	"intake-chat/internal/domain/notification"
	"intake-chat/internal/redis"
	"intake-chat/internal/services"

	"github.com/google/uuid"
)

// The hubs consume their collaborators through narrow interfaces so tests
// can run them against in-memory fakes. The services package provides the
// production implementations.

// AuthResolver turns presented credentials into an identity and authorizes
// it against a conversation.
type AuthResolver interface {
	ResolveIdentity(ctx context.Context, credentials services.Credentials) (services.Identity, error)
	Authorize(ctx context.Context, conversationID, userID uuid.UUID) error
}

// MessageStore appends messages and toggles reactions.
type MessageStore interface {
	Append(ctx context.Context, in services.AppendMessageInput) (message.Message, error)
	ToggleReaction(ctx context.Context, conversationID, messageID, userID uuid.UUID, emoji string) ([]message.MessageReaction, bool, error)
}

// ConversationDirectory looks up conversations and their participants.
type ConversationDirectory interface {
	GetByID(ctx context.Context, conversationID uuid.UUID) (conversation.Conversation, error)
	GetParticipants(ctx context.Context, conversationID uuid.UUID) ([]conversation.Participant, error)
}

// UnreadCounterStore persists per-user unread counters.
type UnreadCounterStore interface {
	IncrementUnread(ctx context.Context, userID uuid.UUID, category string, delta int64) (int64, error)
	MarkRead(ctx context.Context, userID uuid.UUID, category string) error
	Counters(ctx context.Context, userID uuid.UUID) ([]notification.UnreadCounter, error)
}

// MessageLimiter gates message sends per user.
type MessageLimiter interface {
	AllowMessage(ctx context.Context, userID string) (*redis.RateLimitResult, error)
}

// OfflineNotifier records unread activity for participants without a live
// connection. Best effort; never blocks the message path.
type OfflineNotifier interface {
	NotifyUnread(userID uuid.UUID, category string)
}

// HubConfig carries the per-hub tunables.
type HubConfig struct {
	// HandshakeWindow bounds how long a connection may sit unauthenticated.
	HandshakeWindow time.Duration
	// IdleWindow is the pong deadline for established connections.
	IdleWindow time.Duration
	// MaxMessageBytes caps a single inbound frame.
	MaxMessageBytes int64
	// EvictAfter is how long an empty hub lingers before shutting down.
	EvictAfter time.Duration
}

func DefaultHubConfig() HubConfig {
	return HubConfig{
		HandshakeWindow: 10 * time.Second,
		IdleWindow:      120 * time.Second,
		MaxMessageBytes: 16 * 1024,
		EvictAfter:      5 * time.Minute,
	}
}

// PresenceEntry records one authenticated connection in a hub.
type PresenceEntry struct {
	UserID    uuid.UUID
	Anonymous bool
	JoinedAt  time.Time
}

// Hub lifecycle events. Everything flows through one queue so a frame can
// never be processed ahead of its connection's registration.
type eventKind int

const (
	evRegister eventKind = iota
	evUnregister
	evTimeout
	evFrame
)

type hubEvent struct {
	kind   eventKind
	client *Client
	frame  Frame
}

// clientHost is the hub side of a connection's lifecycle.
type clientHost interface {
	deliver(c *Client, f Frame)
	disconnect(c *Client)
}

// stopTimer halts a timer and drains a pending fire.
func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
