package server

import (
	"context"
	"sync"
	"time"

	intake_errors "intake-chat/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const notifyTimeout = 5 * time.Second

// Registry is the actor directory: at most one ConversationHub per
// conversation and one NotificationHub per user, created on demand and
// evicted once idle.
type Registry struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]*ConversationHub
	notifications map[uuid.UUID]*NotificationHub
	deps          HubDeps
	logger        *WebSocketLogger
	closed        bool
}

// HubDeps bundles everything the registry injects into the hubs it spawns.
type HubDeps struct {
	Auth          AuthResolver
	Messages      MessageStore
	Conversations ConversationDirectory
	Counters      UnreadCounterStore
	Limiter       MessageLimiter
	Config        HubConfig
}

func NewRegistry(deps HubDeps) *Registry {
	return &Registry{
		conversations: make(map[uuid.UUID]*ConversationHub),
		notifications: make(map[uuid.UUID]*NotificationHub),
		deps:          deps,
		logger:        NewWebSocketLogger(),
	}
}

func (r *Registry) Config() HubConfig {
	return r.deps.Config
}

// ConversationHub returns the live hub for a conversation, spawning it if
// needed. The conversation must exist; unknown ids never get an actor.
func (r *Registry) ConversationHub(ctx context.Context, conversationID uuid.UUID) (*ConversationHub, error) {
	if _, err := r.deps.Conversations.GetByID(ctx, conversationID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, intake_errors.ErrServiceUnavailable
	}

	if hub, ok := r.conversations[conversationID]; ok {
		return hub, nil
	}

	hub := NewConversationHub(
		conversationID,
		r.deps.Auth,
		r.deps.Messages,
		r.deps.Conversations,
		r,
		r.deps.Limiter,
		r.deps.Config,
	)
	hub.onIdle = func() { r.evictConversation(conversationID, hub) }
	r.conversations[conversationID] = hub
	go hub.Run()
	return hub, nil
}

// NotificationHub returns the live hub for a user, spawning it if needed.
func (r *Registry) NotificationHub(userID uuid.UUID) (*NotificationHub, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, intake_errors.ErrServiceUnavailable
	}

	if hub, ok := r.notifications[userID]; ok {
		return hub, nil
	}

	hub := NewNotificationHub(userID, r.deps.Auth, r.deps.Counters, r.deps.Config)
	hub.onIdle = func() { r.evictNotification(userID, hub) }
	r.notifications[userID] = hub
	go hub.Run()
	return hub, nil
}

func (r *Registry) liveNotificationHub(userID uuid.UUID) *NotificationHub {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notifications[userID]
}

// NotifyUnread asynchronously bumps a user's unread counter. The counter
// write is durable whether or not the user has a hub; the unread.updated
// frame goes out only when they do. At-most-once, never on the send path.
func (r *Registry) NotifyUnread(userID uuid.UUID, category string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if hub := r.liveNotificationHub(userID); hub != nil {
			if _, err := hub.PushUnreadDelta(ctx, category, 1); err != nil {
				r.logger.Warn("unread push failed", "", zap.String("user_id", userID.String()), zap.Error(err))
			}
			return
		}

		if _, err := r.deps.Counters.IncrementUnread(ctx, userID, category, 1); err != nil {
			r.logger.Warn("unread increment failed", "", zap.String("user_id", userID.String()), zap.Error(err))
		}
	}()
}

func (r *Registry) evictConversation(conversationID uuid.UUID, hub *ConversationHub) {
	r.mu.Lock()
	if r.conversations[conversationID] == hub {
		delete(r.conversations, conversationID)
	}
	r.mu.Unlock()
	hub.Stop()
}

func (r *Registry) evictNotification(userID uuid.UUID, hub *NotificationHub) {
	r.mu.Lock()
	if r.notifications[userID] == hub {
		delete(r.notifications, userID)
	}
	r.mu.Unlock()
	hub.Stop()
}

// Shutdown stops every hub and refuses further lookups.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	r.closed = true
	convHubs := make([]*ConversationHub, 0, len(r.conversations))
	for _, hub := range r.conversations {
		convHubs = append(convHubs, hub)
	}
	notifHubs := make([]*NotificationHub, 0, len(r.notifications))
	for _, hub := range r.notifications {
		notifHubs = append(notifHubs, hub)
	}
	r.conversations = make(map[uuid.UUID]*ConversationHub)
	r.notifications = make(map[uuid.UUID]*NotificationHub)
	r.mu.Unlock()

	for _, hub := range convHubs {
		hub.Stop()
	}
	for _, hub := range notifHubs {
		hub.Stop()
	}
}
