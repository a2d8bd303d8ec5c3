package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"intake-chat/internal/domain/conversation"
	"intake-chat/internal/domain/message"
	"intake-chat/internal/domain/notification"
	"intake-chat/internal/services"
	intake_errors "intake-chat/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testHubConfig() HubConfig {
	return HubConfig{
		HandshakeWindow: time.Second,
		IdleWindow:      time.Second,
		MaxMessageBytes: 16 * 1024,
		EvictAfter:      time.Hour,
	}
}

// fakeResolver resolves tokens from a static table and authorizes a fixed
// user set.
type fakeResolver struct {
	mu         sync.Mutex
	identities map[string]services.Identity
	authorized map[uuid.UUID]bool
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		identities: make(map[string]services.Identity),
		authorized: make(map[uuid.UUID]bool),
	}
}

func (f *fakeResolver) allow(token string, userID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identities[token] = services.Identity{UserID: userID}
	f.authorized[userID] = true
}

func (f *fakeResolver) resolveOnly(token string, userID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identities[token] = services.Identity{UserID: userID}
}

func (f *fakeResolver) ResolveIdentity(ctx context.Context, credentials services.Credentials) (services.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	identity, ok := f.identities[credentials.Token]
	if !ok {
		return services.Identity{}, intake_errors.ErrUnauthorized
	}
	return identity, nil
}

func (f *fakeResolver) Authorize(ctx context.Context, conversationID, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.authorized[userID] {
		return intake_errors.ErrForbidden
	}
	return nil
}

// fakeMessageStore keeps messages and reactions in memory with sequential
// seq assignment per store.
type fakeMessageStore struct {
	mu        sync.Mutex
	nextSeq   int64
	messages  map[uuid.UUID]message.Message
	reactions map[string]message.MessageReaction
	appendErr error
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{
		messages:  make(map[uuid.UUID]message.Message),
		reactions: make(map[string]message.MessageReaction),
	}
}

func (f *fakeMessageStore) Append(ctx context.Context, in services.AppendMessageInput) (message.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return message.Message{}, f.appendErr
	}
	if strings.TrimSpace(in.Content) == "" {
		return message.Message{}, intake_errors.ErrInvalidInput
	}

	f.nextSeq++
	msg := message.Message{
		ID:             uuid.New(),
		ConversationID: in.ConversationID,
		SeqID:          f.nextSeq,
		SenderID:       in.SenderID,
		Role:           in.Role,
		Content:        in.Content,
		ReplyToMsgID:   in.ReplyToMsgID,
		Metadata:       "{}",
		CreatedAt:      time.Now(),
	}
	f.messages[msg.ID] = msg
	return msg, nil
}

func (f *fakeMessageStore) ToggleReaction(ctx context.Context, conversationID, messageID, userID uuid.UUID, emoji string) ([]message.MessageReaction, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	msg, ok := f.messages[messageID]
	if !ok || msg.ConversationID != conversationID {
		return nil, false, intake_errors.ErrNotFound
	}

	key := fmt.Sprintf("%s|%s|%s", messageID, userID, emoji)
	added := false
	if _, ok := f.reactions[key]; ok {
		delete(f.reactions, key)
	} else {
		f.reactions[key] = message.MessageReaction{MessageID: messageID, UserID: userID, Emoji: emoji}
		added = true
	}

	var out []message.MessageReaction
	for _, r := range f.reactions {
		if r.MessageID == messageID {
			out = append(out, r)
		}
	}
	return out, added, nil
}

func (f *fakeMessageStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

// fakeDirectory serves a static conversation/participant table.
type fakeDirectory struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]conversation.Conversation
	participants  map[uuid.UUID][]conversation.Participant
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		conversations: make(map[uuid.UUID]conversation.Conversation),
		participants:  make(map[uuid.UUID][]conversation.Participant),
	}
}

func (f *fakeDirectory) addConversation(id uuid.UUID, participantIDs ...uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conversations[id] = conversation.Conversation{ID: id, Status: conversation.StatusActive}
	for _, userID := range participantIDs {
		f.participants[id] = append(f.participants[id], conversation.Participant{
			ConversationID: id,
			UserID:         userID,
			Role:           conversation.RoleClient,
		})
	}
}

func (f *fakeDirectory) GetByID(ctx context.Context, conversationID uuid.UUID) (conversation.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.conversations[conversationID]
	if !ok {
		return conversation.Conversation{}, intake_errors.ErrNotFound
	}
	return conv, nil
}

func (f *fakeDirectory) GetParticipants(ctx context.Context, conversationID uuid.UUID) ([]conversation.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.participants[conversationID], nil
}

// fakeCounters is an in-memory UnreadCounterStore.
type fakeCounters struct {
	mu     sync.Mutex
	counts map[string]int64
	incErr error
}

func newFakeCounters() *fakeCounters {
	return &fakeCounters{counts: make(map[string]int64)}
}

func counterKey(userID uuid.UUID, category string) string {
	return userID.String() + "|" + category
}

func (f *fakeCounters) IncrementUnread(ctx context.Context, userID uuid.UUID, category string, delta int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incErr != nil {
		return 0, f.incErr
	}
	key := counterKey(userID, category)
	f.counts[key] += delta
	if f.counts[key] < 0 {
		f.counts[key] = 0
	}
	return f.counts[key], nil
}

func (f *fakeCounters) MarkRead(ctx context.Context, userID uuid.UUID, category string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[counterKey(userID, category)] = 0
	return nil
}

func (f *fakeCounters) Counters(ctx context.Context, userID uuid.UUID) ([]notification.UnreadCounter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notification.UnreadCounter
	prefix := userID.String() + "|"
	for key, count := range f.counts {
		if strings.HasPrefix(key, prefix) {
			out = append(out, notification.UnreadCounter{
				UserID:   userID,
				Category: strings.TrimPrefix(key, prefix),
				Count:    count,
			})
		}
	}
	return out, nil
}

func (f *fakeCounters) get(userID uuid.UUID, category string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[counterKey(userID, category)]
}

// fakeNotifier records offline notifications on a channel.
type notifyCall struct {
	userID   uuid.UUID
	category string
}

type fakeNotifier struct {
	calls chan notifyCall
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{calls: make(chan notifyCall, 16)}
}

func (f *fakeNotifier) NotifyUnread(userID uuid.UUID, category string) {
	f.calls <- notifyCall{userID: userID, category: category}
}

// Test helpers

func newTestClient(host clientHost, token string) *Client {
	return NewClient(host, nil, services.Credentials{Token: token}, testHubConfig(), NewWebSocketLogger())
}

func recvFrame(t *testing.T, c *Client) Frame {
	t.Helper()
	select {
	case raw, ok := <-c.send:
		require.True(t, ok, "send channel closed while expecting a frame")
		var f Frame
		require.NoError(t, json.Unmarshal(raw, &f))
		return f
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return Frame{}
	}
}

func recvClosed(t *testing.T, c *Client) {
	t.Helper()
	select {
	case _, ok := <-c.send:
		require.False(t, ok, "expected send channel to be closed")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for close")
	}
}

func decodePayload(t *testing.T, f Frame, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(f.Data, out))
}

func mustFrame(t *testing.T, frameType string, payload interface{}) Frame {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return Frame{Type: frameType, Data: data}
}

func authClientFrame(t *testing.T, token string) Frame {
	t.Helper()
	return mustFrame(t, FrameAuth, AuthPayload{ProtocolVersion: ProtocolVersion, Token: token})
}
