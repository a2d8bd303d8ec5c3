package server

import (
	"context"
	"testing"
	"time"

	intake_errors "intake-chat/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*Registry, *fakeDirectory, *fakeCounters) {
	t.Helper()

	dir := newFakeDirectory()
	counters := newFakeCounters()
	registry := NewRegistry(HubDeps{
		Auth:          newFakeResolver(),
		Messages:      newFakeMessageStore(),
		Conversations: dir,
		Counters:      counters,
		Config:        testHubConfig(),
	})
	t.Cleanup(registry.Shutdown)
	return registry, dir, counters
}

func TestRegistryReturnsSameConversationHub(t *testing.T) {
	registry, dir, _ := newTestRegistry(t)
	convID := uuid.New()
	dir.addConversation(convID)

	first, err := registry.ConversationHub(context.Background(), convID)
	require.NoError(t, err)
	second, err := registry.ConversationHub(context.Background(), convID)
	require.NoError(t, err)
	assert.Same(t, first, second)

	otherID := uuid.New()
	dir.addConversation(otherID)
	other, err := registry.ConversationHub(context.Background(), otherID)
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}

func TestRegistryRefusesUnknownConversation(t *testing.T) {
	registry, _, _ := newTestRegistry(t)

	_, err := registry.ConversationHub(context.Background(), uuid.New())
	assert.ErrorIs(t, err, intake_errors.ErrNotFound)
}

func TestRegistryReturnsSameNotificationHub(t *testing.T) {
	registry, _, _ := newTestRegistry(t)
	userID := uuid.New()

	first, err := registry.NotificationHub(userID)
	require.NoError(t, err)
	second, err := registry.NotificationHub(userID)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestRegistryNotifyUnreadWithoutHub(t *testing.T) {
	registry, _, counters := newTestRegistry(t)
	userID := uuid.New()
	convID := uuid.NewString()

	// No live hub for the user: the counter write still lands.
	registry.NotifyUnread(userID, convID)

	assert.Eventually(t, func() bool {
		return counters.get(userID, convID) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestRegistryNotifyUnreadThroughLiveHub(t *testing.T) {
	registry, _, counters := newTestRegistry(t)
	userID := uuid.New()
	convID := uuid.NewString()

	hub, err := registry.NotificationHub(userID)
	require.NoError(t, err)
	require.NotNil(t, hub)

	registry.NotifyUnread(userID, convID)

	assert.Eventually(t, func() bool {
		return counters.get(userID, convID) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestRegistryShutdownRefusesLookups(t *testing.T) {
	registry, dir, _ := newTestRegistry(t)
	convID := uuid.New()
	dir.addConversation(convID)

	hub, err := registry.ConversationHub(context.Background(), convID)
	require.NoError(t, err)

	registry.Shutdown()

	_, err = registry.ConversationHub(context.Background(), convID)
	assert.ErrorIs(t, err, intake_errors.ErrServiceUnavailable)
	_, err = registry.NotificationHub(uuid.New())
	assert.ErrorIs(t, err, intake_errors.ErrServiceUnavailable)

	// Stopped hub: Stop again is a no-op, not a hang.
	hub.Stop()
}
