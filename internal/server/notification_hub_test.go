package server

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notifFixture struct {
	hub      *NotificationHub
	resolver *fakeResolver
	counters *fakeCounters
}

func newNotifFixture(t *testing.T, userID uuid.UUID) *notifFixture {
	t.Helper()

	resolver := newFakeResolver()
	counters := newFakeCounters()

	hub := NewNotificationHub(userID, resolver, counters, testHubConfig())
	go hub.Run()
	t.Cleanup(hub.Stop)

	return &notifFixture{hub: hub, resolver: resolver, counters: counters}
}

func (fx *notifFixture) authedClient(t *testing.T, token string) *Client {
	t.Helper()

	fx.resolver.allow(token, fx.hub.UserID)
	c := newTestClient(fx.hub, token)
	fx.hub.Register(c)
	fx.hub.deliver(c, authClientFrame(t, token))

	f := recvFrame(t, c)
	require.Equal(t, FrameAuthOK, f.Type)
	return c
}

func TestNotificationHubAuthConfirmsIdentity(t *testing.T) {
	userID := uuid.New()
	fx := newNotifFixture(t, userID)

	c := fx.authedClient(t, "token-1")

	assert.Equal(t, StateAuthenticated, c.State())
}

func TestNotificationHubRejectsIdentityMismatch(t *testing.T) {
	fx := newNotifFixture(t, uuid.New())
	// Valid token, but for somebody else.
	fx.resolver.allow("stolen", uuid.New())

	c := newTestClient(fx.hub, "stolen")
	fx.hub.Register(c)
	fx.hub.deliver(c, authClientFrame(t, "stolen"))

	f := recvFrame(t, c)
	require.Equal(t, FrameAuthError, f.Type)

	var payload ErrorPayload
	decodePayload(t, f, &payload)
	assert.Equal(t, "identity mismatch", payload.Reason)
	recvClosed(t, c)
}

func TestNotificationHubSendsSnapshotAfterAuth(t *testing.T) {
	userID := uuid.New()
	fx := newNotifFixture(t, userID)

	convID := uuid.NewString()
	_, err := fx.counters.IncrementUnread(context.Background(), userID, convID, 4)
	require.NoError(t, err)
	// Zero-count rows are noise; they stay out of the snapshot.
	require.NoError(t, fx.counters.MarkRead(context.Background(), userID, "old-conversation"))

	c := fx.authedClient(t, "token-1")

	f := recvFrame(t, c)
	require.Equal(t, FrameUnreadUpdated, f.Type)

	var payload UnreadUpdatedPayload
	decodePayload(t, f, &payload)
	assert.Equal(t, convID, payload.Category)
	assert.Equal(t, int64(4), payload.Count)

	fx.hub.deliver(c, Frame{Type: FramePing})
	assert.Equal(t, FramePong, recvFrame(t, c).Type)
}

func TestNotificationHubPushUnreadDelta(t *testing.T) {
	userID := uuid.New()
	fx := newNotifFixture(t, userID)
	c := fx.authedClient(t, "token-1")

	convID := uuid.NewString()
	count, err := fx.hub.PushUnreadDelta(context.Background(), convID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, int64(1), fx.counters.get(userID, convID))

	f := recvFrame(t, c)
	require.Equal(t, FrameUnreadUpdated, f.Type)

	var payload UnreadUpdatedPayload
	decodePayload(t, f, &payload)
	assert.Equal(t, convID, payload.Category)
	assert.Equal(t, int64(1), payload.Count)
}

func TestNotificationHubPushWithoutClientsStillCounts(t *testing.T) {
	userID := uuid.New()
	fx := newNotifFixture(t, userID)

	convID := uuid.NewString()
	count, err := fx.hub.PushUnreadDelta(context.Background(), convID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, int64(1), fx.counters.get(userID, convID))
}

func TestNotificationHubMarkRead(t *testing.T) {
	userID := uuid.New()
	fx := newNotifFixture(t, userID)

	convID := uuid.NewString()
	_, err := fx.counters.IncrementUnread(context.Background(), userID, convID, 2)
	require.NoError(t, err)

	c := fx.authedClient(t, "token-1")
	// Consume the snapshot first.
	f := recvFrame(t, c)
	require.Equal(t, FrameUnreadUpdated, f.Type)

	fx.hub.deliver(c, mustFrame(t, FrameMarkRead, MarkReadPayload{Category: convID}))

	f = recvFrame(t, c)
	require.Equal(t, FrameUnreadUpdated, f.Type)

	var payload UnreadUpdatedPayload
	decodePayload(t, f, &payload)
	assert.Equal(t, convID, payload.Category)
	assert.Zero(t, payload.Count)
	assert.Zero(t, fx.counters.get(userID, convID))
}

func TestNotificationHubMarkReadBeforeAuth(t *testing.T) {
	fx := newNotifFixture(t, uuid.New())

	c := newTestClient(fx.hub, "")
	fx.hub.Register(c)
	fx.hub.deliver(c, mustFrame(t, FrameMarkRead, MarkReadPayload{Category: "anything"}))

	f := recvFrame(t, c)
	require.Equal(t, FrameError, f.Type)

	var payload ErrorPayload
	decodePayload(t, f, &payload)
	assert.Equal(t, CodeProtocol, payload.Code)
}

func TestNotificationHubHandshakeTimeout(t *testing.T) {
	resolver := newFakeResolver()
	cfg := testHubConfig()
	cfg.HandshakeWindow = 20 * time.Millisecond

	hub := NewNotificationHub(uuid.New(), resolver, newFakeCounters(), cfg)
	go hub.Run()
	t.Cleanup(hub.Stop)

	c := newTestClient(hub, "")
	hub.Register(c)

	f := recvFrame(t, c)
	require.Equal(t, FrameAuthError, f.Type)
	recvClosed(t, c)
}
