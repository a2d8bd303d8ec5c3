package services

import (
	"context"
	"errors"
	"testing"

	"intake-chat/internal/repository"
	intake_errors "intake-chat/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestIncrementUnreadRetriesTransientFailure(t *testing.T) {
	userID := uuid.New()
	category := uuid.New().String()

	repo := new(repository.MockNotificationRepository)
	repo.On("IncrementUnread", mock.Anything, userID, category, int64(1)).
		Return(int64(0), errors.New("connection reset")).Once()
	repo.On("IncrementUnread", mock.Anything, userID, category, int64(1)).
		Return(int64(3), nil).Once()

	svc := NewNotificationService(repo)
	count, err := svc.IncrementUnread(context.Background(), userID, category, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	repo.AssertExpectations(t)
}

func TestIncrementUnreadGivesUpAfterRetries(t *testing.T) {
	userID := uuid.New()
	category := uuid.New().String()
	boom := errors.New("storage down")

	repo := new(repository.MockNotificationRepository)
	repo.On("IncrementUnread", mock.Anything, userID, category, int64(1)).
		Return(int64(0), boom).Times(unreadWriteAttempts)

	svc := NewNotificationService(repo)
	_, err := svc.IncrementUnread(context.Background(), userID, category, 1)
	assert.ErrorIs(t, err, boom)
	repo.AssertExpectations(t)
}

func TestIncrementUnreadStopsOnCancel(t *testing.T) {
	userID := uuid.New()
	category := uuid.New().String()

	repo := new(repository.MockNotificationRepository)
	repo.On("IncrementUnread", mock.Anything, userID, category, int64(1)).
		Return(int64(0), context.Canceled).Once()

	svc := NewNotificationService(repo)
	_, err := svc.IncrementUnread(context.Background(), userID, category, 1)
	assert.ErrorIs(t, err, context.Canceled)
	repo.AssertNumberOfCalls(t, "IncrementUnread", 1)
}

func TestIncrementUnreadRequiresCategory(t *testing.T) {
	svc := NewNotificationService(new(repository.MockNotificationRepository))
	_, err := svc.IncrementUnread(context.Background(), uuid.New(), "", 1)
	assert.ErrorIs(t, err, intake_errors.ErrInvalidInput)
}

func TestMarkReadIdempotent(t *testing.T) {
	userID := uuid.New()
	category := uuid.New().String()

	repo := new(repository.MockNotificationRepository)
	repo.On("ResetUnread", mock.Anything, userID, category).Return(nil).Twice()

	svc := NewNotificationService(repo)
	require.NoError(t, svc.MarkRead(context.Background(), userID, category))
	require.NoError(t, svc.MarkRead(context.Background(), userID, category))
	repo.AssertExpectations(t)
}

func TestMarkReadRequiresCategory(t *testing.T) {
	svc := NewNotificationService(new(repository.MockNotificationRepository))
	assert.ErrorIs(t, svc.MarkRead(context.Background(), uuid.New(), ""), intake_errors.ErrInvalidInput)
}
