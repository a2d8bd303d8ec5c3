package services

import (
	"context"
	"errors"
	"time"

	"intake-chat/internal/domain/notification"
	"intake-chat/internal/repository"
	intake_errors "intake-chat/pkg/errors"

	"github.com/google/uuid"
)

const (
	unreadWriteAttempts = 3
	unreadRetryDelay    = 50 * time.Millisecond
)

// NotificationService maintains per-user unread counters. Counter writes are
// retried on transient storage failure; socket delivery is the hub's
// problem and never blocks the write.
type NotificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

// IncrementUnread bumps the (user, category) counter and returns the new
// count. Validation errors are not retried; anything else gets a bounded
// number of attempts.
func (s *NotificationService) IncrementUnread(ctx context.Context, userID uuid.UUID, category string, delta int64) (int64, error) {
	if category == "" {
		return 0, intake_errors.ErrInvalidInput
	}

	var count int64
	var err error
	for attempt := 0; attempt < unreadWriteAttempts; attempt++ {
		count, err = s.repo.IncrementUnread(ctx, userID, category, delta)
		if err == nil {
			return count, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, err
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(unreadRetryDelay):
		}
	}
	return 0, err
}

// MarkRead resets the (user, category) counter to zero. Idempotent.
func (s *NotificationService) MarkRead(ctx context.Context, userID uuid.UUID, category string) error {
	if category == "" {
		return intake_errors.ErrInvalidInput
	}
	return s.repo.ResetUnread(ctx, userID, category)
}

func (s *NotificationService) Counters(ctx context.Context, userID uuid.UUID) ([]notification.UnreadCounter, error) {
	return s.repo.GetUnread(ctx, userID)
}

func (s *NotificationService) Count(ctx context.Context, userID uuid.UUID, category string) (int64, error) {
	return s.repo.GetUnreadByCategory(ctx, userID, category)
}
