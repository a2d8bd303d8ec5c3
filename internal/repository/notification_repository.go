package repository

import (
	"context"
	"errors"

	"intake-chat/internal/domain/notification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresNotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

// IncrementUnread atomically bumps the counter for (user, category) and
// returns the new value. The GREATEST floor keeps the counter from ever
// going negative.
func (r *PostgresNotificationRepository) IncrementUnread(ctx context.Context, userID uuid.UUID, category string, delta int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO unread_counters (user_id, category, count, updated_at)
		VALUES (?, ?, GREATEST(?, 0), NOW())
		ON CONFLICT (user_id, category)
		DO UPDATE SET count = GREATEST(unread_counters.count + ?, 0), updated_at = NOW()
		RETURNING count`,
		userID, category, delta, delta,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresNotificationRepository) ResetUnread(ctx context.Context, userID uuid.UUID, category string) error {
	// Idempotent: a missing row already reads as zero.
	res := r.db.WithContext(ctx).
		Model(&notification.UnreadCounter{}).
		Where("user_id = ? AND category = ?", userID, category).
		Update("count", 0)
	return res.Error
}

func (r *PostgresNotificationRepository) GetUnread(ctx context.Context, userID uuid.UUID) ([]notification.UnreadCounter, error) {
	var counters []notification.UnreadCounter
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND count > 0", userID).
		Order("updated_at DESC").
		Find(&counters).Error
	if err != nil {
		return nil, err
	}
	return counters, nil
}

func (r *PostgresNotificationRepository) GetUnreadByCategory(ctx context.Context, userID uuid.UUID, category string) (int64, error) {
	var counter notification.UnreadCounter
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND category = ?", userID, category).
		First(&counter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return counter.Count, nil
}
