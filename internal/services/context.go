package services

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	anonymousKey contextKey = "anonymous"
)

// WithUserContext stamps the resolved caller identity onto the context.
func WithUserContext(ctx context.Context, userID uuid.UUID, anonymous bool) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, anonymousKey, anonymous)
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

func IsAnonymousFromContext(ctx context.Context) bool {
	anonymous, _ := ctx.Value(anonymousKey).(bool)
	return anonymous
}
