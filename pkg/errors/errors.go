package intake_errors

import (
	"errors"
	"time"
)

// Common errors
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrTooLarge           = errors.New("content too large")
	ErrRateLimited        = errors.New("rate limited")
	ErrProtocol           = errors.New("protocol violation")
	ErrStorage            = errors.New("storage failure")
	ErrConversationClosed = errors.New("conversation closed")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// NowPtr returns a pointer to current time
func NowPtr() *time.Time {
	now := time.Now()
	return &now
}
