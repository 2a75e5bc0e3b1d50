package notify

import (
	"errors"
	"time"
)

var (
	// ErrNotFound signals the notification does not exist or belongs to
	// another user.
	ErrNotFound = errors.New("notification not found")
	// ErrValidation signals a malformed notification payload.
	ErrValidation = errors.New("notification validation failed")
)

// Notification is a per-user message with a read flag.
type Notification struct {
	ID        int64
	UserID    int64
	Title     string
	Message   string
	IsRead    bool
	CreatedAt time.Time
}
