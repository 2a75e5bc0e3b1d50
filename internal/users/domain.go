package users

import (
	"errors"
	"time"
)

// User represents a managed account and its role memberships.
type User struct {
	ID        int64
	Username  string
	Email     string
	FirstName string
	LastName  string
	Phone     string
	IsActive  bool
	CreatedAt time.Time
	Roles     []string
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("users: not found")
	// ErrDuplicate indicates a username or email uniqueness violation.
	ErrDuplicate = errors.New("users: username or email already exists")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("users: invalid input")
	// ErrUnknownRole indicates the requested role is not registered.
	ErrUnknownRole = errors.New("users: unknown role")
	// ErrSelfDelete prevents an actor from deleting their own account.
	ErrSelfDelete = errors.New("users: cannot delete own account")
	// ErrOwnsOrders refuses deletion while the user still owns orders.
	// Orders must be reassigned first so no dangling references remain.
	ErrOwnsOrders = errors.New("users: user still owns orders")
)
