package notify

import (
	"context"
	"strings"

	"github.com/therma-erp/therma-erp/internal/rbac"
)

// RepositoryPort abstracts notification persistence.
type RepositoryPort interface {
	Insert(ctx context.Context, n Notification) (Notification, error)
	ListForUser(ctx context.Context, userID int64) ([]Notification, error)
	MarkRead(ctx context.Context, userID, id int64) error
}

// Service owns notification delivery and read tracking. A notification is
// visible only to the user it was addressed to.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Notify stores a message for the given user.
func (s *Service) Notify(ctx context.Context, userID int64, title, message string) (Notification, error) {
	title = strings.TrimSpace(title)
	if userID <= 0 || title == "" {
		return Notification{}, ErrValidation
	}
	return s.repo.Insert(ctx, Notification{UserID: userID, Title: title, Message: message})
}

// ListOwn returns the actor's notifications, newest first.
func (s *Service) ListOwn(ctx context.Context, actor rbac.Principal) ([]Notification, error) {
	return s.repo.ListForUser(ctx, actor.UserID)
}

// MarkRead flips the read flag on the actor's own notification. Another
// user's notification behaves as if it does not exist.
func (s *Service) MarkRead(ctx context.Context, actor rbac.Principal, id int64) error {
	return s.repo.MarkRead(ctx, actor.UserID, id)
}
