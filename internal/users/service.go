package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/therma-erp/therma-erp/internal/rbac"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	CountOrdersOwnedBy(ctx context.Context, userID int64) (int64, error)
	FindRoleID(ctx context.Context, name string) (int64, error)
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	CreateUser(ctx context.Context, user User, passwordHash string) (int64, error)
	AssignRole(ctx context.Context, userID, roleID int64) error
	ClearRoles(ctx context.Context, userID int64) error
	DeleteUser(ctx context.Context, userID int64) error
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
}

// Service handles user management for the director role.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// CreateUserInput describes the account creation payload.
type CreateUserInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Role      string
}

// ListUsers returns all users with their role memberships.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// CreateUser creates an account with exactly one initial role. Username and
// email uniqueness violations surface as ErrDuplicate.
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if input.Username == "" || input.Email == "" || input.Password == "" ||
		input.FirstName == "" || input.LastName == "" || input.Role == "" {
		return User{}, ErrValidation
	}
	role, ok := rbac.ParseRole(input.Role)
	if !ok {
		return User{}, ErrUnknownRole
	}
	roleID, err := s.repo.FindRoleID(ctx, string(role))
	if err != nil {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}

	user := User{
		Username:  input.Username,
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
		IsActive:  true,
		Roles:     []string{string(role)},
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateUser(ctx, user, string(hash))
		if err != nil {
			return err
		}
		user.ID = id
		return tx.AssignRole(ctx, id, roleID)
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// DeleteUser removes an account. Deletion is refused while the user still
// owns orders; roles are cleared in the same transaction so no membership
// rows are orphaned.
func (s *Service) DeleteUser(ctx context.Context, userID, actorID int64) error {
	if userID == actorID {
		return ErrSelfDelete
	}
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return err
	}
	owned, err := s.repo.CountOrdersOwnedBy(ctx, userID)
	if err != nil {
		return err
	}
	if owned > 0 {
		return ErrOwnsOrders
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.ClearRoles(ctx, userID); err != nil {
			return err
		}
		return tx.DeleteUser(ctx, userID)
	})
}

// ResetPassword replaces the user's password with the supplied value.
func (s *Service) ResetPassword(ctx context.Context, userID int64, password string) error {
	if password == "" {
		return ErrValidation
	}
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("users: hash password: %w", err)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdatePassword(ctx, userID, string(hash))
	})
}
