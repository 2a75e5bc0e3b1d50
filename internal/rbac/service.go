package rbac

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MembershipSource loads role memberships for a user.
type MembershipSource interface {
	MembershipsFor(ctx context.Context, userID int64) (Principal, error)
}

// Service resolves principals from the relational store.
type Service struct {
	pool *pgxpool.Pool
}

// NewService constructs a Service backed by the provided pool.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// MembershipsFor returns the principal for a user ID. Role names outside the
// registered set are ignored rather than granted.
func (s *Service) MembershipsFor(ctx context.Context, userID int64) (Principal, error) {
	principal := Principal{UserID: userID, Roles: make(RoleSet)}

	err := s.pool.QueryRow(ctx, `SELECT username FROM users WHERE id=$1`, userID).Scan(&principal.Username)
	if err != nil {
		return Principal{}, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT r.name
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1`, userID)
	if err != nil {
		return Principal{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return Principal{}, err
		}
		if role, ok := ParseRole(name); ok {
			principal.Roles[role] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return Principal{}, err
	}
	return principal, nil
}
