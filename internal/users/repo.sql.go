package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/therma-erp/therma-erp/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// ListUsers returns all users with aggregated role names.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.username, u.email, u.first_name, u.last_name, COALESCE(u.phone,''), u.is_active, u.created_at,
		       COALESCE(array_agg(r.name) FILTER (WHERE r.name IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		LEFT JOIN roles r ON r.id = ur.role_id
		GROUP BY u.id
		ORDER BY u.username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.IsActive, &u.CreatedAt, &u.Roles); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser fetches a single user by ID.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `
		SELECT u.id, u.username, u.email, u.first_name, u.last_name, COALESCE(u.phone,''), u.is_active, u.created_at,
		       COALESCE(array_agg(r.name) FILTER (WHERE r.name IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		LEFT JOIN roles r ON r.id = ur.role_id
		WHERE u.id = $1
		GROUP BY u.id`, id).
		Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.IsActive, &u.CreatedAt, &u.Roles)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// CountOrdersOwnedBy returns the number of orders referencing the user.
func (r *Repository) CountOrdersOwnedBy(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE user_id=$1`, userID).Scan(&count)
	return count, err
}

// FindRoleID resolves a role name to its registration row.
func (r *Repository) FindRoleID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT id FROM roles WHERE name=$1`, name).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUnknownRole
		}
		return 0, err
	}
	return id, nil
}

func (tx *txRepo) CreateUser(ctx context.Context, user User, passwordHash string) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, first_name, last_name, phone, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id`,
		user.Username, user.Email, passwordHash, user.FirstName, user.LastName, user.Phone, user.IsActive).
		Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

func (tx *txRepo) AssignRole(ctx context.Context, userID, roleID int64) error {
	_, err := tx.tx.Exec(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`, userID, roleID)
	return err
}

func (tx *txRepo) ClearRoles(ctx context.Context, userID int64) error {
	_, err := tx.tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id=$1`, userID)
	return err
}

func (tx *txRepo) DeleteUser(ctx context.Context, userID int64) error {
	_, err := tx.tx.Exec(ctx, `DELETE FROM users WHERE id=$1`, userID)
	return err
}

func (tx *txRepo) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	_, err := tx.tx.Exec(ctx, `UPDATE users SET password_hash=$2 WHERE id=$1`, userID, passwordHash)
	return err
}
