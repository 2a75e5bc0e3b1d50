package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memoryUserRepo struct {
	users      map[int64]User
	passwords  map[int64]string
	roles      map[string]int64
	orderCount map[int64]int64
	nextID     int64
}

type memoryUserTx struct {
	repo *memoryUserRepo
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{
		users:      make(map[int64]User),
		passwords:  make(map[int64]string),
		roles:      map[string]int64{"director": 1, "manager": 2, "supplier": 3, "warehouse": 4, "production": 5, "accountant": 6},
		orderCount: make(map[int64]int64),
	}
}

func (r *memoryUserRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryUserTx{repo: r})
}

func (r *memoryUserRepo) ListUsers(ctx context.Context) ([]User, error) {
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *memoryUserRepo) GetUser(ctx context.Context, id int64) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *memoryUserRepo) CountOrdersOwnedBy(ctx context.Context, userID int64) (int64, error) {
	return r.orderCount[userID], nil
}

func (r *memoryUserRepo) FindRoleID(ctx context.Context, name string) (int64, error) {
	id, ok := r.roles[name]
	if !ok {
		return 0, ErrUnknownRole
	}
	return id, nil
}

func (tx *memoryUserTx) CreateUser(ctx context.Context, user User, passwordHash string) (int64, error) {
	for _, existing := range tx.repo.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return 0, ErrDuplicate
		}
	}
	tx.repo.nextID++
	user.ID = tx.repo.nextID
	tx.repo.users[user.ID] = user
	tx.repo.passwords[user.ID] = passwordHash
	return user.ID, nil
}

func (tx *memoryUserTx) AssignRole(ctx context.Context, userID, roleID int64) error {
	return nil
}

func (tx *memoryUserTx) ClearRoles(ctx context.Context, userID int64) error {
	u := tx.repo.users[userID]
	u.Roles = nil
	tx.repo.users[userID] = u
	return nil
}

func (tx *memoryUserTx) DeleteUser(ctx context.Context, userID int64) error {
	delete(tx.repo.users, userID)
	delete(tx.repo.passwords, userID)
	return nil
}

func (tx *memoryUserTx) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	tx.repo.passwords[userID] = passwordHash
	return nil
}

func validInput() CreateUserInput {
	return CreateUserInput{
		Username:  "a3",
		Email:     "a3@therma.local",
		Password:  "secret",
		FirstName: "Anna",
		LastName:  "Petrova",
		Role:      "manager",
	}
}

func TestCreateUserHashesPassword(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo)

	user, err := svc.CreateUser(context.Background(), validInput())
	require.NoError(t, err)
	require.NotZero(t, user.ID)
	require.Equal(t, []string{"manager"}, user.Roles)

	hash := repo.passwords[user.ID]
	require.NotEqual(t, "secret", hash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret")))
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo)

	_, err := svc.CreateUser(context.Background(), validInput())
	require.NoError(t, err)

	dup := validInput()
	dup.Email = "other@therma.local"
	_, err = svc.CreateUser(context.Background(), dup)
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	svc := NewService(newMemoryUserRepo())

	input := validInput()
	input.Role = "superadmin"
	_, err := svc.CreateUser(context.Background(), input)
	require.ErrorIs(t, err, ErrUnknownRole)
}

func TestCreateUserRequiresAllFields(t *testing.T) {
	svc := NewService(newMemoryUserRepo())

	input := validInput()
	input.LastName = ""
	_, err := svc.CreateUser(context.Background(), input)
	require.ErrorIs(t, err, ErrValidation)
}

func TestDeleteUserRefusedWhileOwningOrders(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo)

	user, err := svc.CreateUser(context.Background(), validInput())
	require.NoError(t, err)
	repo.orderCount[user.ID] = 2

	err = svc.DeleteUser(context.Background(), user.ID, 99)
	require.ErrorIs(t, err, ErrOwnsOrders)
	_, err = repo.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
}

func TestDeleteUserSelfRefused(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo)

	user, err := svc.CreateUser(context.Background(), validInput())
	require.NoError(t, err)

	require.ErrorIs(t, svc.DeleteUser(context.Background(), user.ID, user.ID), ErrSelfDelete)
}

func TestDeleteUser(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo)

	user, err := svc.CreateUser(context.Background(), validInput())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(context.Background(), user.ID, 99))
	_, err = repo.GetUser(context.Background(), user.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResetPassword(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo)

	user, err := svc.CreateUser(context.Background(), validInput())
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(context.Background(), user.ID, "123"))
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.passwords[user.ID]), []byte("123")))
}
