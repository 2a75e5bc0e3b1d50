package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/therma-erp/therma-erp/internal/rbac"
)

type memoryInventoryRepo struct {
	items        map[int64]InventoryItem
	transactions []InventoryTransaction
	nextID       int64
}

type memoryInventoryTx struct {
	repo *memoryInventoryRepo
}

func newMemoryInventoryRepo() *memoryInventoryRepo {
	return &memoryInventoryRepo{items: make(map[int64]InventoryItem)}
}

func (r *memoryInventoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryInventoryTx{repo: r})
}

func (r *memoryInventoryRepo) ListItems(ctx context.Context) ([]InventoryItem, error) {
	out := make([]InventoryItem, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	return out, nil
}

func (r *memoryInventoryRepo) GetItem(ctx context.Context, id int64) (InventoryItem, error) {
	item, ok := r.items[id]
	if !ok {
		return InventoryItem{}, ErrNotFound
	}
	return item, nil
}

func (r *memoryInventoryRepo) ListTransactions(ctx context.Context, limit int) ([]InventoryTransaction, error) {
	if limit > len(r.transactions) {
		limit = len(r.transactions)
	}
	return r.transactions[:limit], nil
}

func (tx *memoryInventoryTx) CreateItem(ctx context.Context, item InventoryItem) (int64, error) {
	tx.repo.nextID++
	item.ID = tx.repo.nextID
	tx.repo.items[item.ID] = item
	return item.ID, nil
}

func (tx *memoryInventoryTx) GetItemForUpdate(ctx context.Context, id int64) (InventoryItem, error) {
	return tx.repo.GetItem(ctx, id)
}

func (tx *memoryInventoryTx) SetItemQuantity(ctx context.Context, id int64, quantity int64, at time.Time) error {
	item := tx.repo.items[id]
	item.Quantity = quantity
	item.LastUpdated = at
	tx.repo.items[id] = item
	return nil
}

func (tx *memoryInventoryTx) InsertTransaction(ctx context.Context, t InventoryTransaction) (int64, error) {
	tx.repo.nextID++
	t.ID = tx.repo.nextID
	t.CreatedAt = time.Now()
	tx.repo.transactions = append(tx.repo.transactions, t)
	return t.ID, nil
}

func storekeeper() rbac.Principal {
	return rbac.Principal{UserID: 4, Username: "warehouse1", Roles: rbac.NewRoleSet(rbac.RoleWarehouse)}
}

// ledgerBalance recomputes the balance for one product from the ledger.
func ledgerBalance(transactions []InventoryTransaction, productID int64) int64 {
	var balance int64
	for _, t := range transactions {
		if t.ProductID != productID {
			continue
		}
		if t.Type == MovementIn {
			balance += t.Quantity
		} else {
			balance -= t.Quantity
		}
	}
	return balance
}

func TestCreateItemPostsOpeningBalance(t *testing.T) {
	repo := newMemoryInventoryRepo()
	svc := NewService(repo, nil)

	item, err := svc.CreateItem(context.Background(), storekeeper(), ItemInput{ProductID: 1, Quantity: 40, MinStock: 10})
	require.NoError(t, err)
	require.Equal(t, int64(40), item.Quantity)
	require.Equal(t, item.Quantity, ledgerBalance(repo.transactions, 1))
}

func TestPostMovementKeepsBalanceReconciled(t *testing.T) {
	repo := newMemoryInventoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, storekeeper(), ItemInput{ProductID: 1, Quantity: 40, MinStock: 10})
	require.NoError(t, err)

	item, err = svc.PostMovement(ctx, storekeeper(), MovementInput{ItemID: item.ID, Type: MovementIn, Quantity: 15, Reason: "delivery"})
	require.NoError(t, err)
	require.Equal(t, int64(55), item.Quantity)

	item, err = svc.PostMovement(ctx, storekeeper(), MovementInput{ItemID: item.ID, Type: MovementOut, Quantity: 30, Reason: "order shipment"})
	require.NoError(t, err)
	require.Equal(t, int64(25), item.Quantity)

	require.Equal(t, item.Quantity, ledgerBalance(repo.transactions, 1))
	require.Len(t, repo.transactions, 3)
}

func TestPostMovementRejectsNegativeStock(t *testing.T) {
	repo := newMemoryInventoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, storekeeper(), ItemInput{ProductID: 1, Quantity: 5})
	require.NoError(t, err)

	_, err = svc.PostMovement(ctx, storekeeper(), MovementInput{ItemID: item.ID, Type: MovementOut, Quantity: 6})
	require.ErrorIs(t, err, ErrInsufficientStock)

	// nothing was written: balance and ledger unchanged
	stored, err := svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, int64(5), stored.Quantity)
	require.Equal(t, stored.Quantity, ledgerBalance(repo.transactions, 1))
}

func TestPostMovementValidatesInput(t *testing.T) {
	svc := NewService(newMemoryInventoryRepo(), nil)
	ctx := context.Background()

	_, err := svc.PostMovement(ctx, storekeeper(), MovementInput{ItemID: 1, Type: MovementIn, Quantity: 0})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.PostMovement(ctx, storekeeper(), MovementInput{ItemID: 1, Type: "transfer", Quantity: 3})
	require.ErrorIs(t, err, ErrValidation)
}

func TestHealthFlags(t *testing.T) {
	depleted := InventoryItem{Quantity: 0, MinStock: 10}
	require.True(t, depleted.OutOfStock())
	require.True(t, depleted.LowStock())

	depletedNoThreshold := InventoryItem{Quantity: 0, MinStock: 0}
	require.True(t, depletedNoThreshold.OutOfStock())
	require.False(t, depletedNoThreshold.LowStock())

	healthy := InventoryItem{Quantity: 10, MinStock: 10}
	require.False(t, healthy.LowStock())
	require.False(t, healthy.OutOfStock())

	low := InventoryItem{Quantity: 9, MinStock: 10}
	require.True(t, low.LowStock())
	require.False(t, low.OutOfStock())
}
