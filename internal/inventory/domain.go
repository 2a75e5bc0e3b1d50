package inventory

import (
	"errors"
	"time"
)

// MovementType enumerates ledger movement directions.
type MovementType string

const (
	MovementIn  MovementType = "in"
	MovementOut MovementType = "out"
)

// InventoryItem is one stock record per product location. Quantity is the
// running balance of the item's ledger; every mutation goes through a
// movement posted in the same transaction.
type InventoryItem struct {
	ID           int64
	ProductID    int64
	ProductName  string
	Quantity     int64
	MinStock     int64
	PricePerUnit float64
	Location     string
	LastUpdated  time.Time
}

// LowStock reports whether the balance fell below the reorder threshold.
func (i InventoryItem) LowStock() bool {
	return i.Quantity < i.MinStock
}

// OutOfStock reports whether the item is depleted.
func (i InventoryItem) OutOfStock() bool {
	return i.Quantity == 0
}

// InventoryTransaction is one append-only ledger movement.
type InventoryTransaction struct {
	ID        int64
	ProductID int64
	Type      MovementType
	Quantity  int64
	Reason    string
	CreatedAt time.Time
}

var (
	ErrNotFound          = errors.New("inventory: item not found")
	ErrValidation        = errors.New("inventory: validation failed")
	ErrInsufficientStock = errors.New("inventory: movement would drive stock negative")
)
