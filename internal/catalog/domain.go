package catalog

import (
	"errors"
	"time"
)

// Product is a sellable catalog item referenced by order lines and
// warehouse stock records.
type Product struct {
	ID            int64
	Name          string
	Description   string
	Price         float64
	Category      string
	StockQuantity int64
	MinStockLevel int64
	CreatedAt     time.Time
}

var (
	ErrNotFound   = errors.New("catalog: product not found")
	ErrValidation = errors.New("catalog: validation failed")
)
