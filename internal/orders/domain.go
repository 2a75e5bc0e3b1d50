package orders

import (
	"errors"
	"time"
)

// OrderStatus enumerates order lifecycle states.
type OrderStatus string

const (
	OrderNew          OrderStatus = "new"
	OrderInProduction OrderStatus = "in_production"
	OrderCompleted    OrderStatus = "completed"
	OrderCancelled    OrderStatus = "cancelled"
)

// CanTransition reports whether moving from one status to another is legal.
// Cancellation is reachable from any non-terminal state.
func CanTransition(from, to OrderStatus) bool {
	switch to {
	case OrderInProduction:
		return from == OrderNew
	case OrderCompleted:
		return from == OrderInProduction
	case OrderCancelled:
		return from == OrderNew || from == OrderInProduction
	}
	return false
}

// Order is a customer order owned by the creating user.
type Order struct {
	ID            int64
	OrderNumber   string
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	TotalAmount   float64
	Status        OrderStatus
	OrderDate     time.Time
	DeliveryDate  *time.Time
	Notes         string
	UserID        int64
	Items         []OrderItem
	CustomItems   []CustomOrder
}

// OrderItem is a catalog-backed order line. A nil ProductID marks a line
// whose product could not be resolved at creation time.
type OrderItem struct {
	ID         int64
	OrderID    int64
	ProductID  *int64
	Quantity   int64
	UnitPrice  float64
	TotalPrice float64
}

// CustomOrder is a free-form made-to-order line.
type CustomOrder struct {
	ID             int64
	OrderID        int64
	ProductName    string
	Specifications string
	Quantity       int64
	UnitPrice      float64
	TotalPrice     float64
}

// Producible reports whether the item can enter production: the product
// resolved and the quantity is positive.
func (i OrderItem) Producible() bool {
	return i.ProductID != nil && i.Quantity > 0
}

var (
	ErrNotFound          = errors.New("orders: order not found")
	ErrValidation        = errors.New("orders: validation failed")
	ErrInvalidTransition = errors.New("orders: invalid status transition")
)
