package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/therma-erp/therma-erp/internal/catalog"
	"github.com/therma-erp/therma-erp/internal/rbac"
	"github.com/therma-erp/therma-erp/internal/shared"
)

// deliveryDateLayout matches the m/d/Y form the order intake sends.
const deliveryDateLayout = "01/02/2006"

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListOrders(ctx context.Context) ([]Order, error)
	GetOrder(ctx context.Context, id int64) (Order, error)
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	CreateOrder(ctx context.Context, order Order) (int64, error)
	CreateOrderItem(ctx context.Context, item OrderItem) (int64, error)
	CreateCustomOrder(ctx context.Context, custom CustomOrder) (int64, error)
	GetOrderForUpdate(ctx context.Context, id int64) (Order, error)
	SetOrderStatus(ctx context.Context, id int64, status OrderStatus) error
	DeleteOrder(ctx context.Context, id int64) error
}

// CatalogPort resolves order line products.
type CatalogPort interface {
	GetProduct(ctx context.Context, id int64) (catalog.Product, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns the order lifecycle. When strict is false the intake is
// tolerant: an unparsable delivery date becomes NULL and an unresolvable
// product line is kept with zero economics. When strict is true either
// condition fails the whole order.
type Service struct {
	repo    RepositoryPort
	catalog CatalogPort
	audit   AuditPort
	strict  bool
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, catalog CatalogPort, audit AuditPort, strict bool) *Service {
	return &Service{repo: repo, catalog: catalog, audit: audit, strict: strict}
}

// ItemInput is one catalog-backed order line.
type ItemInput struct {
	ProductID int64
	Quantity  int64
	UnitPrice float64
}

// CustomItemInput is one made-to-order line.
type CustomItemInput struct {
	ProductName    string
	Specifications string
	Quantity       int64
	UnitPrice      float64
}

// CreateOrderInput describes the order intake payload.
type CreateOrderInput struct {
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	DeliveryDate  string
	Notes         string
	Items         []ItemInput
	CustomItems   []CustomItemInput
}

// ListOrders returns all orders with their lines.
func (s *Service) ListOrders(ctx context.Context) ([]Order, error) {
	return s.repo.ListOrders(ctx)
}

// GetOrder fetches a single order with its lines.
func (s *Service) GetOrder(ctx context.Context, id int64) (Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// CreateOrder inserts the order header and every line in one transaction.
// The stored total is always the sum of the line totals, so the amount
// invariant holds by construction.
func (s *Service) CreateOrder(ctx context.Context, actor rbac.Principal, input CreateOrderInput) (Order, error) {
	input.CustomerName = strings.TrimSpace(input.CustomerName)
	if input.CustomerName == "" || len(input.Items)+len(input.CustomItems) == 0 {
		return Order{}, ErrValidation
	}

	deliveryDate, err := s.parseDeliveryDate(input.DeliveryDate)
	if err != nil {
		return Order{}, err
	}
	items, err := s.resolveItems(ctx, input.Items)
	if err != nil {
		return Order{}, err
	}

	var customs []CustomOrder
	var total float64
	for _, item := range items {
		total += item.TotalPrice
	}
	for _, c := range input.CustomItems {
		if c.ProductName == "" || c.Quantity <= 0 || c.UnitPrice < 0 {
			return Order{}, ErrValidation
		}
		custom := CustomOrder{
			ProductName:    c.ProductName,
			Specifications: c.Specifications,
			Quantity:       c.Quantity,
			UnitPrice:      c.UnitPrice,
			TotalPrice:     float64(c.Quantity) * c.UnitPrice,
		}
		total += custom.TotalPrice
		customs = append(customs, custom)
	}

	order := Order{
		OrderNumber:   generateOrderNumber(),
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		CustomerEmail: input.CustomerEmail,
		TotalAmount:   total,
		Status:        OrderNew,
		OrderDate:     time.Now(),
		DeliveryDate:  deliveryDate,
		Notes:         input.Notes,
		UserID:        actor.UserID,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateOrder(ctx, order)
		if err != nil {
			return err
		}
		order.ID = id
		for _, item := range items {
			item.OrderID = id
			itemID, err := tx.CreateOrderItem(ctx, item)
			if err != nil {
				return err
			}
			item.ID = itemID
			order.Items = append(order.Items, item)
		}
		for _, custom := range customs {
			custom.OrderID = id
			customID, err := tx.CreateCustomOrder(ctx, custom)
			if err != nil {
				return err
			}
			custom.ID = customID
			order.CustomItems = append(order.CustomItems, custom)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, actor, "order.created", order.ID)
	return order, nil
}

// parseDeliveryDate turns the intake date into a nullable timestamp. An
// empty value is always NULL; a malformed one is NULL in tolerant mode and
// a validation failure in strict mode.
func (s *Service) parseDeliveryDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(deliveryDateLayout, raw)
	if err != nil {
		if s.strict {
			return nil, fmt.Errorf("%w: delivery date %q", ErrValidation, raw)
		}
		return nil, nil
	}
	return &parsed, nil
}

// resolveItems looks every line's product up in the catalog. A line that
// does not resolve, or with a non-positive quantity, is degraded to zero
// economics in tolerant mode and fails the order in strict mode. A zero
// unit price falls back to the catalog price.
func (s *Service) resolveItems(ctx context.Context, inputs []ItemInput) ([]OrderItem, error) {
	items := make([]OrderItem, 0, len(inputs))
	for _, in := range inputs {
		product, err := s.catalog.GetProduct(ctx, in.ProductID)
		if err != nil || in.Quantity <= 0 {
			if s.strict {
				return nil, fmt.Errorf("%w: order line product %d", ErrValidation, in.ProductID)
			}
			items = append(items, OrderItem{Quantity: in.Quantity})
			continue
		}
		unitPrice := in.UnitPrice
		if unitPrice == 0 {
			unitPrice = product.Price
		}
		productID := product.ID
		items = append(items, OrderItem{
			ProductID:  &productID,
			Quantity:   in.Quantity,
			UnitPrice:  unitPrice,
			TotalPrice: float64(in.Quantity) * unitPrice,
		})
	}
	return items, nil
}

// StartProduction moves a new order into production. At least one line must
// be producible.
func (s *Service) StartProduction(ctx context.Context, actor rbac.Principal, id int64) (Order, error) {
	return s.transition(ctx, actor, id, OrderInProduction)
}

// Complete finishes an in-production order.
func (s *Service) Complete(ctx context.Context, actor rbac.Principal, id int64) (Order, error) {
	return s.transition(ctx, actor, id, OrderCompleted)
}

// Cancel cancels a non-terminal order.
func (s *Service) Cancel(ctx context.Context, actor rbac.Principal, id int64) (Order, error) {
	return s.transition(ctx, actor, id, OrderCancelled)
}

func (s *Service) transition(ctx context.Context, actor rbac.Principal, id int64, target OrderStatus) (Order, error) {
	var order Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(current.Status, target) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, target)
		}
		if target == OrderInProduction && !hasProducibleItem(current.Items) {
			return fmt.Errorf("%w: order has no producible items", ErrInvalidTransition)
		}
		if err := tx.SetOrderStatus(ctx, id, target); err != nil {
			return err
		}
		current.Status = target
		order = current
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, actor, "order."+string(target), order.ID)
	return order, nil
}

// DeleteOrder removes the order together with its items and custom lines.
func (s *Service) DeleteOrder(ctx context.Context, actor rbac.Principal, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetOrderForUpdate(ctx, id); err != nil {
			return err
		}
		return tx.DeleteOrder(ctx, id)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "order.deleted", id)
	return nil
}

func hasProducibleItem(items []OrderItem) bool {
	for _, item := range items {
		if item.Producible() {
			return true
		}
	}
	return false
}

func generateOrderNumber() string {
	return "ORD-" + strings.ToUpper(uuid.NewString()[:8])
}

func (s *Service) recordAudit(ctx context.Context, actor rbac.Principal, action string, entityID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   "order",
		EntityID: fmt.Sprintf("%d", entityID),
	})
}
