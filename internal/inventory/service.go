package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/therma-erp/therma-erp/internal/rbac"
	"github.com/therma-erp/therma-erp/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListItems(ctx context.Context) ([]InventoryItem, error)
	GetItem(ctx context.Context, id int64) (InventoryItem, error)
	ListTransactions(ctx context.Context, limit int) ([]InventoryTransaction, error)
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	CreateItem(ctx context.Context, item InventoryItem) (int64, error)
	GetItemForUpdate(ctx context.Context, id int64) (InventoryItem, error)
	SetItemQuantity(ctx context.Context, id int64, quantity int64, at time.Time) error
	InsertTransaction(ctx context.Context, tx InventoryTransaction) (int64, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service keeps stock balances and their movement ledger in lockstep:
// the item quantity is only ever written together with a ledger row in
// one transaction.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// ListItems returns all stock records.
func (s *Service) ListItems(ctx context.Context) ([]InventoryItem, error) {
	return s.repo.ListItems(ctx)
}

// GetItem fetches a single stock record.
func (s *Service) GetItem(ctx context.Context, id int64) (InventoryItem, error) {
	return s.repo.GetItem(ctx, id)
}

// ListTransactions returns the most recent ledger movements.
func (s *Service) ListTransactions(ctx context.Context, limit int) ([]InventoryTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListTransactions(ctx, limit)
}

// ItemInput describes the stock record creation payload.
type ItemInput struct {
	ProductID    int64
	Quantity     int64
	MinStock     int64
	PricePerUnit float64
	Location     string
}

// CreateItem opens a stock record. A non-zero opening quantity is posted
// as an inbound movement so the ledger balances from the first row.
func (s *Service) CreateItem(ctx context.Context, actor rbac.Principal, input ItemInput) (InventoryItem, error) {
	if input.ProductID == 0 || input.Quantity < 0 || input.MinStock < 0 || input.PricePerUnit < 0 {
		return InventoryItem{}, ErrValidation
	}
	item := InventoryItem{
		ProductID:    input.ProductID,
		Quantity:     input.Quantity,
		MinStock:     input.MinStock,
		PricePerUnit: input.PricePerUnit,
		Location:     input.Location,
		LastUpdated:  time.Now(),
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateItem(ctx, item)
		if err != nil {
			return err
		}
		item.ID = id
		if item.Quantity > 0 {
			_, err = tx.InsertTransaction(ctx, InventoryTransaction{
				ProductID: item.ProductID,
				Type:      MovementIn,
				Quantity:  item.Quantity,
				Reason:    "opening balance",
			})
		}
		return err
	})
	if err != nil {
		return InventoryItem{}, err
	}
	s.recordAudit(ctx, actor, "item.created", item.ID)
	return item, nil
}

// MovementInput describes one ledger posting.
type MovementInput struct {
	ItemID   int64
	Type     MovementType
	Quantity int64
	Reason   string
}

// PostMovement appends a ledger row and moves the item balance in the same
// transaction. An outbound movement larger than the current balance is
// rejected and nothing is written.
func (s *Service) PostMovement(ctx context.Context, actor rbac.Principal, input MovementInput) (InventoryItem, error) {
	if input.Quantity <= 0 {
		return InventoryItem{}, ErrValidation
	}
	if input.Type != MovementIn && input.Type != MovementOut {
		return InventoryItem{}, fmt.Errorf("%w: movement type %q", ErrValidation, input.Type)
	}
	var item InventoryItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetItemForUpdate(ctx, input.ItemID)
		if err != nil {
			return err
		}
		balance := current.Quantity
		if input.Type == MovementIn {
			balance += input.Quantity
		} else {
			balance -= input.Quantity
		}
		if balance < 0 {
			return fmt.Errorf("%w: %d on hand, %d requested", ErrInsufficientStock, current.Quantity, input.Quantity)
		}
		now := time.Now()
		if _, err := tx.InsertTransaction(ctx, InventoryTransaction{
			ProductID: current.ProductID,
			Type:      input.Type,
			Quantity:  input.Quantity,
			Reason:    input.Reason,
		}); err != nil {
			return err
		}
		if err := tx.SetItemQuantity(ctx, current.ID, balance, now); err != nil {
			return err
		}
		current.Quantity = balance
		current.LastUpdated = now
		item = current
		return nil
	})
	if err != nil {
		return InventoryItem{}, err
	}
	s.recordAudit(ctx, actor, "movement."+string(input.Type), item.ID)
	return item, nil
}

func (s *Service) recordAudit(ctx context.Context, actor rbac.Principal, action string, entityID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   "inventory_item",
		EntityID: fmt.Sprintf("%d", entityID),
	})
}
