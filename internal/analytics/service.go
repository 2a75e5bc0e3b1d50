package analytics

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// StockRow is one inventory record as the aggregation engine sees it.
type StockRow struct {
	Quantity     int64
	MinStock     int64
	PricePerUnit float64
}

// Source reads current entity state for the aggregations. Every method
// reflects the store as of the call; nothing is cached.
type Source interface {
	TransactionTotals(ctx context.Context) (income, expense float64, err error)
	MonthlyTransactionTotals(ctx context.Context, year int, month time.Month) (income, expense float64, err error)
	OrderCountsByStatus(ctx context.Context) (map[string]int64, error)
	TaskCountsByStatus(ctx context.Context) (map[string]int64, error)
	RequestCountsByStatus(ctx context.Context) (map[string]int64, error)
	StockRows(ctx context.Context) ([]StockRow, error)
}

// Service recomputes dashboard aggregates on every request. Concurrent
// identical loads are collapsed through singleflight; results are never
// reused across calls.
type Service struct {
	source Source
	group  singleflight.Group
	now    func() time.Time
}

// NewService builds Service instance.
func NewService(source Source) *Service {
	return &Service{source: source, now: time.Now}
}

// FinancialSummary recomputes income, expense and profit from the full
// ledger.
func (s *Service) FinancialSummary(ctx context.Context) (FinancialSummary, error) {
	v, err, _ := s.group.Do("financial-summary", func() (any, error) {
		income, expense, err := s.source.TransactionTotals(ctx)
		if err != nil {
			return FinancialSummary{}, err
		}
		return FinancialSummary{Income: income, Expense: expense, Profit: income - expense}, nil
	})
	if err != nil {
		return FinancialSummary{}, err
	}
	return v.(FinancialSummary), nil
}

// MonthlyFinancialSummary recomputes the triple for the caller's current
// wall-clock month.
func (s *Service) MonthlyFinancialSummary(ctx context.Context) (FinancialSummary, error) {
	now := s.now()
	v, err, _ := s.group.Do("monthly-financial-summary", func() (any, error) {
		income, expense, err := s.source.MonthlyTransactionTotals(ctx, now.Year(), now.Month())
		if err != nil {
			return FinancialSummary{}, err
		}
		return FinancialSummary{Income: income, Expense: expense, Profit: income - expense}, nil
	})
	if err != nil {
		return FinancialSummary{}, err
	}
	return v.(FinancialSummary), nil
}

// OrderCounts buckets orders over the fixed status set. Unknown status
// values are excluded.
func (s *Service) OrderCounts(ctx context.Context) (OrderStatusCounts, error) {
	v, err, _ := s.group.Do("order-counts", func() (any, error) {
		raw, err := s.source.OrderCountsByStatus(ctx)
		if err != nil {
			return OrderStatusCounts{}, err
		}
		return OrderStatusCounts{
			New:          raw["new"],
			InProduction: raw["in_production"],
			Completed:    raw["completed"],
			Cancelled:    raw["cancelled"],
		}, nil
	})
	if err != nil {
		return OrderStatusCounts{}, err
	}
	return v.(OrderStatusCounts), nil
}

// TaskCounts buckets production tasks over the fixed status set. Unknown
// status values are excluded.
func (s *Service) TaskCounts(ctx context.Context) (TaskStatusCounts, error) {
	v, err, _ := s.group.Do("task-counts", func() (any, error) {
		raw, err := s.source.TaskCountsByStatus(ctx)
		if err != nil {
			return TaskStatusCounts{}, err
		}
		return TaskStatusCounts{
			Waiting:    raw["waiting"],
			InProgress: raw["in_progress"],
			Completed:  raw["completed"],
		}, nil
	})
	if err != nil {
		return TaskStatusCounts{}, err
	}
	return v.(TaskStatusCounts), nil
}

// RequestCounts buckets resource requests over the fixed status set.
// Unknown status values are excluded.
func (s *Service) RequestCounts(ctx context.Context) (RequestStatusCounts, error) {
	v, err, _ := s.group.Do("request-counts", func() (any, error) {
		raw, err := s.source.RequestCountsByStatus(ctx)
		if err != nil {
			return RequestStatusCounts{}, err
		}
		return RequestStatusCounts{
			Pending:   raw["pending"],
			Approved:  raw["approved"],
			Rejected:  raw["rejected"],
			Purchased: raw["purchased"],
			Delivered: raw["delivered"],
		}, nil
	})
	if err != nil {
		return RequestStatusCounts{}, err
	}
	return v.(RequestStatusCounts), nil
}

// InventoryHealth derives the stock overview from current records.
func (s *Service) InventoryHealth(ctx context.Context) (InventoryHealth, error) {
	v, err, _ := s.group.Do("inventory-health", func() (any, error) {
		rows, err := s.source.StockRows(ctx)
		if err != nil {
			return InventoryHealth{}, err
		}
		var health InventoryHealth
		for _, row := range rows {
			health.TotalItems++
			if row.Quantity < row.MinStock {
				health.LowStock++
			}
			if row.Quantity == 0 {
				health.OutOfStock++
			}
			health.TotalValue += float64(row.Quantity) * row.PricePerUnit
		}
		return health, nil
	})
	if err != nil {
		return InventoryHealth{}, err
	}
	return v.(InventoryHealth), nil
}

// Efficiency is the completed share of all production tasks, 0 when there
// are no tasks.
func (s *Service) Efficiency(ctx context.Context) (float64, error) {
	counts, err := s.TaskCounts(ctx)
	if err != nil {
		return 0, err
	}
	total := counts.Total()
	if total == 0 {
		return 0, nil
	}
	return float64(counts.Completed) / float64(total), nil
}
