package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubSource struct {
	income  float64
	expense float64

	monthly map[string][2]float64

	orderCounts   map[string]int64
	taskCounts    map[string]int64
	requestCounts map[string]int64
	stock         []StockRow
}

func (s *stubSource) TransactionTotals(ctx context.Context) (float64, float64, error) {
	return s.income, s.expense, nil
}

func (s *stubSource) MonthlyTransactionTotals(ctx context.Context, year int, month time.Month) (float64, float64, error) {
	key := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
	totals := s.monthly[key]
	return totals[0], totals[1], nil
}

func (s *stubSource) OrderCountsByStatus(ctx context.Context) (map[string]int64, error) {
	return s.orderCounts, nil
}

func (s *stubSource) TaskCountsByStatus(ctx context.Context) (map[string]int64, error) {
	return s.taskCounts, nil
}

func (s *stubSource) RequestCountsByStatus(ctx context.Context) (map[string]int64, error) {
	return s.requestCounts, nil
}

func (s *stubSource) StockRows(ctx context.Context) ([]StockRow, error) {
	return s.stock, nil
}

func TestFinancialSummaryProfit(t *testing.T) {
	svc := NewService(&stubSource{income: 500000, expense: 200000})

	summary, err := svc.FinancialSummary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 500000.0, summary.Income)
	require.Equal(t, 200000.0, summary.Expense)
	require.Equal(t, 300000.0, summary.Profit)
}

func TestMonthlyFinancialSummaryUsesCurrentMonth(t *testing.T) {
	svc := NewService(&stubSource{
		income:  999999,
		expense: 999999,
		monthly: map[string][2]float64{
			"2026-03": {120000, 45000},
			"2026-04": {1, 1},
		},
	})
	svc.now = func() time.Time {
		return time.Date(2026, time.March, 17, 10, 0, 0, 0, time.UTC)
	}

	summary, err := svc.MonthlyFinancialSummary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 120000.0, summary.Income)
	require.Equal(t, 45000.0, summary.Expense)
	require.Equal(t, 75000.0, summary.Profit)
}

func TestOrderCountsExcludeUnknownStatuses(t *testing.T) {
	svc := NewService(&stubSource{
		orderCounts: map[string]int64{
			"new":           3,
			"in_production": 2,
			"completed":     5,
			"cancelled":     1,
			"legacy":        7,
		},
	})

	counts, err := svc.OrderCounts(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), counts.New)
	require.Equal(t, int64(2), counts.InProduction)
	require.Equal(t, int64(5), counts.Completed)
	require.Equal(t, int64(1), counts.Cancelled)
	require.Equal(t, int64(11), counts.Total())
}

func TestRequestCounts(t *testing.T) {
	svc := NewService(&stubSource{
		requestCounts: map[string]int64{
			"pending":   4,
			"approved":  2,
			"delivered": 1,
		},
	})

	counts, err := svc.RequestCounts(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(4), counts.Pending)
	require.Equal(t, int64(2), counts.Approved)
	require.Zero(t, counts.Rejected)
	require.Zero(t, counts.Purchased)
	require.Equal(t, int64(1), counts.Delivered)
}

func TestEfficiency(t *testing.T) {
	svc := NewService(&stubSource{
		taskCounts: map[string]int64{
			"waiting":     1,
			"in_progress": 1,
			"completed":   2,
		},
	})

	eff, err := svc.Efficiency(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 0.5, eff, 1e-9)
}

func TestEfficiencyZeroWhenNoTasks(t *testing.T) {
	svc := NewService(&stubSource{taskCounts: map[string]int64{}})

	eff, err := svc.Efficiency(context.Background())
	require.NoError(t, err)
	require.Zero(t, eff)
}

func TestInventoryHealth(t *testing.T) {
	svc := NewService(&stubSource{
		stock: []StockRow{
			{Quantity: 10, MinStock: 5, PricePerUnit: 100},
			{Quantity: 2, MinStock: 5, PricePerUnit: 50},
			{Quantity: 0, MinStock: 3, PricePerUnit: 700},
		},
	})

	health, err := svc.InventoryHealth(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), health.TotalItems)
	require.Equal(t, int64(2), health.LowStock)
	require.Equal(t, int64(1), health.OutOfStock)
	require.Equal(t, 1100.0, health.TotalValue)
}
