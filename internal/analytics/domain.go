package analytics

// FinancialSummary is the recomputed income/expense/profit triple.
type FinancialSummary struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Profit  float64 `json:"profit"`
}

// OrderStatusCounts is the order histogram over the fixed status set.
type OrderStatusCounts struct {
	New          int64 `json:"new"`
	InProduction int64 `json:"in_production"`
	Completed    int64 `json:"completed"`
	Cancelled    int64 `json:"cancelled"`
}

// Total sums the histogram buckets.
func (c OrderStatusCounts) Total() int64 {
	return c.New + c.InProduction + c.Completed + c.Cancelled
}

// TaskStatusCounts is the production task histogram.
type TaskStatusCounts struct {
	Waiting    int64 `json:"waiting"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
}

// Total sums the histogram buckets.
func (c TaskStatusCounts) Total() int64 {
	return c.Waiting + c.InProgress + c.Completed
}

// RequestStatusCounts is the resource request histogram.
type RequestStatusCounts struct {
	Pending   int64 `json:"pending"`
	Approved  int64 `json:"approved"`
	Rejected  int64 `json:"rejected"`
	Purchased int64 `json:"purchased"`
	Delivered int64 `json:"delivered"`
}

// Total sums the histogram buckets.
func (c RequestStatusCounts) Total() int64 {
	return c.Pending + c.Approved + c.Rejected + c.Purchased + c.Delivered
}

// InventoryHealth is the warehouse stock overview.
type InventoryHealth struct {
	TotalItems int64   `json:"total_items"`
	LowStock   int64   `json:"low_stock"`
	OutOfStock int64   `json:"out_of_stock"`
	TotalValue float64 `json:"total_value"`
}
