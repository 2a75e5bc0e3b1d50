// Package dashboard composes per-role overview endpoints from the module
// services and the aggregation engine. It owns no state of its own; every
// response is assembled from current entity data at request time.
package dashboard

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/therma-erp/therma-erp/internal/analytics"
	"github.com/therma-erp/therma-erp/internal/finance"
	"github.com/therma-erp/therma-erp/internal/inventory"
	"github.com/therma-erp/therma-erp/internal/orders"
	"github.com/therma-erp/therma-erp/internal/platform/httpx"
	"github.com/therma-erp/therma-erp/internal/procurement"
	"github.com/therma-erp/therma-erp/internal/production"
	"github.com/therma-erp/therma-erp/internal/rbac"
	"github.com/therma-erp/therma-erp/internal/users"
)

const recentTransactionLimit = 10

// Handler serves the six role dashboards.
type Handler struct {
	logger      *slog.Logger
	guard       rbac.Middleware
	users       *users.Service
	orders      *orders.Service
	procurement *procurement.Service
	inventory   *inventory.Service
	production  *production.Service
	finance     *finance.Service
	analytics   *analytics.Service
}

// NewHandler builds Handler instance.
func NewHandler(
	logger *slog.Logger,
	guard rbac.Middleware,
	usersSvc *users.Service,
	ordersSvc *orders.Service,
	procurementSvc *procurement.Service,
	inventorySvc *inventory.Service,
	productionSvc *production.Service,
	financeSvc *finance.Service,
	analyticsSvc *analytics.Service,
) *Handler {
	return &Handler{
		logger:      logger,
		guard:       guard,
		users:       usersSvc,
		orders:      ordersSvc,
		procurement: procurementSvc,
		inventory:   inventorySvc,
		production:  productionSvc,
		finance:     financeSvc,
		analytics:   analyticsSvc,
	}
}

// MountRoutes registers one route per role. Each dashboard is reachable by
// its own role and by the director.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.RequireAny(rbac.RoleDirector)).Get("/director", h.handleDirector)
	r.With(h.guard.RequireAny(rbac.RoleManager, rbac.RoleDirector)).Get("/manager", h.handleManager)
	r.With(h.guard.RequireAny(rbac.RoleSupplier, rbac.RoleDirector)).Get("/supplier", h.handleSupplier)
	r.With(h.guard.RequireAny(rbac.RoleWarehouse, rbac.RoleDirector)).Get("/warehouse", h.handleWarehouse)
	r.With(h.guard.RequireAny(rbac.RoleProduction, rbac.RoleDirector)).Get("/production", h.handleProduction)
	r.With(h.guard.RequireAny(rbac.RoleAccountant, rbac.RoleDirector)).Get("/accountant", h.handleAccountant)
}

type userSummary struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	FullName string   `json:"full_name,omitempty"`
	IsActive bool     `json:"is_active"`
	Roles    []string `json:"roles"`
}

type orderSummary struct {
	ID           int64      `json:"id"`
	OrderNumber  string     `json:"order_number"`
	CustomerName string     `json:"customer_name"`
	TotalAmount  float64    `json:"total_amount"`
	Status       string     `json:"status"`
	OrderDate    time.Time  `json:"order_date"`
	DeliveryDate *time.Time `json:"delivery_date,omitempty"`
}

type resourceSummary struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type,omitempty"`
	Quantity    int64   `json:"quantity"`
	Unit        string  `json:"unit,omitempty"`
	CostPerUnit float64 `json:"cost_per_unit"`
	CompanyName string  `json:"company_name,omitempty"`
}

type requestSummary struct {
	ID           int64     `json:"id"`
	ResourceName string    `json:"resource_name"`
	Quantity     int64     `json:"quantity"`
	Priority     string    `json:"priority"`
	Status       string    `json:"status"`
	RequestedBy  string    `json:"requested_by"`
	CreatedAt    time.Time `json:"created_at"`
}

type itemSummary struct {
	ID          int64  `json:"id"`
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
	MinStock    int64  `json:"min_stock"`
	Location    string `json:"location,omitempty"`
	LowStock    bool   `json:"low_stock"`
	OutOfStock  bool   `json:"out_of_stock"`
}

type taskSummary struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	Priority   string     `json:"priority"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	AssignedTo string     `json:"assigned_to,omitempty"`
}

type transactionSummary struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
}

type salarySummary struct {
	ID            int64     `json:"id"`
	EmployeeName  string    `json:"employee_name"`
	Amount        float64   `json:"amount"`
	PaymentDate   time.Time `json:"payment_date"`
	PaymentMethod string    `json:"payment_method,omitempty"`
}

func (h *Handler) handleDirector(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accounts, err := h.users.ListUsers(ctx)
	if err != nil {
		h.fail(w, "director dashboard users", err)
		return
	}
	summary, err := h.analytics.FinancialSummary(ctx)
	if err != nil {
		h.fail(w, "director dashboard finances", err)
		return
	}
	orderCounts, err := h.analytics.OrderCounts(ctx)
	if err != nil {
		h.fail(w, "director dashboard orders", err)
		return
	}
	taskCounts, err := h.analytics.TaskCounts(ctx)
	if err != nil {
		h.fail(w, "director dashboard tasks", err)
		return
	}
	requestCounts, err := h.analytics.RequestCounts(ctx)
	if err != nil {
		h.fail(w, "director dashboard requests", err)
		return
	}
	recent, err := h.finance.ListRecentTransactions(ctx, recentTransactionLimit)
	if err != nil {
		h.fail(w, "director dashboard transactions", err)
		return
	}

	userList := make([]userSummary, 0, len(accounts))
	for _, u := range accounts {
		full := u.FirstName
		if u.LastName != "" {
			if full != "" {
				full += " "
			}
			full += u.LastName
		}
		userList = append(userList, userSummary{
			ID:       u.ID,
			Username: u.Username,
			FullName: full,
			IsActive: u.IsActive,
			Roles:    u.Roles,
		})
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"users":               userList,
		"financial_summary":   summary,
		"order_counts":        orderCounts,
		"task_counts":         taskCounts,
		"request_counts":      requestCounts,
		"recent_transactions": toTransactionSummaries(recent),
	})
}

func (h *Handler) handleManager(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	all, err := h.orders.ListOrders(ctx)
	if err != nil {
		h.fail(w, "manager dashboard orders", err)
		return
	}
	counts, err := h.analytics.OrderCounts(ctx)
	if err != nil {
		h.fail(w, "manager dashboard counts", err)
		return
	}

	list := make([]orderSummary, 0, len(all))
	for _, o := range all {
		list = append(list, orderSummary{
			ID:           o.ID,
			OrderNumber:  o.OrderNumber,
			CustomerName: o.CustomerName,
			TotalAmount:  o.TotalAmount,
			Status:       string(o.Status),
			OrderDate:    o.OrderDate,
			DeliveryDate: o.DeliveryDate,
		})
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"orders":       list,
		"order_counts": counts,
	})
}

func (h *Handler) handleSupplier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resources, err := h.procurement.ListResources(ctx)
	if err != nil {
		h.fail(w, "supplier dashboard resources", err)
		return
	}
	requests, err := h.procurement.ListRequests(ctx)
	if err != nil {
		h.fail(w, "supplier dashboard requests", err)
		return
	}
	counts, err := h.analytics.RequestCounts(ctx)
	if err != nil {
		h.fail(w, "supplier dashboard counts", err)
		return
	}

	resourceList := make([]resourceSummary, 0, len(resources))
	for _, res := range resources {
		resourceList = append(resourceList, resourceSummary{
			ID:          res.ID,
			Name:        res.Name,
			Type:        res.Type,
			Quantity:    res.Quantity,
			Unit:        res.Unit,
			CostPerUnit: res.CostPerUnit,
			CompanyName: res.CompanyName,
		})
	}
	requestList := make([]requestSummary, 0, len(requests))
	for _, req := range requests {
		requestList = append(requestList, requestSummary{
			ID:           req.ID,
			ResourceName: req.ResourceName,
			Quantity:     req.Quantity,
			Priority:     req.Priority,
			Status:       string(req.Status),
			RequestedBy:  req.RequestedBy,
			CreatedAt:    req.CreatedAt,
		})
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"resources":      resourceList,
		"requests":       requestList,
		"request_counts": counts,
	})
}

func (h *Handler) handleWarehouse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := h.inventory.ListItems(ctx)
	if err != nil {
		h.fail(w, "warehouse dashboard items", err)
		return
	}
	health, err := h.analytics.InventoryHealth(ctx)
	if err != nil {
		h.fail(w, "warehouse dashboard health", err)
		return
	}

	list := make([]itemSummary, 0, len(items))
	for _, item := range items {
		list = append(list, itemSummary{
			ID:          item.ID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			MinStock:    item.MinStock,
			Location:    item.Location,
			LowStock:    item.LowStock(),
			OutOfStock:  item.OutOfStock(),
		})
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":  list,
		"health": health,
	})
}

func (h *Handler) handleProduction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tasks, err := h.production.ListTasks(ctx)
	if err != nil {
		h.fail(w, "production dashboard tasks", err)
		return
	}
	allOrders, err := h.orders.ListOrders(ctx)
	if err != nil {
		h.fail(w, "production dashboard orders", err)
		return
	}
	counts, err := h.analytics.TaskCounts(ctx)
	if err != nil {
		h.fail(w, "production dashboard counts", err)
		return
	}
	efficiency, err := h.analytics.Efficiency(ctx)
	if err != nil {
		h.fail(w, "production dashboard efficiency", err)
		return
	}

	taskList := make([]taskSummary, 0, len(tasks))
	for _, task := range tasks {
		taskList = append(taskList, taskSummary{
			ID:         task.ID,
			Name:       task.Name,
			Status:     string(task.Status),
			Priority:   task.Priority,
			StartDate:  task.StartDate,
			EndDate:    task.EndDate,
			AssignedTo: task.AssignedTo,
		})
	}
	inProduction := make([]orderSummary, 0)
	for _, o := range allOrders {
		if o.Status != orders.OrderInProduction {
			continue
		}
		inProduction = append(inProduction, orderSummary{
			ID:           o.ID,
			OrderNumber:  o.OrderNumber,
			CustomerName: o.CustomerName,
			TotalAmount:  o.TotalAmount,
			Status:       string(o.Status),
			OrderDate:    o.OrderDate,
			DeliveryDate: o.DeliveryDate,
		})
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"tasks":                taskList,
		"orders_in_production": inProduction,
		"task_counts":          counts,
		"efficiency":           efficiency,
	})
}

func (h *Handler) handleAccountant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	recent, err := h.finance.ListRecentTransactions(ctx, recentTransactionLimit)
	if err != nil {
		h.fail(w, "accountant dashboard transactions", err)
		return
	}
	salaries, err := h.finance.ListSalaryPayments(ctx)
	if err != nil {
		h.fail(w, "accountant dashboard salaries", err)
		return
	}
	summary, err := h.analytics.FinancialSummary(ctx)
	if err != nil {
		h.fail(w, "accountant dashboard summary", err)
		return
	}
	monthly, err := h.analytics.MonthlyFinancialSummary(ctx)
	if err != nil {
		h.fail(w, "accountant dashboard monthly", err)
		return
	}

	salaryList := make([]salarySummary, 0, len(salaries))
	for _, p := range salaries {
		salaryList = append(salaryList, salarySummary{
			ID:            p.ID,
			EmployeeName:  p.EmployeeName,
			Amount:        p.Amount,
			PaymentDate:   p.PaymentDate,
			PaymentMethod: p.PaymentMethod,
		})
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"recent_transactions": toTransactionSummaries(recent),
		"salary_payments":     salaryList,
		"financial_summary":   summary,
		"monthly_summary":     monthly,
	})
}

func toTransactionSummaries(list []finance.FinancialTransaction) []transactionSummary {
	out := make([]transactionSummary, 0, len(list))
	for _, t := range list {
		out = append(out, transactionSummary{
			ID:          t.ID,
			Type:        string(t.Type),
			Amount:      t.Amount,
			Category:    t.Category,
			Description: t.Description,
			Date:        t.Date,
		})
	}
	return out
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
