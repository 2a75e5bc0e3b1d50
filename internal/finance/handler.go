package finance

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/therma-erp/therma-erp/internal/platform/httpx"
	"github.com/therma-erp/therma-erp/internal/rbac"
)

// Handler exposes finance endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers finance routes. Ledger and payroll are accountant
// and director territory; contracts and budgets are also readable by the
// supplier desk.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(rbac.RoleAccountant, rbac.RoleDirector))
		r.Get("/transactions", h.handleListTransactions)
		r.Post("/transactions", h.handleRecordTransaction)
		r.Get("/salary-payments", h.handleListSalaryPayments)
		r.Post("/salary-payments", h.handleRecordSalaryPayment)
		r.Get("/payment-methods", h.handleListPaymentMethods)
		r.Post("/payment-methods", h.handleCreatePaymentMethod)
		r.Get("/clients", h.handleListClients)
		r.Post("/clients", h.handleCreateClient)
		r.Post("/contracts", h.handleCreateContract)
		r.Get("/expense-categories", h.handleListExpenseCategories)
		r.Post("/expense-categories", h.handleCreateExpenseCategory)
		r.Post("/budgets", h.handleCreateBudget)
		r.Get("/reports", h.handleListReports)
		r.Post("/reports", h.handleCreateReport)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(rbac.RoleAccountant, rbac.RoleSupplier, rbac.RoleDirector))
		r.Get("/contracts", h.handleListContracts)
		r.Get("/budgets", h.handleListBudgets)
	})
}

type transactionResponse struct {
	ID          int64     `json:"id"`
	Type        string    `json:"transaction_type"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Date        time.Time `json:"date"`
}

func toTransactionResponse(t FinancialTransaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Type:        string(t.Type),
		Amount:      t.Amount,
		Description: t.Description,
		Category:    t.Category,
		Date:        t.Date,
	}
}

func (h *Handler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	transactions, err := h.service.ListRecentTransactions(r.Context(), limit)
	if err != nil {
		h.logger.Error("list transactions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]transactionResponse, 0, len(transactions))
	for _, t := range transactions {
		out = append(out, toTransactionResponse(t))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type recordTransactionBody struct {
	Type        string     `json:"transaction_type" validate:"required,oneof=income expense"`
	Amount      float64    `json:"amount" validate:"gt=0"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Date        *time.Time `json:"date"`
}

func (h *Handler) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req recordTransactionBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	principal, _ := rbac.PrincipalFromContext(r.Context())
	transaction, err := h.service.RecordTransaction(r.Context(), principal, TransactionInput{
		Type:        TransactionType(req.Type),
		Amount:      req.Amount,
		Description: req.Description,
		Category:    req.Category,
		Date:        req.Date,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toTransactionResponse(transaction))
}

type salaryPaymentResponse struct {
	ID            int64     `json:"id"`
	EmployeeName  string    `json:"employee_name"`
	Amount        float64   `json:"amount"`
	PaymentDate   time.Time `json:"payment_date"`
	PaymentMethod string    `json:"payment_method,omitempty"`
}

func (h *Handler) handleListSalaryPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.ListSalaryPayments(r.Context())
	if err != nil {
		h.logger.Error("list salary payments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]salaryPaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, salaryPaymentResponse{
			ID:            p.ID,
			EmployeeName:  p.EmployeeName,
			Amount:        p.Amount,
			PaymentDate:   p.PaymentDate,
			PaymentMethod: p.PaymentMethod,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type recordSalaryPaymentBody struct {
	EmployeeName  string  `json:"employee_name" validate:"required"`
	Amount        float64 `json:"amount" validate:"gt=0"`
	PaymentMethod string  `json:"payment_method"`
}

func (h *Handler) handleRecordSalaryPayment(w http.ResponseWriter, r *http.Request) {
	var req recordSalaryPaymentBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	principal, _ := rbac.PrincipalFromContext(r.Context())
	payment, err := h.service.RecordSalaryPayment(r.Context(), principal, SalaryPaymentInput{
		EmployeeName:  req.EmployeeName,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, salaryPaymentResponse{
		ID:            payment.ID,
		EmployeeName:  payment.EmployeeName,
		Amount:        payment.Amount,
		PaymentDate:   payment.PaymentDate,
		PaymentMethod: payment.PaymentMethod,
	})
}

type namedRecordBody struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type namedRecordResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (h *Handler) handleListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.service.ListPaymentMethods(r.Context())
	if err != nil {
		h.logger.Error("list payment methods", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]namedRecordResponse, 0, len(methods))
	for _, m := range methods {
		out = append(out, namedRecordResponse{ID: m.ID, Name: m.Name, Description: m.Description})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleCreatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req namedRecordBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	method, err := h.service.CreatePaymentMethod(r.Context(), req.Name, req.Description)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, namedRecordResponse{ID: method.ID, Name: method.Name, Description: method.Description})
}

type clientResponse struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	ContactPerson string    `json:"contact_person,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
	Address       string    `json:"address,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (h *Handler) handleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.service.ListClients(r.Context())
	if err != nil {
		h.logger.Error("list clients", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]clientResponse, 0, len(clients))
	for _, c := range clients {
		out = append(out, clientResponse{
			ID:            c.ID,
			Name:          c.Name,
			ContactPerson: c.ContactPerson,
			Phone:         c.Phone,
			Email:         c.Email,
			Address:       c.Address,
			CreatedAt:     c.CreatedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type createClientBody struct {
	Name          string `json:"name" validate:"required"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email" validate:"omitempty,email"`
	Address       string `json:"address"`
}

func (h *Handler) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var req createClientBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	client, err := h.service.CreateClient(r.Context(), ClientInput{
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, clientResponse{
		ID:            client.ID,
		Name:          client.Name,
		ContactPerson: client.ContactPerson,
		Phone:         client.Phone,
		Email:         client.Email,
		Address:       client.Address,
		CreatedAt:     client.CreatedAt,
	})
}

type contractResponse struct {
	ID             int64     `json:"id"`
	ContractNumber string    `json:"contract_number"`
	ClientID       int64     `json:"client_id"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	Amount         float64   `json:"amount"`
	Status         string    `json:"status"`
}

func (h *Handler) handleListContracts(w http.ResponseWriter, r *http.Request) {
	contracts, err := h.service.ListContracts(r.Context())
	if err != nil {
		h.logger.Error("list contracts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]contractResponse, 0, len(contracts))
	for _, c := range contracts {
		out = append(out, contractResponse{
			ID:             c.ID,
			ContractNumber: c.ContractNumber,
			ClientID:       c.ClientID,
			StartDate:      c.StartDate,
			EndDate:        c.EndDate,
			Amount:         c.Amount,
			Status:         c.Status,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type createContractBody struct {
	ContractNumber string    `json:"contract_number" validate:"required"`
	ClientID       int64     `json:"client_id" validate:"required"`
	StartDate      time.Time `json:"start_date" validate:"required"`
	EndDate        time.Time `json:"end_date" validate:"required"`
	Amount         float64   `json:"amount" validate:"gt=0"`
}

func (h *Handler) handleCreateContract(w http.ResponseWriter, r *http.Request) {
	var req createContractBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	contract, err := h.service.CreateContract(r.Context(), ContractInput{
		ContractNumber: req.ContractNumber,
		ClientID:       req.ClientID,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Amount:         req.Amount,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, contractResponse{
		ID:             contract.ID,
		ContractNumber: contract.ContractNumber,
		ClientID:       contract.ClientID,
		StartDate:      contract.StartDate,
		EndDate:        contract.EndDate,
		Amount:         contract.Amount,
		Status:         contract.Status,
	})
}

func (h *Handler) handleListExpenseCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListExpenseCategories(r.Context())
	if err != nil {
		h.logger.Error("list expense categories", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]namedRecordResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, namedRecordResponse{ID: c.ID, Name: c.Name, Description: c.Description})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleCreateExpenseCategory(w http.ResponseWriter, r *http.Request) {
	var req namedRecordBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	category, err := h.service.CreateExpenseCategory(r.Context(), req.Name, req.Description)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, namedRecordResponse{ID: category.ID, Name: category.Name, Description: category.Description})
}

type budgetResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Amount      float64   `json:"amount"`
	SpentAmount float64   `json:"spent_amount"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}

func (h *Handler) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := h.service.ListBudgets(r.Context())
	if err != nil {
		h.logger.Error("list budgets", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, budgetResponse{
			ID:          b.ID,
			Name:        b.Name,
			Amount:      b.Amount,
			SpentAmount: b.SpentAmount,
			StartDate:   b.StartDate,
			EndDate:     b.EndDate,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type createBudgetBody struct {
	Name      string    `json:"name" validate:"required"`
	Amount    float64   `json:"amount" validate:"gt=0"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
}

func (h *Handler) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req createBudgetBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	budget, err := h.service.CreateBudget(r.Context(), BudgetInput{
		Name:      req.Name,
		Amount:    req.Amount,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, budgetResponse{
		ID:          budget.ID,
		Name:        budget.Name,
		Amount:      budget.Amount,
		SpentAmount: budget.SpentAmount,
		StartDate:   budget.StartDate,
		EndDate:     budget.EndDate,
	})
}

type reportResponse struct {
	ID          int64     `json:"id"`
	ReportType  string    `json:"report_type"`
	Title       string    `json:"title"`
	Content     string    `json:"content,omitempty"`
	GeneratedBy string    `json:"generated_by,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

func (h *Handler) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.service.ListReports(r.Context())
	if err != nil {
		h.logger.Error("list reports", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]reportResponse, 0, len(reports))
	for _, rep := range reports {
		out = append(out, reportResponse{
			ID:          rep.ID,
			ReportType:  rep.ReportType,
			Title:       rep.Title,
			Content:     rep.Content,
			GeneratedBy: rep.GeneratedBy,
			GeneratedAt: rep.GeneratedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type createReportBody struct {
	ReportType string `json:"report_type" validate:"required"`
	Title      string `json:"title" validate:"required"`
	Content    string `json:"content"`
}

func (h *Handler) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req createReportBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	principal, _ := rbac.PrincipalFromContext(r.Context())
	report, err := h.service.CreateReport(r.Context(), principal, req.ReportType, req.Title, req.Content)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, reportResponse{
		ID:          report.ID,
		ReportType:  report.ReportType,
		Title:       report.Title,
		Content:     report.Content,
		GeneratedBy: report.GeneratedBy,
		GeneratedAt: report.GeneratedAt,
	})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "record does not exist")
	case errors.Is(err, ErrDuplicate):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "a contract with this number already exists")
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("finance operation", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
