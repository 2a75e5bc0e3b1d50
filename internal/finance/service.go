package finance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/therma-erp/therma-erp/internal/rbac"
	"github.com/therma-erp/therma-erp/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	InsertTransaction(ctx context.Context, tx FinancialTransaction) (int64, error)
	ListRecentTransactions(ctx context.Context, limit int) ([]FinancialTransaction, error)
	InsertSalaryPayment(ctx context.Context, payment SalaryPayment) (int64, error)
	ListSalaryPayments(ctx context.Context) ([]SalaryPayment, error)
	CreatePaymentMethod(ctx context.Context, method PaymentMethod) (int64, error)
	ListPaymentMethods(ctx context.Context) ([]PaymentMethod, error)
	CreateClient(ctx context.Context, client Client) (int64, error)
	ListClients(ctx context.Context) ([]Client, error)
	GetClient(ctx context.Context, id int64) (Client, error)
	CreateContract(ctx context.Context, contract Contract) (int64, error)
	ListContracts(ctx context.Context) ([]Contract, error)
	CreateExpenseCategory(ctx context.Context, category ExpenseCategory) (int64, error)
	ListExpenseCategories(ctx context.Context) ([]ExpenseCategory, error)
	CreateBudget(ctx context.Context, budget Budget) (int64, error)
	ListBudgets(ctx context.Context) ([]Budget, error)
	CreateReport(ctx context.Context, report Report) (int64, error)
	ListReports(ctx context.Context) ([]Report, error)
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	InsertSalaryPayment(ctx context.Context, payment SalaryPayment) (int64, error)
	InsertTransaction(ctx context.Context, tx FinancialTransaction) (int64, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns the financial ledger and the accountant's satellite
// records. The ledger is append-only: there is deliberately no update or
// delete operation for transactions.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// TransactionInput describes one ledger entry.
type TransactionInput struct {
	Type        TransactionType
	Amount      float64
	Description string
	Category    string
	Date        *time.Time
}

// RecordTransaction appends one ledger entry.
func (s *Service) RecordTransaction(ctx context.Context, actor rbac.Principal, input TransactionInput) (FinancialTransaction, error) {
	if input.Type != TransactionIncome && input.Type != TransactionExpense {
		return FinancialTransaction{}, fmt.Errorf("%w: transaction type %q", ErrValidation, input.Type)
	}
	if input.Amount <= 0 {
		return FinancialTransaction{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	date := time.Now()
	if input.Date != nil {
		date = *input.Date
	}
	transaction := FinancialTransaction{
		Type:        input.Type,
		Amount:      input.Amount,
		Description: input.Description,
		Category:    input.Category,
		Date:        date,
	}
	id, err := s.repo.InsertTransaction(ctx, transaction)
	if err != nil {
		return FinancialTransaction{}, err
	}
	transaction.ID = id
	s.recordAudit(ctx, actor, "transaction."+string(input.Type), id)
	return transaction, nil
}

// ListRecentTransactions returns the newest ledger entries.
func (s *Service) ListRecentTransactions(ctx context.Context, limit int) ([]FinancialTransaction, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.repo.ListRecentTransactions(ctx, limit)
}

// SalaryPaymentInput describes one payroll disbursement.
type SalaryPaymentInput struct {
	EmployeeName  string
	Amount        float64
	PaymentMethod string
}

// RecordSalaryPayment stores a payroll disbursement and mirrors it into
// the ledger as a salary expense. Both rows are written in one
// transaction so a failed mirror never leaves an unledgered payment.
func (s *Service) RecordSalaryPayment(ctx context.Context, actor rbac.Principal, input SalaryPaymentInput) (SalaryPayment, error) {
	input.EmployeeName = strings.TrimSpace(input.EmployeeName)
	if input.EmployeeName == "" || input.Amount <= 0 {
		return SalaryPayment{}, ErrValidation
	}
	payment := SalaryPayment{
		EmployeeName:  input.EmployeeName,
		Amount:        input.Amount,
		PaymentDate:   time.Now(),
		PaymentMethod: input.PaymentMethod,
	}
	var ledgerID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertSalaryPayment(ctx, payment)
		if err != nil {
			return err
		}
		payment.ID = id
		ledgerID, err = tx.InsertTransaction(ctx, FinancialTransaction{
			Type:        TransactionExpense,
			Amount:      input.Amount,
			Description: "salary: " + input.EmployeeName,
			Category:    "salary",
			Date:        payment.PaymentDate,
		})
		return err
	})
	if err != nil {
		return SalaryPayment{}, err
	}
	s.recordAudit(ctx, actor, "transaction."+string(TransactionExpense), ledgerID)
	return payment, nil
}

// ListSalaryPayments returns all payroll disbursements.
func (s *Service) ListSalaryPayments(ctx context.Context) ([]SalaryPayment, error) {
	return s.repo.ListSalaryPayments(ctx)
}

// CreatePaymentMethod registers a settlement channel.
func (s *Service) CreatePaymentMethod(ctx context.Context, name, description string) (PaymentMethod, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return PaymentMethod{}, ErrValidation
	}
	method := PaymentMethod{Name: name, Description: description}
	id, err := s.repo.CreatePaymentMethod(ctx, method)
	if err != nil {
		return PaymentMethod{}, err
	}
	method.ID = id
	return method, nil
}

// ListPaymentMethods returns all settlement channels.
func (s *Service) ListPaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	return s.repo.ListPaymentMethods(ctx)
}

// ClientInput describes the client creation payload.
type ClientInput struct {
	Name          string
	ContactPerson string
	Phone         string
	Email         string
	Address       string
}

// CreateClient registers a customer organisation.
func (s *Service) CreateClient(ctx context.Context, input ClientInput) (Client, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return Client{}, ErrValidation
	}
	client := Client{
		Name:          input.Name,
		ContactPerson: input.ContactPerson,
		Phone:         input.Phone,
		Email:         input.Email,
		Address:       input.Address,
	}
	id, err := s.repo.CreateClient(ctx, client)
	if err != nil {
		return Client{}, err
	}
	client.ID = id
	return client, nil
}

// ListClients returns all customer organisations.
func (s *Service) ListClients(ctx context.Context) ([]Client, error) {
	return s.repo.ListClients(ctx)
}

// ContractInput describes the contract creation payload.
type ContractInput struct {
	ContractNumber string
	ClientID       int64
	StartDate      time.Time
	EndDate        time.Time
	Amount         float64
}

// CreateContract binds a client for a period. Contract numbers are
// unique; violations surface as ErrDuplicate.
func (s *Service) CreateContract(ctx context.Context, input ContractInput) (Contract, error) {
	input.ContractNumber = strings.TrimSpace(input.ContractNumber)
	if input.ContractNumber == "" || input.Amount <= 0 || input.EndDate.Before(input.StartDate) {
		return Contract{}, ErrValidation
	}
	if _, err := s.repo.GetClient(ctx, input.ClientID); err != nil {
		return Contract{}, err
	}
	contract := Contract{
		ContractNumber: input.ContractNumber,
		ClientID:       input.ClientID,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		Amount:         input.Amount,
		Status:         "active",
	}
	id, err := s.repo.CreateContract(ctx, contract)
	if err != nil {
		return Contract{}, err
	}
	contract.ID = id
	return contract, nil
}

// ListContracts returns all contracts.
func (s *Service) ListContracts(ctx context.Context) ([]Contract, error) {
	return s.repo.ListContracts(ctx)
}

// CreateExpenseCategory registers an expense bucket.
func (s *Service) CreateExpenseCategory(ctx context.Context, name, description string) (ExpenseCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ExpenseCategory{}, ErrValidation
	}
	category := ExpenseCategory{Name: name, Description: description}
	id, err := s.repo.CreateExpenseCategory(ctx, category)
	if err != nil {
		return ExpenseCategory{}, err
	}
	category.ID = id
	return category, nil
}

// ListExpenseCategories returns all expense buckets.
func (s *Service) ListExpenseCategories(ctx context.Context) ([]ExpenseCategory, error) {
	return s.repo.ListExpenseCategories(ctx)
}

// BudgetInput describes the budget creation payload.
type BudgetInput struct {
	Name      string
	Amount    float64
	StartDate time.Time
	EndDate   time.Time
}

// CreateBudget opens a planned spend envelope.
func (s *Service) CreateBudget(ctx context.Context, input BudgetInput) (Budget, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" || input.Amount <= 0 || input.EndDate.Before(input.StartDate) {
		return Budget{}, ErrValidation
	}
	budget := Budget{
		Name:      input.Name,
		Amount:    input.Amount,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
	}
	id, err := s.repo.CreateBudget(ctx, budget)
	if err != nil {
		return Budget{}, err
	}
	budget.ID = id
	return budget, nil
}

// ListBudgets returns all budgets.
func (s *Service) ListBudgets(ctx context.Context) ([]Budget, error) {
	return s.repo.ListBudgets(ctx)
}

// CreateReport stores a generated report document.
func (s *Service) CreateReport(ctx context.Context, actor rbac.Principal, reportType, title, content string) (Report, error) {
	if strings.TrimSpace(reportType) == "" || strings.TrimSpace(title) == "" {
		return Report{}, ErrValidation
	}
	report := Report{
		ReportType:  reportType,
		Title:       title,
		Content:     content,
		GeneratedBy: actor.Username,
		GeneratedAt: time.Now(),
	}
	id, err := s.repo.CreateReport(ctx, report)
	if err != nil {
		return Report{}, err
	}
	report.ID = id
	return report, nil
}

// ListReports returns all stored reports.
func (s *Service) ListReports(ctx context.Context) ([]Report, error) {
	return s.repo.ListReports(ctx)
}

func (s *Service) recordAudit(ctx context.Context, actor rbac.Principal, action string, entityID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   "financial_transaction",
		EntityID: fmt.Sprintf("%d", entityID),
	})
}
