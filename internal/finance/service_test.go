package finance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/therma-erp/therma-erp/internal/rbac"
)

type memoryFinanceRepo struct {
	transactions []FinancialTransaction
	salaries     []SalaryPayment
	methods      []PaymentMethod
	clients      map[int64]Client
	contracts    map[string]Contract
	categories   []ExpenseCategory
	budgets      []Budget
	reports      []Report
	nextID       int64
}

func newMemoryFinanceRepo() *memoryFinanceRepo {
	return &memoryFinanceRepo{
		clients:   make(map[int64]Client),
		contracts: make(map[string]Contract),
	}
}

func (r *memoryFinanceRepo) id() int64 {
	r.nextID++
	return r.nextID
}

// WithTx snapshots the tx-visible slices and restores them when the
// callback fails, mirroring a rollback.
func (r *memoryFinanceRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	salaries := append([]SalaryPayment(nil), r.salaries...)
	transactions := append([]FinancialTransaction(nil), r.transactions...)
	if err := fn(ctx, r); err != nil {
		r.salaries = salaries
		r.transactions = transactions
		return err
	}
	return nil
}

func (r *memoryFinanceRepo) InsertTransaction(ctx context.Context, t FinancialTransaction) (int64, error) {
	t.ID = r.id()
	t.CreatedAt = time.Now()
	r.transactions = append(r.transactions, t)
	return t.ID, nil
}

func (r *memoryFinanceRepo) ListRecentTransactions(ctx context.Context, limit int) ([]FinancialTransaction, error) {
	if limit > len(r.transactions) {
		limit = len(r.transactions)
	}
	out := make([]FinancialTransaction, 0, limit)
	for i := len(r.transactions) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.transactions[i])
	}
	return out, nil
}

func (r *memoryFinanceRepo) InsertSalaryPayment(ctx context.Context, p SalaryPayment) (int64, error) {
	p.ID = r.id()
	r.salaries = append(r.salaries, p)
	return p.ID, nil
}

func (r *memoryFinanceRepo) ListSalaryPayments(ctx context.Context) ([]SalaryPayment, error) {
	return r.salaries, nil
}

func (r *memoryFinanceRepo) CreatePaymentMethod(ctx context.Context, m PaymentMethod) (int64, error) {
	m.ID = r.id()
	r.methods = append(r.methods, m)
	return m.ID, nil
}

func (r *memoryFinanceRepo) ListPaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	return r.methods, nil
}

func (r *memoryFinanceRepo) CreateClient(ctx context.Context, c Client) (int64, error) {
	c.ID = r.id()
	r.clients[c.ID] = c
	return c.ID, nil
}

func (r *memoryFinanceRepo) ListClients(ctx context.Context) ([]Client, error) {
	out := make([]Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out, nil
}

func (r *memoryFinanceRepo) GetClient(ctx context.Context, id int64) (Client, error) {
	c, ok := r.clients[id]
	if !ok {
		return Client{}, ErrNotFound
	}
	return c, nil
}

func (r *memoryFinanceRepo) CreateContract(ctx context.Context, c Contract) (int64, error) {
	if _, ok := r.contracts[c.ContractNumber]; ok {
		return 0, ErrDuplicate
	}
	c.ID = r.id()
	r.contracts[c.ContractNumber] = c
	return c.ID, nil
}

func (r *memoryFinanceRepo) ListContracts(ctx context.Context) ([]Contract, error) {
	out := make([]Contract, 0, len(r.contracts))
	for _, c := range r.contracts {
		out = append(out, c)
	}
	return out, nil
}

func (r *memoryFinanceRepo) CreateExpenseCategory(ctx context.Context, c ExpenseCategory) (int64, error) {
	c.ID = r.id()
	r.categories = append(r.categories, c)
	return c.ID, nil
}

func (r *memoryFinanceRepo) ListExpenseCategories(ctx context.Context) ([]ExpenseCategory, error) {
	return r.categories, nil
}

func (r *memoryFinanceRepo) CreateBudget(ctx context.Context, b Budget) (int64, error) {
	b.ID = r.id()
	r.budgets = append(r.budgets, b)
	return b.ID, nil
}

func (r *memoryFinanceRepo) ListBudgets(ctx context.Context) ([]Budget, error) {
	return r.budgets, nil
}

func (r *memoryFinanceRepo) CreateReport(ctx context.Context, rep Report) (int64, error) {
	rep.ID = r.id()
	r.reports = append(r.reports, rep)
	return rep.ID, nil
}

func (r *memoryFinanceRepo) ListReports(ctx context.Context) ([]Report, error) {
	return r.reports, nil
}

func accountant() rbac.Principal {
	return rbac.Principal{UserID: 6, Username: "accountant1", Roles: rbac.NewRoleSet(rbac.RoleAccountant)}
}

func TestRecordTransaction(t *testing.T) {
	repo := newMemoryFinanceRepo()
	svc := NewService(repo, nil)

	tx, err := svc.RecordTransaction(context.Background(), accountant(), TransactionInput{
		Type:     TransactionIncome,
		Amount:   500000,
		Category: "sales",
	})
	require.NoError(t, err)
	require.NotZero(t, tx.ID)
	require.False(t, tx.Date.IsZero())
	require.Len(t, repo.transactions, 1)
}

func TestRecordTransactionRejectsBadInput(t *testing.T) {
	svc := NewService(newMemoryFinanceRepo(), nil)
	ctx := context.Background()

	_, err := svc.RecordTransaction(ctx, accountant(), TransactionInput{Type: "transfer", Amount: 100})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.RecordTransaction(ctx, accountant(), TransactionInput{Type: TransactionExpense, Amount: 0})
	require.ErrorIs(t, err, ErrValidation)
}

func TestRecordSalaryPaymentMirrorsLedger(t *testing.T) {
	repo := newMemoryFinanceRepo()
	svc := NewService(repo, nil)

	payment, err := svc.RecordSalaryPayment(context.Background(), accountant(), SalaryPaymentInput{
		EmployeeName:  "Sidorov",
		Amount:        85000,
		PaymentMethod: "bank transfer",
	})
	require.NoError(t, err)
	require.NotZero(t, payment.ID)

	require.Len(t, repo.transactions, 1)
	require.Equal(t, TransactionExpense, repo.transactions[0].Type)
	require.Equal(t, 85000.0, repo.transactions[0].Amount)
	require.Equal(t, "salary", repo.transactions[0].Category)
}

type brokenLedgerRepo struct {
	*memoryFinanceRepo
}

func (r *brokenLedgerRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return r.memoryFinanceRepo.WithTx(ctx, func(ctx context.Context, _ TxRepository) error {
		return fn(ctx, &brokenLedgerTx{repo: r.memoryFinanceRepo})
	})
}

type brokenLedgerTx struct {
	repo *memoryFinanceRepo
}

func (tx *brokenLedgerTx) InsertSalaryPayment(ctx context.Context, p SalaryPayment) (int64, error) {
	return tx.repo.InsertSalaryPayment(ctx, p)
}

func (tx *brokenLedgerTx) InsertTransaction(ctx context.Context, t FinancialTransaction) (int64, error) {
	return 0, errors.New("ledger unavailable")
}

func TestRecordSalaryPaymentRollsBackOnLedgerFailure(t *testing.T) {
	repo := newMemoryFinanceRepo()
	svc := NewService(&brokenLedgerRepo{memoryFinanceRepo: repo}, nil)

	_, err := svc.RecordSalaryPayment(context.Background(), accountant(), SalaryPaymentInput{
		EmployeeName: "Elena Sidorova",
		Amount:       90000,
	})
	require.Error(t, err)
	require.Empty(t, repo.salaries)
	require.Empty(t, repo.transactions)
}

func TestCreateContractDuplicateNumber(t *testing.T) {
	repo := newMemoryFinanceRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	client, err := svc.CreateClient(ctx, ClientInput{Name: "TeploService"})
	require.NoError(t, err)

	input := ContractInput{
		ContractNumber: "C-2026-001",
		ClientID:       client.ID,
		StartDate:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		Amount:         1200000,
	}
	_, err = svc.CreateContract(ctx, input)
	require.NoError(t, err)
	_, err = svc.CreateContract(ctx, input)
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestCreateContractUnknownClient(t *testing.T) {
	svc := NewService(newMemoryFinanceRepo(), nil)

	_, err := svc.CreateContract(context.Background(), ContractInput{
		ContractNumber: "C-2026-002",
		ClientID:       99,
		StartDate:      time.Now(),
		EndDate:        time.Now().AddDate(1, 0, 0),
		Amount:         100,
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateBudgetValidatesPeriod(t *testing.T) {
	svc := NewService(newMemoryFinanceRepo(), nil)

	_, err := svc.CreateBudget(context.Background(), BudgetInput{
		Name:      "Q1 materials",
		Amount:    300000,
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateReportStampsActor(t *testing.T) {
	svc := NewService(newMemoryFinanceRepo(), nil)

	report, err := svc.CreateReport(context.Background(), accountant(), "monthly", "March summary", "...")
	require.NoError(t, err)
	require.Equal(t, "accountant1", report.GeneratedBy)
}
