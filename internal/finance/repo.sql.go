package finance

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/therma-erp/therma-erp/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const insertTransactionSQL = `
	INSERT INTO financial_transactions (transaction_type, amount, description, category, date)
	VALUES ($1,$2,$3,$4,$5)
	RETURNING id`

const insertSalaryPaymentSQL = `
	INSERT INTO salary_payments (employee_name, amount, payment_date, payment_method)
	VALUES ($1,$2,$3,$4)
	RETURNING id`

// InsertTransaction appends a ledger row.
func (r *Repository) InsertTransaction(ctx context.Context, t FinancialTransaction) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, insertTransactionSQL,
		t.Type, t.Amount, t.Description, t.Category, t.Date).
		Scan(&id)
	return id, err
}

// InsertTransaction appends a ledger row inside the transaction.
func (tx *txRepo) InsertTransaction(ctx context.Context, t FinancialTransaction) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, insertTransactionSQL,
		t.Type, t.Amount, t.Description, t.Category, t.Date).
		Scan(&id)
	return id, err
}

// InsertSalaryPayment stores a payroll row inside the transaction.
func (tx *txRepo) InsertSalaryPayment(ctx context.Context, p SalaryPayment) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, insertSalaryPaymentSQL,
		p.EmployeeName, p.Amount, p.PaymentDate, p.PaymentMethod).
		Scan(&id)
	return id, err
}

// ListRecentTransactions returns the newest ledger rows.
func (r *Repository) ListRecentTransactions(ctx context.Context, limit int) ([]FinancialTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, transaction_type, amount, COALESCE(description,''), COALESCE(category,''), date, created_at
		FROM financial_transactions ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var transactions []FinancialTransaction
	for rows.Next() {
		var t FinancialTransaction
		if err := rows.Scan(&t.ID, &t.Type, &t.Amount, &t.Description, &t.Category, &t.Date, &t.CreatedAt); err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return transactions, nil
}

// InsertSalaryPayment stores a payroll row.
func (r *Repository) InsertSalaryPayment(ctx context.Context, p SalaryPayment) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, insertSalaryPaymentSQL,
		p.EmployeeName, p.Amount, p.PaymentDate, p.PaymentMethod).
		Scan(&id)
	return id, err
}

// ListSalaryPayments returns payroll rows newest first.
func (r *Repository) ListSalaryPayments(ctx context.Context) ([]SalaryPayment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, employee_name, amount, payment_date, COALESCE(payment_method,'')
		FROM salary_payments ORDER BY payment_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var payments []SalaryPayment
	for rows.Next() {
		var p SalaryPayment
		if err := rows.Scan(&p.ID, &p.EmployeeName, &p.Amount, &p.PaymentDate, &p.PaymentMethod); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

// CreatePaymentMethod inserts a settlement channel.
func (r *Repository) CreatePaymentMethod(ctx context.Context, m PaymentMethod) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO payment_methods (name, description) VALUES ($1,$2) RETURNING id`,
		m.Name, m.Description).
		Scan(&id)
	return id, err
}

// ListPaymentMethods returns all settlement channels.
func (r *Repository) ListPaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(description,'') FROM payment_methods ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var methods []PaymentMethod
	for rows.Next() {
		var m PaymentMethod
		if err := rows.Scan(&m.ID, &m.Name, &m.Description); err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return methods, nil
}

// CreateClient inserts a client row.
func (r *Repository) CreateClient(ctx context.Context, c Client) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO clients (name, contact_person, phone, email, address)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id`,
		c.Name, c.ContactPerson, c.Phone, c.Email, c.Address).
		Scan(&id)
	return id, err
}

// ListClients returns clients ordered by name.
func (r *Repository) ListClients(ctx context.Context) ([]Client, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, COALESCE(contact_person,''), COALESCE(phone,''), COALESCE(email,''), COALESCE(address,''), created_at
		FROM clients ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var clients []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.Name, &c.ContactPerson, &c.Phone, &c.Email, &c.Address, &c.CreatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return clients, nil
}

// GetClient fetches a client by ID.
func (r *Repository) GetClient(ctx context.Context, id int64) (Client, error) {
	var c Client
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(contact_person,''), COALESCE(phone,''), COALESCE(email,''), COALESCE(address,''), created_at
		FROM clients WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.ContactPerson, &c.Phone, &c.Email, &c.Address, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, ErrNotFound
		}
		return Client{}, err
	}
	return c, nil
}

// CreateContract inserts a contract row.
func (r *Repository) CreateContract(ctx context.Context, c Contract) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO contracts (contract_number, client_id, start_date, end_date, amount, status)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id`,
		c.ContractNumber, c.ClientID, c.StartDate, c.EndDate, c.Amount, c.Status).
		Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

// ListContracts returns contracts newest first.
func (r *Repository) ListContracts(ctx context.Context) ([]Contract, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, contract_number, client_id, start_date, end_date, amount, status, created_at
		FROM contracts ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var contracts []Contract
	for rows.Next() {
		var c Contract
		if err := rows.Scan(&c.ID, &c.ContractNumber, &c.ClientID, &c.StartDate, &c.EndDate, &c.Amount, &c.Status, &c.CreatedAt); err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return contracts, nil
}

// CreateExpenseCategory inserts an expense bucket.
func (r *Repository) CreateExpenseCategory(ctx context.Context, c ExpenseCategory) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO expense_categories (name, description) VALUES ($1,$2) RETURNING id`,
		c.Name, c.Description).
		Scan(&id)
	return id, err
}

// ListExpenseCategories returns all expense buckets.
func (r *Repository) ListExpenseCategories(ctx context.Context) ([]ExpenseCategory, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(description,'') FROM expense_categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var categories []ExpenseCategory
	for rows.Next() {
		var c ExpenseCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

// CreateBudget inserts a budget row.
func (r *Repository) CreateBudget(ctx context.Context, b Budget) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO budgets (name, amount, spent_amount, start_date, end_date)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id`,
		b.Name, b.Amount, b.SpentAmount, b.StartDate, b.EndDate).
		Scan(&id)
	return id, err
}

// ListBudgets returns budgets newest first.
func (r *Repository) ListBudgets(ctx context.Context) ([]Budget, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, amount, COALESCE(spent_amount,0), start_date, end_date, created_at
		FROM budgets ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var budgets []Budget
	for rows.Next() {
		var b Budget
		if err := rows.Scan(&b.ID, &b.Name, &b.Amount, &b.SpentAmount, &b.StartDate, &b.EndDate, &b.CreatedAt); err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return budgets, nil
}

// CreateReport inserts a report row.
func (r *Repository) CreateReport(ctx context.Context, rep Report) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO reports (report_type, title, content, generated_by, generated_at)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id`,
		rep.ReportType, rep.Title, rep.Content, rep.GeneratedBy, rep.GeneratedAt).
		Scan(&id)
	return id, err
}

// ListReports returns reports newest first.
func (r *Repository) ListReports(ctx context.Context) ([]Report, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, report_type, title, COALESCE(content,''), COALESCE(generated_by,''), generated_at
		FROM reports ORDER BY generated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reports []Report
	for rows.Next() {
		var rep Report
		if err := rows.Scan(&rep.ID, &rep.ReportType, &rep.Title, &rep.Content, &rep.GeneratedBy, &rep.GeneratedAt); err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}
