package finance

import (
	"errors"
	"time"
)

// TransactionType enumerates ledger entry directions.
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// FinancialTransaction is one append-only ledger entry. Entries are only
// ever inserted; profit is always recomputed from the ledger.
type FinancialTransaction struct {
	ID          int64
	Type        TransactionType
	Amount      float64
	Description string
	Category    string
	Date        time.Time
	CreatedAt   time.Time
}

// SalaryPayment records one payroll disbursement.
type SalaryPayment struct {
	ID            int64
	EmployeeName  string
	Amount        float64
	PaymentDate   time.Time
	PaymentMethod string
}

// PaymentMethod is a named settlement channel.
type PaymentMethod struct {
	ID          int64
	Name        string
	Description string
}

// Client is a contracted customer organisation.
type Client struct {
	ID            int64
	Name          string
	ContactPerson string
	Phone         string
	Email         string
	Address       string
	CreatedAt     time.Time
}

// Contract binds a client for a period and amount.
type Contract struct {
	ID             int64
	ContractNumber string
	ClientID       int64
	StartDate      time.Time
	EndDate        time.Time
	Amount         float64
	Status         string
	CreatedAt      time.Time
}

// ExpenseCategory is a named expense bucket.
type ExpenseCategory struct {
	ID          int64
	Name        string
	Description string
}

// Budget tracks a planned spend envelope.
type Budget struct {
	ID          int64
	Name        string
	Amount      float64
	SpentAmount float64
	StartDate   time.Time
	EndDate     time.Time
	CreatedAt   time.Time
}

// Report is a stored generated report.
type Report struct {
	ID          int64
	ReportType  string
	Title       string
	Content     string
	GeneratedBy string
	GeneratedAt time.Time
}

var (
	ErrNotFound   = errors.New("finance: not found")
	ErrDuplicate  = errors.New("finance: already exists")
	ErrValidation = errors.New("finance: validation failed")
)
