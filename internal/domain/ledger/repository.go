package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/invoice"
	"github.com/sawi/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BalanceFilter defines filtering options for balance list queries.
// Lists only ever return balances with a positive amount.
type BalanceFilter struct {
	PayerID *uuid.UUID
	PayeeID *uuid.UUID
	Sort    []shared.SortTerm
	Page    shared.Page
}

// BalanceSortFields maps public sort fields to balance columns
var BalanceSortFields = map[string]string{
	"amount":        "amount",
	"invoice_count": "invoice_count",
	"created_at":    "created_at",
	"updated_at":    "updated_at",
	"payer_id":      "payer_id",
	"payee_id":      "payee_id",
}

// DefaultBalanceSort is applied when a balance list has no sort
var DefaultBalanceSort = []shared.SortTerm{{Column: "amount", Direction: shared.SortDesc}}

// CorporateTotals is the ledger-side truth for one corporate's aggregates
type CorporateTotals struct {
	CorporateID uuid.UUID
	Payable     decimal.Decimal
	Receivable  decimal.Decimal
}

// BalanceRepository defines the interface for balance persistence
type BalanceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Balance, error)
	FindByPair(ctx context.Context, pair Pair) (*Balance, error)

	// FindByCorporate returns balances where the corporate is payer or payee
	FindByCorporate(ctx context.Context, corporateID uuid.UUID) ([]*Balance, error)

	// UpsertIncrement inserts the pair or adds amount and count to the
	// existing row in a single statement, returning the resulting balance
	UpsertIncrement(ctx context.Context, pair Pair, amount decimal.Decimal, count int) (*Balance, error)

	// Increment adds the deltas to an existing balance
	Increment(ctx context.Context, id uuid.UUID, amountDelta decimal.Decimal, countDelta int) error

	// SetInvoiceCount overwrites the invoice count
	SetInvoiceCount(ctx context.Context, id uuid.UUID, count int) error

	// FindNonPositive returns the balances among ids whose amount is zero or less
	FindNonPositive(ctx context.Context, ids []uuid.UUID) ([]*Balance, error)

	DeleteByIDs(ctx context.Context, ids []uuid.UUID) error

	// List returns positive balances matching the filter and the total count
	List(ctx context.Context, filter BalanceFilter) ([]*Balance, int64, error)

	// TotalsByCorporate sums positive balances per payer and per payee
	TotalsByCorporate(ctx context.Context) ([]CorporateTotals, error)
}

// LinkRepository defines the interface for balance-invoice link persistence
type LinkRepository interface {
	// InsertIgnoreConflicts inserts links, skipping existing (balance, invoice) pairs
	InsertIgnoreConflicts(ctx context.Context, links []*Link) error

	FindByBalanceAndInvoice(ctx context.Context, balanceID, invoiceID uuid.UUID) (*Link, error)
	UpdateAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByBalanceAndInvoice(ctx context.Context, balanceID, invoiceID uuid.UUID) (int64, error)
	DeleteByBalanceIDs(ctx context.Context, balanceIDs []uuid.UUID) error
	CountByBalance(ctx context.Context, balanceID uuid.UUID) (int64, error)

	// InvoiceIDsByBalanceIDs returns the distinct invoices linked to the balances
	InvoiceIDsByBalanceIDs(ctx context.Context, balanceIDs []uuid.UUID) ([]uuid.UUID, error)

	// ListWithInvoices pages a balance's links joined with their invoices,
	// ordered by link amount ascending
	ListWithInvoices(ctx context.Context, balanceID uuid.UUID, page shared.Page) ([]LinkedInvoice, int64, error)
}

// AccrualSource is the accrual view over the invoice table
type AccrualSource interface {
	// EligiblePairs returns the distinct pairs with at least one eligible invoice
	EligiblePairs(ctx context.Context) ([]Pair, error)

	// EligibleByPair returns the eligible invoices of one pair
	EligibleByPair(ctx context.Context, pair Pair) ([]AccrualItem, error)

	// ActiveByCorporate returns non-deleted, not fully settled invoices where
	// the corporate is payer or payee
	ActiveByCorporate(ctx context.Context, corporateID uuid.UUID) ([]AccrualItem, error)

	// SetAlgStatus moves the invoices to status
	SetAlgStatus(ctx context.Context, ids []uuid.UUID, status invoice.AlgStatus) error
}

// SettlementReader reads the settlement executor's tables
type SettlementReader interface {
	FindRun(ctx context.Context, runID uuid.UUID) (*SettlementRun, error)

	// SettledBalances returns every settled balance of every loop of the run
	// with its settled invoices
	SettledBalances(ctx context.Context, runID uuid.UUID) ([]SettledBalance, error)

	// RunLoopsForInvoice returns the (run, loop) rows that settled the invoice
	RunLoopsForInvoice(ctx context.Context, invoiceID uuid.UUID) ([]RunLoopRef, error)
}
