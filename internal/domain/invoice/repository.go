package invoice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/shared"
)

// ListType selects invoices by the caller's side
type ListType string

const (
	ListTypePayable    ListType = "payable"    // Caller is the payer
	ListTypeReceivable ListType = "receivable" // Caller is the payee
)

// AVStatus is the combined approval/verification state used by list filters
type AVStatus string

const (
	// AVStatusPending matches invoices with a pending side and no rejected side
	AVStatusPending AVStatus = "pending"
	// AVStatusVerified matches invoices both approved and verified
	AVStatusVerified AVStatus = "verified"
	// AVStatusRejected matches invoices rejected by either side
	AVStatusRejected AVStatus = "rejected"
)

// IsValid checks if the value is a valid AVStatus
func (s AVStatus) IsValid() bool {
	return s == AVStatusPending || s == AVStatusVerified || s == AVStatusRejected
}

// Filter defines filtering options for invoice list queries.
// When CorporateID is set without Type, invoices where the caller is either
// party are returned.
type Filter struct {
	CorporateID      *uuid.UUID
	Type             ListType
	PayerID          *uuid.UUID
	PayeeID          *uuid.UUID
	AlgStatus        *AlgStatus
	SettlementStatus *SettlementStatus
	AVStatus         *AVStatus
	IssueDateFrom    *time.Time
	IssueDateTo      *time.Time
	Sort             []shared.SortTerm
	Page             shared.Page
}

// SortFields maps public sort fields to invoice columns
var SortFields = map[string]string{
	"amount":           "amount",
	"remaining_amount": "remaining_amount",
	"issue_date":       "issue_date",
	"due_date":         "due_date",
	"created_at":       "created_at",
	"updated_at":       "updated_at",
	"external_id":      "external_id",
}

// DefaultSort is applied when a list query has no sort
var DefaultSort = []shared.SortTerm{{Column: "created_at", Direction: shared.SortDesc}}

// Repository defines the interface for invoice persistence
type Repository interface {
	// FindByID finds an invoice by ID, including soft-deleted ones
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// Create inserts a new invoice
	Create(ctx context.Context, inv *Invoice) error

	// CreateBatch inserts several invoices in one statement
	CreateBatch(ctx context.Context, invoices []*Invoice) error

	// Update persists workflow and deletion changes with an optimistic version check
	Update(ctx context.Context, inv *Invoice) error

	// List returns non-deleted invoices matching the filter and the total count
	List(ctx context.Context, filter Filter) ([]*Invoice, int64, error)

	// ExistingExternalIDs returns which of externalIDs already belong to a
	// live invoice of the payer
	ExistingExternalIDs(ctx context.Context, payerID uuid.UUID, externalIDs []string) ([]string, error)
}
