package corporate

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregates is the stored accounts payable/receivable pair of a corporate
type Aggregates struct {
	CorporateID        uuid.UUID
	AccountsPayable    decimal.Decimal
	AccountsReceivable decimal.Decimal
}

// Repository defines the interface for corporate persistence
type Repository interface {
	// FindByID finds a corporate by ID, including soft-deleted ones
	FindByID(ctx context.Context, id uuid.UUID) (*Corporate, error)

	// FindByIDs returns the corporates that exist among ids, in no particular order
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Corporate, error)

	// Create inserts a new corporate
	Create(ctx context.Context, c *Corporate) error

	// UpdateStatus persists the status with an optimistic version check
	UpdateStatus(ctx context.Context, c *Corporate) error

	// AdjustAggregates adds the deltas to the stored aggregates in one
	// statement, treating NULL as zero
	AdjustAggregates(ctx context.Context, id uuid.UUID, payableDelta, receivableDelta decimal.Decimal) error

	// ListAggregates returns the stored aggregates of all non-deleted corporates
	ListAggregates(ctx context.Context) ([]Aggregates, error)
}
