package corporate

import (
	"strings"

	"github.com/sawi/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateTypeCorporate is the aggregate type recorded on corporate events
const AggregateTypeCorporate = "Corporate"

// Status represents the lifecycle status of a corporate
type Status string

const (
	StatusActive  Status = "active"
	StatusBlocked Status = "blocked"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusBlocked
}

// Corporate is a company that issues and receives invoices.
// AccountsPayable and AccountsReceivable are a cached projection of the
// balance ledger: the sum of balances where the corporate is payer or payee.
type Corporate struct {
	shared.BaseAggregateRoot
	Name               string
	Status             Status
	IsDeleted          bool
	AccountsPayable    decimal.Decimal
	AccountsReceivable decimal.Decimal
}

// NewCorporate creates an active corporate with empty aggregates
func NewCorporate(name string) (*Corporate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("Corporate name cannot be empty")
	}
	return &Corporate{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		Name:               name,
		Status:             StatusActive,
		AccountsPayable:    decimal.Zero,
		AccountsReceivable: decimal.Zero,
	}, nil
}

// IsAvailable reports whether the corporate can take part in new invoices
func (c *Corporate) IsAvailable() bool {
	return !c.IsDeleted
}

// IsBlocked returns true if the corporate is blocked
func (c *Corporate) IsBlocked() bool {
	return c.Status == StatusBlocked
}

// Block excludes the corporate from accrual
func (c *Corporate) Block() error {
	if c.IsBlocked() {
		return shared.NewPreconditionError("Corporate is already blocked")
	}
	c.Status = StatusBlocked
	c.Touch()
	c.IncrementVersion()
	c.AddDomainEvent(NewCorporateBlockedEvent(c))
	return nil
}

// Activate brings a blocked corporate back into accrual
func (c *Corporate) Activate() error {
	if !c.IsBlocked() {
		return shared.NewPreconditionError("Corporate is already active")
	}
	c.Status = StatusActive
	c.Touch()
	c.IncrementVersion()
	c.AddDomainEvent(NewCorporateActivatedEvent(c))
	return nil
}
