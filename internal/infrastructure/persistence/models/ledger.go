package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/ledger"
	"github.com/sawi/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BalanceModel is the persistence model for a pair balance
type BalanceModel struct {
	BaseModel
	PayerID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_balance_pair,priority:1"`
	PayeeID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_balance_pair,priority:2;index"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	InvoiceCount int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (BalanceModel) TableName() string {
	return "balances"
}

// ToDomain converts the persistence model to a domain Balance
func (m *BalanceModel) ToDomain() *ledger.Balance {
	return &ledger.Balance{
		BaseEntity:   m.BaseModel.ToDomain(),
		PayerID:      m.PayerID,
		PayeeID:      m.PayeeID,
		Amount:       m.Amount,
		InvoiceCount: m.InvoiceCount,
	}
}

// NewBalanceModel creates the row inserted for a pair on its first accrual
func NewBalanceModel(pair ledger.Pair, amount decimal.Decimal, count int) *BalanceModel {
	m := &BalanceModel{
		PayerID:      pair.PayerID,
		PayeeID:      pair.PayeeID,
		Amount:       amount,
		InvoiceCount: count,
	}
	m.FromDomainBaseEntity(shared.NewBaseEntity())
	return m
}

// BalanceInvoiceModel links an invoice to the balance it was accrued into
type BalanceInvoiceModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BalanceID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_balance_invoice,priority:1"`
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_balance_invoice,priority:2;index"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BalanceInvoiceModel) TableName() string {
	return "balance_invoices"
}

// ToDomain converts the persistence model to a domain Link
func (m *BalanceInvoiceModel) ToDomain() *ledger.Link {
	return &ledger.Link{
		ID:        m.ID,
		BalanceID: m.BalanceID,
		InvoiceID: m.InvoiceID,
		Amount:    m.Amount,
		CreatedAt: m.CreatedAt,
	}
}

// BalanceInvoiceModelFromDomain creates a persistence model from a domain Link
func BalanceInvoiceModelFromDomain(l *ledger.Link) *BalanceInvoiceModel {
	return &BalanceInvoiceModel{
		ID:        l.ID,
		BalanceID: l.BalanceID,
		InvoiceID: l.InvoiceID,
		Amount:    l.Amount,
		CreatedAt: l.CreatedAt,
	}
}
