package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// The settlement tables are written by the settlement executor.
// This service only reads them.

// SettlementRunModel is one settlement execution
type SettlementRunModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Status    string    `gorm:"type:varchar(30);not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SettlementRunModel) TableName() string {
	return "settlement_runs"
}

// SettlementLoopModel is one netting cycle inside a run
type SettlementLoopModel struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	RunID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// TableName returns the table name for GORM
func (SettlementLoopModel) TableName() string {
	return "settlement_loops"
}

// SettlementBalanceModel is the amount a loop settled for one pair
type SettlementBalanceModel struct {
	ID      uuid.UUID       `gorm:"type:uuid;primaryKey"`
	LoopID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	PayerID uuid.UUID       `gorm:"type:uuid;not null"`
	PayeeID uuid.UUID       `gorm:"type:uuid;not null"`
	Amount  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (SettlementBalanceModel) TableName() string {
	return "settlement_balances"
}

// SettlementInvoiceModel is the settled part of one invoice in a settlement balance
type SettlementInvoiceModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BalanceID uuid.UUID       `gorm:"type:uuid;not null;index"`
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (SettlementInvoiceModel) TableName() string {
	return "settlement_invoices"
}
