package models

import (
	"github.com/sawi/backend/internal/domain/corporate"
	"github.com/shopspring/decimal"
)

// CorporateModel is the persistence model for the Corporate aggregate.
// The aggregate columns are nullable; NULL reads as zero.
type CorporateModel struct {
	AggregateModel
	Name               string              `gorm:"type:varchar(200);not null"`
	Status             corporate.Status    `gorm:"type:varchar(20);not null;default:'active'"`
	IsDeleted          bool                `gorm:"not null;default:false"`
	AccountsPayable    decimal.NullDecimal `gorm:"type:decimal(18,4)"`
	AccountsReceivable decimal.NullDecimal `gorm:"type:decimal(18,4)"`
}

// TableName returns the table name for GORM
func (CorporateModel) TableName() string {
	return "corporates"
}

// ToDomain converts the persistence model to a domain Corporate
func (m *CorporateModel) ToDomain() *corporate.Corporate {
	return &corporate.Corporate{
		BaseAggregateRoot:  m.ToDomainAggregateRoot(),
		Name:               m.Name,
		Status:             m.Status,
		IsDeleted:          m.IsDeleted,
		AccountsPayable:    orZero(m.AccountsPayable),
		AccountsReceivable: orZero(m.AccountsReceivable),
	}
}

// FromDomain populates the persistence model from a domain Corporate
func (m *CorporateModel) FromDomain(c *corporate.Corporate) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.Name = c.Name
	m.Status = c.Status
	m.IsDeleted = c.IsDeleted
	m.AccountsPayable = decimal.NewNullDecimal(c.AccountsPayable)
	m.AccountsReceivable = decimal.NewNullDecimal(c.AccountsReceivable)
}

// CorporateModelFromDomain creates a new persistence model from a domain Corporate
func CorporateModelFromDomain(c *corporate.Corporate) *CorporateModel {
	m := &CorporateModel{}
	m.FromDomain(c)
	return m
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
