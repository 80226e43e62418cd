package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/invoice"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate
type InvoiceModel struct {
	AggregateModel
	ExternalID           string                 `gorm:"type:varchar(100);not null;index:idx_invoice_payer_external,priority:2"`
	CorporateID          uuid.UUID              `gorm:"type:uuid;not null"`
	AddedBy              string                 `gorm:"type:varchar(100)"`
	PayerID              uuid.UUID              `gorm:"type:uuid;not null;index:idx_invoice_payer_external,priority:1;index:idx_invoice_pair,priority:1"`
	PayeeID              uuid.UUID              `gorm:"type:uuid;not null;index:idx_invoice_pair,priority:2;index"`
	IssueDate            time.Time              `gorm:"not null"`
	DueDate              time.Time              `gorm:"not null"`
	Amount               decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	RemainingAmount      decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	CurrencyCode         string                 `gorm:"type:varchar(3);not null;default:'USD'"`
	AlgStatus            invoice.AlgStatus      `gorm:"type:varchar(20);not null;default:'new';index:idx_invoice_eligibility,priority:1"`
	ApprovalStatus       invoice.ApprovalStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_invoice_eligibility,priority:2"`
	ApprovalDate         *time.Time
	VerificationStatus   invoice.VerificationStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_invoice_eligibility,priority:3"`
	VerificationDate     *time.Time
	RejectionDate        *time.Time
	RejectionReason      string                   `gorm:"type:text"`
	SettlementStatus     invoice.SettlementStatus `gorm:"type:varchar(30);not null;default:'not_settled'"`
	Origin               invoice.Origin           `gorm:"type:varchar(20);not null"`
	EarlyPaymentEnabled  bool                     `gorm:"not null;default:false"`
	EarlyPaymentDueDate  *time.Time
	EarlyPaymentDiscount decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	IsDeleted            bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *invoice.Invoice {
	return &invoice.Invoice{
		BaseAggregateRoot:  m.ToDomainAggregateRoot(),
		ExternalID:         m.ExternalID,
		CorporateID:        m.CorporateID,
		AddedBy:            m.AddedBy,
		PayerID:            m.PayerID,
		PayeeID:            m.PayeeID,
		IssueDate:          m.IssueDate,
		DueDate:            m.DueDate,
		Amount:             m.Amount,
		RemainingAmount:    m.RemainingAmount,
		CurrencyCode:       m.CurrencyCode,
		AlgStatus:          m.AlgStatus,
		ApprovalStatus:     m.ApprovalStatus,
		ApprovalDate:       m.ApprovalDate,
		VerificationStatus: m.VerificationStatus,
		VerificationDate:   m.VerificationDate,
		RejectionDate:      m.RejectionDate,
		RejectionReason:    m.RejectionReason,
		SettlementStatus:   m.SettlementStatus,
		Origin:             m.Origin,
		EarlyPayment: invoice.EarlyPayment{
			Enabled:         m.EarlyPaymentEnabled,
			DueDate:         m.EarlyPaymentDueDate,
			DiscountPercent: m.EarlyPaymentDiscount,
		},
		IsDeleted: m.IsDeleted,
	}
}

// FromDomain populates the persistence model from a domain Invoice
func (m *InvoiceModel) FromDomain(inv *invoice.Invoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.ExternalID = inv.ExternalID
	m.CorporateID = inv.CorporateID
	m.AddedBy = inv.AddedBy
	m.PayerID = inv.PayerID
	m.PayeeID = inv.PayeeID
	m.IssueDate = inv.IssueDate
	m.DueDate = inv.DueDate
	m.Amount = inv.Amount
	m.RemainingAmount = inv.RemainingAmount
	m.CurrencyCode = inv.CurrencyCode
	m.AlgStatus = inv.AlgStatus
	m.ApprovalStatus = inv.ApprovalStatus
	m.ApprovalDate = inv.ApprovalDate
	m.VerificationStatus = inv.VerificationStatus
	m.VerificationDate = inv.VerificationDate
	m.RejectionDate = inv.RejectionDate
	m.RejectionReason = inv.RejectionReason
	m.SettlementStatus = inv.SettlementStatus
	m.Origin = inv.Origin
	m.EarlyPaymentEnabled = inv.EarlyPayment.Enabled
	m.EarlyPaymentDueDate = inv.EarlyPayment.DueDate
	m.EarlyPaymentDiscount = inv.EarlyPayment.DiscountPercent
	m.IsDeleted = inv.IsDeleted
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *invoice.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}
