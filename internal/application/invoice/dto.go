package invoice

import (
	"time"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/invoice"
	"github.com/sawi/backend/internal/domain/ledger"
	csvimport "github.com/sawi/backend/internal/infrastructure/import"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Requests
// =============================================================================

// CreateInvoiceRequest represents a request to create an invoice manually
type CreateInvoiceRequest struct {
	ExternalID           string           `json:"external_id" validate:"required,max=100"`
	PayerID              uuid.UUID        `json:"payer_id" validate:"required"`
	PayeeID              uuid.UUID        `json:"payee_id" validate:"required"`
	IssueDate            time.Time        `json:"issue_date" validate:"required"`
	DueDate              time.Time        `json:"due_date" validate:"required,gtfield=IssueDate"`
	Amount               decimal.Decimal  `json:"amount" validate:"required,gt=0"`
	CurrencyCode         string           `json:"currency_code" validate:"omitempty,len=3,alpha"`
	EarlyPaymentStatus   bool             `json:"early_payment_status"`
	EarlyPaymentDueDate  *time.Time       `json:"early_payment_due_date" validate:"required_if=EarlyPaymentStatus true"`
	EarlyPaymentDiscount *decimal.Decimal `json:"early_payment_discount" validate:"required_if=EarlyPaymentStatus true"`
	CorporateID          uuid.UUID        `json:"-"` // Set from the X-Corporate-ID header
	AddedBy              string           `json:"-"`
}

// ListInvoicesRequest carries the filters of the invoice list.
// Status matches either an alg status or a settlement status.
type ListInvoicesRequest struct {
	CorporateID   *uuid.UUID
	Type          string
	PayerID       *uuid.UUID
	PayeeID       *uuid.UUID
	Status        string
	AVStatus      string
	IssueDateFrom *time.Time
	IssueDateTo   *time.Time
	Sort          string
	Limit         int
	Offset        int
}

// Action types accepted by PerformAction
const (
	ActionApprove = "approve"
	ActionVerify  = "verify"
	ActionReject  = "reject"
)

// PerformActionRequest is a workflow action taken by one party of an invoice
type PerformActionRequest struct {
	InvoiceID        uuid.UUID `json:"-"`
	Type             string    `json:"type"`
	ActorCorporateID uuid.UUID `json:"-"`
	Reason           string    `json:"reason" validate:"max=500"`
}

// =============================================================================
// Responses
// =============================================================================

// EarlyPaymentResponse is the early payment offer of an invoice
type EarlyPaymentResponse struct {
	Enabled         bool            `json:"enabled"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// SettlementLoopResponse names one loop of a settlement run
type SettlementLoopResponse struct {
	ID uuid.UUID `json:"id"`
}

// SettlementResponse is a settlement run that touched an invoice
type SettlementResponse struct {
	ID    uuid.UUID                `json:"id"`
	Loops []SettlementLoopResponse `json:"loops"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID                 uuid.UUID            `json:"id"`
	ExternalID         string               `json:"external_id"`
	CorporateID        uuid.UUID            `json:"corporate_id"`
	AddedBy            string               `json:"added_by,omitempty"`
	PayerID            uuid.UUID            `json:"payer_id"`
	PayeeID            uuid.UUID            `json:"payee_id"`
	IssueDate          time.Time            `json:"issue_date"`
	DueDate            time.Time            `json:"due_date"`
	Amount             decimal.Decimal      `json:"amount"`
	RemainingAmount    decimal.Decimal      `json:"remaining_amount"`
	CurrencyCode       string               `json:"currency_code"`
	AlgStatus          string               `json:"alg_status"`
	ApprovalStatus     string               `json:"approval_status"`
	ApprovalDate       *time.Time           `json:"approval_date,omitempty"`
	VerificationStatus string               `json:"verification_status"`
	VerificationDate   *time.Time           `json:"verification_date,omitempty"`
	RejectionDate      *time.Time           `json:"rejection_date,omitempty"`
	RejectionReason    string               `json:"rejection_reason,omitempty"`
	SettlementStatus   string               `json:"settlement_status"`
	Origin             string               `json:"origin"`
	EarlyPayment       EarlyPaymentResponse `json:"early_payment"`
	Settlements        []SettlementResponse `json:"settlements,omitempty"`
	Version            int                  `json:"version"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

// BulkImportResult represents the result of a bulk invoice import
type BulkImportResult struct {
	BatchID      uuid.UUID            `json:"batch_id"`
	TotalRows    int                  `json:"total_rows"`
	ImportedRows int                  `json:"imported_rows"`
	ErrorRows    int                  `json:"error_rows"`
	Errors       []csvimport.RowError `json:"errors,omitempty"`
	IsTruncated  bool                 `json:"is_truncated,omitempty"`
	TotalErrors  int                  `json:"total_errors,omitempty"`
	ArchiveKey   string               `json:"archive_key,omitempty"`
}

// ToInvoiceResponse converts a domain Invoice to InvoiceResponse
func ToInvoiceResponse(inv *invoice.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:                 inv.ID,
		ExternalID:         inv.ExternalID,
		CorporateID:        inv.CorporateID,
		AddedBy:            inv.AddedBy,
		PayerID:            inv.PayerID,
		PayeeID:            inv.PayeeID,
		IssueDate:          inv.IssueDate,
		DueDate:            inv.DueDate,
		Amount:             inv.Amount,
		RemainingAmount:    inv.RemainingAmount,
		CurrencyCode:       inv.CurrencyCode,
		AlgStatus:          string(inv.AlgStatus),
		ApprovalStatus:     string(inv.ApprovalStatus),
		ApprovalDate:       inv.ApprovalDate,
		VerificationStatus: string(inv.VerificationStatus),
		VerificationDate:   inv.VerificationDate,
		RejectionDate:      inv.RejectionDate,
		RejectionReason:    inv.RejectionReason,
		SettlementStatus:   string(inv.SettlementStatus),
		Origin:             string(inv.Origin),
		EarlyPayment: EarlyPaymentResponse{
			Enabled:         inv.EarlyPayment.Enabled,
			DueDate:         inv.EarlyPayment.DueDate,
			DiscountPercent: inv.EarlyPayment.DiscountPercent,
		},
		Version:   inv.GetVersion(),
		CreatedAt: inv.CreatedAt,
		UpdatedAt: inv.UpdatedAt,
	}
}

// ToInvoiceResponses converts a slice of invoices
func ToInvoiceResponses(invoices []*invoice.Invoice) []InvoiceResponse {
	responses := make([]InvoiceResponse, len(invoices))
	for i, inv := range invoices {
		responses[i] = ToInvoiceResponse(inv)
	}
	return responses
}

// ToSettlementResponses converts run summaries
func ToSettlementResponses(runs []ledger.RunSummary) []SettlementResponse {
	responses := make([]SettlementResponse, len(runs))
	for i, run := range runs {
		loops := make([]SettlementLoopResponse, len(run.LoopIDs))
		for j, id := range run.LoopIDs {
			loops[j] = SettlementLoopResponse{ID: id}
		}
		responses[i] = SettlementResponse{ID: run.RunID, Loops: loops}
	}
	return responses
}
