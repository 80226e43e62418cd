package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// BalanceQuery carries the list filters of the balance read API
type BalanceQuery struct {
	PayerID *uuid.UUID
	PayeeID *uuid.UUID
	Sort    string
	Limit   int
	Offset  int
}

// AdjustBalanceRequest is a manual adjustment of one pair balance
type AdjustBalanceRequest struct {
	PayerID uuid.UUID       `json:"payer_id" binding:"required"`
	PayeeID uuid.UUID       `json:"payee_id" binding:"required"`
	Amount  decimal.Decimal `json:"amount" binding:"required"`
}

// BalanceResponse represents a balance in API responses
type BalanceResponse struct {
	ID           uuid.UUID       `json:"id"`
	PayerID      uuid.UUID       `json:"payer_id"`
	PayeeID      uuid.UUID       `json:"payee_id"`
	Amount       decimal.Decimal `json:"amount"`
	InvoiceCount int             `json:"invoice_count"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// LinkedInvoiceResponse is one invoice allocated into a balance
type LinkedInvoiceResponse struct {
	LinkID           uuid.UUID       `json:"link_id"`
	LinkedAmount     decimal.Decimal `json:"linked_amount"`
	InvoiceID        uuid.UUID       `json:"invoice_id"`
	ExternalID       string          `json:"external_id"`
	Amount           decimal.Decimal `json:"amount"`
	RemainingAmount  decimal.Decimal `json:"remaining_amount"`
	CurrencyCode     string          `json:"currency_code"`
	IssueDate        time.Time       `json:"issue_date"`
	DueDate          time.Time       `json:"due_date"`
	AlgStatus        string          `json:"alg_status"`
	SettlementStatus string          `json:"settlement_status"`
}

// ToBalanceResponse converts a domain Balance to BalanceResponse
func ToBalanceResponse(b *ledger.Balance) BalanceResponse {
	return BalanceResponse{
		ID:           b.ID,
		PayerID:      b.PayerID,
		PayeeID:      b.PayeeID,
		Amount:       b.Amount,
		InvoiceCount: b.InvoiceCount,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

// ToBalanceResponses converts a slice of balances
func ToBalanceResponses(balances []*ledger.Balance) []BalanceResponse {
	responses := make([]BalanceResponse, len(balances))
	for i, b := range balances {
		responses[i] = ToBalanceResponse(b)
	}
	return responses
}

// ToLinkedInvoiceResponse converts a link joined with its invoice
func ToLinkedInvoiceResponse(li ledger.LinkedInvoice) LinkedInvoiceResponse {
	resp := LinkedInvoiceResponse{
		LinkID:       li.Link.ID,
		LinkedAmount: li.Link.Amount,
		InvoiceID:    li.Link.InvoiceID,
	}
	if inv := li.Invoice; inv != nil {
		resp.ExternalID = inv.ExternalID
		resp.Amount = inv.Amount
		resp.RemainingAmount = inv.RemainingAmount
		resp.CurrencyCode = inv.CurrencyCode
		resp.IssueDate = inv.IssueDate
		resp.DueDate = inv.DueDate
		resp.AlgStatus = string(inv.AlgStatus)
		resp.SettlementStatus = string(inv.SettlementStatus)
	}
	return resp
}
