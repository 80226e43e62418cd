package corporate

import (
	"time"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/corporate"
	"github.com/shopspring/decimal"
)

// CorporateResponse represents a corporate in API responses
type CorporateResponse struct {
	ID                 uuid.UUID       `json:"id"`
	Name               string          `json:"name"`
	Status             string          `json:"status"`
	AccountsPayable    decimal.Decimal `json:"accounts_payable"`
	AccountsReceivable decimal.Decimal `json:"accounts_receivable"`
	Version            int             `json:"version"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ToCorporateResponse converts a domain Corporate to CorporateResponse
func ToCorporateResponse(c *corporate.Corporate) CorporateResponse {
	return CorporateResponse{
		ID:                 c.ID,
		Name:               c.Name,
		Status:             string(c.Status),
		AccountsPayable:    c.AccountsPayable,
		AccountsReceivable: c.AccountsReceivable,
		Version:            c.Version,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}
