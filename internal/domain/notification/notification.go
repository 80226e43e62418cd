package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type identifies what a notification is about
type Type string

const (
	TypeInvoiceCreatedByAdmin  Type = "INVOICE_CREATED_BY_ADMIN"
	TypeInvoiceApprovedByPayer Type = "INVOICE_APPROVED_BY_PAYER"
	TypeInvoiceVerifiedByPayee Type = "INVOICE_VERIFIED_BY_PAYEE"
	TypeInvoiceRejectedByPayer Type = "INVOICE_REJECTED_BY_PAYER"
	TypeInvoiceRejectedByPayee Type = "INVOICE_REJECTED_BY_PAYEE"
	TypeInvoicesBulkUploaded   Type = "INVOICES_BULK_UPLOADED"
)

// TargetTypeCorporate is the only target kind notifications are sent to
const TargetTypeCorporate = "corporate"

// Notification is a message for a corporate, produced once per source event
type Notification struct {
	ID         uuid.UUID
	Type       Type
	TargetType string
	TargetID   uuid.UUID
	InvoiceID  *uuid.UUID
	Payload    json.RawMessage
	EventID    uuid.UUID
	CreatedAt  time.Time
}

// New creates a notification for a corporate
func New(eventID uuid.UUID, typ Type, targetID uuid.UUID, invoiceID *uuid.UUID, payload json.RawMessage) *Notification {
	return &Notification{
		ID:         uuid.New(),
		Type:       typ,
		TargetType: TargetTypeCorporate,
		TargetID:   targetID,
		InvoiceID:  invoiceID,
		Payload:    payload,
		EventID:    eventID,
		CreatedAt:  time.Now(),
	}
}

// Repository defines the interface for notification persistence
type Repository interface {
	// Create inserts the notification; a second notification for the same
	// event returns shared.ErrAlreadyExists
	Create(ctx context.Context, n *Notification) error

	// ListByTarget returns a corporate's notifications, newest first
	ListByTarget(ctx context.Context, targetID uuid.UUID, limit, offset int) ([]*Notification, int64, error)
}
