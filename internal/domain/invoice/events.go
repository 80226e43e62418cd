package invoice

import (
	"time"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event types emitted by the invoice aggregate
const (
	EventTypeInvoiceCreated       = "InvoiceCreated"
	EventTypeInvoiceApproved      = "InvoiceApproved"
	EventTypeInvoiceVerified      = "InvoiceVerified"
	EventTypeInvoiceRejected      = "InvoiceRejected"
	EventTypeInvoiceDeleted       = "InvoiceDeleted"
	EventTypeInvoicesBulkUploaded = "InvoicesBulkUploaded"
)

// AggregateTypeInvoiceImport is the aggregate type of bulk upload events
const AggregateTypeInvoiceImport = "InvoiceImport"

// InvoiceSnapshot is the part of an invoice carried on its events
type InvoiceSnapshot struct {
	InvoiceID    uuid.UUID       `json:"invoice_id"`
	ExternalID   string          `json:"external_id"`
	PayerID      uuid.UUID       `json:"payer_id"`
	PayeeID      uuid.UUID       `json:"payee_id"`
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currency_code"`
	DueDate      time.Time       `json:"due_date"`
}

func snapshotOf(inv *Invoice) InvoiceSnapshot {
	return InvoiceSnapshot{
		InvoiceID:    inv.ID,
		ExternalID:   inv.ExternalID,
		PayerID:      inv.PayerID,
		PayeeID:      inv.PayeeID,
		Amount:       inv.Amount,
		CurrencyCode: inv.CurrencyCode,
		DueDate:      inv.DueDate,
	}
}

// InvoiceCreatedEvent is raised when an invoice is created manually
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceSnapshot
	CorporateID uuid.UUID `json:"corporate_id"`
	AddedBy     string    `json:"added_by"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, AggregateTypeInvoice, inv.ID),
		InvoiceSnapshot: snapshotOf(inv),
		CorporateID:     inv.CorporateID,
		AddedBy:         inv.AddedBy,
	}
}

// InvoiceApprovedEvent is raised when the payer approves an invoice
type InvoiceApprovedEvent struct {
	shared.BaseDomainEvent
	InvoiceSnapshot
	ApprovedAt time.Time `json:"approved_at"`
}

// NewInvoiceApprovedEvent creates a new InvoiceApprovedEvent
func NewInvoiceApprovedEvent(inv *Invoice) *InvoiceApprovedEvent {
	approvedAt := time.Now()
	if inv.ApprovalDate != nil {
		approvedAt = *inv.ApprovalDate
	}
	return &InvoiceApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceApproved, AggregateTypeInvoice, inv.ID),
		InvoiceSnapshot: snapshotOf(inv),
		ApprovedAt:      approvedAt,
	}
}

// InvoiceVerifiedEvent is raised when the payee verifies an invoice
type InvoiceVerifiedEvent struct {
	shared.BaseDomainEvent
	InvoiceSnapshot
	VerifiedAt time.Time `json:"verified_at"`
}

// NewInvoiceVerifiedEvent creates a new InvoiceVerifiedEvent
func NewInvoiceVerifiedEvent(inv *Invoice) *InvoiceVerifiedEvent {
	verifiedAt := time.Now()
	if inv.VerificationDate != nil {
		verifiedAt = *inv.VerificationDate
	}
	return &InvoiceVerifiedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceVerified, AggregateTypeInvoice, inv.ID),
		InvoiceSnapshot: snapshotOf(inv),
		VerifiedAt:      verifiedAt,
	}
}

// InvoiceRejectedEvent is raised when either party rejects an invoice
type InvoiceRejectedEvent struct {
	shared.BaseDomainEvent
	InvoiceSnapshot
	RejectedBy Party  `json:"rejected_by"`
	Reason     string `json:"reason,omitempty"`
}

// NewInvoiceRejectedEvent creates a new InvoiceRejectedEvent
func NewInvoiceRejectedEvent(inv *Invoice, by Party) *InvoiceRejectedEvent {
	return &InvoiceRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceRejected, AggregateTypeInvoice, inv.ID),
		InvoiceSnapshot: snapshotOf(inv),
		RejectedBy:      by,
		Reason:          inv.RejectionReason,
	}
}

// InvoiceDeletedEvent is raised when an invoice is soft-deleted
type InvoiceDeletedEvent struct {
	shared.BaseDomainEvent
	InvoiceSnapshot
	WasAccrued bool `json:"was_accrued"`
}

// NewInvoiceDeletedEvent creates a new InvoiceDeletedEvent
func NewInvoiceDeletedEvent(inv *Invoice) *InvoiceDeletedEvent {
	return &InvoiceDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceDeleted, AggregateTypeInvoice, inv.ID),
		InvoiceSnapshot: snapshotOf(inv),
		WasAccrued:      inv.IsAccrued(),
	}
}

// InvoicesBulkUploadedEvent announces one import batch to a single payee
type InvoicesBulkUploadedEvent struct {
	shared.BaseDomainEvent
	BatchID      uuid.UUID       `json:"batch_id"`
	PayeeID      uuid.UUID       `json:"payee_id"`
	InvoiceIDs   []uuid.UUID     `json:"invoice_ids"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	UploadedBy   uuid.UUID       `json:"uploaded_by"`
	InvoiceCount int             `json:"invoice_count"`
}

// NewInvoicesBulkUploadedEvent creates a new InvoicesBulkUploadedEvent
func NewInvoicesBulkUploadedEvent(batchID, payeeID, uploadedBy uuid.UUID, invoices []*Invoice) *InvoicesBulkUploadedEvent {
	ids := make([]uuid.UUID, 0, len(invoices))
	total := decimal.Zero
	for _, inv := range invoices {
		ids = append(ids, inv.ID)
		total = total.Add(inv.Amount)
	}
	return &InvoicesBulkUploadedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicesBulkUploaded, AggregateTypeInvoiceImport, batchID),
		BatchID:         batchID,
		PayeeID:         payeeID,
		InvoiceIDs:      ids,
		TotalAmount:     total,
		UploadedBy:      uploadedBy,
		InvoiceCount:    len(ids),
	}
}
