package event

import (
	"github.com/sawi/backend/internal/domain/corporate"
	"github.com/sawi/backend/internal/domain/invoice"
)

// RegisterAllEvents registers every domain event type with the serializer.
// The OutboxProcessor cannot deliver an event type that is missing here.
func RegisterAllEvents(serializer *EventSerializer) {
	// Invoice lifecycle
	serializer.Register(invoice.EventTypeInvoiceCreated, &invoice.InvoiceCreatedEvent{})
	serializer.Register(invoice.EventTypeInvoiceApproved, &invoice.InvoiceApprovedEvent{})
	serializer.Register(invoice.EventTypeInvoiceVerified, &invoice.InvoiceVerifiedEvent{})
	serializer.Register(invoice.EventTypeInvoiceRejected, &invoice.InvoiceRejectedEvent{})
	serializer.Register(invoice.EventTypeInvoiceDeleted, &invoice.InvoiceDeletedEvent{})
	serializer.Register(invoice.EventTypeInvoicesBulkUploaded, &invoice.InvoicesBulkUploadedEvent{})

	// Corporate lifecycle
	serializer.Register(corporate.EventTypeCorporateBlocked, &corporate.CorporateBlockedEvent{})
	serializer.Register(corporate.EventTypeCorporateActivated, &corporate.CorporateActivatedEvent{})
}
