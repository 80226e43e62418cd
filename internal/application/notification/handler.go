package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/invoice"
	"github.com/sawi/backend/internal/domain/notification"
	"github.com/sawi/backend/internal/domain/shared"
	"github.com/sawi/backend/internal/infrastructure/logger"
	"github.com/sawi/backend/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

// Handler turns invoice events into corporate notifications. It runs after
// commit, fed by the outbox processor.
type Handler struct {
	repo   notification.Repository
	logger *zap.Logger
}

// NewHandler creates a new notification Handler
func NewHandler(repo notification.Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger.Named("notification")}
}

// EventTypes implements shared.EventHandler
func (h *Handler) EventTypes() []string {
	return []string{
		invoice.EventTypeInvoiceCreated,
		invoice.EventTypeInvoiceApproved,
		invoice.EventTypeInvoiceVerified,
		invoice.EventTypeInvoiceRejected,
		invoice.EventTypeInvoicesBulkUploaded,
	}
}

// Handle implements shared.EventHandler
func (h *Handler) Handle(ctx context.Context, event shared.DomainEvent) error {
	n, err := build(event)
	if err != nil {
		return err
	}
	if n == nil {
		return nil
	}

	if err := h.repo.Create(ctx, n); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			logger.Enrich(ctx, h.logger).Warn("Notification already exists for event",
				zap.String("event_id", event.EventID().String()),
				zap.String("event_type", event.EventType()),
			)
			return nil
		}
		return fmt.Errorf("failed to create notification: %w", err)
	}

	metrics.IncNotification(string(n.Type))
	logger.Enrich(ctx, h.logger).Debug("Notification created",
		zap.String("type", string(n.Type)),
		zap.String("target_id", n.TargetID.String()),
	)
	return nil
}

// build maps an event to the notification of the party that did not act.
// Unknown events produce no notification.
func build(event shared.DomainEvent) (*notification.Notification, error) {
	var (
		typ       notification.Type
		target    uuid.UUID
		invoiceID *uuid.UUID
	)

	switch e := event.(type) {
	case *invoice.InvoiceCreatedEvent:
		typ, target, invoiceID = notification.TypeInvoiceCreatedByAdmin, e.PayeeID, &e.InvoiceID
	case *invoice.InvoiceApprovedEvent:
		typ, target, invoiceID = notification.TypeInvoiceApprovedByPayer, e.PayeeID, &e.InvoiceID
	case *invoice.InvoiceVerifiedEvent:
		typ, target, invoiceID = notification.TypeInvoiceVerifiedByPayee, e.PayerID, &e.InvoiceID
	case *invoice.InvoiceRejectedEvent:
		invoiceID = &e.InvoiceID
		if e.RejectedBy == invoice.PartyPayer {
			typ, target = notification.TypeInvoiceRejectedByPayer, e.PayeeID
		} else {
			typ, target = notification.TypeInvoiceRejectedByPayee, e.PayerID
		}
	case *invoice.InvoicesBulkUploadedEvent:
		typ, target = notification.TypeInvoicesBulkUploaded, e.PayeeID
	default:
		return nil, nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification payload: %w", err)
	}
	return notification.New(event.EventID(), typ, target, invoiceID, payload), nil
}

var _ shared.EventHandler = (*Handler)(nil)
