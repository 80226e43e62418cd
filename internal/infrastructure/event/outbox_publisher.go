package event

import (
	"context"

	"github.com/sawi/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher writes domain events to the outbox inside the caller's
// transaction so they commit or roll back with the aggregate changes
type OutboxPublisher struct {
	serializer *EventSerializer
}

// NewOutboxPublisher creates a new outbox publisher
func NewOutboxPublisher(serializer *EventSerializer) *OutboxPublisher {
	return &OutboxPublisher{
		serializer: serializer,
	}
}

// PublishWithTx serializes events and saves them through tx
func (p *OutboxPublisher) PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, event := range events {
		payload, err := p.serializer.Serialize(event)
		if err != nil {
			return err
		}
		entries = append(entries, shared.NewOutboxEntry(event, payload))
	}

	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}

// ForTx returns an EventPublisher bound to tx
func (p *OutboxPublisher) ForTx(tx *gorm.DB) shared.EventPublisher {
	return &txPublisher{outbox: p, tx: tx}
}

type txPublisher struct {
	outbox *OutboxPublisher
	tx     *gorm.DB
}

func (t *txPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	return t.outbox.PublishWithTx(ctx, t.tx, events...)
}
