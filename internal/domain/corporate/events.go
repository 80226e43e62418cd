package corporate

import (
	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/shared"
)

const (
	EventTypeCorporateBlocked   = "CorporateBlocked"
	EventTypeCorporateActivated = "CorporateActivated"
)

// CorporateBlockedEvent is raised when a corporate is blocked
type CorporateBlockedEvent struct {
	shared.BaseDomainEvent
	CorporateID uuid.UUID `json:"corporate_id"`
	Name        string    `json:"name"`
}

// NewCorporateBlockedEvent creates a new CorporateBlockedEvent
func NewCorporateBlockedEvent(c *Corporate) *CorporateBlockedEvent {
	return &CorporateBlockedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCorporateBlocked, AggregateTypeCorporate, c.ID),
		CorporateID:     c.ID,
		Name:            c.Name,
	}
}

// CorporateActivatedEvent is raised when a blocked corporate is activated again
type CorporateActivatedEvent struct {
	shared.BaseDomainEvent
	CorporateID uuid.UUID `json:"corporate_id"`
	Name        string    `json:"name"`
}

// NewCorporateActivatedEvent creates a new CorporateActivatedEvent
func NewCorporateActivatedEvent(c *Corporate) *CorporateActivatedEvent {
	return &CorporateActivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCorporateActivated, AggregateTypeCorporate, c.ID),
		CorporateID:     c.ID,
		Name:            c.Name,
	}
}
