package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/notification"
)

// NotificationModel is the persistence model for notifications
type NotificationModel struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey"`
	Type       notification.Type `gorm:"type:varchar(50);not null"`
	TargetType string            `gorm:"type:varchar(20);not null"`
	TargetID   uuid.UUID         `gorm:"type:uuid;not null;index:idx_notification_target,priority:1"`
	InvoiceID  *uuid.UUID        `gorm:"type:uuid"`
	Payload    []byte            `gorm:"type:jsonb"`
	EventID    uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex"`
	CreatedAt  time.Time         `gorm:"not null;index:idx_notification_target,priority:2"`
}

// TableName returns the table name for GORM
func (NotificationModel) TableName() string {
	return "notifications"
}

// ToDomain converts the persistence model to a domain Notification
func (m *NotificationModel) ToDomain() *notification.Notification {
	return &notification.Notification{
		ID:         m.ID,
		Type:       m.Type,
		TargetType: m.TargetType,
		TargetID:   m.TargetID,
		InvoiceID:  m.InvoiceID,
		Payload:    m.Payload,
		EventID:    m.EventID,
		CreatedAt:  m.CreatedAt,
	}
}

// NotificationModelFromDomain creates a persistence model from a domain Notification
func NotificationModelFromDomain(n *notification.Notification) *NotificationModel {
	return &NotificationModel{
		ID:         n.ID,
		Type:       n.Type,
		TargetType: n.TargetType,
		TargetID:   n.TargetID,
		InvoiceID:  n.InvoiceID,
		Payload:    n.Payload,
		EventID:    n.EventID,
		CreatedAt:  n.CreatedAt,
	}
}
