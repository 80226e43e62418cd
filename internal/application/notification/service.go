package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/notification"
	"github.com/sawi/backend/internal/domain/shared"
)

// NotificationResponse represents a notification in API responses
type NotificationResponse struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	TargetID  uuid.UUID       `json:"target_id"`
	InvoiceID *uuid.UUID      `json:"invoice_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// ToNotificationResponse converts a domain Notification to NotificationResponse
func ToNotificationResponse(n *notification.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Type:      string(n.Type),
		TargetID:  n.TargetID,
		InvoiceID: n.InvoiceID,
		Payload:   n.Payload,
		CreatedAt: n.CreatedAt,
	}
}

// QueryService reads a corporate's notifications
type QueryService struct {
	repo notification.Repository
}

// NewQueryService creates a new notification QueryService
func NewQueryService(repo notification.Repository) *QueryService {
	return &QueryService{repo: repo}
}

// ListForCorporate returns the corporate's notifications, newest first
func (s *QueryService) ListForCorporate(ctx context.Context, corporateID uuid.UUID, limit, offset int) (*shared.Paginated[NotificationResponse], error) {
	page := shared.Page{Limit: limit, Offset: offset}.Normalize()
	items, total, err := s.repo.ListByTarget(ctx, corporateID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}

	responses := make([]NotificationResponse, len(items))
	for i, n := range items {
		responses[i] = ToNotificationResponse(n)
	}
	result := shared.NewPaginated(responses, total, page)
	return &result, nil
}
