package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/notification"
	"github.com/sawi/backend/internal/domain/shared"
	"github.com/sawi/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormNotificationRepository implements notification.Repository using GORM
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GormNotificationRepository
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// Create inserts the notification. The event_id unique index rejects a second
// notification for the same event.
func (r *GormNotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	err := r.db.WithContext(ctx).Create(models.NotificationModelFromDomain(n)).Error
	if err != nil && (IsUniqueViolation(err) || isSQLiteUniqueViolation(err)) {
		return shared.ErrAlreadyExists
	}
	return err
}

// ListByTarget returns a corporate's notifications, newest first
func (r *GormNotificationRepository) ListByTarget(ctx context.Context, targetID uuid.UUID, limit, offset int) ([]*notification.Notification, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.NotificationModel{}).
		Where("target_type = ? AND target_id = ?", notification.TargetTypeCorporate, targetID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := shared.Page{Limit: limit, Offset: offset}
	var rows []models.NotificationModel
	if err := applyPage(query.Order("created_at DESC").Order("id"), page).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	result := make([]*notification.Notification, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].ToDomain())
	}
	return result, total, nil
}

var _ notification.Repository = (*GormNotificationRepository)(nil)
