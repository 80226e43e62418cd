package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/corporate"
	"github.com/sawi/backend/internal/domain/shared"
	"github.com/sawi/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormCorporateRepository implements corporate.Repository using GORM
type GormCorporateRepository struct {
	db *gorm.DB
}

// NewGormCorporateRepository creates a new GormCorporateRepository
func NewGormCorporateRepository(db *gorm.DB) *GormCorporateRepository {
	return &GormCorporateRepository{db: db}
}

// FindByID finds a corporate by its ID
func (r *GormCorporateRepository) FindByID(ctx context.Context, id uuid.UUID) (*corporate.Corporate, error) {
	var model models.CorporateModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds the corporates that exist among ids
func (r *GormCorporateRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*corporate.Corporate, error) {
	if len(ids) == 0 {
		return []*corporate.Corporate{}, nil
	}
	var rows []models.CorporateModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]*corporate.Corporate, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].ToDomain())
	}
	return result, nil
}

// Create inserts a new corporate
func (r *GormCorporateRepository) Create(ctx context.Context, c *corporate.Corporate) error {
	return r.db.WithContext(ctx).Create(models.CorporateModelFromDomain(c)).Error
}

// UpdateStatus persists the status with an optimistic version check
func (r *GormCorporateRepository) UpdateStatus(ctx context.Context, c *corporate.Corporate) error {
	result := r.db.WithContext(ctx).
		Model(&models.CorporateModel{}).
		Where("id = ? AND version = ?", c.ID, c.Version-1).
		Updates(map[string]any{
			"status":     c.Status,
			"version":    c.Version,
			"updated_at": c.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// AdjustAggregates adds the deltas to accounts payable and receivable in a
// single UPDATE; NULL columns count as zero
func (r *GormCorporateRepository) AdjustAggregates(ctx context.Context, id uuid.UUID, payableDelta, receivableDelta decimal.Decimal) error {
	if payableDelta.IsZero() && receivableDelta.IsZero() {
		return nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.CorporateModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"accounts_payable":    gorm.Expr("COALESCE(accounts_payable, 0) + ?", payableDelta),
			"accounts_receivable": gorm.Expr("COALESCE(accounts_receivable, 0) + ?", receivableDelta),
			"updated_at":          time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

type aggregateRow struct {
	ID                 uuid.UUID
	AccountsPayable    decimal.Decimal
	AccountsReceivable decimal.Decimal
}

// ListAggregates returns the stored aggregates of all non-deleted corporates
func (r *GormCorporateRepository) ListAggregates(ctx context.Context) ([]corporate.Aggregates, error) {
	var rows []aggregateRow
	err := r.db.WithContext(ctx).
		Model(&models.CorporateModel{}).
		Select("id, COALESCE(accounts_payable, 0) AS accounts_payable, COALESCE(accounts_receivable, 0) AS accounts_receivable").
		Where("is_deleted = ?", false).
		Order("id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]corporate.Aggregates, 0, len(rows))
	for _, row := range rows {
		result = append(result, corporate.Aggregates{
			CorporateID:        row.ID,
			AccountsPayable:    row.AccountsPayable,
			AccountsReceivable: row.AccountsReceivable,
		})
	}
	return result, nil
}

var _ corporate.Repository = (*GormCorporateRepository)(nil)
