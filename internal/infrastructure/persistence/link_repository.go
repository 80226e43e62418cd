package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/ledger"
	"github.com/sawi/backend/internal/domain/shared"
	"github.com/sawi/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLinkRepository implements ledger.LinkRepository using GORM
type GormLinkRepository struct {
	db *gorm.DB
}

// NewGormLinkRepository creates a new GormLinkRepository
func NewGormLinkRepository(db *gorm.DB) *GormLinkRepository {
	return &GormLinkRepository{db: db}
}

// InsertIgnoreConflicts inserts links, skipping (balance, invoice) pairs that already exist
func (r *GormLinkRepository) InsertIgnoreConflicts(ctx context.Context, links []*ledger.Link) error {
	if len(links) == 0 {
		return nil
	}
	rows := make([]*models.BalanceInvoiceModel, 0, len(links))
	for _, l := range links {
		rows = append(rows, models.BalanceInvoiceModelFromDomain(l))
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "balance_id"}, {Name: "invoice_id"}},
			DoNothing: true,
		}).
		CreateInBatches(rows, 500).Error
}

// FindByBalanceAndInvoice finds the link of an invoice in a balance
func (r *GormLinkRepository) FindByBalanceAndInvoice(ctx context.Context, balanceID, invoiceID uuid.UUID) (*ledger.Link, error) {
	var model models.BalanceInvoiceModel
	err := r.db.WithContext(ctx).
		Where("balance_id = ? AND invoice_id = ?", balanceID, invoiceID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// UpdateAmount overwrites the allocated amount of a link
func (r *GormLinkRepository) UpdateAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.BalanceInvoiceModel{}).
		Where("id = ?", id).
		Update("amount", amount).Error
}

// Delete removes one link
func (r *GormLinkRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.BalanceInvoiceModel{}).Error
}

// DeleteByBalanceAndInvoice removes the link of an invoice in a balance and
// returns how many rows went away
func (r *GormLinkRepository) DeleteByBalanceAndInvoice(ctx context.Context, balanceID, invoiceID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("balance_id = ? AND invoice_id = ?", balanceID, invoiceID).
		Delete(&models.BalanceInvoiceModel{})
	return result.RowsAffected, result.Error
}

// DeleteByBalanceIDs removes every link of the balances
func (r *GormLinkRepository) DeleteByBalanceIDs(ctx context.Context, balanceIDs []uuid.UUID) error {
	if len(balanceIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("balance_id IN ?", balanceIDs).
		Delete(&models.BalanceInvoiceModel{}).Error
}

// CountByBalance counts the links of a balance
func (r *GormLinkRepository) CountByBalance(ctx context.Context, balanceID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BalanceInvoiceModel{}).
		Where("balance_id = ?", balanceID).
		Count(&count).Error
	return count, err
}

// InvoiceIDsByBalanceIDs returns the distinct invoices linked to the balances
func (r *GormLinkRepository) InvoiceIDsByBalanceIDs(ctx context.Context, balanceIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(balanceIDs) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.BalanceInvoiceModel{}).
		Where("balance_id IN ?", balanceIDs).
		Distinct().
		Order("invoice_id").
		Pluck("invoice_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ListWithInvoices pages a balance's links, smallest allocation first, and
// attaches the linked invoices
func (r *GormLinkRepository) ListWithInvoices(ctx context.Context, balanceID uuid.UUID, page shared.Page) ([]ledger.LinkedInvoice, int64, error) {
	db := r.db.WithContext(ctx)
	query := db.Model(&models.BalanceInvoiceModel{}).Where("balance_id = ?", balanceID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var links []models.BalanceInvoiceModel
	if err := applyPage(query.Order("amount ASC").Order("id"), page).Find(&links).Error; err != nil {
		return nil, 0, err
	}
	if len(links) == 0 {
		return []ledger.LinkedInvoice{}, total, nil
	}

	invoiceIDs := make([]uuid.UUID, 0, len(links))
	for _, l := range links {
		invoiceIDs = append(invoiceIDs, l.InvoiceID)
	}
	var invoices []models.InvoiceModel
	if err := db.Where("id IN ?", invoiceIDs).Find(&invoices).Error; err != nil {
		return nil, 0, err
	}
	byID := make(map[uuid.UUID]*models.InvoiceModel, len(invoices))
	for i := range invoices {
		byID[invoices[i].ID] = &invoices[i]
	}

	result := make([]ledger.LinkedInvoice, 0, len(links))
	for i := range links {
		item := ledger.LinkedInvoice{Link: *links[i].ToDomain()}
		if inv, ok := byID[links[i].InvoiceID]; ok {
			item.Invoice = inv.ToDomain()
		}
		result = append(result, item)
	}
	return result, total, nil
}

var _ ledger.LinkRepository = (*GormLinkRepository)(nil)
