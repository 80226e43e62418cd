package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/corporate"
	"github.com/sawi/backend/internal/domain/invoice"
	"github.com/sawi/backend/internal/domain/ledger"
	"github.com/sawi/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormAccrualRepository implements ledger.AccrualSource over the invoices table
type GormAccrualRepository struct {
	db *gorm.DB
}

// NewGormAccrualRepository creates a new GormAccrualRepository
func NewGormAccrualRepository(db *gorm.DB) *GormAccrualRepository {
	return &GormAccrualRepository{db: db}
}

type accrualRow struct {
	ID              uuid.UUID
	PayerID         uuid.UUID
	PayeeID         uuid.UUID
	RemainingAmount decimal.Decimal
}

func (row accrualRow) item() ledger.AccrualItem {
	return ledger.AccrualItem{
		InvoiceID: row.ID,
		Pair:      ledger.Pair{PayerID: row.PayerID, PayeeID: row.PayeeID},
		Amount:    row.RemainingAmount,
	}
}

// unblocked scopes an invoice query to pairs where neither party is blocked
func (r *GormAccrualRepository) unblocked(ctx context.Context) *gorm.DB {
	blocked := r.db.WithContext(ctx).
		Model(&models.CorporateModel{}).
		Select("id").
		Where("status = ?", corporate.StatusBlocked)

	return r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("payer_id NOT IN (?)", blocked).
		Where("payee_id NOT IN (?)", blocked)
}

// eligible scopes a query to invoices the sweep may accrue. Invoices of a
// blocked party stay new until the corporate is activated again.
func (r *GormAccrualRepository) eligible(ctx context.Context) *gorm.DB {
	return r.unblocked(ctx).
		Where("is_deleted = ?", false).
		Where("alg_status = ?", invoice.AlgStatusNew).
		Where("approval_status = ?", invoice.ApprovalStatusApproved).
		Where("verification_status = ?", invoice.VerificationStatusVerified)
}

// EligiblePairs returns the distinct pairs with at least one eligible invoice
func (r *GormAccrualRepository) EligiblePairs(ctx context.Context) ([]ledger.Pair, error) {
	var rows []struct {
		PayerID uuid.UUID
		PayeeID uuid.UUID
	}
	err := r.eligible(ctx).
		Distinct("payer_id", "payee_id").
		Order("payer_id").
		Order("payee_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	pairs := make([]ledger.Pair, 0, len(rows))
	for _, row := range rows {
		pairs = append(pairs, ledger.Pair{PayerID: row.PayerID, PayeeID: row.PayeeID})
	}
	return pairs, nil
}

// EligibleByPair returns the eligible invoices of one pair
func (r *GormAccrualRepository) EligibleByPair(ctx context.Context, pair ledger.Pair) ([]ledger.AccrualItem, error) {
	var rows []accrualRow
	err := r.eligible(ctx).
		Select("id, payer_id, payee_id, remaining_amount").
		Where("payer_id = ? AND payee_id = ?", pair.PayerID, pair.PayeeID).
		Order("id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return toAccrualItems(rows), nil
}

// ActiveByCorporate returns the invoices of the corporate that an activation
// must accrue again: the ones suspended by the block, plus new invoices that
// became eligible while a party was blocked. Accrued, locked and fully
// settled invoices are left alone, and so are pairs whose other party is
// still blocked.
func (r *GormAccrualRepository) ActiveByCorporate(ctx context.Context, corporateID uuid.UUID) ([]ledger.AccrualItem, error) {
	var rows []accrualRow
	err := r.unblocked(ctx).
		Select("id, payer_id, payee_id, remaining_amount").
		Where("(payer_id = ? OR payee_id = ?)", corporateID, corporateID).
		Where("is_deleted = ?", false).
		Where("settlement_status <> ?", invoice.SettlementStatusFullySettled).
		Where(
			r.db.Where("alg_status = ?", invoice.AlgStatusSuspended).
				Or("alg_status = ? AND approval_status = ? AND verification_status = ?",
					invoice.AlgStatusNew, invoice.ApprovalStatusApproved, invoice.VerificationStatusVerified),
		).
		Order("id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return toAccrualItems(rows), nil
}

// SetAlgStatus moves the invoices to status
func (r *GormAccrualRepository) SetAlgStatus(ctx context.Context, ids []uuid.UUID, status invoice.AlgStatus) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"alg_status": status,
			"updated_at": time.Now(),
		}).Error
}

func toAccrualItems(rows []accrualRow) []ledger.AccrualItem {
	items := make([]ledger.AccrualItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.item())
	}
	return items
}

var _ ledger.AccrualSource = (*GormAccrualRepository)(nil)
