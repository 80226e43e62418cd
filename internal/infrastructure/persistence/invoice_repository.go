package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/invoice"
	"github.com/sawi/backend/internal/domain/shared"
	"github.com/sawi/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

var invoiceSortColumns = columnSet(invoice.SortFields)

// GormInvoiceRepository implements invoice.Repository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by its ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a new invoice
func (r *GormInvoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	return r.db.WithContext(ctx).Create(models.InvoiceModelFromDomain(inv)).Error
}

// CreateBatch inserts several invoices in one statement
func (r *GormInvoiceRepository) CreateBatch(ctx context.Context, invoices []*invoice.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}
	rows := make([]*models.InvoiceModel, 0, len(invoices))
	for _, inv := range invoices {
		rows = append(rows, models.InvoiceModelFromDomain(inv))
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, 200).Error
}

// Update persists workflow and deletion changes. The accrual columns
// (alg_status, remaining_amount) are owned by the ledger and never written here.
func (r *GormInvoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("id = ? AND version = ?", inv.ID, inv.Version-1).
		Updates(map[string]any{
			"approval_status":     inv.ApprovalStatus,
			"approval_date":       inv.ApprovalDate,
			"verification_status": inv.VerificationStatus,
			"verification_date":   inv.VerificationDate,
			"rejection_date":      inv.RejectionDate,
			"rejection_reason":    inv.RejectionReason,
			"is_deleted":          inv.IsDeleted,
			"version":             inv.Version,
			"updated_at":          inv.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// List returns non-deleted invoices matching the filter and the total count
func (r *GormInvoiceRepository) List(ctx context.Context, filter invoice.Filter) ([]*invoice.Invoice, int64, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.InvoiceModel
	query = applySort(query, filter.Sort, invoiceSortColumns, invoice.DefaultSort)
	if err := applyPage(query, filter.Page).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	invoices := make([]*invoice.Invoice, 0, len(rows))
	for i := range rows {
		invoices = append(invoices, rows[i].ToDomain())
	}
	return invoices, total, nil
}

func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter invoice.Filter) *gorm.DB {
	query = query.Where("is_deleted = ?", false)

	if filter.CorporateID != nil {
		switch filter.Type {
		case invoice.ListTypePayable:
			query = query.Where("payer_id = ?", *filter.CorporateID)
		case invoice.ListTypeReceivable:
			query = query.Where("payee_id = ?", *filter.CorporateID)
		default:
			query = query.Where("(payer_id = ? OR payee_id = ?)", *filter.CorporateID, *filter.CorporateID)
		}
	}
	if filter.PayerID != nil {
		query = query.Where("payer_id = ?", *filter.PayerID)
	}
	if filter.PayeeID != nil {
		query = query.Where("payee_id = ?", *filter.PayeeID)
	}
	if filter.AlgStatus != nil {
		query = query.Where("alg_status = ?", *filter.AlgStatus)
	}
	if filter.SettlementStatus != nil {
		query = query.Where("settlement_status = ?", *filter.SettlementStatus)
	}
	if filter.AVStatus != nil {
		switch *filter.AVStatus {
		case invoice.AVStatusPending:
			query = query.
				Where("(approval_status = ? OR verification_status = ?)",
					invoice.ApprovalStatusPending, invoice.VerificationStatusPending).
				Where("approval_status <> ? AND verification_status <> ?",
					invoice.ApprovalStatusRejected, invoice.VerificationStatusRejected)
		case invoice.AVStatusVerified:
			query = query.Where("approval_status = ? AND verification_status = ?",
				invoice.ApprovalStatusApproved, invoice.VerificationStatusVerified)
		case invoice.AVStatusRejected:
			query = query.Where("(approval_status = ? OR verification_status = ?)",
				invoice.ApprovalStatusRejected, invoice.VerificationStatusRejected)
		}
	}
	if filter.IssueDateFrom != nil {
		query = query.Where("issue_date >= ?", *filter.IssueDateFrom)
	}
	if filter.IssueDateTo != nil {
		query = query.Where("issue_date <= ?", *filter.IssueDateTo)
	}
	return query
}

// ExistingExternalIDs returns which external ids are already used by live
// invoices of the payer
func (r *GormInvoiceRepository) ExistingExternalIDs(ctx context.Context, payerID uuid.UUID, externalIDs []string) ([]string, error) {
	if len(externalIDs) == 0 {
		return []string{}, nil
	}
	var found []string
	err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("payer_id = ? AND external_id IN ? AND is_deleted = ?", payerID, externalIDs, false).
		Distinct().
		Pluck("external_id", &found).Error
	if err != nil {
		return nil, err
	}
	return found, nil
}

var _ invoice.Repository = (*GormInvoiceRepository)(nil)
