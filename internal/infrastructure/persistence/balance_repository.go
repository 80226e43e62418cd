package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/ledger"
	"github.com/sawi/backend/internal/domain/shared"
	"github.com/sawi/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var balanceSortColumns = columnSet(ledger.BalanceSortFields)

// GormBalanceRepository implements ledger.BalanceRepository using GORM
type GormBalanceRepository struct {
	db *gorm.DB
}

// NewGormBalanceRepository creates a new GormBalanceRepository
func NewGormBalanceRepository(db *gorm.DB) *GormBalanceRepository {
	return &GormBalanceRepository{db: db}
}

// FindByID finds a balance by its ID
func (r *GormBalanceRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Balance, error) {
	var model models.BalanceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPair finds the balance of a (payer, payee) pair
func (r *GormBalanceRepository) FindByPair(ctx context.Context, pair ledger.Pair) (*ledger.Balance, error) {
	var model models.BalanceModel
	err := r.db.WithContext(ctx).
		Where("payer_id = ? AND payee_id = ?", pair.PayerID, pair.PayeeID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCorporate returns balances where the corporate is payer or payee
func (r *GormBalanceRepository) FindByCorporate(ctx context.Context, corporateID uuid.UUID) ([]*ledger.Balance, error) {
	var rows []models.BalanceModel
	err := r.db.WithContext(ctx).
		Where("payer_id = ? OR payee_id = ?", corporateID, corporateID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toBalances(rows), nil
}

// UpsertIncrement inserts the pair balance or adds amount and count to the
// existing row. The conflict update is a single atomic statement, so
// concurrent accruals into the same pair never lose an increment. The insert
// runs under a savepoint; a unique violation leaves the outer transaction
// usable and is reported as shared.ErrAlreadyExists.
func (r *GormBalanceRepository) UpsertIncrement(ctx context.Context, pair ledger.Pair, amount decimal.Decimal, count int) (*ledger.Balance, error) {
	row := models.NewBalanceModel(pair, amount, count)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "payer_id"}, {Name: "payee_id"}},
			DoUpdates: clause.Set{
				{Column: clause.Column{Name: "amount"}, Value: gorm.Expr("balances.amount + excluded.amount")},
				{Column: clause.Column{Name: "invoice_count"}, Value: gorm.Expr("balances.invoice_count + excluded.invoice_count")},
				{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr("excluded.updated_at")},
			},
		}).Create(row).Error
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, fmt.Errorf("upsert balance %s->%s: %w", pair.PayerID, pair.PayeeID, shared.ErrAlreadyExists)
		}
		return nil, err
	}
	return r.FindByPair(ctx, pair)
}

// Increment adds the deltas to an existing balance
func (r *GormBalanceRepository) Increment(ctx context.Context, id uuid.UUID, amountDelta decimal.Decimal, countDelta int) error {
	result := r.db.WithContext(ctx).
		Model(&models.BalanceModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"amount":        gorm.Expr("amount + ?", amountDelta),
			"invoice_count": gorm.Expr("invoice_count + ?", countDelta),
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetInvoiceCount overwrites the invoice count
func (r *GormBalanceRepository) SetInvoiceCount(ctx context.Context, id uuid.UUID, count int) error {
	return r.db.WithContext(ctx).
		Model(&models.BalanceModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"invoice_count": count,
			"updated_at":    time.Now(),
		}).Error
}

// FindNonPositive returns the balances among ids whose amount is zero or less
func (r *GormBalanceRepository) FindNonPositive(ctx context.Context, ids []uuid.UUID) ([]*ledger.Balance, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.BalanceModel
	err := r.db.WithContext(ctx).
		Where("id IN ? AND amount <= 0", ids).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toBalances(rows), nil
}

// DeleteByIDs hard-deletes balances
func (r *GormBalanceRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.BalanceModel{}).Error
}

// List returns positive balances matching the filter and the total count
func (r *GormBalanceRepository) List(ctx context.Context, filter ledger.BalanceFilter) ([]*ledger.Balance, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.BalanceModel{}).Where("amount > 0")
	if filter.PayerID != nil {
		query = query.Where("payer_id = ?", *filter.PayerID)
	}
	if filter.PayeeID != nil {
		query = query.Where("payee_id = ?", *filter.PayeeID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.BalanceModel
	query = applySort(query, filter.Sort, balanceSortColumns, ledger.DefaultBalanceSort)
	if err := applyPage(query, filter.Page).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toBalances(rows), total, nil
}

type corporateSum struct {
	CorporateID uuid.UUID
	Total       decimal.Decimal
}

// TotalsByCorporate sums positive balances per payer and per payee
func (r *GormBalanceRepository) TotalsByCorporate(ctx context.Context) ([]ledger.CorporateTotals, error) {
	var payable, receivable []corporateSum
	db := r.db.WithContext(ctx)

	err := db.Model(&models.BalanceModel{}).
		Select("payer_id AS corporate_id, SUM(amount) AS total").
		Where("amount > 0").
		Group("payer_id").
		Scan(&payable).Error
	if err != nil {
		return nil, err
	}
	err = db.Model(&models.BalanceModel{}).
		Select("payee_id AS corporate_id, SUM(amount) AS total").
		Where("amount > 0").
		Group("payee_id").
		Scan(&receivable).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*ledger.CorporateTotals)
	var order []uuid.UUID
	get := func(id uuid.UUID) *ledger.CorporateTotals {
		t, ok := byID[id]
		if !ok {
			t = &ledger.CorporateTotals{CorporateID: id, Payable: decimal.Zero, Receivable: decimal.Zero}
			byID[id] = t
			order = append(order, id)
		}
		return t
	}
	for _, s := range payable {
		get(s.CorporateID).Payable = s.Total
	}
	for _, s := range receivable {
		get(s.CorporateID).Receivable = s.Total
	}

	result := make([]ledger.CorporateTotals, 0, len(order))
	for _, id := range order {
		result = append(result, *byID[id])
	}
	return result, nil
}

func toBalances(rows []models.BalanceModel) []*ledger.Balance {
	balances := make([]*ledger.Balance, 0, len(rows))
	for i := range rows {
		balances = append(balances, rows[i].ToDomain())
	}
	return balances
}

var _ ledger.BalanceRepository = (*GormBalanceRepository)(nil)
