package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/ledger"
	"github.com/sawi/backend/internal/domain/shared"
	"github.com/sawi/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSettlementReader implements ledger.SettlementReader over the settlement
// executor's tables
type GormSettlementReader struct {
	db *gorm.DB
}

// NewGormSettlementReader creates a new GormSettlementReader
func NewGormSettlementReader(db *gorm.DB) *GormSettlementReader {
	return &GormSettlementReader{db: db}
}

// FindRun finds a settlement run by its ID
func (r *GormSettlementReader) FindRun(ctx context.Context, runID uuid.UUID) (*ledger.SettlementRun, error) {
	var model models.SettlementRunModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", runID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &ledger.SettlementRun{ID: model.ID, Status: model.Status, CreatedAt: model.CreatedAt}, nil
}

// SettledBalances returns every settled balance of every loop of the run,
// each with its settled invoices
func (r *GormSettlementReader) SettledBalances(ctx context.Context, runID uuid.UUID) ([]ledger.SettledBalance, error) {
	db := r.db.WithContext(ctx)

	var balances []models.SettlementBalanceModel
	err := db.Model(&models.SettlementBalanceModel{}).
		Select("settlement_balances.*").
		Joins("JOIN settlement_loops sl ON sl.id = settlement_balances.loop_id").
		Where("sl.run_id = ?", runID).
		Order("settlement_balances.loop_id").
		Order("settlement_balances.id").
		Find(&balances).Error
	if err != nil {
		return nil, err
	}
	if len(balances) == 0 {
		return []ledger.SettledBalance{}, nil
	}

	balanceIDs := make([]uuid.UUID, 0, len(balances))
	for _, b := range balances {
		balanceIDs = append(balanceIDs, b.ID)
	}
	var invoices []models.SettlementInvoiceModel
	err = db.Where("balance_id IN ?", balanceIDs).
		Order("balance_id").
		Order("id").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	byBalance := make(map[uuid.UUID][]ledger.SettledInvoice, len(balances))
	for _, si := range invoices {
		byBalance[si.BalanceID] = append(byBalance[si.BalanceID], ledger.SettledInvoice{
			ID:        si.ID,
			InvoiceID: si.InvoiceID,
			Amount:    si.Amount,
		})
	}

	result := make([]ledger.SettledBalance, 0, len(balances))
	for _, b := range balances {
		result = append(result, ledger.SettledBalance{
			ID:       b.ID,
			LoopID:   b.LoopID,
			Pair:     ledger.Pair{PayerID: b.PayerID, PayeeID: b.PayeeID},
			Amount:   b.Amount,
			Invoices: byBalance[b.ID],
		})
	}
	return result, nil
}

// RunLoopsForInvoice returns the (run, loop) rows that settled the invoice,
// oldest run first
func (r *GormSettlementReader) RunLoopsForInvoice(ctx context.Context, invoiceID uuid.UUID) ([]ledger.RunLoopRef, error) {
	var rows []struct {
		RunID  uuid.UUID
		LoopID uuid.UUID
	}
	err := r.db.WithContext(ctx).
		Table("settlement_invoices si").
		Select("sr.id AS run_id, sl.id AS loop_id").
		Joins("JOIN settlement_balances sb ON sb.id = si.balance_id").
		Joins("JOIN settlement_loops sl ON sl.id = sb.loop_id").
		Joins("JOIN settlement_runs sr ON sr.id = sl.run_id").
		Where("si.invoice_id = ?", invoiceID).
		Order("sr.created_at").
		Order("sl.id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	refs := make([]ledger.RunLoopRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, ledger.RunLoopRef{RunID: row.RunID, LoopID: row.LoopID})
	}
	return refs, nil
}

var _ ledger.SettlementReader = (*GormSettlementReader)(nil)
