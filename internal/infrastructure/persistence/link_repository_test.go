package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/corporate"
	"github.com/sawi/backend/internal/domain/ledger"
	"github.com/sawi/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormLinkRepository(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormLinkRepository(db)
	ctx := context.Background()

	payer := seedCorporate(t, db, corporate.StatusActive)
	payee := seedCorporate(t, db, corporate.StatusActive)
	big := seedInvoice(t, db, payer, payee, 300)
	small := seedInvoice(t, db, payer, payee, 100)
	balance, err := NewGormBalanceRepository(db).UpsertIncrement(ctx, ledger.Pair{PayerID: payer, PayeeID: payee}, decimal.NewFromInt(400), 2)
	require.NoError(t, err)

	require.NoError(t, repo.InsertIgnoreConflicts(ctx, []*ledger.Link{
		ledger.NewLink(balance.ID, big.ID, big.Amount),
		ledger.NewLink(balance.ID, small.ID, small.Amount),
	}))

	t.Run("duplicate links are ignored", func(t *testing.T) {
		require.NoError(t, repo.InsertIgnoreConflicts(ctx, []*ledger.Link{
			ledger.NewLink(balance.ID, big.ID, decimal.NewFromInt(1)),
		}))
		count, err := repo.CountByBalance(ctx, balance.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		link, err := repo.FindByBalanceAndInvoice(ctx, balance.ID, big.ID)
		require.NoError(t, err)
		assertDecimal(t, "300", link.Amount)
	})

	t.Run("lists smallest allocation first with invoices", func(t *testing.T) {
		items, total, err := repo.ListWithInvoices(ctx, balance.ID, shared.Page{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, items, 2)
		assert.Equal(t, small.ID, items[0].Link.InvoiceID)
		require.NotNil(t, items[0].Invoice)
		assert.Equal(t, small.ExternalID, items[0].Invoice.ExternalID)
		assert.Equal(t, big.ID, items[1].Invoice.ID)
	})

	t.Run("update and delete", func(t *testing.T) {
		link, err := repo.FindByBalanceAndInvoice(ctx, balance.ID, big.ID)
		require.NoError(t, err)
		require.NoError(t, repo.UpdateAmount(ctx, link.ID, decimal.NewFromInt(120)))

		link, err = repo.FindByBalanceAndInvoice(ctx, balance.ID, big.ID)
		require.NoError(t, err)
		assertDecimal(t, "120", link.Amount)

		ids, err := repo.InvoiceIDsByBalanceIDs(ctx, []uuid.UUID{balance.ID})
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{big.ID, small.ID}, ids)

		n, err := repo.DeleteByBalanceAndInvoice(ctx, balance.ID, small.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		n, err = repo.DeleteByBalanceAndInvoice(ctx, balance.ID, small.ID)
		require.NoError(t, err)
		assert.Zero(t, n)

		require.NoError(t, repo.Delete(ctx, link.ID))
		_, err = repo.FindByBalanceAndInvoice(ctx, balance.ID, big.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormLinkRepository_DeleteByBalanceIDs(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormLinkRepository(db)
	ctx := context.Background()
	keep, drop := uuid.New(), uuid.New()

	require.NoError(t, repo.InsertIgnoreConflicts(ctx, []*ledger.Link{
		ledger.NewLink(keep, uuid.New(), decimal.NewFromInt(5)),
		ledger.NewLink(drop, uuid.New(), decimal.NewFromInt(5)),
		ledger.NewLink(drop, uuid.New(), decimal.NewFromInt(7)),
	}))
	require.NoError(t, repo.DeleteByBalanceIDs(ctx, []uuid.UUID{drop}))

	count, err := repo.CountByBalance(ctx, drop)
	require.NoError(t, err)
	assert.Zero(t, count)
	count, err = repo.CountByBalance(ctx, keep)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
