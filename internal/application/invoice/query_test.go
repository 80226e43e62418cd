package invoice

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/invoice"
	"github.com/sawi/backend/internal/domain/ledger"
	"github.com/sawi/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newQueryService(repo *MockInvoiceRepository, reader *MockSettlementReader) *Service {
	return NewService(nil, repo, reader, nil, zap.NewNop())
}

func sampleInvoice(t *testing.T) *invoice.Invoice {
	t.Helper()
	issue := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	inv, err := invoice.NewInvoice(invoice.NewInvoiceParams{
		ExternalID: "INV-1",
		PayerID:    uuid.New(),
		PayeeID:    uuid.New(),
		IssueDate:  issue,
		DueDate:    issue.AddDate(0, 1, 0),
		Amount:     decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	inv.ClearDomainEvents()
	return inv
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("attaches settlement runs in first-seen order", func(t *testing.T) {
		repo := new(MockInvoiceRepository)
		reader := new(MockSettlementReader)
		inv := sampleInvoice(t)
		inv.SettlementStatus = invoice.SettlementStatusPartiallySettled
		run1, run2 := uuid.New(), uuid.New()
		loop1, loop2, loop3 := uuid.New(), uuid.New(), uuid.New()

		repo.On("FindByID", ctx, inv.ID).Return(inv, nil)
		reader.On("RunLoopsForInvoice", ctx, inv.ID).Return([]ledger.RunLoopRef{
			{RunID: run1, LoopID: loop1},
			{RunID: run2, LoopID: loop3},
			{RunID: run1, LoopID: loop2},
			{RunID: run1, LoopID: loop1},
		}, nil)

		got, err := newQueryService(repo, reader).Get(ctx, inv.ID)
		require.NoError(t, err)
		require.Len(t, got.Settlements, 2)
		assert.Equal(t, run1, got.Settlements[0].ID)
		assert.Equal(t, []SettlementLoopResponse{{ID: loop1}, {ID: loop2}}, got.Settlements[0].Loops)
		assert.Equal(t, run2, got.Settlements[1].ID)
	})

	t.Run("skips settlements of unsettled invoices", func(t *testing.T) {
		repo := new(MockInvoiceRepository)
		reader := new(MockSettlementReader)
		inv := sampleInvoice(t)
		repo.On("FindByID", ctx, inv.ID).Return(inv, nil)

		got, err := newQueryService(repo, reader).Get(ctx, inv.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Settlements)
		reader.AssertNotCalled(t, "RunLoopsForInvoice", mock.Anything, mock.Anything)
	})

	t.Run("deleted invoices are not found", func(t *testing.T) {
		repo := new(MockInvoiceRepository)
		inv := sampleInvoice(t)
		inv.IsDeleted = true
		repo.On("FindByID", ctx, inv.ID).Return(inv, nil)

		_, err := newQueryService(repo, new(MockSettlementReader)).Get(ctx, inv.ID)
		require.Error(t, err)
		assert.True(t, shared.IsNotFound(err))
		assert.Equal(t, "Invoice not found", err.Error())
	})

	t.Run("missing invoices are not found", func(t *testing.T) {
		repo := new(MockInvoiceRepository)
		id := uuid.New()
		repo.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

		_, err := newQueryService(repo, new(MockSettlementReader)).Get(ctx, id)
		assert.True(t, shared.IsNotFound(err))
	})
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	corp := uuid.New()

	t.Run("maps status onto alg or settlement status", func(t *testing.T) {
		repo := new(MockInvoiceRepository)
		repo.On("List", ctx, mock.MatchedBy(func(f invoice.Filter) bool {
			return f.AlgStatus != nil && *f.AlgStatus == invoice.AlgStatusReady && f.SettlementStatus == nil
		})).Return([]*invoice.Invoice{sampleInvoice(t)}, int64(1), nil).Once()
		repo.On("List", ctx, mock.MatchedBy(func(f invoice.Filter) bool {
			return f.SettlementStatus != nil && *f.SettlementStatus == invoice.SettlementStatusFullySettled && f.AlgStatus == nil
		})).Return([]*invoice.Invoice{}, int64(0), nil).Once()

		svc := newQueryService(repo, nil)
		page, err := svc.List(ctx, ListInvoicesRequest{Status: "ready"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total)
		assert.Len(t, page.Items, 1)

		page, err = svc.List(ctx, ListInvoicesRequest{Status: "fully_settled"})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		repo.AssertExpectations(t)
	})

	t.Run("passes side, av status and sort", func(t *testing.T) {
		repo := new(MockInvoiceRepository)
		repo.On("List", ctx, mock.MatchedBy(func(f invoice.Filter) bool {
			return f.CorporateID != nil && *f.CorporateID == corp &&
				f.Type == invoice.ListTypePayable &&
				f.AVStatus != nil && *f.AVStatus == invoice.AVStatusPending &&
				len(f.Sort) == 2 && f.Sort[0].Column == "amount" && f.Sort[0].Direction == shared.SortDesc &&
				f.Page.Limit == shared.MaxPageLimit
		})).Return([]*invoice.Invoice{}, int64(0), nil)

		_, err := newQueryService(repo, nil).List(ctx, ListInvoicesRequest{
			CorporateID: &corp,
			Type:        "payable",
			AVStatus:    "pending",
			Sort:        "amount_DESC|due_date",
			Limit:       500,
		})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("rejects bad filters", func(t *testing.T) {
		from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 0, -1)
		cases := map[string]ListInvoicesRequest{
			"status":          {Status: "paid"},
			"av status":       {AVStatus: "maybe"},
			"type":            {CorporateID: &corp, Type: "both"},
			"type w/o caller": {Type: "receivable"},
			"sort field":      {Sort: "payer_secret_ASC"},
			"inverted dates":  {IssueDateFrom: &from, IssueDateTo: &to},
		}
		svc := newQueryService(new(MockInvoiceRepository), nil)
		for name, req := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := svc.List(ctx, req)
				require.Error(t, err)
				assert.True(t, shared.IsValidation(err))
			})
		}
	})
}
