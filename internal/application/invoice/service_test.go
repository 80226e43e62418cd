package invoice_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	invoiceapp "github.com/sawi/backend/internal/application/invoice"
	ledgerapp "github.com/sawi/backend/internal/application/ledger"
	"github.com/sawi/backend/internal/domain/corporate"
	"github.com/sawi/backend/internal/domain/invoice"
	"github.com/sawi/backend/internal/domain/shared"
	"github.com/sawi/backend/internal/infrastructure/persistence"
	"github.com/sawi/backend/internal/infrastructure/persistence/models"
	"github.com/sawi/backend/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

type invoiceFixture struct {
	db     *gorm.DB
	ledger *ledgerapp.Service
	svc    *invoiceapp.Service
	logs   *observer.ObservedLogs
}

func newInvoiceFixture(t *testing.T, opts ...invoiceapp.ServiceOption) *invoiceFixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)
	scope := testutil.NewTestScope(t, db, log)
	ledgerSvc := ledgerapp.NewService(scope, log)
	svc := invoiceapp.NewService(
		scope,
		persistence.NewGormInvoiceRepository(db),
		persistence.NewGormSettlementReader(db),
		ledgerSvc,
		log,
		opts...,
	)
	return &invoiceFixture{db: db, ledger: ledgerSvc, svc: svc, logs: logs}
}

func (f *invoiceFixture) outboxTypes(t *testing.T) []string {
	t.Helper()
	var types []string
	require.NoError(t, f.db.Model(&models.OutboxEntryModel{}).Order("created_at").Pluck("event_type", &types).Error)
	return types
}

func createRequest(payer, payee uuid.UUID) invoiceapp.CreateInvoiceRequest {
	issue := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return invoiceapp.CreateInvoiceRequest{
		ExternalID:  "INV-100",
		PayerID:     payer,
		PayeeID:     payee,
		IssueDate:   issue,
		DueDate:     issue.AddDate(0, 1, 0),
		Amount:      decimal.NewFromInt(250),
		CorporateID: payee,
		AddedBy:     "ops@payee.test",
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a pending invoice and records the event", func(t *testing.T) {
		f := newInvoiceFixture(t)
		a := testutil.SeedCorporate(t, f.db, corporate.StatusActive)
		b := testutil.SeedCorporate(t, f.db, corporate.StatusActive)

		got, err := f.svc.Create(ctx, createRequest(a, b))
		require.NoError(t, err)
		assert.Equal(t, "new", got.AlgStatus)
		assert.Equal(t, "pending", got.ApprovalStatus)
		assert.Equal(t, "not_settled", got.SettlementStatus)
		assert.Equal(t, "manual_creation", got.Origin)
		assert.Equal(t, invoice.DefaultCurrencyCode, got.CurrencyCode)
		testutil.AssertDecimal(t, "250", got.RemainingAmount)

		stored := testutil.LoadInvoice(t, f.db, got.ID)
		assert.Equal(t, "ops@payee.test", stored.AddedBy)
		assert.Equal(t, []string{invoice.EventTypeInvoiceCreated}, f.outboxTypes(t))
		assert.Equal(t, 1, f.logs.FilterMessage("Invoice created").Len())
	})

	t.Run("creates an early payment offer", func(t *testing.T) {
		f := newInvoiceFixture(t)
		a := testutil.SeedCorporate(t, f.db, corporate.StatusActive)
		b := testutil.SeedCorporate(t, f.db, corporate.StatusActive)

		req := createRequest(a, b)
		early := req.IssueDate.AddDate(0, 0, 10)
		discount := decimal.NewFromFloat(2.5)
		req.EarlyPaymentStatus = true
		req.EarlyPaymentDueDate = &early
		req.EarlyPaymentDiscount = &discount

		got, err := f.svc.Create(ctx, req)
		require.NoError(t, err)
		assert.True(t, got.EarlyPayment.Enabled)
		testutil.AssertDecimal(t, "2.5", got.EarlyPayment.DiscountPercent)
	})

	t.Run("rejects invalid requests", func(t *testing.T) {
		f := newInvoiceFixture(t)
		a := testutil.SeedCorporate(t, f.db, corporate.StatusActive)
		b := testutil.SeedCorporate(t, f.db, corporate.StatusActive)

		tests := []struct {
			name    string
			mutate  func(*invoiceapp.CreateInvoiceRequest)
			message string
		}{
			{"same parties", func(r *invoiceapp.CreateInvoiceRequest) { r.PayeeID = r.PayerID }, "Payer and Payee can not be the same"},
			{"zero amount", func(r *invoiceapp.CreateInvoiceRequest) { r.Amount = decimal.Zero }, ""},
			{"missing external id", func(r *invoiceapp.CreateInvoiceRequest) { r.ExternalID = "" }, ""},
			{"due before issue", func(r *invoiceapp.CreateInvoiceRequest) { r.DueDate = r.IssueDate.AddDate(0, 0, -1) }, "Due date must be after issue date"},
			{"early payment without date", func(r *invoiceapp.CreateInvoiceRequest) { r.EarlyPaymentStatus = true }, ""},
			{"unknown payee", func(r *invoiceapp.CreateInvoiceRequest) { r.PayeeID = uuid.New() }, "Payer or Payee (or both) does not exist"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := createRequest(a, b)
				tt.mutate(&req)
				_, err := f.svc.Create(ctx, req)
				require.Error(t, err)
				assert.True(t, shared.IsValidation(err), "got %v", err)
				if tt.message != "" {
					assert.Equal(t, tt.message, err.Error())
				}
			})
		}
		assert.Zero(t, testutil.CountRows(t, f.db, &models.InvoiceModel{}))
		assert.Empty(t, f.outboxTypes(t))
	})
}

func TestService_PerformAction(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*invoiceFixture, uuid.UUID, uuid.UUID, uuid.UUID) {
		f := newInvoiceFixture(t)
		a := testutil.SeedCorporate(t, f.db, corporate.StatusActive)
		b := testutil.SeedCorporate(t, f.db, corporate.StatusActive)
		inv := testutil.SeedInvoice(t, f.db, a, b, 100, testutil.Pending)
		return f, a, b, inv.ID
	}

	t.Run("approve then verify makes the invoice eligible", func(t *testing.T) {
		f, a, b, id := setup(t)

		got, err := f.svc.PerformAction(ctx, invoiceapp.PerformActionRequest{InvoiceID: id, Type: invoiceapp.ActionApprove, ActorCorporateID: a})
		require.NoError(t, err)
		assert.Equal(t, "approved", got.ApprovalStatus)
		assert.NotNil(t, got.ApprovalDate)

		got, err = f.svc.PerformAction(ctx, invoiceapp.PerformActionRequest{InvoiceID: id, Type: invoiceapp.ActionVerify, ActorCorporateID: b})
		require.NoError(t, err)
		assert.Equal(t, "verified", got.VerificationStatus)
		assert.Nil(t, testutil.FindBalance(t, f.db, a, b), "actions never accrue")

		assert.Equal(t, []string{invoice.EventTypeInvoiceApproved, invoice.EventTypeInvoiceVerified}, f.outboxTypes(t))

		report, err := f.ledger.Calculate(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Invoices)
	})

	t.Run("reject records the reason", func(t *testing.T) {
		f, _, b, id := setup(t)

		got, err := f.svc.PerformAction(ctx, invoiceapp.PerformActionRequest{
			InvoiceID: id, Type: invoiceapp.ActionReject, ActorCorporateID: b, Reason: "wrong amount",
		})
		require.NoError(t, err)
		assert.Equal(t, "rejected", got.VerificationStatus)
		assert.Equal(t, "wrong amount", got.RejectionReason)
		assert.Equal(t, []string{invoice.EventTypeInvoiceRejected}, f.outboxTypes(t))
	})

	t.Run("refuses invalid actions", func(t *testing.T) {
		f, a, b, id := setup(t)

		tests := []struct {
			name    string
			req     invoiceapp.PerformActionRequest
			message string
		}{
			{"unknown type", invoiceapp.PerformActionRequest{InvoiceID: id, Type: "pay", ActorCorporateID: a}, "Action is not supported"},
			{"stranger", invoiceapp.PerformActionRequest{InvoiceID: id, Type: invoiceapp.ActionApprove, ActorCorporateID: uuid.New()}, "Only payer or payee can perform actions on the invoice"},
			{"payee approves", invoiceapp.PerformActionRequest{InvoiceID: id, Type: invoiceapp.ActionApprove, ActorCorporateID: b}, "Only payer can approve the invoice"},
			{"payer verifies", invoiceapp.PerformActionRequest{InvoiceID: id, Type: invoiceapp.ActionVerify, ActorCorporateID: a}, "Only payee can verify the invoice"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.svc.PerformAction(ctx, tt.req)
				require.Error(t, err)
				assert.True(t, shared.IsValidation(err))
				assert.Equal(t, tt.message, err.Error())
			})
		}
		assert.Empty(t, f.outboxTypes(t))
	})

	t.Run("unknown invoice", func(t *testing.T) {
		f, a, _, _ := setup(t)
		_, err := f.svc.PerformAction(ctx, invoiceapp.PerformActionRequest{InvoiceID: uuid.New(), Type: invoiceapp.ActionApprove, ActorCorporateID: a})
		assert.True(t, shared.IsNotFound(err))
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("reverses an accrued invoice", func(t *testing.T) {
		f := newInvoiceFixture(t)
		a := testutil.SeedCorporate(t, f.db, corporate.StatusActive)
		b := testutil.SeedCorporate(t, f.db, corporate.StatusActive)
		keep := testutil.SeedInvoice(t, f.db, a, b, 60)
		drop := testutil.SeedInvoice(t, f.db, a, b, 40)

		_, err := f.ledger.Calculate(ctx)
		require.NoError(t, err)

		require.NoError(t, f.svc.Delete(ctx, drop.ID))

		assert.True(t, testutil.LoadInvoice(t, f.db, drop.ID).IsDeleted)
		b1 := testutil.FindBalance(t, f.db, a, b)
		require.NotNil(t, b1)
		testutil.AssertDecimal(t, "60", b1.Amount)
		assert.Equal(t, 1, b1.InvoiceCount)
		assert.Equal(t, int64(1), testutil.CountRows(t, f.db, &models.BalanceInvoiceModel{}))
		assert.Contains(t, f.outboxTypes(t), invoice.EventTypeInvoiceDeleted)

		_, err = f.svc.Get(ctx, drop.ID)
		assert.True(t, shared.IsNotFound(err))
		_, err = f.svc.Get(ctx, keep.ID)
		assert.NoError(t, err)
	})

	t.Run("removes the balance with its last invoice", func(t *testing.T) {
		f := newInvoiceFixture(t)
		a := testutil.SeedCorporate(t, f.db, corporate.StatusActive)
		b := testutil.SeedCorporate(t, f.db, corporate.StatusActive)
		inv := testutil.SeedInvoice(t, f.db, a, b, 40)
		_, err := f.ledger.Calculate(ctx)
		require.NoError(t, err)

		require.NoError(t, f.svc.Delete(ctx, inv.ID))
		assert.Nil(t, testutil.FindBalance(t, f.db, a, b))
	})

	t.Run("second delete is not found", func(t *testing.T) {
		f := newInvoiceFixture(t)
		a := testutil.SeedCorporate(t, f.db, corporate.StatusActive)
		b := testutil.SeedCorporate(t, f.db, corporate.StatusActive)
		inv := testutil.SeedInvoice(t, f.db, a, b, 40, testutil.Pending)

		require.NoError(t, f.svc.Delete(ctx, inv.ID))
		err := f.svc.Delete(ctx, inv.ID)
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("settled invoices cannot be deleted", func(t *testing.T) {
		f := newInvoiceFixture(t)
		a := testutil.SeedCorporate(t, f.db, corporate.StatusActive)
		b := testutil.SeedCorporate(t, f.db, corporate.StatusActive)
		inv := testutil.SeedInvoice(t, f.db, a, b, 40)
		testutil.SeedInvoice(t, f.db, a, b, 60)
		_, err := f.ledger.Calculate(ctx)
		require.NoError(t, err)
		require.NoError(t, f.db.Model(&models.InvoiceModel{}).Where("id = ?", inv.ID).
			Update("settlement_status", invoice.SettlementStatusPartiallySettled).Error)

		err = f.svc.Delete(ctx, inv.ID)
		require.Error(t, err)
		assert.True(t, shared.IsPrecondition(err))

		stored := testutil.LoadInvoice(t, f.db, inv.ID)
		assert.False(t, stored.IsDeleted)
		assert.Equal(t, invoice.AlgStatusReady, stored.AlgStatus)

		balance := testutil.FindBalance(t, f.db, a, b)
		require.NotNil(t, balance)
		testutil.AssertDecimal(t, "100", balance.Amount)
		assert.Equal(t, 2, balance.InvoiceCount)

		var links int64
		require.NoError(t, f.db.Model(&models.BalanceInvoiceModel{}).
			Where("balance_id = ? AND invoice_id = ?", balance.ID, inv.ID).Count(&links).Error)
		assert.Equal(t, int64(1), links)

		payer := testutil.LoadCorporate(t, f.db, a).ToDomain()
		payee := testutil.LoadCorporate(t, f.db, b).ToDomain()
		testutil.AssertDecimal(t, "100", payer.AccountsPayable)
		testutil.AssertDecimal(t, "0", payer.AccountsReceivable)
		testutil.AssertDecimal(t, "0", payee.AccountsPayable)
		testutil.AssertDecimal(t, "100", payee.AccountsReceivable)
	})
}

func importCSV(rows ...string) string {
	return "external_id,payer_id,payee_id,issue_date,due_date,amount,currency_code\n" + strings.Join(rows, "\n") + "\n"
}

func importRow(ext string, payer, payee uuid.UUID, amount string) string {
	return fmt.Sprintf("%s,%s,%s,2026-01-01,2026-02-01,%s,USD", ext, payer, payee, amount)
}

func TestService_BulkImport(t *testing.T) {
	ctx := context.Background()

	t.Run("imports valid rows and reports the rest", func(t *testing.T) {
		archive := new(invoiceapp.MockArchiveStorage)
		archive.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, invoiceapp.ArchiveKeyPrefix) && strings.HasSuffix(key, ".csv")
		}), mock.Anything, "text/csv").Return(nil)

		f := newInvoiceFixture(t, invoiceapp.WithArchiveStorage(archive))
		a := testutil.SeedCorporate(t, f.db, corporate.StatusActive)
		b := testutil.SeedCorporate(t, f.db, corporate.StatusActive)
		c := testutil.SeedCorporate(t, f.db, corporate.StatusActive)
		testutil.SeedInvoice(t, f.db, a, b, 10, func(m *models.InvoiceModel) { m.ExternalID = "EXT-DUP" })

		file := importCSV(
			importRow("EXT-1", a, b, "100"),
			importRow("EXT-2", a, c, "50.5"),
			importRow("EXT-3", a, b, "20"),
			importRow("EXT-4", uuid.New(), b, "20"),
			importRow("EXT-DUP", a, b, "20"),
		)

		result, err := f.svc.BulkImport(ctx, b, "ops@b.test", strings.NewReader(file))
		require.NoError(t, err)
		assert.Equal(t, 5, result.TotalRows)
		assert.Equal(t, 3, result.ImportedRows)
		assert.Equal(t, 2, result.ErrorRows)
		require.Len(t, result.Errors, 2)
		assert.Equal(t, "Payer or Payee (or both) does not exist", result.Errors[0].Message)
		assert.Equal(t, invoiceapp.ArchiveKeyPrefix+result.BatchID.String()+".csv", result.ArchiveKey)
		archive.AssertExpectations(t)

		assert.Equal(t, int64(4), testutil.CountRows(t, f.db, &models.InvoiceModel{}))
		assert.Equal(t,
			[]string{invoice.EventTypeInvoicesBulkUploaded, invoice.EventTypeInvoicesBulkUploaded},
			f.outboxTypes(t), "one event per payee and none per invoice")

		var origins []string
		require.NoError(t, f.db.Model(&models.InvoiceModel{}).Where("external_id LIKE ?", "EXT-_").Pluck("origin", &origins).Error)
		assert.Equal(t, []string{"bulk_upload", "bulk_upload", "bulk_upload"}, origins)
	})

	t.Run("archive failure does not fail the import", func(t *testing.T) {
		archive := new(invoiceapp.MockArchiveStorage)
		archive.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bucket gone"))

		f := newInvoiceFixture(t, invoiceapp.WithArchiveStorage(archive))
		a := testutil.SeedCorporate(t, f.db, corporate.StatusActive)
		b := testutil.SeedCorporate(t, f.db, corporate.StatusActive)

		result, err := f.svc.BulkImport(ctx, b, "", strings.NewReader(importCSV(importRow("EXT-1", a, b, "1"))))
		require.NoError(t, err)
		assert.Equal(t, 1, result.ImportedRows)
		assert.Empty(t, result.ArchiveKey)
		assert.Equal(t, 1, f.logs.FilterMessage("Failed to archive import file").Len())
	})

	t.Run("nothing imported skips the archive", func(t *testing.T) {
		archive := new(invoiceapp.MockArchiveStorage)
		f := newInvoiceFixture(t, invoiceapp.WithArchiveStorage(archive))
		b := testutil.SeedCorporate(t, f.db, corporate.StatusActive)

		result, err := f.svc.BulkImport(ctx, b, "", strings.NewReader(importCSV(importRow("EXT-1", uuid.New(), b, "1"))))
		require.NoError(t, err)
		assert.Zero(t, result.ImportedRows)
		assert.Equal(t, 1, result.ErrorRows)
		archive.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		assert.Empty(t, f.outboxTypes(t))
	})

	t.Run("missing headers reject the file", func(t *testing.T) {
		f := newInvoiceFixture(t)
		_, err := f.svc.BulkImport(ctx, uuid.New(), "", strings.NewReader("external_id,amount\nX,1\n"))
		require.Error(t, err)
		assert.True(t, shared.IsValidation(err))
	})
}
