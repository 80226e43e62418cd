package invoice

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams() NewInvoiceParams {
	issue := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	return NewInvoiceParams{
		ExternalID:  "INV-001",
		CorporateID: uuid.New(),
		AddedBy:     "user-1",
		PayerID:     uuid.New(),
		PayeeID:     uuid.New(),
		IssueDate:   issue,
		DueDate:     issue.AddDate(0, 1, 0),
		Amount:      decimal.NewFromInt(100),
	}
}

func newPendingInvoice(t *testing.T) *Invoice {
	t.Helper()
	inv, err := NewInvoice(validParams())
	require.NoError(t, err)
	inv.ClearDomainEvents()
	return inv
}

func TestNewInvoice(t *testing.T) {
	t.Run("sets defaults", func(t *testing.T) {
		inv, err := NewInvoice(validParams())
		require.NoError(t, err)

		assert.Equal(t, "USD", inv.CurrencyCode)
		assert.True(t, inv.RemainingAmount.Equal(inv.Amount))
		assert.Equal(t, AlgStatusNew, inv.AlgStatus)
		assert.Equal(t, ApprovalStatusPending, inv.ApprovalStatus)
		assert.Equal(t, VerificationStatusPending, inv.VerificationStatus)
		assert.Equal(t, SettlementStatusNotSettled, inv.SettlementStatus)
		assert.Equal(t, OriginManualCreation, inv.Origin)
		assert.False(t, inv.IsDeleted)

		events := inv.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeInvoiceCreated, events[0].EventType())
	})

	t.Run("bulk upload records no event", func(t *testing.T) {
		p := validParams()
		p.Origin = OriginBulkUpload
		inv, err := NewInvoice(p)
		require.NoError(t, err)
		assert.Empty(t, inv.GetDomainEvents())
	})

	t.Run("rejects same payer and payee", func(t *testing.T) {
		p := validParams()
		p.PayeeID = p.PayerID
		_, err := NewInvoice(p)
		require.Error(t, err)
		assert.True(t, shared.IsValidation(err))
		assert.Equal(t, "Payer and Payee can not be the same", err.Error())
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		p := validParams()
		p.Amount = decimal.Zero
		_, err := NewInvoice(p)
		assert.True(t, shared.IsValidation(err))
	})

	t.Run("rejects due date before issue date", func(t *testing.T) {
		p := validParams()
		p.DueDate = p.IssueDate.AddDate(0, 0, -1)
		_, err := NewInvoice(p)
		assert.True(t, shared.IsValidation(err))
	})

	t.Run("validates early payment window", func(t *testing.T) {
		p := validParams()
		outside := p.DueDate.AddDate(0, 0, 1)
		p.EarlyPayment = EarlyPayment{Enabled: true, DueDate: &outside, DiscountPercent: decimal.NewFromInt(5)}
		_, err := NewInvoice(p)
		assert.True(t, shared.IsValidation(err))

		inside := p.IssueDate.AddDate(0, 0, 5)
		p.EarlyPayment.DueDate = &inside
		p.EarlyPayment.DiscountPercent = decimal.NewFromInt(100)
		_, err = NewInvoice(p)
		assert.True(t, shared.IsValidation(err))

		p.EarlyPayment.DiscountPercent = decimal.NewFromFloat(2.5)
		_, err = NewInvoice(p)
		assert.NoError(t, err)
	})
}

func TestInvoice_Approve(t *testing.T) {
	t.Run("payer approves", func(t *testing.T) {
		inv := newPendingInvoice(t)
		require.NoError(t, inv.Approve(inv.PayerID))
		assert.Equal(t, ApprovalStatusApproved, inv.ApprovalStatus)
		assert.NotNil(t, inv.ApprovalDate)
		require.Len(t, inv.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeInvoiceApproved, inv.GetDomainEvents()[0].EventType())
	})

	t.Run("payee cannot approve", func(t *testing.T) {
		inv := newPendingInvoice(t)
		err := inv.Approve(inv.PayeeID)
		assert.EqualError(t, err, "Only payer can approve the invoice")
	})

	t.Run("twice fails", func(t *testing.T) {
		inv := newPendingInvoice(t)
		require.NoError(t, inv.Approve(inv.PayerID))
		assert.EqualError(t, inv.Approve(inv.PayerID), "Invoice is already approved")
	})

	t.Run("rejected fails", func(t *testing.T) {
		inv := newPendingInvoice(t)
		require.NoError(t, inv.Reject(inv.PayerID, "wrong amount"))
		assert.EqualError(t, inv.Approve(inv.PayerID), "Can't approve a rejected invoice")
	})
}

func TestInvoice_Verify(t *testing.T) {
	inv := newPendingInvoice(t)

	assert.EqualError(t, inv.Verify(inv.PayerID), "Only payee can verify the invoice")
	require.NoError(t, inv.Verify(inv.PayeeID))
	assert.Equal(t, VerificationStatusVerified, inv.VerificationStatus)
	assert.EqualError(t, inv.Verify(inv.PayeeID), "Invoice is already verified")

	other := newPendingInvoice(t)
	require.NoError(t, other.Reject(other.PayeeID, ""))
	assert.EqualError(t, other.Verify(other.PayeeID), "Can't verify a rejected invoice")
}

func TestInvoice_Reject(t *testing.T) {
	t.Run("payer rejects approval side", func(t *testing.T) {
		inv := newPendingInvoice(t)
		require.NoError(t, inv.Reject(inv.PayerID, " duplicate "))

		assert.Equal(t, ApprovalStatusRejected, inv.ApprovalStatus)
		assert.Equal(t, VerificationStatusPending, inv.VerificationStatus)
		assert.Equal(t, "duplicate", inv.RejectionReason)
		assert.NotNil(t, inv.RejectionDate)

		evt, ok := inv.GetDomainEvents()[0].(*InvoiceRejectedEvent)
		require.True(t, ok)
		assert.Equal(t, PartyPayer, evt.RejectedBy)
	})

	t.Run("payee rejects verification side", func(t *testing.T) {
		inv := newPendingInvoice(t)
		require.NoError(t, inv.Reject(inv.PayeeID, ""))
		assert.Equal(t, VerificationStatusRejected, inv.VerificationStatus)
		assert.Equal(t, ApprovalStatusPending, inv.ApprovalStatus)
	})

	t.Run("cannot reject twice or after approval", func(t *testing.T) {
		inv := newPendingInvoice(t)
		require.NoError(t, inv.Reject(inv.PayerID, ""))
		assert.EqualError(t, inv.Reject(inv.PayerID, ""), "Invoice is already rejected")

		approved := newPendingInvoice(t)
		require.NoError(t, approved.Approve(approved.PayerID))
		assert.EqualError(t, approved.Reject(approved.PayerID, ""), "Can't reject an approved invoice")

		verified := newPendingInvoice(t)
		require.NoError(t, verified.Verify(verified.PayeeID))
		assert.EqualError(t, verified.Reject(verified.PayeeID, ""), "Can't reject a verified invoice")
	})

	t.Run("stranger cannot reject", func(t *testing.T) {
		inv := newPendingInvoice(t)
		err := inv.Reject(uuid.New(), "")
		assert.True(t, shared.IsValidation(err))
	})
}

func TestInvoice_MarkDeleted(t *testing.T) {
	t.Run("soft deletes", func(t *testing.T) {
		inv := newPendingInvoice(t)
		require.NoError(t, inv.MarkDeleted())
		assert.True(t, inv.IsDeleted)
		assert.Equal(t, EventTypeInvoiceDeleted, inv.GetDomainEvents()[0].EventType())
	})

	t.Run("settled invoices are protected", func(t *testing.T) {
		for _, status := range []SettlementStatus{SettlementStatusPartiallySettled, SettlementStatusFullySettled} {
			inv := newPendingInvoice(t)
			inv.SettlementStatus = status
			err := inv.MarkDeleted()
			assert.True(t, shared.IsPrecondition(err), string(status))
			assert.False(t, inv.IsDeleted)
		}
	})

	t.Run("already deleted is not found", func(t *testing.T) {
		inv := newPendingInvoice(t)
		require.NoError(t, inv.MarkDeleted())
		assert.True(t, shared.IsNotFound(inv.MarkDeleted()))
	})
}

func TestInvoice_IsEligibleForAccrual(t *testing.T) {
	inv := newPendingInvoice(t)
	assert.False(t, inv.IsEligibleForAccrual())

	require.NoError(t, inv.Approve(inv.PayerID))
	require.NoError(t, inv.Verify(inv.PayeeID))
	assert.True(t, inv.IsEligibleForAccrual())

	inv.AlgStatus = AlgStatusReady
	assert.False(t, inv.IsEligibleForAccrual())
}
