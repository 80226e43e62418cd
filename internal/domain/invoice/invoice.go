package invoice

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateTypeInvoice is the aggregate type recorded on invoice events
const AggregateTypeInvoice = "Invoice"

// DefaultCurrencyCode is used when an invoice is created without a currency
const DefaultCurrencyCode = "USD"

// AlgStatus is the accrual state of an invoice
type AlgStatus string

const (
	AlgStatusNew       AlgStatus = "new"       // Not yet accrued into a balance
	AlgStatusReady     AlgStatus = "ready"     // Accrued into its pair balance
	AlgStatusLocked    AlgStatus = "locked"    // Held by a running settlement
	AlgStatusSuspended AlgStatus = "suspended" // Unwound because a party is blocked
)

// IsValid checks if the status is a valid AlgStatus
func (s AlgStatus) IsValid() bool {
	switch s {
	case AlgStatusNew, AlgStatusReady, AlgStatusLocked, AlgStatusSuspended:
		return true
	}
	return false
}

// ApprovalStatus is the payer side of the invoice workflow
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// IsValid checks if the status is a valid ApprovalStatus
func (s ApprovalStatus) IsValid() bool {
	switch s {
	case ApprovalStatusPending, ApprovalStatusApproved, ApprovalStatusRejected:
		return true
	}
	return false
}

// VerificationStatus is the payee side of the invoice workflow
type VerificationStatus string

const (
	VerificationStatusPending  VerificationStatus = "pending"
	VerificationStatusVerified VerificationStatus = "verified"
	VerificationStatusRejected VerificationStatus = "rejected"
)

// IsValid checks if the status is a valid VerificationStatus
func (s VerificationStatus) IsValid() bool {
	switch s {
	case VerificationStatusPending, VerificationStatusVerified, VerificationStatusRejected:
		return true
	}
	return false
}

// SettlementStatus tracks how much of the invoice settlement runs consumed
type SettlementStatus string

const (
	SettlementStatusNotSettled       SettlementStatus = "not_settled"
	SettlementStatusPartiallySettled SettlementStatus = "partially_settled"
	SettlementStatusFullySettled     SettlementStatus = "fully_settled"
)

// IsValid checks if the status is a valid SettlementStatus
func (s SettlementStatus) IsValid() bool {
	switch s {
	case SettlementStatusNotSettled, SettlementStatusPartiallySettled, SettlementStatusFullySettled:
		return true
	}
	return false
}

// HasSettlement returns true once any settlement run touched the invoice
func (s SettlementStatus) HasSettlement() bool {
	return s == SettlementStatusPartiallySettled || s == SettlementStatusFullySettled
}

// Origin records how the invoice entered the system
type Origin string

const (
	OriginBulkUpload     Origin = "bulk_upload"
	OriginManualCreation Origin = "manual_creation"
)

// IsValid checks if the origin is valid
func (o Origin) IsValid() bool {
	return o == OriginBulkUpload || o == OriginManualCreation
}

// EarlyPayment is an optional discount for paying before the due date
type EarlyPayment struct {
	Enabled         bool            `json:"enabled"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// Invoice is a receivable owed by a payer corporate to a payee corporate.
// It is soft-deleted only.
type Invoice struct {
	shared.BaseAggregateRoot
	ExternalID         string
	CorporateID        uuid.UUID
	AddedBy            string
	PayerID            uuid.UUID
	PayeeID            uuid.UUID
	IssueDate          time.Time
	DueDate            time.Time
	Amount             decimal.Decimal
	RemainingAmount    decimal.Decimal
	CurrencyCode       string
	AlgStatus          AlgStatus
	ApprovalStatus     ApprovalStatus
	ApprovalDate       *time.Time
	VerificationStatus VerificationStatus
	VerificationDate   *time.Time
	RejectionDate      *time.Time
	RejectionReason    string
	SettlementStatus   SettlementStatus
	Origin             Origin
	EarlyPayment       EarlyPayment
	IsDeleted          bool
}

// NewInvoiceParams carries the caller-supplied fields of a new invoice
type NewInvoiceParams struct {
	ExternalID   string
	CorporateID  uuid.UUID
	AddedBy      string
	PayerID      uuid.UUID
	PayeeID      uuid.UUID
	IssueDate    time.Time
	DueDate      time.Time
	Amount       decimal.Decimal
	CurrencyCode string
	Origin       Origin
	EarlyPayment EarlyPayment
}

// NewInvoice creates a new invoice in the new/pending state.
// Manually created invoices record an InvoiceCreated event; bulk imports are
// announced once per batch instead.
func NewInvoice(p NewInvoiceParams) (*Invoice, error) {
	if p.PayerID == uuid.Nil || p.PayeeID == uuid.Nil {
		return nil, shared.NewValidationError("Payer and Payee are required")
	}
	if p.PayerID == p.PayeeID {
		return nil, shared.NewValidationError("Payer and Payee can not be the same")
	}
	if strings.TrimSpace(p.ExternalID) == "" {
		return nil, shared.NewValidationError("External ID cannot be empty")
	}
	if !p.Amount.IsPositive() {
		return nil, shared.NewValidationError("Amount must be positive")
	}
	if !p.DueDate.After(p.IssueDate) {
		return nil, shared.NewValidationError("Due date must be after issue date")
	}
	if err := validateEarlyPayment(p.EarlyPayment, p.IssueDate, p.DueDate); err != nil {
		return nil, err
	}

	origin := p.Origin
	if origin == "" {
		origin = OriginManualCreation
	}
	if !origin.IsValid() {
		return nil, shared.NewValidationError("Invoice origin is not valid")
	}

	currency := strings.ToUpper(strings.TrimSpace(p.CurrencyCode))
	if currency == "" {
		currency = DefaultCurrencyCode
	}

	inv := &Invoice{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		ExternalID:         strings.TrimSpace(p.ExternalID),
		CorporateID:        p.CorporateID,
		AddedBy:            p.AddedBy,
		PayerID:            p.PayerID,
		PayeeID:            p.PayeeID,
		IssueDate:          p.IssueDate,
		DueDate:            p.DueDate,
		Amount:             p.Amount,
		RemainingAmount:    p.Amount,
		CurrencyCode:       currency,
		AlgStatus:          AlgStatusNew,
		ApprovalStatus:     ApprovalStatusPending,
		VerificationStatus: VerificationStatusPending,
		SettlementStatus:   SettlementStatusNotSettled,
		Origin:             origin,
		EarlyPayment:       p.EarlyPayment,
	}

	if origin != OriginBulkUpload {
		inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))
	}

	return inv, nil
}

func validateEarlyPayment(ep EarlyPayment, issue, due time.Time) error {
	if !ep.Enabled {
		return nil
	}
	if ep.DueDate == nil {
		return shared.NewValidationError("Early payment due date is required")
	}
	if !ep.DueDate.After(issue) || !ep.DueDate.Before(due) {
		return shared.NewValidationError("Early payment due date must be between issue date and due date")
	}
	if !ep.DiscountPercent.IsPositive() || ep.DiscountPercent.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return shared.NewValidationError("Early payment discount must be between 0 and 100")
	}
	return nil
}

// IsEligibleForAccrual reports whether the accrual sweep should pick the invoice up
func (i *Invoice) IsEligibleForAccrual() bool {
	return !i.IsDeleted &&
		i.AlgStatus == AlgStatusNew &&
		i.ApprovalStatus == ApprovalStatusApproved &&
		i.VerificationStatus == VerificationStatusVerified
}

// IsAccrued reports whether the invoice currently contributes to a balance
func (i *Invoice) IsAccrued() bool {
	return i.AlgStatus == AlgStatusReady
}

// IsPayer reports whether the corporate is the payer of the invoice
func (i *Invoice) IsPayer(corporateID uuid.UUID) bool {
	return i.PayerID == corporateID
}

// IsPayee reports whether the corporate is the payee of the invoice
func (i *Invoice) IsPayee(corporateID uuid.UUID) bool {
	return i.PayeeID == corporateID
}

// Approve records the payer's approval
func (i *Invoice) Approve(actorID uuid.UUID) error {
	if !i.IsPayer(actorID) {
		return shared.NewValidationError("Only payer can approve the invoice")
	}
	switch i.ApprovalStatus {
	case ApprovalStatusApproved:
		return shared.NewValidationError("Invoice is already approved")
	case ApprovalStatusRejected:
		return shared.NewValidationError("Can't approve a rejected invoice")
	}

	now := time.Now()
	i.ApprovalStatus = ApprovalStatusApproved
	i.ApprovalDate = &now
	i.Touch()
	i.IncrementVersion()

	i.AddDomainEvent(NewInvoiceApprovedEvent(i))
	return nil
}

// Verify records the payee's verification
func (i *Invoice) Verify(actorID uuid.UUID) error {
	if !i.IsPayee(actorID) {
		return shared.NewValidationError("Only payee can verify the invoice")
	}
	switch i.VerificationStatus {
	case VerificationStatusVerified:
		return shared.NewValidationError("Invoice is already verified")
	case VerificationStatusRejected:
		return shared.NewValidationError("Can't verify a rejected invoice")
	}

	now := time.Now()
	i.VerificationStatus = VerificationStatusVerified
	i.VerificationDate = &now
	i.Touch()
	i.IncrementVersion()

	i.AddDomainEvent(NewInvoiceVerifiedEvent(i))
	return nil
}

// Reject rejects the actor's side of the workflow: the payer rejects the
// approval, the payee rejects the verification.
func (i *Invoice) Reject(actorID uuid.UUID, reason string) error {
	var side Party
	switch {
	case i.IsPayer(actorID):
		switch i.ApprovalStatus {
		case ApprovalStatusRejected:
			return shared.NewValidationError("Invoice is already rejected")
		case ApprovalStatusApproved:
			return shared.NewValidationError("Can't reject an approved invoice")
		}
		i.ApprovalStatus = ApprovalStatusRejected
		side = PartyPayer
	case i.IsPayee(actorID):
		switch i.VerificationStatus {
		case VerificationStatusRejected:
			return shared.NewValidationError("Invoice is already rejected")
		case VerificationStatusVerified:
			return shared.NewValidationError("Can't reject a verified invoice")
		}
		i.VerificationStatus = VerificationStatusRejected
		side = PartyPayee
	default:
		return shared.NewValidationError("Only payer or payee can reject the invoice")
	}

	now := time.Now()
	i.RejectionDate = &now
	i.RejectionReason = strings.TrimSpace(reason)
	i.Touch()
	i.IncrementVersion()

	i.AddDomainEvent(NewInvoiceRejectedEvent(i, side))
	return nil
}

// MarkDeleted soft-deletes the invoice. Settled invoices cannot be deleted.
func (i *Invoice) MarkDeleted() error {
	if i.IsDeleted {
		return shared.NewNotFoundError("Invoice not found")
	}
	if i.SettlementStatus.HasSettlement() {
		return shared.NewPreconditionError("Invoices in statuses Settled or Partially settled cannot be deleted.")
	}

	i.IsDeleted = true
	i.Touch()
	i.IncrementVersion()

	i.AddDomainEvent(NewInvoiceDeletedEvent(i))
	return nil
}

// Party identifies which side of an invoice a corporate is on
type Party string

const (
	PartyPayer Party = "payer"
	PartyPayee Party = "payee"
)
