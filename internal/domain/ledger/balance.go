package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/invoice"
	"github.com/sawi/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Pair is an ordered (payer, payee) key. At most one Balance exists per pair.
type Pair struct {
	PayerID uuid.UUID
	PayeeID uuid.UUID
}

// Balance is the accrued amount one payer owes one payee.
// A stored balance always has a positive amount; zero balances are removed.
type Balance struct {
	shared.BaseEntity
	PayerID      uuid.UUID
	PayeeID      uuid.UUID
	Amount       decimal.Decimal
	InvoiceCount int
}

// Pair returns the balance key
func (b *Balance) Pair() Pair {
	return Pair{PayerID: b.PayerID, PayeeID: b.PayeeID}
}

// Involves reports whether the corporate is either side of the balance
func (b *Balance) Involves(corporateID uuid.UUID) bool {
	return b.PayerID == corporateID || b.PayeeID == corporateID
}

// Link records how much of one invoice is allocated into one balance
type Link struct {
	ID        uuid.UUID
	BalanceID uuid.UUID
	InvoiceID uuid.UUID
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// NewLink creates a link for a freshly accrued invoice
func NewLink(balanceID, invoiceID uuid.UUID, amount decimal.Decimal) *Link {
	return &Link{
		ID:        uuid.New(),
		BalanceID: balanceID,
		InvoiceID: invoiceID,
		Amount:    amount,
		CreatedAt: time.Now(),
	}
}

// LinkedInvoice is a link joined with the invoice it allocates
type LinkedInvoice struct {
	Link    Link
	Invoice *invoice.Invoice
}

// AccrualItem is the slice of an invoice the accrual needs
type AccrualItem struct {
	InvoiceID uuid.UUID
	Pair      Pair
	Amount    decimal.Decimal // remaining amount at selection time
}

// PairGroup is the set of accrual items of one pair
type PairGroup struct {
	Pair  Pair
	Items []AccrualItem
}

// Total returns the summed amount of the group
func (g PairGroup) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range g.Items {
		total = total.Add(item.Amount)
	}
	return total
}

// InvoiceIDs returns the invoice ids of the group in order
func (g PairGroup) InvoiceIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(g.Items))
	for _, item := range g.Items {
		ids = append(ids, item.InvoiceID)
	}
	return ids
}

// GroupByPair groups accrual items by pair, keeping the first-seen pair order
func GroupByPair(items []AccrualItem) []PairGroup {
	index := make(map[Pair]int)
	groups := make([]PairGroup, 0)
	for _, item := range items {
		i, ok := index[item.Pair]
		if !ok {
			i = len(groups)
			index[item.Pair] = i
			groups = append(groups, PairGroup{Pair: item.Pair})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}

// AggregateDelta is a pending change to one corporate's aggregates
type AggregateDelta struct {
	Payable    decimal.Decimal
	Receivable decimal.Decimal
}

// IsZero reports whether applying the delta would change nothing
func (d AggregateDelta) IsZero() bool {
	return d.Payable.IsZero() && d.Receivable.IsZero()
}

// AggregateDeltas accumulates aggregate changes per corporate so each
// corporate is written once
type AggregateDeltas struct {
	order  []uuid.UUID
	deltas map[uuid.UUID]AggregateDelta
}

// NewAggregateDeltas creates an empty accumulator
func NewAggregateDeltas() *AggregateDeltas {
	return &AggregateDeltas{deltas: make(map[uuid.UUID]AggregateDelta)}
}

// AddBalance records amount against the payer's payable and the payee's receivable
func (a *AggregateDeltas) AddBalance(pair Pair, amount decimal.Decimal) {
	a.add(pair.PayerID, amount, decimal.Zero)
	a.add(pair.PayeeID, decimal.Zero, amount)
}

func (a *AggregateDeltas) add(id uuid.UUID, payable, receivable decimal.Decimal) {
	d, ok := a.deltas[id]
	if !ok {
		a.order = append(a.order, id)
		d = AggregateDelta{Payable: decimal.Zero, Receivable: decimal.Zero}
	}
	d.Payable = d.Payable.Add(payable)
	d.Receivable = d.Receivable.Add(receivable)
	a.deltas[id] = d
}

// Each visits the non-zero deltas in first-seen order
func (a *AggregateDeltas) Each(fn func(corporateID uuid.UUID, delta AggregateDelta) error) error {
	for _, id := range a.order {
		d := a.deltas[id]
		if d.IsZero() {
			continue
		}
		if err := fn(id, d); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of corporates touched
func (a *AggregateDeltas) Len() int {
	return len(a.order)
}
