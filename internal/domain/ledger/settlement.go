package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// The settlement models below are owned by the settlement executor. The
// ledger only reads them to learn what to reverse.

// SettlementRun is one settlement execution
type SettlementRun struct {
	ID        uuid.UUID
	Status    string
	CreatedAt time.Time
}

// SettledInvoice is the settled portion of one invoice within a settled balance
type SettledInvoice struct {
	ID        uuid.UUID
	InvoiceID uuid.UUID
	Amount    decimal.Decimal
}

// SettledBalance is the amount settled for one pair in one loop of a run
type SettledBalance struct {
	ID       uuid.UUID
	LoopID   uuid.UUID
	Pair     Pair
	Amount   decimal.Decimal
	Invoices []SettledInvoice
}

// RunLoopRef names one (run, loop) that touched an invoice
type RunLoopRef struct {
	RunID  uuid.UUID
	LoopID uuid.UUID
}

// RunSummary is a settlement run with the loops that touched an invoice
type RunSummary struct {
	RunID   uuid.UUID
	LoopIDs []uuid.UUID
}

// SummarizeRuns folds (run, loop) rows into distinct runs with distinct loops,
// keeping the first-seen order of both
func SummarizeRuns(refs []RunLoopRef) []RunSummary {
	index := make(map[uuid.UUID]int)
	seenLoop := make(map[RunLoopRef]bool)
	runs := make([]RunSummary, 0)
	for _, ref := range refs {
		i, ok := index[ref.RunID]
		if !ok {
			i = len(runs)
			index[ref.RunID] = i
			runs = append(runs, RunSummary{RunID: ref.RunID, LoopIDs: make([]uuid.UUID, 0, 1)})
		}
		if seenLoop[ref] {
			continue
		}
		seenLoop[ref] = true
		runs[i].LoopIDs = append(runs[i].LoopIDs, ref.LoopID)
	}
	return runs
}
