package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/invoice"
	"github.com/sawi/backend/internal/domain/ledger"
	"github.com/sawi/backend/internal/domain/shared"
	"github.com/sawi/backend/internal/infrastructure/logger"
	"github.com/sawi/backend/internal/infrastructure/metrics"
	"github.com/sawi/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// AccrualReport summarizes one accrual sweep
type AccrualReport struct {
	Pairs    int             `json:"pairs"`
	Invoices int             `json:"invoices"`
	Amount   decimal.Decimal `json:"amount"`
}

// Service maintains the pair balances and the corporate aggregates derived
// from them. Operations taking TransactionalRepositories run inside the
// caller's transaction; the others open their own through the scope.
type Service struct {
	scope  TransactionScope
	logger *zap.Logger
}

// NewService creates a new ledger Service
func NewService(scope TransactionScope, logger *zap.Logger) *Service {
	return &Service{
		scope:  scope,
		logger: logger.Named("ledger"),
	}
}

// Calculate runs the accrual sweep: every approved and verified new invoice
// is added to its pair balance and marked ready. The sweep runs in one
// serializable transaction, so concurrent sweeps never accrue an invoice twice.
func (s *Service) Calculate(ctx context.Context) (AccrualReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "calculate")
	defer span.End()

	start := time.Now()
	var report AccrualReport
	err := s.scope.ExecuteSerializable(ctx, func(repos TransactionalRepositories) error {
		report = AccrualReport{Amount: decimal.Zero}

		pairs, err := repos.AccrualRepo().EligiblePairs(ctx)
		if err != nil {
			return fmt.Errorf("failed to select eligible pairs: %w", err)
		}
		for _, pair := range pairs {
			items, err := repos.AccrualRepo().EligibleByPair(ctx, pair)
			if err != nil {
				return fmt.Errorf("failed to select eligible invoices: %w", err)
			}
			if len(items) == 0 {
				continue
			}
			group := ledger.PairGroup{Pair: pair, Items: items}
			if err := s.accrue(ctx, repos, group); err != nil {
				return err
			}
			report.Pairs++
			report.Invoices += len(items)
			report.Amount = report.Amount.Add(group.Total())
		}
		return nil
	})

	result := metrics.ResultSuccess
	switch {
	case err != nil:
		result = metrics.ResultError
		telemetry.RecordError(span, err)
	case report.Invoices == 0:
		result = metrics.ResultEmpty
	}
	metrics.ObserveSweep(result, time.Since(start), report.Invoices, report.Amount.InexactFloat64())
	if err != nil {
		return AccrualReport{Amount: decimal.Zero}, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrPairs, report.Pairs,
		telemetry.SpanAttrInvoices, report.Invoices,
		telemetry.SpanAttrAmount, report.Amount.String(),
	)
	if report.Invoices > 0 {
		logger.Enrich(ctx, s.logger).Info("Accrual sweep completed",
			zap.Int("pairs", report.Pairs),
			zap.Int("invoices", report.Invoices),
			zap.String("amount", report.Amount.String()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return report, nil
}

// accrue adds one pair group to its balance, the corporate aggregates and
// the link table, and marks the invoices ready
func (s *Service) accrue(ctx context.Context, repos TransactionalRepositories, group ledger.PairGroup) error {
	total := group.Total()
	count := len(group.Items)
	balances := repos.BalanceRepo()

	balance, err := balances.UpsertIncrement(ctx, group.Pair, total, count)
	if errors.Is(err, shared.ErrAlreadyExists) {
		logger.Enrich(ctx, s.logger).Warn("Balance upsert hit a unique violation, applying increment as update",
			zap.String("payer_id", group.Pair.PayerID.String()),
			zap.String("payee_id", group.Pair.PayeeID.String()),
			zap.Error(err),
		)
		balance, err = balances.FindByPair(ctx, group.Pair)
		if err == nil {
			err = balances.Increment(ctx, balance.ID, total, count)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to accrue balance: %w", err)
	}

	if err := adjustPair(ctx, repos, group.Pair, total); err != nil {
		return err
	}
	if err := repos.AccrualRepo().SetAlgStatus(ctx, group.InvoiceIDs(), invoice.AlgStatusReady); err != nil {
		return fmt.Errorf("failed to mark invoices ready: %w", err)
	}

	links := make([]*ledger.Link, 0, count)
	for _, item := range group.Items {
		links = append(links, ledger.NewLink(balance.ID, item.InvoiceID, item.Amount))
	}
	if err := repos.LinkRepo().InsertIgnoreConflicts(ctx, links); err != nil {
		return fmt.Errorf("failed to link invoices: %w", err)
	}
	return nil
}

// ReverseInvoice removes a deleted, accrued invoice from its balance. Any
// other invoice is left alone.
func (s *Service) ReverseInvoice(ctx context.Context, repos TransactionalRepositories, inv *invoice.Invoice) error {
	if !inv.IsDeleted || !inv.IsAccrued() {
		return nil
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "reverse_invoice",
		telemetry.SpanAttrInvoiceID, inv.ID.String())
	defer span.End()

	err := s.reverseInvoice(ctx, repos, inv)
	recordOperation(span, metrics.ReversalInvoice, err)
	return err
}

func (s *Service) reverseInvoice(ctx context.Context, repos TransactionalRepositories, inv *invoice.Invoice) error {
	pair := ledger.Pair{PayerID: inv.PayerID, PayeeID: inv.PayeeID}
	balance, err := repos.BalanceRepo().FindByPair(ctx, pair)
	if err != nil {
		if shared.IsNotFound(err) {
			logger.Enrich(ctx, s.logger).Warn("Accrued invoice has no balance to reverse",
				zap.String("invoice_id", inv.ID.String()))
			return nil
		}
		return err
	}

	if err := repos.BalanceRepo().Increment(ctx, balance.ID, inv.Amount.Neg(), -1); err != nil {
		return fmt.Errorf("failed to decrement balance: %w", err)
	}
	if _, err := repos.LinkRepo().DeleteByBalanceAndInvoice(ctx, balance.ID, inv.ID); err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	if err := adjustPair(ctx, repos, pair, inv.Amount.Neg()); err != nil {
		return err
	}
	return s.normalize(ctx, repos, []uuid.UUID{balance.ID})
}

// ApplyRunReversal takes the amounts settled by a settlement run out of the
// ledger: links shrink or disappear, balances shrink or disappear, and the
// corporate aggregates follow.
func (s *Service) ApplyRunReversal(ctx context.Context, repos TransactionalRepositories, runID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "apply_run_reversal",
		telemetry.SpanAttrRunID, runID.String())
	defer span.End()

	err := s.applyRunReversal(ctx, repos, runID)
	recordOperation(span, metrics.ReversalRun, err)
	return err
}

// ApplyRunReversalTx is ApplyRunReversal in its own transaction
func (s *Service) ApplyRunReversalTx(ctx context.Context, runID uuid.UUID) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		return s.ApplyRunReversal(ctx, repos, runID)
	})
}

func (s *Service) applyRunReversal(ctx context.Context, repos TransactionalRepositories, runID uuid.UUID) error {
	if _, err := repos.SettlementRepo().FindRun(ctx, runID); err != nil {
		if shared.IsNotFound(err) {
			return shared.NewNotFoundError("Settlement run not found")
		}
		return err
	}

	settled, err := repos.SettlementRepo().SettledBalances(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load settled balances: %w", err)
	}

	log := logger.Enrich(ctx, s.logger)
	balances := repos.BalanceRepo()
	links := repos.LinkRepo()
	deltas := ledger.NewAggregateDeltas()
	for _, sb := range settled {
		balance, err := balances.FindByPair(ctx, sb.Pair)
		if err != nil {
			if shared.IsNotFound(err) {
				log.Warn("Settled balance has no ledger balance, skipping",
					zap.String("run_id", runID.String()),
					zap.String("settlement_balance_id", sb.ID.String()),
				)
				continue
			}
			return err
		}

		for _, si := range sb.Invoices {
			link, err := links.FindByBalanceAndInvoice(ctx, balance.ID, si.InvoiceID)
			if err != nil {
				if shared.IsNotFound(err) {
					continue
				}
				return err
			}
			left := link.Amount.Sub(si.Amount)
			if left.IsPositive() {
				err = links.UpdateAmount(ctx, link.ID, left)
			} else {
				err = links.Delete(ctx, link.ID)
			}
			if err != nil {
				return fmt.Errorf("failed to reduce link: %w", err)
			}
		}

		if err := balances.Increment(ctx, balance.ID, sb.Amount.Neg(), 0); err != nil {
			return fmt.Errorf("failed to reduce balance: %w", err)
		}
		if balance.Amount.Sub(sb.Amount).IsPositive() {
			remaining, err := links.CountByBalance(ctx, balance.ID)
			if err != nil {
				return err
			}
			if err := balances.SetInvoiceCount(ctx, balance.ID, int(remaining)); err != nil {
				return err
			}
		} else if err := s.normalize(ctx, repos, []uuid.UUID{balance.ID}); err != nil {
			return err
		}
		deltas.AddBalance(sb.Pair, sb.Amount.Neg())
	}

	return applyDeltas(ctx, repos, deltas)
}

// OnCorporateBlocked removes every balance the corporate takes part in and
// suspends the invoices that were accrued into them
func (s *Service) OnCorporateBlocked(ctx context.Context, repos TransactionalRepositories, corporateID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "on_corporate_blocked",
		telemetry.SpanAttrCorporateID, corporateID.String())
	defer span.End()

	err := s.onCorporateBlocked(ctx, repos, corporateID)
	recordOperation(span, metrics.ReversalBlocked, err)
	return err
}

func (s *Service) onCorporateBlocked(ctx context.Context, repos TransactionalRepositories, corporateID uuid.UUID) error {
	balances, err := repos.BalanceRepo().FindByCorporate(ctx, corporateID)
	if err != nil {
		return err
	}
	if len(balances) == 0 {
		return nil
	}

	deltas := ledger.NewAggregateDeltas()
	ids := make([]uuid.UUID, 0, len(balances))
	for _, b := range balances {
		deltas.AddBalance(b.Pair(), b.Amount.Neg())
		ids = append(ids, b.ID)
	}
	if err := applyDeltas(ctx, repos, deltas); err != nil {
		return err
	}

	invoiceIDs, err := repos.LinkRepo().InvoiceIDsByBalanceIDs(ctx, ids)
	if err != nil {
		return err
	}
	if err := repos.AccrualRepo().SetAlgStatus(ctx, invoiceIDs, invoice.AlgStatusSuspended); err != nil {
		return fmt.Errorf("failed to suspend invoices: %w", err)
	}
	if err := repos.LinkRepo().DeleteByBalanceIDs(ctx, ids); err != nil {
		return err
	}
	if err := repos.BalanceRepo().DeleteByIDs(ctx, ids); err != nil {
		return err
	}

	logger.Enrich(ctx, s.logger).Info("Corporate balances suspended",
		zap.String("corporate_id", corporateID.String()),
		zap.Int("balances", len(ids)),
		zap.Int("invoices", len(invoiceIDs)),
	)
	return nil
}

// OnCorporateActivated accrues the corporate's suspended invoices, and the
// ones that became eligible while it was blocked, back into their balances
func (s *Service) OnCorporateActivated(ctx context.Context, repos TransactionalRepositories, corporateID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "on_corporate_activated",
		telemetry.SpanAttrCorporateID, corporateID.String())
	defer span.End()

	err := s.onCorporateActivated(ctx, repos, corporateID)
	recordOperation(span, metrics.ReversalActivated, err)
	return err
}

func (s *Service) onCorporateActivated(ctx context.Context, repos TransactionalRepositories, corporateID uuid.UUID) error {
	items, err := repos.AccrualRepo().ActiveByCorporate(ctx, corporateID)
	if err != nil {
		return err
	}
	for _, group := range ledger.GroupByPair(items) {
		if err := s.accrue(ctx, repos, group); err != nil {
			return err
		}
	}
	return nil
}

// UpdateBalance applies a manual adjustment to a pair balance and its
// aggregates. A balance brought to zero is removed, in which case the
// returned balance is nil.
func (s *Service) UpdateBalance(ctx context.Context, payerID, payeeID uuid.UUID, delta decimal.Decimal) (*ledger.Balance, error) {
	if payerID == payeeID {
		return nil, shared.NewValidationError("Payer and Payee can not be the same")
	}
	if delta.IsZero() {
		return nil, shared.NewValidationError("Adjustment amount cannot be zero")
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "update_balance")
	defer span.End()

	pair := ledger.Pair{PayerID: payerID, PayeeID: payeeID}
	var result *ledger.Balance
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		result = nil
		current, err := repos.BalanceRepo().FindByPair(ctx, pair)
		switch {
		case err == nil:
			if current.Amount.Add(delta).IsNegative() {
				return shared.NewValidationError("Adjustment exceeds the balance amount")
			}
		case shared.IsNotFound(err):
			if delta.IsNegative() {
				return shared.NewNotFoundError("There is no such balance record")
			}
		default:
			return err
		}

		balance, err := repos.BalanceRepo().UpsertIncrement(ctx, pair, delta, 0)
		if err != nil {
			return err
		}
		if err := adjustPair(ctx, repos, pair, delta); err != nil {
			return err
		}
		if !balance.Amount.IsPositive() {
			return s.normalize(ctx, repos, []uuid.UUID{balance.ID})
		}
		result = balance
		return nil
	})
	recordOperation(span, metrics.ReversalManual, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// normalize deletes the balances among ids that reached zero or below, with
// their links. A negative residual is credited back to the pair's aggregates,
// so the aggregates only lose what actually left the ledger.
func (s *Service) normalize(ctx context.Context, repos TransactionalRepositories, ids []uuid.UUID) error {
	found, err := repos.BalanceRepo().FindNonPositive(ctx, ids)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return nil
	}

	empty := make([]uuid.UUID, 0, len(found))
	for _, b := range found {
		if b.Amount.IsNegative() {
			logger.Enrich(ctx, s.logger).Warn("Balance went below zero, crediting residual back to aggregates",
				zap.String("balance_id", b.ID.String()),
				zap.String("residual", b.Amount.String()),
			)
			if err := adjustPair(ctx, repos, b.Pair(), b.Amount.Neg()); err != nil {
				return err
			}
		}
		empty = append(empty, b.ID)
	}
	if err := repos.LinkRepo().DeleteByBalanceIDs(ctx, empty); err != nil {
		return err
	}
	if err := repos.BalanceRepo().DeleteByIDs(ctx, empty); err != nil {
		return err
	}
	metrics.AddZeroBalancesRemoved(len(empty))
	return nil
}

// adjustPair moves amount into the payer's payable and the payee's receivable
func adjustPair(ctx context.Context, repos TransactionalRepositories, pair ledger.Pair, amount decimal.Decimal) error {
	deltas := ledger.NewAggregateDeltas()
	deltas.AddBalance(pair, amount)
	return applyDeltas(ctx, repos, deltas)
}

func applyDeltas(ctx context.Context, repos TransactionalRepositories, deltas *ledger.AggregateDeltas) error {
	corporates := repos.CorporateRepo()
	return deltas.Each(func(id uuid.UUID, d ledger.AggregateDelta) error {
		if err := corporates.AdjustAggregates(ctx, id, d.Payable, d.Receivable); err != nil {
			return fmt.Errorf("failed to adjust aggregates of %s: %w", id, err)
		}
		return nil
	})
}

// ProjectionDrift is a corporate whose stored aggregates disagree with the
// sum of its balances
type ProjectionDrift struct {
	CorporateID      uuid.UUID       `json:"corporate_id"`
	StoredPayable    decimal.Decimal `json:"stored_payable"`
	LedgerPayable    decimal.Decimal `json:"ledger_payable"`
	StoredReceivable decimal.Decimal `json:"stored_receivable"`
	LedgerReceivable decimal.Decimal `json:"ledger_receivable"`
}

// CheckProjection compares every corporate's stored aggregates with the
// totals of its positive balances. It reports drift and repairs nothing.
func (s *Service) CheckProjection(ctx context.Context) ([]ProjectionDrift, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "check_projection")
	defer span.End()

	drifts := make([]ProjectionDrift, 0)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		stored, err := repos.CorporateRepo().ListAggregates(ctx)
		if err != nil {
			return err
		}
		totals, err := repos.BalanceRepo().TotalsByCorporate(ctx)
		if err != nil {
			return err
		}

		truth := make(map[uuid.UUID]ledger.CorporateTotals, len(totals))
		for _, t := range totals {
			truth[t.CorporateID] = t
		}
		for _, agg := range stored {
			t, ok := truth[agg.CorporateID]
			if !ok {
				t = ledger.CorporateTotals{CorporateID: agg.CorporateID, Payable: decimal.Zero, Receivable: decimal.Zero}
			}
			if agg.AccountsPayable.Equal(t.Payable) && agg.AccountsReceivable.Equal(t.Receivable) {
				continue
			}
			drifts = append(drifts, ProjectionDrift{
				CorporateID:      agg.CorporateID,
				StoredPayable:    agg.AccountsPayable,
				LedgerPayable:    t.Payable,
				StoredReceivable: agg.AccountsReceivable,
				LedgerReceivable: t.Receivable,
			})
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if len(drifts) > 0 {
		logger.Enrich(ctx, s.logger).Warn("Corporate aggregates drifted from balances",
			zap.Int("corporates", len(drifts)))
	}
	return drifts, nil
}

func recordOperation(span trace.Span, kind string, err error) {
	if err != nil {
		telemetry.RecordError(span, err)
		metrics.IncLedgerOperation(kind, metrics.ResultError)
		return
	}
	metrics.IncLedgerOperation(kind, metrics.ResultSuccess)
}
