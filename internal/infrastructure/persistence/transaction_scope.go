package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	ledgerapp "github.com/sawi/backend/internal/application/ledger"
	"github.com/sawi/backend/internal/domain/corporate"
	"github.com/sawi/backend/internal/domain/invoice"
	"github.com/sawi/backend/internal/domain/ledger"
	"github.com/sawi/backend/internal/domain/shared"
	"github.com/sawi/backend/internal/infrastructure/event"
	"github.com/sawi/backend/internal/infrastructure/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RetryPolicy bounds the reruns of a serializable transaction
type RetryPolicy struct {
	Attempts int           // Total attempts, including the first
	Backoff  time.Duration // Multiplied by the attempt number before each rerun
}

// DefaultRetryPolicy returns 3 attempts with 50ms linear backoff
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Backoff: 50 * time.Millisecond}
}

// GormTransactionScope implements TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db        *gorm.DB
	publisher *event.OutboxPublisher
	retry     RetryPolicy
	logger    *zap.Logger
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB, publisher *event.OutboxPublisher, retry RetryPolicy, logger *zap.Logger) *GormTransactionScope {
	if retry.Attempts < 1 {
		retry.Attempts = 1
	}
	return &GormTransactionScope{
		db:        db,
		publisher: publisher,
		retry:     retry,
		logger:    logger,
	}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos ledgerapp.TransactionalRepositories) error) error {
	return s.run(ctx, fn, nil)
}

// ExecuteSerializable runs fn at SERIALIZABLE isolation, rerunning it on
// serialization failures and deadlocks until the retry policy is exhausted.
func (s *GormTransactionScope) ExecuteSerializable(ctx context.Context, fn func(repos ledgerapp.TransactionalRepositories) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelSerializable}
	if s.db.Dialector.Name() == "sqlite" {
		// SQLite transactions are always serializable
		opts = nil
	}

	var err error
	for attempt := 1; attempt <= s.retry.Attempts; attempt++ {
		err = s.run(ctx, fn, opts)
		if err == nil || !IsSerializationFailure(err) {
			return err
		}
		if attempt == s.retry.Attempts {
			break
		}

		metrics.IncSerializationRetry()
		wait := s.retry.Backoff * time.Duration(attempt)
		s.logger.Warn("Serializable transaction conflicted, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("serializable transaction failed after %d attempts: %w", s.retry.Attempts, err)
}

func (s *GormTransactionScope) run(ctx context.Context, fn func(repos ledgerapp.TransactionalRepositories) error, opts *sql.TxOptions) error {
	txFn := func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, publisher: s.publisher})
	}
	if opts == nil {
		return s.db.WithContext(ctx).Transaction(txFn)
	}
	return s.db.WithContext(ctx).Transaction(txFn, opts)
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx        *gorm.DB
	publisher *event.OutboxPublisher
}

func (r *gormTransactionalRepositories) InvoiceRepo() invoice.Repository {
	return NewGormInvoiceRepository(r.tx)
}

func (r *gormTransactionalRepositories) CorporateRepo() corporate.Repository {
	return NewGormCorporateRepository(r.tx)
}

func (r *gormTransactionalRepositories) BalanceRepo() ledger.BalanceRepository {
	return NewGormBalanceRepository(r.tx)
}

func (r *gormTransactionalRepositories) LinkRepo() ledger.LinkRepository {
	return NewGormLinkRepository(r.tx)
}

func (r *gormTransactionalRepositories) AccrualRepo() ledger.AccrualSource {
	return NewGormAccrualRepository(r.tx)
}

func (r *gormTransactionalRepositories) SettlementRepo() ledger.SettlementReader {
	return NewGormSettlementReader(r.tx)
}

// Events writes published events to the outbox inside the transaction
func (r *gormTransactionalRepositories) Events() shared.EventPublisher {
	return r.publisher.ForTx(r.tx)
}

var _ ledgerapp.TransactionScope = (*GormTransactionScope)(nil)

var _ ledgerapp.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
