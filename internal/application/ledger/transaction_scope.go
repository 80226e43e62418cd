package ledger

import (
	"context"

	"github.com/sawi/backend/internal/domain/corporate"
	"github.com/sawi/backend/internal/domain/invoice"
	"github.com/sawi/backend/internal/domain/ledger"
	"github.com/sawi/backend/internal/domain/shared"
)

// TransactionalRepositories gives access to every repository bound to one
// database transaction. Events published through Events() are written to the
// outbox in the same transaction.
type TransactionalRepositories interface {
	InvoiceRepo() invoice.Repository
	CorporateRepo() corporate.Repository
	BalanceRepo() ledger.BalanceRepository
	LinkRepo() ledger.LinkRepository
	AccrualRepo() ledger.AccrualSource
	SettlementRepo() ledger.SettlementReader
	Events() shared.EventPublisher
}

// TransactionScope runs a unit of work atomically. Any error returned by fn
// rolls the whole transaction back.
type TransactionScope interface {
	// Execute runs fn in a transaction at the database's default isolation
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error

	// ExecuteSerializable runs fn in a SERIALIZABLE transaction and reruns it
	// when the database reports a serialization failure or deadlock
	ExecuteSerializable(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}
