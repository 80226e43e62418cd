package corporate

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	ledgerapp "github.com/sawi/backend/internal/application/ledger"
	"github.com/sawi/backend/internal/domain/corporate"
	"github.com/sawi/backend/internal/domain/shared"
	"github.com/sawi/backend/internal/infrastructure/logger"
	"github.com/sawi/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// LifecycleReactor reacts to corporate status changes inside the
// transaction that persisted them
type LifecycleReactor interface {
	OnCorporateBlocked(ctx context.Context, repos ledgerapp.TransactionalRepositories, corporateID uuid.UUID) error
	OnCorporateActivated(ctx context.Context, repos ledgerapp.TransactionalRepositories, corporateID uuid.UUID) error
}

// Service manages corporate status
type Service struct {
	scope         ledgerapp.TransactionScope
	corporateRepo corporate.Repository
	reactor       LifecycleReactor
	logger        *zap.Logger
}

// NewService creates a new corporate Service
func NewService(scope ledgerapp.TransactionScope, corporateRepo corporate.Repository, reactor LifecycleReactor, logger *zap.Logger) *Service {
	return &Service{
		scope:         scope,
		corporateRepo: corporateRepo,
		reactor:       reactor,
		logger:        logger.Named("corporate"),
	}
}

// Get returns a corporate with its cached aggregates
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*CorporateResponse, error) {
	c, err := findLive(ctx, s.corporateRepo, id)
	if err != nil {
		return nil, err
	}
	response := ToCorporateResponse(c)
	return &response, nil
}

// Block takes the corporate's balances out of the ledger
func (s *Service) Block(ctx context.Context, id uuid.UUID) (*CorporateResponse, error) {
	return s.changeStatus(ctx, id, "block",
		(*corporate.Corporate).Block,
		s.reactor.OnCorporateBlocked,
	)
}

// Activate rebuilds the corporate's balances from its open invoices
func (s *Service) Activate(ctx context.Context, id uuid.UUID) (*CorporateResponse, error) {
	return s.changeStatus(ctx, id, "activate",
		(*corporate.Corporate).Activate,
		s.reactor.OnCorporateActivated,
	)
}

// changeStatus persists the new status before the reactor runs, so the
// reactor's queries already see the corporate in its new state. The
// transaction is serializable against concurrent sweeps.
func (s *Service) changeStatus(
	ctx context.Context,
	id uuid.UUID,
	action string,
	transition func(*corporate.Corporate) error,
	react func(context.Context, ledgerapp.TransactionalRepositories, uuid.UUID) error,
) (*CorporateResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "corporate", action,
		telemetry.SpanAttrCorporateID, id.String())
	defer span.End()

	var updated *corporate.Corporate
	err := s.scope.ExecuteSerializable(ctx, func(repos ledgerapp.TransactionalRepositories) error {
		c, err := findLive(ctx, repos.CorporateRepo(), id)
		if err != nil {
			return err
		}
		if err := transition(c); err != nil {
			return err
		}
		if err := repos.CorporateRepo().UpdateStatus(ctx, c); err != nil {
			return fmt.Errorf("failed to update corporate status: %w", err)
		}
		if err := react(ctx, repos, c.ID); err != nil {
			return err
		}
		if err := repos.Events().Publish(ctx, c.PullDomainEvents()...); err != nil {
			return err
		}

		// Reload for the aggregates the reactor just moved
		updated, err = repos.CorporateRepo().FindByID(ctx, id)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.Enrich(ctx, s.logger).Info("Corporate status changed",
		zap.String("corporate_id", id.String()),
		zap.String("status", string(updated.Status)),
	)
	response := ToCorporateResponse(updated)
	return &response, nil
}

func findLive(ctx context.Context, repo corporate.Repository, id uuid.UUID) (*corporate.Corporate, error) {
	c, err := repo.FindByID(ctx, id)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewNotFoundError("Corporate not found")
		}
		return nil, err
	}
	if c.IsDeleted {
		return nil, shared.NewNotFoundError("Corporate not found")
	}
	return c, nil
}
