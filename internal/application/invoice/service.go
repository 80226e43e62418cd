package invoice

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	ledgerapp "github.com/sawi/backend/internal/application/ledger"
	"github.com/sawi/backend/internal/domain/corporate"
	"github.com/sawi/backend/internal/domain/invoice"
	"github.com/sawi/backend/internal/domain/ledger"
	"github.com/sawi/backend/internal/domain/shared"
	csvimport "github.com/sawi/backend/internal/infrastructure/import"
	"github.com/sawi/backend/internal/infrastructure/logger"
	"github.com/sawi/backend/internal/infrastructure/metrics"
	"github.com/sawi/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ArchiveKeyPrefix is the object key prefix of archived import files
const ArchiveKeyPrefix = "invoice-imports/"

// maxImportErrors bounds the row errors returned by one import
const maxImportErrors = 100

// ArchiveStorage stores raw import files
type ArchiveStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

// InvoiceReverser takes a deleted invoice out of the balance ledger
type InvoiceReverser interface {
	ReverseInvoice(ctx context.Context, repos ledgerapp.TransactionalRepositories, inv *invoice.Invoice) error
}

// Service handles the invoice lifecycle. Writes run through the transaction
// scope so ledger reversals and outbox events commit with them; reads go to
// the repositories directly.
type Service struct {
	scope       ledgerapp.TransactionScope
	invoiceRepo invoice.Repository
	settlements ledger.SettlementReader
	reverser    InvoiceReverser
	archive     ArchiveStorage
	validate    *validator.Validate
	logger      *zap.Logger
}

// ServiceOption configures optional Service collaborators
type ServiceOption func(*Service)

// WithArchiveStorage archives bulk import files to storage
func WithArchiveStorage(storage ArchiveStorage) ServiceOption {
	return func(s *Service) {
		s.archive = storage
	}
}

// NewService creates a new invoice Service
func NewService(
	scope ledgerapp.TransactionScope,
	invoiceRepo invoice.Repository,
	settlements ledger.SettlementReader,
	reverser InvoiceReverser,
	logger *zap.Logger,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		scope:       scope,
		invoiceRepo: invoiceRepo,
		settlements: settlements,
		reverser:    reverser,
		validate:    newValidator(),
		logger:      logger.Named("invoice"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create creates an invoice manually
func (s *Service) Create(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, validationError(err)
	}
	if req.PayerID == req.PayeeID {
		return nil, shared.NewValidationError("Payer and Payee can not be the same")
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create")
	defer span.End()

	params := invoice.NewInvoiceParams{
		ExternalID:   req.ExternalID,
		CorporateID:  req.CorporateID,
		AddedBy:      req.AddedBy,
		PayerID:      req.PayerID,
		PayeeID:      req.PayeeID,
		IssueDate:    req.IssueDate,
		DueDate:      req.DueDate,
		Amount:       req.Amount,
		CurrencyCode: req.CurrencyCode,
		Origin:       invoice.OriginManualCreation,
	}
	if req.EarlyPaymentStatus {
		params.EarlyPayment = invoice.EarlyPayment{
			Enabled: true,
			DueDate: req.EarlyPaymentDueDate,
		}
		if req.EarlyPaymentDiscount != nil {
			params.EarlyPayment.DiscountPercent = *req.EarlyPaymentDiscount
		}
	}

	var created *invoice.Invoice
	err := s.scope.Execute(ctx, func(repos ledgerapp.TransactionalRepositories) error {
		if err := requireParties(ctx, repos.CorporateRepo(), req.PayerID, req.PayeeID); err != nil {
			return err
		}
		inv, err := invoice.NewInvoice(params)
		if err != nil {
			return err
		}
		if err := repos.InvoiceRepo().Create(ctx, inv); err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}
		if err := repos.Events().Publish(ctx, inv.PullDomainEvents()...); err != nil {
			return err
		}
		created = inv
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrInvoiceID, created.ID.String())
	logger.Enrich(ctx, s.logger).Info("Invoice created",
		zap.String("invoice_id", created.ID.String()),
		zap.String("external_id", created.ExternalID),
	)
	response := ToInvoiceResponse(created)
	return &response, nil
}

// Delete soft-deletes an invoice and takes it out of its balance. It runs
// serializable so a concurrent sweep cannot accrue the invoice between the
// read and the reversal.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "delete",
		telemetry.SpanAttrInvoiceID, id.String())
	defer span.End()

	err := s.scope.ExecuteSerializable(ctx, func(repos ledgerapp.TransactionalRepositories) error {
		inv, err := findLive(ctx, repos.InvoiceRepo(), id)
		if err != nil {
			return err
		}
		if err := inv.MarkDeleted(); err != nil {
			return err
		}
		if err := repos.InvoiceRepo().Update(ctx, inv); err != nil {
			return err
		}
		if err := s.reverser.ReverseInvoice(ctx, repos, inv); err != nil {
			return err
		}
		return repos.Events().Publish(ctx, inv.PullDomainEvents()...)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	logger.Enrich(ctx, s.logger).Info("Invoice deleted", zap.String("invoice_id", id.String()))
	return nil
}

// Get returns one live invoice with the settlement runs that touched it
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	inv, err := findLive(ctx, s.invoiceRepo, id)
	if err != nil {
		return nil, err
	}

	response := ToInvoiceResponse(inv)
	if inv.SettlementStatus.HasSettlement() {
		refs, err := s.settlements.RunLoopsForInvoice(ctx, inv.ID)
		if err != nil {
			return nil, err
		}
		response.Settlements = ToSettlementResponses(ledger.SummarizeRuns(refs))
	}
	return &response, nil
}

// List returns live invoices matching the request
func (s *Service) List(ctx context.Context, req ListInvoicesRequest) (*shared.Paginated[InvoiceResponse], error) {
	filter, err := buildFilter(req)
	if err != nil {
		return nil, err
	}

	invoices, total, err := s.invoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := shared.NewPaginated(ToInvoiceResponses(invoices), total, filter.Page)
	return &result, nil
}

func buildFilter(req ListInvoicesRequest) (invoice.Filter, error) {
	sort, err := shared.ParseSortSpec(req.Sort, invoice.SortFields, invoice.DefaultSort)
	if err != nil {
		return invoice.Filter{}, err
	}

	filter := invoice.Filter{
		CorporateID:   req.CorporateID,
		PayerID:       req.PayerID,
		PayeeID:       req.PayeeID,
		IssueDateFrom: req.IssueDateFrom,
		IssueDateTo:   req.IssueDateTo,
		Sort:          sort,
		Page:          shared.Page{Limit: req.Limit, Offset: req.Offset}.Normalize(),
	}

	switch t := invoice.ListType(req.Type); t {
	case "":
	case invoice.ListTypePayable, invoice.ListTypeReceivable:
		if req.CorporateID == nil {
			return invoice.Filter{}, shared.NewValidationError("List type requires a corporate")
		}
		filter.Type = t
	default:
		return invoice.Filter{}, shared.NewValidationError("Unsupported list type: " + req.Type)
	}

	if req.Status != "" {
		alg := invoice.AlgStatus(req.Status)
		settlement := invoice.SettlementStatus(req.Status)
		switch {
		case alg.IsValid():
			filter.AlgStatus = &alg
		case settlement.IsValid():
			filter.SettlementStatus = &settlement
		default:
			return invoice.Filter{}, shared.NewValidationError("Unsupported status: " + req.Status)
		}
	}

	if req.AVStatus != "" {
		av := invoice.AVStatus(req.AVStatus)
		if !av.IsValid() {
			return invoice.Filter{}, shared.NewValidationError("Unsupported av_status: " + req.AVStatus)
		}
		filter.AVStatus = &av
	}

	if req.IssueDateFrom != nil && req.IssueDateTo != nil && req.IssueDateTo.Before(*req.IssueDateFrom) {
		return invoice.Filter{}, shared.NewValidationError("issue_date_to must not be before issue_date_from")
	}
	return filter, nil
}

// PerformAction applies an approve, verify or reject action. Actions change
// the workflow only; the next accrual sweep picks approved and verified
// invoices up.
func (s *Service) PerformAction(ctx context.Context, req PerformActionRequest) (*InvoiceResponse, error) {
	switch req.Type {
	case ActionApprove, ActionVerify, ActionReject:
	default:
		return nil, shared.NewValidationError("Action is not supported")
	}
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, validationError(err)
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "perform_action",
		telemetry.SpanAttrInvoiceID, req.InvoiceID.String(),
		"action", req.Type,
	)
	defer span.End()

	var updated *invoice.Invoice
	err := s.scope.Execute(ctx, func(repos ledgerapp.TransactionalRepositories) error {
		inv, err := findLive(ctx, repos.InvoiceRepo(), req.InvoiceID)
		if err != nil {
			return err
		}
		if !inv.IsPayer(req.ActorCorporateID) && !inv.IsPayee(req.ActorCorporateID) {
			return shared.NewValidationError("Only payer or payee can perform actions on the invoice")
		}

		switch req.Type {
		case ActionApprove:
			err = inv.Approve(req.ActorCorporateID)
		case ActionVerify:
			err = inv.Verify(req.ActorCorporateID)
		case ActionReject:
			err = inv.Reject(req.ActorCorporateID, req.Reason)
		}
		if err != nil {
			return err
		}

		if err := repos.InvoiceRepo().Update(ctx, inv); err != nil {
			return err
		}
		if err := repos.Events().Publish(ctx, inv.PullDomainEvents()...); err != nil {
			return err
		}
		updated = inv
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.Enrich(ctx, s.logger).Info("Invoice action performed",
		zap.String("invoice_id", updated.ID.String()),
		zap.String("action", req.Type),
		zap.String("actor_id", req.ActorCorporateID.String()),
	)
	response := ToInvoiceResponse(updated)
	return &response, nil
}

// BulkImport creates invoices from a CSV file. Rows that fail validation are
// reported and skipped; the rest are created together. Each payee receives
// one batch event instead of one event per invoice.
func (s *Service) BulkImport(ctx context.Context, actorID uuid.UUID, addedBy string, file io.Reader) (*BulkImportResult, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}
	set, err := csvimport.ParseInvoiceRows(bytes.NewReader(data), maxImportErrors)
	if err != nil {
		return nil, shared.NewValidationError(err.Error())
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "bulk_import")
	defer span.End()

	batchID := uuid.New()
	result := &BulkImportResult{BatchID: batchID, TotalRows: set.TotalRows}
	err = s.scope.Execute(ctx, func(repos ledgerapp.TransactionalRepositories) error {
		invoices, err := s.buildImportInvoices(ctx, repos, actorID, addedBy, set)
		if err != nil {
			return err
		}
		if len(invoices) == 0 {
			return nil
		}
		if err := repos.InvoiceRepo().CreateBatch(ctx, invoices); err != nil {
			return fmt.Errorf("failed to create invoices: %w", err)
		}

		byPayee := make(map[uuid.UUID][]*invoice.Invoice)
		payees := make([]uuid.UUID, 0)
		for _, inv := range invoices {
			if _, ok := byPayee[inv.PayeeID]; !ok {
				payees = append(payees, inv.PayeeID)
			}
			byPayee[inv.PayeeID] = append(byPayee[inv.PayeeID], inv)
		}
		for _, payee := range payees {
			event := invoice.NewInvoicesBulkUploadedEvent(batchID, payee, actorID, byPayee[payee])
			if err := repos.Events().Publish(ctx, event); err != nil {
				return err
			}
		}
		result.ImportedRows = len(invoices)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result.Errors = set.Errors.Errors()
	result.ErrorRows = set.Errors.ErrorRows()
	result.IsTruncated = set.Errors.IsTruncated()
	result.TotalErrors = set.Errors.TotalCount()
	metrics.AddImportRows("imported", result.ImportedRows)
	metrics.AddImportRows("rejected", result.ErrorRows)

	log := logger.Enrich(ctx, s.logger)
	if s.archive != nil && result.ImportedRows > 0 {
		key := ArchiveKeyPrefix + batchID.String() + ".csv"
		if err := s.archive.Upload(ctx, key, data, "text/csv"); err != nil {
			log.Warn("Failed to archive import file",
				zap.String("batch_id", batchID.String()),
				zap.Error(err),
			)
		} else {
			result.ArchiveKey = key
		}
	}

	log.Info("Invoice import completed",
		zap.String("batch_id", batchID.String()),
		zap.Int("total_rows", result.TotalRows),
		zap.Int("imported_rows", result.ImportedRows),
		zap.Int("error_rows", result.ErrorRows),
	)
	return result, nil
}

// buildImportInvoices checks the decoded rows against the corporates and the
// existing invoices and builds the invoices of the rows that pass. Failing
// rows are recorded in set.Errors.
func (s *Service) buildImportInvoices(
	ctx context.Context,
	repos ledgerapp.TransactionalRepositories,
	actorID uuid.UUID,
	addedBy string,
	set *csvimport.InvoiceRowSet,
) ([]*invoice.Invoice, error) {
	ids := make([]uuid.UUID, 0, len(set.Rows)*2)
	externalIDs := make(map[uuid.UUID][]string)
	for _, row := range set.Rows {
		ids = append(ids, row.PayerID, row.PayeeID)
		externalIDs[row.PayerID] = append(externalIDs[row.PayerID], row.ExternalID)
	}

	corporates, err := repos.CorporateRepo().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	available := make(map[uuid.UUID]bool, len(corporates))
	for _, c := range corporates {
		available[c.ID] = c.IsAvailable()
	}

	taken := make(map[string]bool)
	for payer, candidates := range externalIDs {
		existing, err := repos.InvoiceRepo().ExistingExternalIDs(ctx, payer, candidates)
		if err != nil {
			return nil, err
		}
		for _, ext := range existing {
			taken[payer.String()+"/"+ext] = true
		}
	}

	invoices := make([]*invoice.Invoice, 0, len(set.Rows))
	for _, row := range set.Rows {
		if !available[row.PayerID] || !available[row.PayeeID] {
			set.Errors.Add(csvimport.RowError{Row: row.LineNumber, Code: csvimport.ErrCodeImportInvalidValue,
				Message: "Payer or Payee (or both) does not exist"})
			continue
		}
		if taken[row.PayerID.String()+"/"+row.ExternalID] {
			set.Errors.AddDuplicateError(row.LineNumber, csvimport.ColumnExternalID, row.ExternalID, true)
			continue
		}

		inv, err := invoice.NewInvoice(invoice.NewInvoiceParams{
			ExternalID:   row.ExternalID,
			CorporateID:  actorID,
			AddedBy:      addedBy,
			PayerID:      row.PayerID,
			PayeeID:      row.PayeeID,
			IssueDate:    row.IssueDate,
			DueDate:      row.DueDate,
			Amount:       row.Amount,
			CurrencyCode: row.CurrencyCode,
			Origin:       invoice.OriginBulkUpload,
		})
		if err != nil {
			set.Errors.Add(csvimport.RowError{Row: row.LineNumber, Code: csvimport.ErrCodeImportRejected,
				Message: err.Error()})
			continue
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

// requireParties checks that both corporates exist and are not deleted
func requireParties(ctx context.Context, repo corporate.Repository, payerID, payeeID uuid.UUID) error {
	found, err := repo.FindByIDs(ctx, []uuid.UUID{payerID, payeeID})
	if err != nil {
		return err
	}
	live := 0
	for _, c := range found {
		if c.IsAvailable() {
			live++
		}
	}
	if live < 2 {
		return shared.NewValidationError("Payer or Payee (or both) does not exist")
	}
	return nil
}

// findLive loads an invoice, treating soft-deleted ones as missing
func findLive(ctx context.Context, repo invoice.Repository, id uuid.UUID) (*invoice.Invoice, error) {
	inv, err := repo.FindByID(ctx, id)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewNotFoundError("Invoice not found")
		}
		return nil, err
	}
	if inv.IsDeleted {
		return nil, shared.NewNotFoundError("Invoice not found")
	}
	return inv, nil
}
