package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/ledger"
	"github.com/sawi/backend/internal/domain/shared"
)

// QueryService serves the balance read projections
type QueryService struct {
	balanceRepo ledger.BalanceRepository
	linkRepo    ledger.LinkRepository
}

// NewQueryService creates a new QueryService
func NewQueryService(balanceRepo ledger.BalanceRepository, linkRepo ledger.LinkRepository) *QueryService {
	return &QueryService{
		balanceRepo: balanceRepo,
		linkRepo:    linkRepo,
	}
}

// ListBalances returns positive balances matching the query
func (s *QueryService) ListBalances(ctx context.Context, q BalanceQuery) (*shared.Paginated[BalanceResponse], error) {
	sort, err := shared.ParseSortSpec(q.Sort, ledger.BalanceSortFields, ledger.DefaultBalanceSort)
	if err != nil {
		return nil, err
	}
	page := shared.Page{Limit: q.Limit, Offset: q.Offset}.Normalize()

	balances, total, err := s.balanceRepo.List(ctx, ledger.BalanceFilter{
		PayerID: q.PayerID,
		PayeeID: q.PayeeID,
		Sort:    sort,
		Page:    page,
	})
	if err != nil {
		return nil, err
	}

	result := shared.NewPaginated(ToBalanceResponses(balances), total, page)
	return &result, nil
}

// GetBalance returns one positive balance
func (s *QueryService) GetBalance(ctx context.Context, id uuid.UUID) (*BalanceResponse, error) {
	balance, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToBalanceResponse(balance)
	return &response, nil
}

// GetBalanceInvoices pages the invoices allocated into a balance, smallest
// linked amount first
func (s *QueryService) GetBalanceInvoices(ctx context.Context, balanceID uuid.UUID, limit, offset int) (*shared.Paginated[LinkedInvoiceResponse], error) {
	if _, err := s.find(ctx, balanceID); err != nil {
		return nil, err
	}

	page := shared.Page{Limit: limit, Offset: offset}.Normalize()
	linked, total, err := s.linkRepo.ListWithInvoices(ctx, balanceID, page)
	if err != nil {
		return nil, err
	}

	items := make([]LinkedInvoiceResponse, len(linked))
	for i, li := range linked {
		items[i] = ToLinkedInvoiceResponse(li)
	}
	result := shared.NewPaginated(items, total, page)
	return &result, nil
}

func (s *QueryService) find(ctx context.Context, id uuid.UUID) (*ledger.Balance, error) {
	balance, err := s.balanceRepo.FindByID(ctx, id)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewNotFoundError("There is no such balance record")
		}
		return nil, err
	}
	if !balance.Amount.IsPositive() {
		return nil, shared.NewNotFoundError("There is no such balance record")
	}
	return balance, nil
}
