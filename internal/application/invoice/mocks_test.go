package invoice

import (
	"context"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/invoice"
	"github.com/sawi/backend/internal/domain/ledger"
	"github.com/stretchr/testify/mock"
)

// MockInvoiceRepository is a mock implementation of invoice.Repository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	return m.Called(ctx, inv).Error(0)
}

func (m *MockInvoiceRepository) CreateBatch(ctx context.Context, invoices []*invoice.Invoice) error {
	return m.Called(ctx, invoices).Error(0)
}

func (m *MockInvoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	return m.Called(ctx, inv).Error(0)
}

func (m *MockInvoiceRepository) List(ctx context.Context, filter invoice.Filter) ([]*invoice.Invoice, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*invoice.Invoice), args.Get(1).(int64), args.Error(2)
}

func (m *MockInvoiceRepository) ExistingExternalIDs(ctx context.Context, payerID uuid.UUID, externalIDs []string) ([]string, error) {
	args := m.Called(ctx, payerID, externalIDs)
	return args.Get(0).([]string), args.Error(1)
}

// MockSettlementReader is a mock implementation of ledger.SettlementReader
type MockSettlementReader struct {
	mock.Mock
}

func (m *MockSettlementReader) FindRun(ctx context.Context, runID uuid.UUID) (*ledger.SettlementRun, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.SettlementRun), args.Error(1)
}

func (m *MockSettlementReader) SettledBalances(ctx context.Context, runID uuid.UUID) ([]ledger.SettledBalance, error) {
	args := m.Called(ctx, runID)
	return args.Get(0).([]ledger.SettledBalance), args.Error(1)
}

func (m *MockSettlementReader) RunLoopsForInvoice(ctx context.Context, invoiceID uuid.UUID) ([]ledger.RunLoopRef, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).([]ledger.RunLoopRef), args.Error(1)
}

// MockArchiveStorage is a mock implementation of ArchiveStorage
type MockArchiveStorage struct {
	mock.Mock
}

func (m *MockArchiveStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	return m.Called(ctx, key, data, contentType).Error(0)
}
