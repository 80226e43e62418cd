package metrics

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func TestRecordersBeforeInit(t *testing.T) {
	// Must not panic while collectors are nil
	if sweepTotal != nil {
		t.Skip("collectors already registered")
	}
	ObserveSweep(ResultSuccess, time.Second, 3, 10)
	IncLedgerOperation(ReversalInvoice, ResultSuccess)
	IncOutboxDelivery("InvoiceCreated", ResultError)
}

func TestRecorders(t *testing.T) {
	Init(nil, zap.NewNop())

	before := counterValue(t, sweepTotal.WithLabelValues(ResultSuccess))
	ObserveSweep("", 10*time.Millisecond, 2, 150)
	assert.Equal(t, before+1, counterValue(t, sweepTotal.WithLabelValues(ResultSuccess)))

	opsBefore := counterValue(t, ledgerOps.WithLabelValues(ReversalRun, ResultSuccess))
	IncLedgerOperation(ReversalRun, ResultSuccess)
	assert.Equal(t, opsBefore+1, counterValue(t, ledgerOps.WithLabelValues(ReversalRun, ResultSuccess)))

	removedBefore := counterValue(t, zeroBalancesGone)
	AddZeroBalancesRemoved(0)
	AddZeroBalancesRemoved(2)
	assert.Equal(t, removedBefore+2, counterValue(t, zeroBalancesGone))

	httpBefore := counterValue(t, httpRequests.WithLabelValues("GET", "/api/v1/balances", "200"))
	ObserveHTTPRequest("GET", "/api/v1/balances", 200, 5*time.Millisecond)
	assert.Equal(t, httpBefore+1, counterValue(t, httpRequests.WithLabelValues("GET", "/api/v1/balances", "200")))

	unmatchedBefore := counterValue(t, httpRequests.WithLabelValues("GET", "unmatched", "404"))
	ObserveHTTPRequest("GET", "", 404, time.Millisecond)
	assert.Equal(t, unmatchedBefore+1, counterValue(t, httpRequests.WithLabelValues("GET", "unmatched", "404")))
}

func TestQueryCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	assert.Equal(t, float64(7), queryCount(db, zap.NewNop(), "SELECT COUNT(*) FROM outbox_events"))

	mock.ExpectQuery("SELECT COUNT").WillReturnError(assert.AnError)
	assert.Equal(t, float64(0), queryCount(db, zap.NewNop(), "SELECT COUNT(*) FROM outbox_events"))

	assert.Equal(t, float64(0), queryCount(nil, nil, "SELECT 1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
