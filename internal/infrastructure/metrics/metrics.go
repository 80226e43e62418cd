// Package metrics exposes Prometheus metrics for the ledger and its
// delivery pipeline. All recorders are safe to call before Init; they do
// nothing until the collectors are registered.
package metrics

import (
	"database/sql"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const (
	metricPrefix = "sawi_"

	ResultSuccess = "success"
	ResultError   = "error"
	ResultEmpty   = "empty"
)

// Reversal kinds
const (
	ReversalInvoice   = "invoice"
	ReversalRun       = "settlement_run"
	ReversalBlocked   = "corporate_blocked"
	ReversalActivated = "corporate_activated"
	ReversalManual    = "manual_adjustment"
)

var (
	registerOnce sync.Once

	sweepTotal      *prometheus.CounterVec
	sweepLatency    *prometheus.HistogramVec
	sweepRetries    prometheus.Counter
	accruedInvoices prometheus.Counter
	accruedAmount   prometheus.Counter

	ledgerOps        *prometheus.CounterVec
	zeroBalancesGone prometheus.Counter

	outboxDeliveries *prometheus.CounterVec
	notifications    *prometheus.CounterVec
	importRows       *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
)

// Init registers the collectors. db may be nil; when set, pool statistics and
// outbox backlog gauges are registered as well.
func Init(db *sql.DB, logger *zap.Logger) {
	registerOnce.Do(func() {
		sweepTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ledger_sweep_total",
				Help: "Total accrual sweeps by result",
			},
			[]string{"result"},
		)
		sweepLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ledger_sweep_latency_seconds",
				Help:    "Accrual sweep latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		sweepRetries = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "ledger_serialization_retries_total",
				Help: "Serializable transactions retried after a conflict",
			},
		)
		accruedInvoices = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "ledger_accrued_invoices_total",
				Help: "Invoices accrued into balances",
			},
		)
		accruedAmount = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "ledger_accrued_amount_total",
				Help: "Amount accrued into balances",
			},
		)
		ledgerOps = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ledger_operations_total",
				Help: "Ledger reversal and rebuild operations by kind and result",
			},
			[]string{"kind", "result"},
		)
		zeroBalancesGone = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "ledger_zero_balances_removed_total",
				Help: "Balances removed after reaching zero",
			},
		)
		outboxDeliveries = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "outbox_deliveries_total",
				Help: "Outbox deliveries by event type and result",
			},
			[]string{"event_type", "result"},
		)
		notifications = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notifications_total",
				Help: "Notifications created by type",
			},
			[]string{"type"},
		)
		importRows = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "invoice_import_rows_total",
				Help: "Bulk import rows by result",
			},
			[]string{"result"},
		)

		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		)

		prometheus.MustRegister(
			sweepTotal,
			sweepLatency,
			sweepRetries,
			accruedInvoices,
			accruedAmount,
			ledgerOps,
			zeroBalancesGone,
			outboxDeliveries,
			notifications,
			importRows,
			httpRequests,
			httpLatency,
		)

		if db != nil {
			prometheus.MustRegister(collectors.NewDBStatsCollector(db, "sawi"))
			registerOutboxGauges(db, logger)
		}
	})
}

// ObserveSweep records one accrual sweep
func ObserveSweep(result string, duration time.Duration, invoices int, amount float64) {
	if result == "" {
		result = ResultSuccess
	}
	if sweepTotal != nil {
		sweepTotal.WithLabelValues(result).Inc()
	}
	if sweepLatency != nil {
		sweepLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
	if invoices > 0 && accruedInvoices != nil {
		accruedInvoices.Add(float64(invoices))
	}
	if amount > 0 && accruedAmount != nil {
		accruedAmount.Add(amount)
	}
}

// IncSerializationRetry counts one retried serializable transaction
func IncSerializationRetry() {
	if sweepRetries != nil {
		sweepRetries.Inc()
	}
}

// IncLedgerOperation counts one reversal or rebuild
func IncLedgerOperation(kind, result string) {
	if kind == "" {
		kind = "unknown"
	}
	if ledgerOps != nil {
		ledgerOps.WithLabelValues(kind, result).Inc()
	}
}

// AddZeroBalancesRemoved counts balances deleted by normalization
func AddZeroBalancesRemoved(count int) {
	if count <= 0 {
		return
	}
	if zeroBalancesGone != nil {
		zeroBalancesGone.Add(float64(count))
	}
}

// IncOutboxDelivery counts one outbox delivery attempt
func IncOutboxDelivery(eventType, result string) {
	if outboxDeliveries != nil {
		outboxDeliveries.WithLabelValues(eventType, result).Inc()
	}
}

// IncNotification counts one created notification
func IncNotification(notificationType string) {
	if notifications != nil {
		notifications.WithLabelValues(notificationType).Inc()
	}
}

// AddImportRows counts bulk import rows
func AddImportRows(result string, count int) {
	if count <= 0 {
		return
	}
	if importRows != nil {
		importRows.WithLabelValues(result).Add(float64(count))
	}
}

// ObserveHTTPRequest records one served request. route is the matched route
// pattern, never the raw path.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	if httpRequests != nil {
		httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	}
	if httpLatency != nil {
		httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
	}
}
