package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sawi/backend/internal/infrastructure/config"
	"github.com/sawi/backend/internal/infrastructure/logger"
	"github.com/sawi/backend/internal/interfaces/http/handler"
	"github.com/sawi/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Unversioned operational endpoints
const (
	HealthPath  = "/health"
	MetricsPath = "/metrics"
)

// Handlers are the HTTP handlers mounted by NewEngine
type Handlers struct {
	Balance   *handler.BalanceHandler
	Invoice   *handler.InvoiceHandler
	Corporate *handler.CorporateHandler
	Ledger    *handler.LedgerHandler
	Outbox    *handler.OutboxHandler
	System    *handler.SystemHandler
}

// NewEngine builds the gin engine with the middleware chain and every route
func NewEngine(cfg *config.Config, h Handlers, log *zap.Logger) *gin.Engine {
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxies, trusting none", zap.Error(err))
		_ = engine.SetTrustedProxies(nil)
	}

	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
			SkipPaths:   []string{HealthPath, MetricsPath},
		}),
		logger.GinMiddleware(log),
		middleware.CorporateContext(),
		middleware.TracingAttributeInjector(),
		middleware.SpanErrorMarker(),
		middleware.HTTPMetrics(MetricsPath, HealthPath),
		middleware.Secure(),
		middleware.CORSWithConfig(middleware.CORSConfigFrom(cfg.HTTP)),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	engine.GET(HealthPath, h.System.Health)
	engine.GET(MetricsPath, gin.WrapH(promhttp.Handler()))

	NewRouter(engine).Register(APIGroups(h)...).Setup()
	return engine
}

// APIGroups returns the /api/v1 route groups
func APIGroups(h Handlers) []RouteRegistrar {
	balances := NewDomainGroup("balances", "/balances").
		GET("", h.Balance.List).
		POST("/adjustments", h.Balance.Adjust).
		GET("/:id", h.Balance.Get).
		GET("/:id/invoices", h.Balance.Invoices)

	invoices := NewDomainGroup("invoices", "/invoices").
		POST("", h.Invoice.Create).
		POST("/bulk", h.Invoice.BulkImport).
		GET("", h.Invoice.List).
		GET("/:id", h.Invoice.Get).
		DELETE("/:id", h.Invoice.Delete).
		POST("/:id/actions", h.Invoice.PerformAction)

	corporates := NewDomainGroup("corporates", "/corporates").
		GET("/:id", h.Corporate.Get).
		POST("/:id/block", h.Corporate.Block).
		POST("/:id/activate", h.Corporate.Activate).
		GET("/:id/notifications", h.Corporate.Notifications)

	ledger := NewDomainGroup("ledger", "/ledger").
		POST("/calculate", h.Ledger.Calculate).
		GET("/projection-drift", h.Ledger.ProjectionDrift)

	runs := NewDomainGroup("settlement-runs", "/settlement-runs").
		POST("/:id/reversal", h.Ledger.ReverseRun)

	system := NewDomainGroup("system", "/system").
		GET("/info", h.System.GetSystemInfo).
		GET("/outbox/dead", h.Outbox.GetDeadLetterEntries).
		GET("/outbox/stats", h.Outbox.GetStats).
		POST("/outbox/:id/retry", h.Outbox.RetryDeadEntry)

	return []RouteRegistrar{balances, invoices, corporates, ledger, runs, system}
}
