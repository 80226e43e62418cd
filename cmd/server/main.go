package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	corporateapp "github.com/sawi/backend/internal/application/corporate"
	eventapp "github.com/sawi/backend/internal/application/event"
	invoiceapp "github.com/sawi/backend/internal/application/invoice"
	ledgerapp "github.com/sawi/backend/internal/application/ledger"
	notificationapp "github.com/sawi/backend/internal/application/notification"
	"github.com/sawi/backend/internal/domain/shared"
	"github.com/sawi/backend/internal/infrastructure/cache"
	"github.com/sawi/backend/internal/infrastructure/config"
	"github.com/sawi/backend/internal/infrastructure/event"
	"github.com/sawi/backend/internal/infrastructure/logger"
	"github.com/sawi/backend/internal/infrastructure/metrics"
	"github.com/sawi/backend/internal/infrastructure/persistence"
	"github.com/sawi/backend/internal/infrastructure/scheduler"
	"github.com/sawi/backend/internal/infrastructure/storage"
	"github.com/sawi/backend/internal/infrastructure/telemetry"
	"github.com/sawi/backend/internal/interfaces/http/handler"
	"github.com/sawi/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		ServiceName: cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting ledger service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.GormLevel), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbTracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	if cfg.Telemetry.DBSlowQueryThresh > 0 {
		dbTracing.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
	}
	if err := telemetry.NewDBTracingPlugin(dbTracing, log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to access connection pool", zap.Error(err))
	}
	metrics.Init(sqlDB, log)

	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	scope := persistence.NewGormTransactionScope(
		db.DB,
		event.NewOutboxPublisher(serializer),
		persistence.RetryPolicy{Attempts: cfg.Ledger.RetryAttempts, Backoff: cfg.Ledger.RetryBackoff},
		log,
	)

	ledgerService := ledgerapp.NewService(scope, log)
	invoiceOpts := []invoiceapp.ServiceOption{}
	if archive := newArchiveStorage(ctx, cfg, log); archive != nil {
		invoiceOpts = append(invoiceOpts, invoiceapp.WithArchiveStorage(archive))
	}
	invoiceService := invoiceapp.NewService(
		scope,
		persistence.NewGormInvoiceRepository(db.DB),
		persistence.NewGormSettlementReader(db.DB),
		ledgerService,
		log,
		invoiceOpts...,
	)
	corporateService := corporateapp.NewService(scope, persistence.NewGormCorporateRepository(db.DB), ledgerService, log)
	notificationRepo := persistence.NewGormNotificationRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Event delivery: outbox -> bus -> idempotent notification handler
	eventBus := event.NewInMemoryEventBus(log)
	idempotency := cache.NewIdempotencyStore(ctx, cfg.Redis, log)
	idempotencyCfg := shared.DefaultIdempotencyConfig()
	if cfg.Redis.KeyTTL > 0 {
		idempotencyCfg.TTL = cfg.Redis.KeyTTL
	}
	eventBus.Subscribe(event.NewIdempotentHandler(
		notificationapp.NewHandler(notificationRepo, log),
		idempotency,
		log,
		event.WithIdempotencyConfig(idempotencyCfg),
	))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	if cfg.Event.ProcessorEnabled {
		processorCfg := event.DefaultOutboxProcessorConfig()
		processorCfg.BatchSize = cfg.Event.BatchSize
		processorCfg.PollInterval = cfg.Event.PollInterval
		processorCfg.MaxRetries = cfg.Event.MaxRetries
		processorCfg.CleanupEnabled = cfg.Event.CleanupEnabled
		processorCfg.CleanupRetention = cfg.Event.CleanupRetention

		processor := event.NewOutboxProcessor(outboxRepo, eventBus, serializer, processorCfg, log)
		if err := processor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := processor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", processorCfg.BatchSize),
			zap.Duration("poll_interval", processorCfg.PollInterval),
		)
	}

	if cfg.Ledger.SweepEnabled {
		trigger := scheduler.NewAccrualTrigger(scheduler.AccrualTriggerConfig{
			Interval:   cfg.Ledger.SweepInterval,
			Timeout:    cfg.Ledger.SweepTimeout,
			RunOnStart: true,
		}, func(ctx context.Context) error {
			_, err := ledgerService.Calculate(ctx)
			return err
		}, log)
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start accrual trigger", zap.Error(err))
		}
		defer func() {
			if err := trigger.Stop(context.Background()); err != nil {
				log.Error("Error stopping accrual trigger", zap.Error(err))
			}
		}()
		log.Info("Accrual trigger started", zap.Duration("interval", cfg.Ledger.SweepInterval))
	}

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.NewEngine(cfg, router.Handlers{
		Balance: handler.NewBalanceHandler(
			ledgerapp.NewQueryService(persistence.NewGormBalanceRepository(db.DB), persistence.NewGormLinkRepository(db.DB)),
			ledgerService,
		),
		Invoice:   handler.NewInvoiceHandler(invoiceService),
		Corporate: handler.NewCorporateHandler(corporateService, notificationapp.NewQueryService(notificationRepo)),
		Ledger:    handler.NewLedgerHandler(ledgerService),
		Outbox:    handler.NewOutboxHandler(eventapp.NewOutboxService(outboxRepo, log)),
		System:    handler.NewSystemHandler(sqlDB, cfg.App.Name, cfg.App.Version),
	}, log)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-serverErr:
		log.Error("HTTP server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited")
}

// newArchiveStorage returns the S3 archive for import files, or an in-memory
// one when no bucket is configured. A nil result disables archiving.
func newArchiveStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) invoiceapp.ArchiveStorage {
	if cfg.Storage.Bucket == "" {
		if cfg.App.IsProduction() {
			return nil
		}
		log.Info("Storage bucket not configured, archiving imports in memory")
		return storage.NewMemoryObjectStorage()
	}

	s3, err := storage.NewS3ObjectStorage(ctx, &cfg.Storage, storage.WithLogger(log))
	if err != nil {
		log.Error("Failed to create S3 storage, import archiving disabled", zap.Error(err))
		return nil
	}
	if err := s3.EnsureBucket(ctx); err != nil {
		log.Warn("Import archive bucket is not ready", zap.String("bucket", s3.Bucket()), zap.Error(err))
	}
	return s3
}
