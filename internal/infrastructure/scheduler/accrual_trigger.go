package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SweepFunc runs one accrual sweep
type SweepFunc func(ctx context.Context) error

// AccrualTriggerConfig holds configuration for the accrual trigger
type AccrualTriggerConfig struct {
	// Interval between two sweeps
	Interval time.Duration
	// Timeout bounds a single sweep; zero means no bound
	Timeout time.Duration
	// RunOnStart fires the first sweep immediately instead of after Interval
	RunOnStart bool
}

// DefaultAccrualTriggerConfig returns default accrual trigger configuration
func DefaultAccrualTriggerConfig() AccrualTriggerConfig {
	return AccrualTriggerConfig{
		Interval: time.Minute,
		Timeout:  5 * time.Minute,
	}
}

// AccrualTrigger periodically runs the ledger accrual sweep. A tick that
// arrives while a sweep is still running is skipped.
type AccrualTrigger struct {
	config AccrualTriggerConfig
	sweep  SweepFunc
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	sweeping  sync.Mutex
}

// NewAccrualTrigger creates a new accrual trigger
func NewAccrualTrigger(config AccrualTriggerConfig, sweep SweepFunc, logger *zap.Logger) *AccrualTrigger {
	if config.Interval <= 0 {
		config.Interval = DefaultAccrualTriggerConfig().Interval
	}
	return &AccrualTrigger{
		config: config,
		sweep:  sweep,
		logger: logger,
	}
}

// Start starts the trigger loop
func (t *AccrualTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Accrual trigger started",
		zap.Duration("interval", t.config.Interval),
		zap.Duration("timeout", t.config.Timeout),
	)
	return nil
}

// Stop stops the trigger and waits for an in-flight sweep
func (t *AccrualTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Accrual trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *AccrualTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	if t.config.RunOnStart {
		t.RunOnce(ctx)
	}

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.RunOnce(ctx)
		}
	}
}

// RunOnce runs a sweep unless one is already in flight. It reports whether a
// sweep ran.
func (t *AccrualTrigger) RunOnce(ctx context.Context) bool {
	if !t.sweeping.TryLock() {
		t.logger.Warn("Accrual sweep still running, skipping tick")
		return false
	}
	defer t.sweeping.Unlock()

	if t.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	if err := t.sweep(ctx); err != nil {
		t.logger.Error("Accrual sweep failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return true
	}
	t.logger.Debug("Accrual sweep finished", zap.Duration("elapsed", time.Since(start)))
	return true
}
