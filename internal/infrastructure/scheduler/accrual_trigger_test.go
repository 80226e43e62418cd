package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAccrualTrigger_RunsPeriodically(t *testing.T) {
	var runs atomic.Int32
	trigger := NewAccrualTrigger(AccrualTriggerConfig{Interval: 10 * time.Millisecond, RunOnStart: true},
		func(ctx context.Context) error {
			runs.Add(1)
			return nil
		}, zap.NewNop())

	require.NoError(t, trigger.Start(context.Background()))
	require.NoError(t, trigger.Start(context.Background()), "second start is a no-op")

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, trigger.Stop(ctx))

	stopped := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, runs.Load(), "no sweeps after stop")
}

func TestAccrualTrigger_SkipsOverlappingSweeps(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	trigger := NewAccrualTrigger(DefaultAccrualTriggerConfig(), func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}, zap.NewNop())

	done := make(chan bool)
	go func() { done <- trigger.RunOnce(context.Background()) }()
	<-started

	assert.False(t, trigger.RunOnce(context.Background()))
	close(release)
	assert.True(t, <-done)
}

func TestAccrualTrigger_LogsFailures(t *testing.T) {
	core, recorded := observer.New(zapcore.ErrorLevel)
	trigger := NewAccrualTrigger(AccrualTriggerConfig{Interval: time.Hour, Timeout: time.Second},
		func(ctx context.Context) error {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			return errors.New("serialization failure")
		}, zap.New(core))

	assert.True(t, trigger.RunOnce(context.Background()))
	assert.Equal(t, 1, recorded.FilterMessage("Accrual sweep failed").Len())
}
