package event

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/shared"
	infraevent "github.com/sawi/backend/internal/infrastructure/event"
	"github.com/sawi/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newOutboxService(t *testing.T) (*OutboxService, shared.OutboxRepository) {
	t.Helper()
	repo := infraevent.NewGormOutboxRepository(testutil.NewSQLiteDB(t))
	return NewOutboxService(repo, zap.NewNop()), repo
}

func saveEntry(t *testing.T, repo shared.OutboxRepository, status shared.OutboxStatus) *shared.OutboxEntry {
	t.Helper()
	ctx := context.Background()
	entry := shared.NewOutboxEntry(testutil.NewTestEvent("InvoiceCreated"), []byte(`{}`))
	require.NoError(t, repo.Save(ctx, entry))
	if status != shared.OutboxStatusPending {
		entry.Status = status
		entry.RetryCount = entry.MaxRetries
		entry.LastError = "handler failed"
		require.NoError(t, repo.Update(ctx, entry))
	}
	return entry
}

func TestOutboxService_GetDeadLetterEntries(t *testing.T) {
	svc, repo := newOutboxService(t)
	dead := saveEntry(t, repo, shared.OutboxStatusDead)
	saveEntry(t, repo, shared.OutboxStatusPending)

	page, err := svc.GetDeadLetterEntries(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, dead.ID, page.Items[0].ID)
	assert.Equal(t, "DEAD", page.Items[0].Status)
	assert.Equal(t, "handler failed", page.Items[0].LastError)
}

func TestOutboxService_RetryDeadEntry(t *testing.T) {
	ctx := context.Background()

	t.Run("resets the entry to pending", func(t *testing.T) {
		svc, repo := newOutboxService(t)
		dead := saveEntry(t, repo, shared.OutboxStatusDead)

		dto, err := svc.RetryDeadEntry(ctx, dead.ID)
		require.NoError(t, err)
		assert.Equal(t, "PENDING", dto.Status)
		assert.Zero(t, dto.RetryCount)

		pending, err := repo.FindPending(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, pending, 1)
	})

	t.Run("unknown entry", func(t *testing.T) {
		svc, _ := newOutboxService(t)
		_, err := svc.RetryDeadEntry(ctx, uuid.New())
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("entry that is not dead", func(t *testing.T) {
		svc, repo := newOutboxService(t)
		entry := saveEntry(t, repo, shared.OutboxStatusPending)
		_, err := svc.RetryDeadEntry(ctx, entry.ID)
		assert.True(t, shared.IsPrecondition(err))
	})
}

func TestOutboxService_GetStats(t *testing.T) {
	svc, repo := newOutboxService(t)
	saveEntry(t, repo, shared.OutboxStatusPending)
	saveEntry(t, repo, shared.OutboxStatusPending)
	saveEntry(t, repo, shared.OutboxStatusDead)

	stats, err := svc.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(1), stats.Dead)
	assert.Equal(t, int64(3), stats.Total)
}
