package persistence

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/notification"
	"github.com/sawi/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormNotificationRepository(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormNotificationRepository(db)
	ctx := context.Background()
	target := uuid.New()
	invoiceID := uuid.New()

	first := notification.New(uuid.New(), notification.TypeInvoiceApprovedByPayer, target, &invoiceID, json.RawMessage(`{"amount":"10"}`))
	first.CreatedAt = time.Now().Add(-time.Minute)
	second := notification.New(uuid.New(), notification.TypeInvoiceVerifiedByPayee, target, &invoiceID, nil)
	other := notification.New(uuid.New(), notification.TypeInvoiceCreatedByAdmin, uuid.New(), nil, nil)

	for _, n := range []*notification.Notification{first, second, other} {
		require.NoError(t, repo.Create(ctx, n))
	}

	t.Run("a second notification for the same event is rejected", func(t *testing.T) {
		dup := notification.New(first.EventID, notification.TypeInvoiceApprovedByPayer, target, &invoiceID, nil)
		assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrAlreadyExists)
	})

	t.Run("lists newest first", func(t *testing.T) {
		items, total, err := repo.ListByTarget(ctx, target, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, items, 2)
		assert.Equal(t, second.ID, items[0].ID)
		assert.Equal(t, first.ID, items[1].ID)
		assert.JSONEq(t, `{"amount":"10"}`, string(items[1].Payload))
	})

	t.Run("pages", func(t *testing.T) {
		items, total, err := repo.ListByTarget(ctx, target, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, items, 1)
		assert.Equal(t, first.ID, items[0].ID)
	})
}
