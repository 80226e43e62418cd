package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sawi/backend/internal/domain/corporate"
	"github.com/sawi/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLiteDB_Seeds(t *testing.T) {
	db := NewSQLiteDB(t)
	payer := SeedCorporate(t, db, corporate.StatusActive)
	payee := SeedCorporate(t, db, corporate.StatusBlocked)
	inv := SeedInvoice(t, db, payer, payee, 120, Pending)

	loaded := LoadInvoice(t, db, inv.ID)
	assert.Equal(t, inv.ExternalID, loaded.ExternalID)
	AssertDecimal(t, "120", loaded.RemainingAmount)
	assert.Equal(t, corporate.StatusBlocked, LoadCorporate(t, db, payee).Status)
	assert.Equal(t, int64(2), CountRows(t, db, &models.CorporateModel{}))
	assert.Nil(t, FindBalance(t, db, payer, payee))
}

func TestNewTestUUID(t *testing.T) {
	assert.Equal(t, NewTestUUID("a"), NewTestUUID("a"))
	assert.NotEqual(t, NewTestUUID("a"), NewTestUUID("b"))
}

func TestMockEventHandler(t *testing.T) {
	handler := NewMockEventHandler("TestEvent")
	assert.Equal(t, []string{"TestEvent"}, handler.EventTypes())

	require.NoError(t, handler.Handle(context.Background(), NewTestEvent("TestEvent")))
	handler.SetError(assert.AnError)
	assert.ErrorIs(t, handler.Handle(context.Background(), NewTestEvent("TestEvent")), assert.AnError)
	assert.Equal(t, 2, handler.HandledCount())
}

func TestRequireEventually(t *testing.T) {
	start := time.Now()
	RequireEventually(t, func() bool { return time.Since(start) > 20*time.Millisecond }, time.Second, 5*time.Millisecond)
}

func TestDoJSON(t *testing.T) {
	engine := NewEngine()
	engine.POST("/echo", func(c *gin.Context) {
		var body map[string]string
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": gin.H{"code": "VALIDATION_ERROR"}})
			return
		}
		body["corporate"] = c.GetHeader(CorporateHeader)
		c.JSON(http.StatusOK, gin.H{"success": true, "data": body})
	})

	w := DoJSON(t, engine, http.MethodPost, "/echo", map[string]string{"a": "b"}, map[string]string{CorporateHeader: "c-1"})
	var data map[string]string
	AssertSuccessResponse(t, w, http.StatusOK, &data)
	assert.Equal(t, "b", data["a"])
	assert.Equal(t, "c-1", data["corporate"])

	w = DoJSON(t, engine, http.MethodPost, "/echo", nil, nil)
	AssertErrorResponse(t, w, http.StatusBadRequest, "VALIDATION_ERROR")
}
