// Package testutil provides common test utilities for the ledger backend:
// database handles, fixtures and polling assertions.
package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/corporate"
	"github.com/sawi/backend/internal/domain/invoice"
	"github.com/sawi/backend/internal/domain/ledger"
	"github.com/sawi/backend/internal/infrastructure/event"
	"github.com/sawi/backend/internal/infrastructure/persistence"
	"github.com/sawi/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockDB wraps a GORM database with sqlmock for testing.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB creates a postgres-dialect mock database, closed on cleanup.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")
	t.Cleanup(func() { _ = mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err, "Failed to open GORM connection")

	return &MockDB{DB: gormDB, Mock: mock, SqlDB: mockDB}
}

// ExpectationsWereMet verifies that all expectations were met.
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet(), "Unmet database expectations")
}

// NewSQLiteDB opens an in-memory database with the full schema.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err, "Failed to open sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...), "Failed to migrate schema")
	return db
}

// NewTestScope returns a transaction scope writing events to the outbox.
func NewTestScope(t *testing.T, db *gorm.DB, log *zap.Logger) *persistence.GormTransactionScope {
	t.Helper()
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	return persistence.NewGormTransactionScope(db, event.NewOutboxPublisher(serializer), persistence.DefaultRetryPolicy(), log)
}

// SeedCorporate inserts a corporate with the given status.
func SeedCorporate(t *testing.T, db *gorm.DB, status corporate.Status) uuid.UUID {
	t.Helper()
	c, err := corporate.NewCorporate("Corp " + uuid.NewString()[:8])
	require.NoError(t, err)
	c.Status = status
	require.NoError(t, db.Create(models.CorporateModelFromDomain(c)).Error)
	return c.ID
}

// SeedInvoice inserts an approved and verified new invoice. mutate adjusts
// the row before insert.
func SeedInvoice(t *testing.T, db *gorm.DB, payer, payee uuid.UUID, amount int64, mutate ...func(*models.InvoiceModel)) *models.InvoiceModel {
	t.Helper()
	now := time.Now().UTC()
	m := &models.InvoiceModel{
		ExternalID:           "INV-" + uuid.NewString()[:8],
		CorporateID:          payee,
		PayerID:              payer,
		PayeeID:              payee,
		IssueDate:            now.AddDate(0, 0, -1),
		DueDate:              now.AddDate(0, 1, 0),
		Amount:               decimal.NewFromInt(amount),
		RemainingAmount:      decimal.NewFromInt(amount),
		CurrencyCode:         "USD",
		AlgStatus:            invoice.AlgStatusNew,
		ApprovalStatus:       invoice.ApprovalStatusApproved,
		VerificationStatus:   invoice.VerificationStatusVerified,
		SettlementStatus:     invoice.SettlementStatusNotSettled,
		Origin:               invoice.OriginManualCreation,
		EarlyPaymentDiscount: decimal.Zero,
	}
	m.ID = uuid.New()
	m.CreatedAt = now
	m.UpdatedAt = now
	m.Version = 1
	for _, fn := range mutate {
		fn(m)
	}
	require.NoError(t, db.Create(m).Error)
	return m
}

// Pending leaves both workflow sides pending.
func Pending(m *models.InvoiceModel) {
	m.ApprovalStatus = invoice.ApprovalStatusPending
	m.VerificationStatus = invoice.VerificationStatusPending
}

// SeedRun writes one completed run with one loop settling amounts of the
// pair's invoices.
func SeedRun(t *testing.T, db *gorm.DB, pair ledger.Pair, settled map[uuid.UUID]int64) uuid.UUID {
	t.Helper()
	run := models.SettlementRunModel{ID: uuid.New(), Status: "completed", CreatedAt: time.Now()}
	loop := models.SettlementLoopModel{ID: uuid.New(), RunID: run.ID}
	require.NoError(t, db.Create(&run).Error)
	require.NoError(t, db.Create(&loop).Error)

	total := decimal.Zero
	for _, amount := range settled {
		total = total.Add(decimal.NewFromInt(amount))
	}
	sb := models.SettlementBalanceModel{ID: uuid.New(), LoopID: loop.ID, PayerID: pair.PayerID, PayeeID: pair.PayeeID, Amount: total}
	require.NoError(t, db.Create(&sb).Error)
	for invoiceID, amount := range settled {
		require.NoError(t, db.Create(&models.SettlementInvoiceModel{
			ID:        uuid.New(),
			BalanceID: sb.ID,
			InvoiceID: invoiceID,
			Amount:    decimal.NewFromInt(amount),
		}).Error)
	}
	return run.ID
}

// LoadInvoice reads an invoice row back.
func LoadInvoice(t *testing.T, db *gorm.DB, id uuid.UUID) *models.InvoiceModel {
	t.Helper()
	var m models.InvoiceModel
	require.NoError(t, db.First(&m, "id = ?", id).Error)
	return &m
}

// LoadCorporate reads a corporate row back.
func LoadCorporate(t *testing.T, db *gorm.DB, id uuid.UUID) *models.CorporateModel {
	t.Helper()
	var m models.CorporateModel
	require.NoError(t, db.First(&m, "id = ?", id).Error)
	return &m
}

// FindBalance returns the balance of the pair, or nil when there is none.
func FindBalance(t *testing.T, db *gorm.DB, payer, payee uuid.UUID) *models.BalanceModel {
	t.Helper()
	var rows []models.BalanceModel
	require.NoError(t, db.Where("payer_id = ? AND payee_id = ?", payer, payee).Find(&rows).Error)
	if len(rows) == 0 {
		return nil
	}
	return &rows[0]
}

// CountRows counts the rows of a model's table.
func CountRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

// AssertDecimal compares a decimal with its string form.
func AssertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	if !decimal.RequireFromString(want).Equal(got) {
		assert.Fail(t, "decimal mismatch: want "+want+", got "+got.String(), msgAndArgs...)
	}
}

// NewTestUUID generates a deterministic UUID from seed.
func NewTestUUID(seed string) uuid.UUID {
	namespace := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	return uuid.NewSHA1(namespace, []byte(seed))
}

// ContextWithTimeout creates a context with a timeout for tests.
func ContextWithTimeout(t *testing.T, timeout time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), timeout)
}

// RequireEventually retries condition until it passes or times out.
func RequireEventually(t *testing.T, condition func() bool, timeout, interval time.Duration, msgAndArgs ...interface{}) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(interval)
	}

	require.Fail(t, "Condition not met within timeout", msgAndArgs...)
}
