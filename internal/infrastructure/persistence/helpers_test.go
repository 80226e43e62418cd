package persistence

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/sawi/backend/internal/domain/corporate"
	"github.com/sawi/backend/internal/domain/invoice"
	"github.com/sawi/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type mockDB struct {
	db   *gorm.DB
	mock sqlmock.Sqlmock
}

// newMockDB opens a postgres-dialect GORM handle over sqlmock
func newMockDB(t *testing.T) *mockDB {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       conn,
		DriverName: "postgres",
	}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return &mockDB{db: db, mock: mock}
}

// newSQLiteDB opens an in-memory database with the full schema
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func seedCorporate(t *testing.T, db *gorm.DB, status corporate.Status) uuid.UUID {
	t.Helper()
	c, err := corporate.NewCorporate("Corp " + uuid.NewString()[:8])
	require.NoError(t, err)
	c.Status = status
	require.NoError(t, db.Create(models.CorporateModelFromDomain(c)).Error)
	return c.ID
}

// seedInvoice inserts an approved and verified new invoice; mutate adjusts it
// before insert
func seedInvoice(t *testing.T, db *gorm.DB, payer, payee uuid.UUID, amount float64, mutate ...func(*models.InvoiceModel)) *models.InvoiceModel {
	t.Helper()
	now := time.Now().UTC()
	m := &models.InvoiceModel{
		ExternalID:           "INV-" + uuid.NewString()[:8],
		CorporateID:          payee,
		PayerID:              payer,
		PayeeID:              payee,
		IssueDate:            now.AddDate(0, 0, -1),
		DueDate:              now.AddDate(0, 1, 0),
		Amount:               decimal.NewFromFloat(amount),
		RemainingAmount:      decimal.NewFromFloat(amount),
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

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}
