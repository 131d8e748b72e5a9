package alerting

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"stockwatch_backend/models"
)

// setupTestDB opens an isolated in-memory database with all tables migrated
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, models.MigrateUserModels(db))
	require.NoError(t, models.MigrateStockModels(db))
	require.NoError(t, models.MigrateAlertModels(db))
	return db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fakePrices is an in-memory PriceSource that counts lookups
type fakePrices struct {
	quotes map[string]decimal.Decimal
	calls  int
}

func (f *fakePrices) LatestCloses(symbols []string) map[string]decimal.Decimal {
	f.calls++
	out := make(map[string]decimal.Decimal, len(symbols))
	for _, s := range symbols {
		if v, ok := f.quotes[s]; ok {
			out[s] = v
		}
	}
	return out
}

func mustInsertAlert(t *testing.T, db *gorm.DB, symbol string, alertType models.AlertType, threshold string) models.Alert {
	t.Helper()

	alert := models.Alert{
		UserID:              1,
		Symbol:              symbol,
		AlertType:           alertType,
		Threshold:           decimal.RequireFromString(threshold),
		Status:              models.AlertStatusActive,
		NotificationChannel: "email:test@example.com",
	}
	require.NoError(t, db.Create(&alert).Error)
	return alert
}

func mustInsertPrice(t *testing.T, db *gorm.DB, symbol string, date time.Time, close string) {
	t.Helper()

	price := models.StockPrice{
		Symbol: symbol,
		Date:   date,
		Close:  decimal.RequireFromString(close),
		Volume: 1_000_000,
	}
	require.NoError(t, db.Create(&price).Error)
}
