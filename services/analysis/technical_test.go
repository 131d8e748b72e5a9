package analysis

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"stockwatch_backend/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.MigrateStockModels(db))
	return db
}

func seedBars(t *testing.T, db *gorm.DB, symbol string, closes []string, volume int64) time.Time {
	t.Helper()

	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	var last time.Time
	for i, c := range closes {
		last = start.AddDate(0, 0, i)
		require.NoError(t, db.Create(&models.StockPrice{
			Symbol: symbol,
			Date:   last,
			Close:  decimal.RequireFromString(c),
			Volume: volume,
		}).Error)
	}
	return last
}

func TestComputeSnapshotDailyReturnAndSMA(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSnapshotService(db, zap.NewNop())

	last := seedBars(t, db, "BHP.AX", []string{"40.00", "42.00", "44.00"}, 1000)

	snap, err := svc.ComputeSnapshot("BHP.AX", last)
	require.NoError(t, err)

	// (44 - 42) / 42
	expectedReturn := decimal.RequireFromString("2").Div(decimal.RequireFromString("42"))
	assert.True(t, snap.DailyReturn.Equal(expectedReturn), "daily return %s", snap.DailyReturn)
	assert.True(t, snap.SMA20.Equal(decimal.RequireFromString("42")), "sma %s", snap.SMA20)
	assert.Equal(t, int64(1000), snap.AvgVolume)
	assert.True(t, snap.Volatility.IsZero() || snap.Volatility.IsPositive())

	var count int64
	require.NoError(t, db.Model(&models.IndicatorSnapshot{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestComputeSnapshotWindowExcludesOldestBar(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSnapshotService(db, zap.NewNop())

	// 21 bars of 10.00 preceded by a single outlier that must fall outside
	// the 20-bar averaging window
	closes := make([]string, 0, SnapshotWindow+1)
	closes = append(closes, "1000.00")
	for i := 0; i < SnapshotWindow; i++ {
		closes = append(closes, "10.00")
	}
	last := seedBars(t, db, "CBA.AX", closes, 500)

	snap, err := svc.ComputeSnapshot("CBA.AX", last)
	require.NoError(t, err)
	assert.True(t, snap.SMA20.Equal(decimal.RequireFromString("10")), "sma %s", snap.SMA20)
}

func TestComputeSnapshotInsufficientHistory(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSnapshotService(db, zap.NewNop())

	last := seedBars(t, db, "CSL.AX", []string{"250.00"}, 100)

	_, err := svc.ComputeSnapshot("CSL.AX", last)
	assert.Error(t, err)
}

func TestComputeAllSkipsFailuresAndCounts(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSnapshotService(db, zap.NewNop())

	require.NoError(t, db.Create(&models.Stock{Symbol: "BHP.AX", Status: "active"}).Error)
	require.NoError(t, db.Create(&models.Stock{Symbol: "WOW.AX", Status: "active"}).Error)
	require.NoError(t, db.Create(&models.Stock{Symbol: "TLS.AX", Status: "delisted"}).Error)

	last := seedBars(t, db, "BHP.AX", []string{"40.00", "41.00"}, 1000)
	// WOW.AX has no bars, TLS.AX is not active

	computed, err := svc.ComputeAll(last)
	require.NoError(t, err)
	assert.Equal(t, 1, computed)
}
