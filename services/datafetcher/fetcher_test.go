package datafetcher

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

func TestFetchRangeForBackfillsNewSymbols(t *testing.T) {
	db := setupTestDB(t)
	fetcher := NewDataFetcher(db, zap.NewNop())

	assert.Equal(t, BackfillFetchRange, fetcher.fetchRangeFor("BHP.AX"))

	require.NoError(t, db.Create(&models.StockPrice{
		Symbol: "BHP.AX",
		Date:   time.Date(2025, 8, 29, 0, 0, 0, 0, time.UTC),
		Close:  decimal.RequireFromString("44.10"),
	}).Error)

	assert.Equal(t, DefaultFetchRange, fetcher.fetchRangeFor("BHP.AX"))
	assert.Equal(t, BackfillFetchRange, fetcher.fetchRangeFor("CBA.AX"))
}

func TestSeedStockListIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	fetcher := NewDataFetcher(db, zap.NewNop())

	require.NoError(t, fetcher.SeedStockList())
	var first int64
	require.NoError(t, db.Model(&models.Stock{}).Count(&first).Error)
	assert.Greater(t, first, int64(0))

	require.NoError(t, fetcher.SeedStockList())
	var second int64
	require.NoError(t, db.Model(&models.Stock{}).Count(&second).Error)
	assert.Equal(t, first, second)
}
