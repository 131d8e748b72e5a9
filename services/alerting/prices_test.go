package alerting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"stockwatch_backend/models"
)

func TestLatestClosesReturnsMostRecentBar(t *testing.T) {
	db := setupTestDB(t)
	provider := NewPriceProvider(db, zap.NewNop())

	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	mustInsertPrice(t, db, "BHP.AX", monday.AddDate(0, 0, -3), "44.10")
	mustInsertPrice(t, db, "BHP.AX", monday.AddDate(0, 0, -1), "46.00")
	mustInsertPrice(t, db, "BHP.AX", monday, "47.50")
	mustInsertPrice(t, db, "CBA.AX", monday, "95.00")

	prices := provider.LatestCloses([]string{"BHP.AX", "CBA.AX"})
	require.Len(t, prices, 2)
	assert.True(t, prices["BHP.AX"].Equal(dec("47.50")))
	assert.True(t, prices["CBA.AX"].Equal(dec("95.00")))
}

func TestLatestClosesOmitsSymbolsWithoutData(t *testing.T) {
	db := setupTestDB(t)
	provider := NewPriceProvider(db, zap.NewNop())

	mustInsertPrice(t, db, "BHP.AX", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), "47.50")

	prices := provider.LatestCloses([]string{"BHP.AX", "NEW.AX"})
	require.Len(t, prices, 1)
	_, ok := prices["NEW.AX"]
	assert.False(t, ok)
}

func TestLatestClosesEmptyInput(t *testing.T) {
	db := setupTestDB(t)
	provider := NewPriceProvider(db, zap.NewNop())

	prices := provider.LatestCloses(nil)
	assert.Empty(t, prices)
}

// A retrieval failure must degrade to an empty map, not an error: a transient
// data-source outage turns the cycle into a no-op instead of crashing it.
func TestLatestClosesFailureDegradesToEmpty(t *testing.T) {
	db := setupTestDB(t)
	provider := NewPriceProvider(db, zap.NewNop())

	require.NoError(t, db.Migrator().DropTable(&models.StockPrice{}))

	prices := provider.LatestCloses([]string{"BHP.AX"})
	assert.Empty(t, prices)
}
