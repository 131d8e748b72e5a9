package alerting

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"stockwatch_backend/models"
)

var cycleTime = time.Date(2026, 3, 2, 16, 5, 0, 0, time.UTC)

func newTestEngine(db *gorm.DB, prices PriceSource) *Engine {
	e := NewEngine(db, prices, zap.NewNop())
	e.now = func() time.Time { return cycleTime }
	return e
}

func TestRunCycleNoActiveAlerts(t *testing.T) {
	db := setupTestDB(t)
	prices := &fakePrices{}
	engine := newTestEngine(db, prices)

	outcome := engine.RunCycle()

	assert.Equal(t, CycleCompleted, outcome.Status)
	assert.Equal(t, CycleSummary{}, outcome.Summary)
	// an empty cycle must not even look prices up
	assert.Zero(t, prices.calls)

	var histories int64
	db.Model(&models.AlertHistory{}).Count(&histories)
	assert.Zero(t, histories)
}

func TestRunCycleTriggersAndRecordsHistory(t *testing.T) {
	db := setupTestDB(t)
	alert := mustInsertAlert(t, db, "BHP.AX", models.AlertTypePriceAbove, "45.00")
	prices := &fakePrices{quotes: map[string]decimal.Decimal{"BHP.AX": dec("47.50")}}
	engine := newTestEngine(db, prices)

	outcome := engine.RunCycle()

	assert.Equal(t, CycleCompleted, outcome.Status)
	assert.Equal(t, CycleSummary{AlertsChecked: 1, SymbolsResolved: 1, AlertsTriggered: 1}, outcome.Summary)
	require.Len(t, outcome.Triggered, 1)
	assert.True(t, outcome.Triggered[0].Price.Equal(dec("47.50")))

	var got models.Alert
	require.NoError(t, db.First(&got, alert.ID).Error)
	assert.Equal(t, models.AlertStatusTriggered, got.Status)
	require.NotNil(t, got.TriggeredAt)
	assert.WithinDuration(t, cycleTime, *got.TriggeredAt, time.Second)
	require.NotNil(t, got.CurrentPrice)
	assert.True(t, got.CurrentPrice.Equal(dec("47.50")))

	var history models.AlertHistory
	require.NoError(t, db.First(&history).Error)
	assert.Equal(t, alert.ID, history.AlertID)
	assert.Equal(t, "BHP.AX", history.Symbol)
	assert.Equal(t, models.AlertTypePriceAbove, history.AlertType)
	assert.True(t, history.Threshold.Equal(dec("45.00")))
	assert.True(t, history.PriceAtTrigger.Equal(dec("47.50")))
}

func TestRunCycleDoesNotTriggerBelowThreshold(t *testing.T) {
	db := setupTestDB(t)
	alert := mustInsertAlert(t, db, "BHP.AX", models.AlertTypePriceAbove, "45.00")
	prices := &fakePrices{quotes: map[string]decimal.Decimal{"BHP.AX": dec("40.00")}}
	engine := newTestEngine(db, prices)

	outcome := engine.RunCycle()

	assert.Equal(t, CycleCompleted, outcome.Status)
	assert.Equal(t, 0, outcome.Summary.AlertsTriggered)

	var got models.Alert
	require.NoError(t, db.First(&got, alert.ID).Error)
	assert.Equal(t, models.AlertStatusActive, got.Status)
	assert.Nil(t, got.TriggeredAt)

	var histories int64
	db.Model(&models.AlertHistory{}).Count(&histories)
	assert.Zero(t, histories)
}

func TestRunCyclePriceBelow(t *testing.T) {
	db := setupTestDB(t)
	mustInsertAlert(t, db, "CBA.AX", models.AlertTypePriceBelow, "100.00")
	prices := &fakePrices{quotes: map[string]decimal.Decimal{"CBA.AX": dec("95.00")}}
	engine := newTestEngine(db, prices)

	outcome := engine.RunCycle()

	assert.Equal(t, CycleCompleted, outcome.Status)
	assert.Equal(t, 1, outcome.Summary.AlertsTriggered)
}

// Two back-to-back cycles with an unchanged satisfying price must produce
// exactly one transition and exactly one history row.
func TestRunCycleIsIdempotentAcrossCycles(t *testing.T) {
	db := setupTestDB(t)
	mustInsertAlert(t, db, "BHP.AX", models.AlertTypePriceAbove, "45.00")
	prices := &fakePrices{quotes: map[string]decimal.Decimal{"BHP.AX": dec("47.50")}}
	engine := newTestEngine(db, prices)

	first := engine.RunCycle()
	second := engine.RunCycle()

	assert.Equal(t, 1, first.Summary.AlertsTriggered)
	assert.Equal(t, CycleCompleted, second.Status)
	assert.Equal(t, CycleSummary{}, second.Summary)

	var histories int64
	db.Model(&models.AlertHistory{}).Count(&histories)
	assert.EqualValues(t, 1, histories)
}

// An alert whose symbol has no resolved price is skipped without affecting
// the evaluation of the other alerts in the same cycle.
func TestRunCycleSkipsSymbolsWithoutPrices(t *testing.T) {
	db := setupTestDB(t)
	missing := mustInsertAlert(t, db, "NEW.AX", models.AlertTypePriceAbove, "1.00")
	mustInsertAlert(t, db, "BHP.AX", models.AlertTypePriceAbove, "45.00")
	prices := &fakePrices{quotes: map[string]decimal.Decimal{"BHP.AX": dec("47.50")}}
	engine := newTestEngine(db, prices)

	outcome := engine.RunCycle()

	assert.Equal(t, CycleCompleted, outcome.Status)
	assert.Equal(t, CycleSummary{AlertsChecked: 2, SymbolsResolved: 1, AlertsTriggered: 1}, outcome.Summary)

	var got models.Alert
	require.NoError(t, db.First(&got, missing.ID).Error)
	assert.Equal(t, models.AlertStatusActive, got.Status)
}

func TestRunCycleDegradedWhenNoPricesResolve(t *testing.T) {
	db := setupTestDB(t)
	alert := mustInsertAlert(t, db, "BHP.AX", models.AlertTypePriceAbove, "45.00")
	prices := &fakePrices{} // resolves nothing, as after a source outage
	engine := newTestEngine(db, prices)

	outcome := engine.RunCycle()

	assert.Equal(t, CycleDegraded, outcome.Status)
	assert.Equal(t, 0, outcome.Summary.AlertsTriggered)

	var got models.Alert
	require.NoError(t, db.First(&got, alert.ID).Error)
	assert.Equal(t, models.AlertStatusActive, got.Status)
}

type flakyHistory struct {
	real      *HistorySink
	failAfter int
	recorded  int
}

func (f *flakyHistory) Record(tx *gorm.DB, alert *models.Alert, price decimal.Decimal, at time.Time) error {
	if f.recorded >= f.failAfter {
		return errors.New("history insert failed")
	}
	f.recorded++
	return f.real.Record(tx, alert, price, at)
}

// A persistence failure mid-cycle must roll back every transition of the
// cycle: all-or-nothing, so the next cycle re-evaluates from pre-cycle state.
func TestRunCycleRollsBackAllTransitionsOnFailure(t *testing.T) {
	db := setupTestDB(t)
	a := mustInsertAlert(t, db, "BHP.AX", models.AlertTypePriceAbove, "45.00")
	b := mustInsertAlert(t, db, "CBA.AX", models.AlertTypePriceBelow, "100.00")
	prices := &fakePrices{quotes: map[string]decimal.Decimal{
		"BHP.AX": dec("47.50"),
		"CBA.AX": dec("95.00"),
	}}
	engine := newTestEngine(db, prices)
	engine.history = &flakyHistory{real: NewHistorySink(), failAfter: 1}

	outcome := engine.RunCycle()

	assert.Equal(t, CycleAborted, outcome.Status)
	require.Error(t, outcome.Err)

	for _, id := range []uint{a.ID, b.ID} {
		var got models.Alert
		require.NoError(t, db.First(&got, id).Error)
		assert.Equal(t, models.AlertStatusActive, got.Status)
		assert.Nil(t, got.TriggeredAt)
		assert.Nil(t, got.CurrentPrice)
	}

	var histories int64
	db.Model(&models.AlertHistory{}).Count(&histories)
	assert.Zero(t, histories)
}

func TestRunCycleAgainstStoredPrices(t *testing.T) {
	db := setupTestDB(t)
	mustInsertAlert(t, db, "BHP.AX", models.AlertTypePriceAbove, "45.00")

	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	mustInsertPrice(t, db, "BHP.AX", monday.AddDate(0, 0, -1), "44.00")
	mustInsertPrice(t, db, "BHP.AX", monday, "47.50")

	engine := newTestEngine(db, NewPriceProvider(db, zap.NewNop()))
	outcome := engine.RunCycle()

	assert.Equal(t, CycleCompleted, outcome.Status)
	assert.Equal(t, 1, outcome.Summary.AlertsTriggered)

	var history models.AlertHistory
	require.NoError(t, db.First(&history).Error)
	assert.True(t, history.PriceAtTrigger.Equal(dec("47.50")))
}
