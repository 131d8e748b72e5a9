package alerting

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch_backend/models"
)

func TestFetchActiveOrdersBySymbol(t *testing.T) {
	db := setupTestDB(t)
	store := NewAlertStore(db)

	mustInsertAlert(t, db, "WBC.AX", models.AlertTypePriceAbove, "30")
	mustInsertAlert(t, db, "BHP.AX", models.AlertTypePriceAbove, "45")
	mustInsertAlert(t, db, "CBA.AX", models.AlertTypePriceBelow, "100")

	alerts, err := store.FetchActive()
	require.NoError(t, err)
	require.Len(t, alerts, 3)
	assert.Equal(t, "BHP.AX", alerts[0].Symbol)
	assert.Equal(t, "CBA.AX", alerts[1].Symbol)
	assert.Equal(t, "WBC.AX", alerts[2].Symbol)
}

func TestFetchActiveExcludesTriggered(t *testing.T) {
	db := setupTestDB(t)
	store := NewAlertStore(db)

	active := mustInsertAlert(t, db, "BHP.AX", models.AlertTypePriceAbove, "45")
	now := time.Now()
	price := decimal.RequireFromString("47.50")
	triggered := models.Alert{
		UserID:       1,
		Symbol:       "CBA.AX",
		AlertType:    models.AlertTypePriceBelow,
		Threshold:    decimal.RequireFromString("100"),
		Status:       models.AlertStatusTriggered,
		TriggeredAt:  &now,
		CurrentPrice: &price,
	}
	require.NoError(t, db.Create(&triggered).Error)

	alerts, err := store.FetchActive()
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, active.ID, alerts[0].ID)
}

func TestTransitionToTriggered(t *testing.T) {
	db := setupTestDB(t)
	store := NewAlertStore(db)

	alert := mustInsertAlert(t, db, "BHP.AX", models.AlertTypePriceAbove, "45.00")
	price := decimal.RequireFromString("47.50")
	now := time.Date(2026, 3, 2, 16, 5, 0, 0, time.UTC)

	updated, err := store.TransitionToTriggered(db, alert.ID, price, now)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, models.AlertStatusTriggered, updated.Status)
	require.NotNil(t, updated.TriggeredAt)
	assert.WithinDuration(t, now, *updated.TriggeredAt, time.Second)
	require.NotNil(t, updated.CurrentPrice)
	assert.True(t, updated.CurrentPrice.Equal(price))
}

// A second transition attempt must see the alert no longer active and
// perform no write: triggered is terminal.
func TestTransitionToTriggeredIsAtMostOnce(t *testing.T) {
	db := setupTestDB(t)
	store := NewAlertStore(db)

	alert := mustInsertAlert(t, db, "BHP.AX", models.AlertTypePriceAbove, "45.00")
	now := time.Now()
	first := decimal.RequireFromString("47.50")
	second := decimal.RequireFromString("48.10")

	updated, err := store.TransitionToTriggered(db, alert.ID, first, now)
	require.NoError(t, err)
	require.NotNil(t, updated)

	again, err := store.TransitionToTriggered(db, alert.ID, second, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Nil(t, again)

	// the recorded price remains the one from the effective transition
	var got models.Alert
	require.NoError(t, db.First(&got, alert.ID).Error)
	require.NotNil(t, got.CurrentPrice)
	assert.True(t, got.CurrentPrice.Equal(first))
}

func TestTransitionToTriggeredUnknownID(t *testing.T) {
	db := setupTestDB(t)
	store := NewAlertStore(db)

	updated, err := store.TransitionToTriggered(db, 9999, decimal.RequireFromString("1"), time.Now())
	require.NoError(t, err)
	assert.Nil(t, updated)
}
