package alerting

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"stockwatch_backend/models"
)

// HistorySink appends immutable audit rows for trigger events
type HistorySink struct{}

// NewHistorySink creates a history sink
func NewHistorySink() *HistorySink {
	return &HistorySink{}
}

// Record appends one audit row for an alert whose transition took effect.
// It must never be called for a transition that did not: an orphan history
// row would have no corresponding state change.
func (h *HistorySink) Record(tx *gorm.DB, alert *models.Alert, priceAtTrigger decimal.Decimal, triggeredAt time.Time) error {
	entry := models.AlertHistory{
		AlertID:        alert.ID,
		Symbol:         alert.Symbol,
		AlertType:      alert.AlertType,
		Threshold:      alert.Threshold,
		PriceAtTrigger: priceAtTrigger,
		TriggeredAt:    triggeredAt,
	}
	return tx.Create(&entry).Error
}
