package alerting

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"stockwatch_backend/models"
)

// AlertStore provides read access to active alerts and the atomic transition
// that moves one alert to its terminal triggered state
type AlertStore struct {
	db *gorm.DB
}

// NewAlertStore creates an alert store on the given database handle
func NewAlertStore(db *gorm.DB) *AlertStore {
	return &AlertStore{db: db}
}

// FetchActive returns all alerts still eligible for evaluation, ordered by
// symbol so update batching within a cycle is stable
func (s *AlertStore) FetchActive() ([]models.Alert, error) {
	var alerts []models.Alert
	err := s.db.
		Where("status = ?", models.AlertStatusActive).
		Order("symbol ASC").
		Find(&alerts).Error
	return alerts, err
}

// TransitionToTriggered flips one alert to triggered if and only if its status
// is still active, in a single conditional UPDATE. It returns the
// post-transition alert, or nil when the row was already triggered by an
// overlapping cycle and no write was performed. Callers pass the cycle's
// transaction handle so the transition commits with the rest of the cycle.
func (s *AlertStore) TransitionToTriggered(tx *gorm.DB, alertID uint, observedPrice decimal.Decimal, now time.Time) (*models.Alert, error) {
	res := tx.Model(&models.Alert{}).
		Where("id = ? AND status = ?", alertID, models.AlertStatusActive).
		Updates(map[string]interface{}{
			"status":        models.AlertStatusTriggered,
			"triggered_at":  now,
			"current_price": observedPrice,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// lost the race: the alert left the active state between fetch and update
		return nil, nil
	}

	var alert models.Alert
	if err := tx.First(&alert, alertID).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}
