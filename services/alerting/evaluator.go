package alerting

import (
	"github.com/shopspring/decimal"

	"stockwatch_backend/models"
)

// Evaluate reports whether the supplied metric satisfies the alert condition.
// It is a pure function: no clock, no store, no side effects.
func Evaluate(alertType models.AlertType, threshold, metric decimal.Decimal) bool {
	switch alertType {
	case models.AlertTypePriceAbove:
		return metric.GreaterThanOrEqual(threshold)
	case models.AlertTypePriceBelow:
		return metric.LessThanOrEqual(threshold)
	case models.AlertTypeVolumeSpike:
		// Compared the same way as price_above against whatever metric the
		// coordinator supplies. Today that metric is the latest close, not a
		// volume figure. TODO: feed this the 20d volume ratio from
		// IndicatorSnapshot once the ingestion job persists it per symbol.
		return metric.GreaterThanOrEqual(threshold)
	}
	return false
}
