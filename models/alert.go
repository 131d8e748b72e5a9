package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AlertType is the closed set of supported alert conditions
type AlertType string

const (
	AlertTypePriceAbove  AlertType = "price_above"
	AlertTypePriceBelow  AlertType = "price_below"
	AlertTypeVolumeSpike AlertType = "volume_spike"
)

// Alert status constants
const (
	AlertStatusActive    = "active"
	AlertStatusTriggered = "triggered"
)

// Alert represents a user-defined price watch condition on a symbol.
// Once triggered the alert is terminal: triggered_at and current_price are
// set together with the status change and the row is never reactivated.
type Alert struct {
	ID                  uint             `gorm:"primaryKey" json:"id"`
	UserID              uint             `gorm:"index" json:"user_id"`
	User                User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Symbol              string           `gorm:"index;not null" json:"symbol"`
	AlertType           AlertType        `gorm:"not null" json:"alert_type"`
	Threshold           decimal.Decimal  `gorm:"type:decimal(15,4)" json:"threshold"`
	Status              string           `gorm:"default:'active';index" json:"status"`
	NotificationChannel string           `json:"notification_channel"` // opaque delivery target
	TriggeredAt         *time.Time       `json:"triggered_at"`
	CurrentPrice        *decimal.Decimal `gorm:"type:decimal(15,4)" json:"current_price"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// AlertHistory is the append-only audit record of a trigger event.
// Rows are never updated or deleted.
type AlertHistory struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	AlertID        uint            `gorm:"index" json:"alert_id"`
	Symbol         string          `json:"symbol"`
	AlertType      AlertType       `json:"alert_type"`
	Threshold      decimal.Decimal `gorm:"type:decimal(15,4)" json:"threshold"`
	PriceAtTrigger decimal.Decimal `gorm:"type:decimal(15,4)" json:"price_at_trigger"`
	TriggeredAt    time.Time       `json:"triggered_at"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ValidAlertTypes returns the supported alert types
func ValidAlertTypes() []AlertType {
	return []AlertType{
		AlertTypePriceAbove,
		AlertTypePriceBelow,
		AlertTypeVolumeSpike,
	}
}

// IsValidAlertType checks if the alert type is recognized
func IsValidAlertType(alertType AlertType) bool {
	for _, valid := range ValidAlertTypes() {
		if alertType == valid {
			return true
		}
	}
	return false
}

// IsActive reports whether the alert is still eligible for evaluation
func (a *Alert) IsActive() bool {
	return a.Status == AlertStatusActive
}

// MigrateAlertModels runs database migrations for alert-related models
func MigrateAlertModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&Alert{},
		&AlertHistory{},
	)
}
