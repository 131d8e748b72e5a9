package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Stock represents an ASX-listed security
type Stock struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Symbol      string          `gorm:"uniqueIndex;not null" json:"symbol"` // e.g. BHP.AX
	Name        string          `json:"name"`
	Exchange    string          `gorm:"default:'ASX'" json:"exchange"`
	Sector      string          `json:"sector"`
	MarketCap   decimal.Decimal `gorm:"type:decimal(20,2)" json:"market_cap"`
	ListingDate *time.Time      `json:"listing_date"`
	Status      string          `gorm:"default:'active'" json:"status"` // active, delisted, suspended
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// StockPrice represents one daily OHLCV bar for a symbol
type StockPrice struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Symbol        string          `gorm:"index:idx_symbol_date;not null" json:"symbol"`
	Date          time.Time       `gorm:"index:idx_symbol_date" json:"date"`
	Open          decimal.Decimal `gorm:"type:decimal(15,4)" json:"open"`
	High          decimal.Decimal `gorm:"type:decimal(15,4)" json:"high"`
	Low           decimal.Decimal `gorm:"type:decimal(15,4)" json:"low"`
	Close         decimal.Decimal `gorm:"type:decimal(15,4)" json:"close"`
	AdjClose      decimal.Decimal `gorm:"type:decimal(15,4)" json:"adj_close"`
	Volume        int64           `json:"volume"`
	Change        decimal.Decimal `gorm:"type:decimal(15,4)" json:"change"`
	ChangePercent decimal.Decimal `gorm:"type:decimal(10,4)" json:"change_percent"`
	CreatedAt     time.Time       `json:"created_at"`
}

// IndicatorSnapshot stores derived per-symbol features computed after ingestion
type IndicatorSnapshot struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Symbol      string          `gorm:"index:idx_indicator_symbol_date" json:"symbol"`
	Date        time.Time       `gorm:"index:idx_indicator_symbol_date" json:"date"`
	DailyReturn decimal.Decimal `gorm:"type:decimal(10,6)" json:"daily_return"`
	SMA20       decimal.Decimal `gorm:"type:decimal(15,4)" json:"sma_20"`
	Volatility  decimal.Decimal `gorm:"type:decimal(10,6)" json:"volatility"` // 20d stddev of daily returns
	AvgVolume   int64           `json:"avg_volume"`
	CreatedAt   time.Time       `json:"created_at"`
}

// MigrateStockModels runs database migrations for stock-related models
func MigrateStockModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&Stock{},
		&StockPrice{},
		&IndicatorSnapshot{},
	)
}
