package alerting

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PriceProvider resolves the most recent stored close per symbol
type PriceProvider struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPriceProvider creates a price provider backed by the stock_prices table
func NewPriceProvider(db *gorm.DB, logger *zap.Logger) *PriceProvider {
	return &PriceProvider{db: db, logger: logger}
}

// LatestCloses returns the close of the latest available bar for each symbol.
// Symbols with no stored prices are absent from the result. A retrieval
// failure degrades to an empty map with a logged warning: the caller treats
// the cycle as a no-op rather than failing it on a transient outage.
func (p *PriceProvider) LatestCloses(symbols []string) map[string]decimal.Decimal {
	result := make(map[string]decimal.Decimal)
	if len(symbols) == 0 {
		return result
	}

	var quotes []struct {
		Symbol string
		Close  decimal.Decimal
	}
	err := p.db.Raw(`
		SELECT sp.symbol, sp.close
		FROM stock_prices sp
		JOIN (
			SELECT symbol, MAX(date) AS max_date
			FROM stock_prices
			WHERE symbol IN ?
			GROUP BY symbol
		) latest ON sp.symbol = latest.symbol AND sp.date = latest.max_date
	`, symbols).Scan(&quotes).Error
	if err != nil {
		p.logger.Warn("price lookup failed, degrading cycle to no-op",
			zap.Int("symbols", len(symbols)),
			zap.Error(err),
		)
		return result
	}

	for _, q := range quotes {
		result[q.Symbol] = q.Close
	}
	return result
}
