package analysis

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"stockwatch_backend/models"
)

// SnapshotWindow is the lookback used for moving average and volatility
const SnapshotWindow = 20

// SnapshotService derives per-symbol features from stored daily bars:
// daily return, SMA and rolling volatility. Single-pass computation over
// whatever history is present, nothing stateful.
type SnapshotService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSnapshotService creates a new snapshot service instance
func NewSnapshotService(db *gorm.DB, logger *zap.Logger) *SnapshotService {
	return &SnapshotService{db: db, logger: logger}
}

// ComputeSnapshot calculates the indicator snapshot for one symbol as of the
// given date and persists it. Requires at least two bars; SMA and volatility
// use up to SnapshotWindow bars and degrade gracefully when fewer exist.
func (s *SnapshotService) ComputeSnapshot(symbol string, date time.Time) (*models.IndicatorSnapshot, error) {
	var bars []models.StockPrice
	err := s.db.Where("symbol = ? AND date <= ?", symbol, date).
		Order("date DESC").
		Limit(SnapshotWindow + 1).
		Find(&bars).Error
	if err != nil {
		return nil, err
	}
	if len(bars) < 2 {
		return nil, fmt.Errorf("insufficient price history for %s", symbol)
	}

	// reverse to chronological order
	for i := 0; i < len(bars)/2; i++ {
		bars[i], bars[len(bars)-1-i] = bars[len(bars)-1-i], bars[i]
	}

	latest := bars[len(bars)-1]
	previous := bars[len(bars)-2]

	snapshot := models.IndicatorSnapshot{
		Symbol: symbol,
		Date:   latest.Date,
	}

	if !previous.Close.IsZero() {
		snapshot.DailyReturn = latest.Close.Sub(previous.Close).Div(previous.Close)
	}

	// one extra bar is fetched for the daily return; average over the window only
	window := bars
	if len(window) > SnapshotWindow {
		window = window[len(window)-SnapshotWindow:]
	}
	sum := decimal.Zero
	var volumeSum int64
	for _, bar := range window {
		sum = sum.Add(bar.Close)
		volumeSum += bar.Volume
	}
	snapshot.SMA20 = sum.Div(decimal.NewFromInt(int64(len(window))))
	snapshot.AvgVolume = volumeSum / int64(len(window))
	snapshot.Volatility = returnStdDev(bars)

	if err := s.db.Create(&snapshot).Error; err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// ComputeAll computes snapshots for every active stock as of the given date
func (s *SnapshotService) ComputeAll(date time.Time) (int, error) {
	var stocks []models.Stock
	if err := s.db.Where("status = ?", "active").Find(&stocks).Error; err != nil {
		return 0, fmt.Errorf("failed to load stocks: %w", err)
	}

	computed := 0
	for _, stock := range stocks {
		if _, err := s.ComputeSnapshot(stock.Symbol, date); err != nil {
			s.logger.Warn("snapshot computation skipped",
				zap.String("symbol", stock.Symbol),
				zap.Error(err),
			)
			continue
		}
		computed++
	}

	s.logger.Info("indicator snapshots computed",
		zap.Int("stocks", len(stocks)),
		zap.Int("computed", computed),
	)
	return computed, nil
}

// returnStdDev is the sample standard deviation of close-to-close returns
func returnStdDev(bars []models.StockPrice) decimal.Decimal {
	var returns []float64
	for i := 1; i < len(bars); i++ {
		prev, _ := bars[i-1].Close.Float64()
		cur, _ := bars[i].Close.Float64()
		if prev == 0 {
			continue
		}
		returns = append(returns, (cur-prev)/prev)
	}
	if len(returns) < 2 {
		return decimal.Zero
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)

	return decimal.NewFromFloat(math.Sqrt(variance))
}
