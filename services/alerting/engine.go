package alerting

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"stockwatch_backend/models"
)

// PriceSource resolves the latest known price per symbol. A failed lookup is
// reported as an empty map, never as an error.
type PriceSource interface {
	LatestCloses(symbols []string) map[string]decimal.Decimal
}

type historyRecorder interface {
	Record(tx *gorm.DB, alert *models.Alert, priceAtTrigger decimal.Decimal, triggeredAt time.Time) error
}

// Engine orchestrates one evaluation cycle over all active alerts: it fetches
// alerts and latest prices, evaluates each condition, and commits every
// transition plus its history row as a single transaction. The engine has no
// scheduler of its own; RunCycle is invoked by an external periodic trigger
// and never propagates failures to it.
type Engine struct {
	db      *gorm.DB
	store   *AlertStore
	history historyRecorder
	prices  PriceSource
	logger  *zap.Logger
	now     func() time.Time
}

// NewEngine creates an alert engine with explicit dependencies
func NewEngine(db *gorm.DB, prices PriceSource, logger *zap.Logger) *Engine {
	return &Engine{
		db:      db,
		store:   NewAlertStore(db),
		history: NewHistorySink(),
		prices:  prices,
		logger:  logger,
		now:     time.Now,
	}
}

// RunCycle performs one full evaluation cycle and reports how it ended.
// All writes of the cycle commit atomically: an error mid-cycle rolls back
// every transition attempted so far, and the next scheduled cycle
// re-evaluates the same alerts from their pre-cycle state.
func (e *Engine) RunCycle() (outcome CycleOutcome) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("alert cycle panicked", zap.Any("panic", r))
			outcome = Aborted(fmt.Errorf("alert cycle panic: %v", r))
		}
	}()

	alerts, err := e.store.FetchActive()
	if err != nil {
		e.logger.Error("failed to load active alerts", zap.Error(err))
		return Aborted(fmt.Errorf("load active alerts: %w", err))
	}
	if len(alerts) == 0 {
		return Completed(CycleSummary{})
	}

	symbols := distinctSymbols(alerts)
	prices := e.prices.LatestCloses(symbols)
	if len(prices) == 0 {
		e.logger.Warn("no prices resolved for active alerts",
			zap.Int("alerts", len(alerts)),
			zap.Int("symbols", len(symbols)),
		)
		return Degraded("no prices resolved", CycleSummary{AlertsChecked: len(alerts)})
	}

	summary := CycleSummary{
		AlertsChecked:   len(alerts),
		SymbolsResolved: len(prices),
	}
	var triggered []TriggeredAlert
	cycleTime := e.now()

	err = e.db.Transaction(func(tx *gorm.DB) error {
		for i := range alerts {
			alert := &alerts[i]

			price, ok := prices[alert.Symbol]
			if !ok {
				// no data for this symbol, skip without affecting the rest
				continue
			}
			if !Evaluate(alert.AlertType, alert.Threshold, price) {
				continue
			}

			updated, err := e.store.TransitionToTriggered(tx, alert.ID, price, cycleTime)
			if err != nil {
				return fmt.Errorf("transition alert %d: %w", alert.ID, err)
			}
			if updated == nil {
				// already triggered by an overlapping cycle, nothing to record
				continue
			}
			if err := e.history.Record(tx, updated, price, cycleTime); err != nil {
				return fmt.Errorf("record history for alert %d: %w", alert.ID, err)
			}

			summary.AlertsTriggered++
			triggered = append(triggered, TriggeredAlert{Alert: *updated, Price: price})
		}
		return nil
	})
	if err != nil {
		e.logger.Error("alert cycle rolled back", zap.Error(err))
		return Aborted(err)
	}

	e.logger.Info("alert cycle completed",
		zap.Int("alerts_checked", summary.AlertsChecked),
		zap.Int("symbols_resolved", summary.SymbolsResolved),
		zap.Int("alerts_triggered", summary.AlertsTriggered),
	)

	out := Completed(summary)
	out.Triggered = triggered
	return out
}

// distinctSymbols derives the unique symbol set across fetched alerts,
// preserving the fetch order of first appearance
func distinctSymbols(alerts []models.Alert) []string {
	seen := make(map[string]bool, len(alerts))
	symbols := make([]string, 0, len(alerts))
	for _, a := range alerts {
		if !seen[a.Symbol] {
			seen[a.Symbol] = true
			symbols = append(symbols, a.Symbol)
		}
	}
	return symbols
}
