package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"stockwatch_backend/models"
	"stockwatch_backend/services"
	"stockwatch_backend/services/alerting"
	"stockwatch_backend/services/analysis"
	"stockwatch_backend/services/datafetcher"
	"stockwatch_backend/services/stream"
)

// ASX trading hours in Sydney local time
const (
	MarketOpenHour  = 10
	MarketCloseHour = 16
)

// Scheduler manages scheduled jobs
type Scheduler struct {
	cron      *gocron.Scheduler
	db        *gorm.DB
	engine    *alerting.Engine
	fetcher   *datafetcher.DataFetcher
	snapshots *analysis.SnapshotService
	hub       *stream.Hub
	archive   *services.MongoArchive
	logger    *zap.Logger
	location  *time.Location
}

// NewScheduler creates a new scheduler instance. Job times are interpreted
// in Sydney local time so they track ASX sessions across daylight saving.
func NewScheduler(db *gorm.DB, engine *alerting.Engine, fetcher *datafetcher.DataFetcher, snapshots *analysis.SnapshotService, hub *stream.Hub, archive *services.MongoArchive, logger *zap.Logger) *Scheduler {
	location, err := time.LoadLocation("Australia/Sydney")
	if err != nil {
		logger.Warn("failed to load Sydney timezone, falling back to UTC", zap.Error(err))
		location = time.UTC
	}

	return &Scheduler{
		cron:      gocron.NewScheduler(location),
		db:        db,
		engine:    engine,
		fetcher:   fetcher,
		snapshots: snapshots,
		hub:       hub,
		archive:   archive,
		logger:    logger,
		location:  location,
	}
}

// Start starts all scheduled jobs
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler")

	// Evaluate alerts every 5 minutes during trading hours. SingletonMode
	// keeps cycles from overlapping when one runs long.
	s.cron.Every(5).Minutes().SingletonMode().Do(func() {
		if s.isMarketOpen() {
			s.runAlertCycle()
		}
	})

	// Ingest daily bars after market close
	s.cron.Every(1).Day().At("16:30").Do(func() {
		s.runDailyIngestion()
	})

	// Compute indicator snapshots once ingestion has landed
	s.cron.Every(1).Day().At("17:00").Do(func() {
		s.computeSnapshots()
	})

	// Cleanup old data weekly on Sunday at 01:00
	s.cron.Every(1).Week().Sunday().At("01:00").Do(func() {
		s.cleanupOldData()
	})

	s.cron.StartAsync()
	s.logger.Info("scheduler started")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("scheduler stopped")
}

// runAlertCycle runs one alert evaluation cycle and fans its outcome out
func (s *Scheduler) runAlertCycle() {
	outcome := s.engine.RunCycle()

	switch outcome.Status {
	case alerting.CycleDegraded:
		s.logger.Warn("alert cycle degraded",
			zap.String("reason", outcome.Reason),
			zap.Int("alerts_checked", outcome.Summary.AlertsChecked),
		)
	case alerting.CycleAborted:
		s.logger.Error("alert cycle aborted", zap.Error(outcome.Err))
	}

	s.hub.PublishCycle(outcome)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.archive.ArchiveCycleLog(ctx, string(outcome.Status),
		outcome.Summary.AlertsChecked, outcome.Summary.SymbolsResolved, outcome.Summary.AlertsTriggered); err != nil {
		s.logger.Warn("failed to archive cycle log", zap.Error(err))
	}
}

// runDailyIngestion pulls the recent daily bars for all tracked stocks and
// mirrors them into the document archive when configured
func (s *Scheduler) runDailyIngestion() {
	if _, err := s.fetcher.FetchAllDailyBars(); err != nil {
		s.logger.Error("daily ingestion failed", zap.Error(err))
		return
	}

	if !s.archive.Enabled() {
		return
	}

	var stocks []models.Stock
	if err := s.db.Where("status = ?", "active").Find(&stocks).Error; err != nil {
		s.logger.Warn("failed to load stocks for archiving", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	for _, stock := range stocks {
		var bars []models.StockPrice
		if err := s.db.Where("symbol = ?", stock.Symbol).
			Order("date DESC").Limit(30).Find(&bars).Error; err != nil {
			continue
		}
		if err := s.archive.ArchiveDailyBars(ctx, stock.Symbol, bars); err != nil {
			s.logger.Warn("failed to archive price snapshot",
				zap.String("symbol", stock.Symbol),
				zap.Error(err),
			)
		}
	}
}

// computeSnapshots derives indicator snapshots for all tracked stocks
func (s *Scheduler) computeSnapshots() {
	if _, err := s.snapshots.ComputeAll(time.Now().In(s.location)); err != nil {
		s.logger.Error("snapshot computation failed", zap.Error(err))
	}
}

// cleanupOldData removes aged rows to keep the store lean. Alert history is
// an immutable audit log and is never touched here.
func (s *Scheduler) cleanupOldData() {
	twoYearsAgo := time.Now().AddDate(-2, 0, 0)
	if err := s.db.Where("date < ?", twoYearsAgo).
		Delete(&models.StockPrice{}).Error; err != nil {
		s.logger.Warn("failed to clean up old prices", zap.Error(err))
	}

	ninetyDaysAgo := time.Now().AddDate(0, 0, -90)
	if err := s.db.Where("status = ? AND triggered_at < ?", models.AlertStatusTriggered, ninetyDaysAgo).
		Delete(&models.Alert{}).Error; err != nil {
		s.logger.Warn("failed to clean up old alerts", zap.Error(err))
	}

	s.logger.Info("cleanup completed")
}

// isMarketOpen checks if the ASX is currently in its trading session
func (s *Scheduler) isMarketOpen() bool {
	now := time.Now().In(s.location)

	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return false
	}

	hour := now.Hour()
	return hour >= MarketOpenHour && hour < MarketCloseHour
}
