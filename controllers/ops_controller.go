package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stockwatch_backend/services"
	"stockwatch_backend/services/alerting"
	"stockwatch_backend/services/analysis"
	"stockwatch_backend/services/datafetcher"
	"stockwatch_backend/services/stream"
)

// OpsController exposes operator-only endpoints for running the background
// jobs on demand, outside their schedule
type OpsController struct {
	engine    *alerting.Engine
	fetcher   *datafetcher.DataFetcher
	snapshots *analysis.SnapshotService
	hub       *stream.Hub
	archive   *services.MongoArchive
	logger    *zap.Logger
}

// NewOpsController creates a new ops controller
func NewOpsController(engine *alerting.Engine, fetcher *datafetcher.DataFetcher, snapshots *analysis.SnapshotService, hub *stream.Hub, archive *services.MongoArchive, logger *zap.Logger) *OpsController {
	return &OpsController{
		engine:    engine,
		fetcher:   fetcher,
		snapshots: snapshots,
		hub:       hub,
		archive:   archive,
		logger:    logger,
	}
}

// RunAlertCycle runs one evaluation cycle immediately and returns its outcome
// POST /api/v1/admin/cycles/run
func (oc *OpsController) RunAlertCycle(c *gin.Context) {
	outcome := oc.engine.RunCycle()
	oc.hub.PublishCycle(outcome)

	if err := oc.archive.ArchiveCycleLog(c.Request.Context(), string(outcome.Status),
		outcome.Summary.AlertsChecked, outcome.Summary.SymbolsResolved, outcome.Summary.AlertsTriggered); err != nil {
		oc.logger.Warn("failed to archive cycle log", zap.Error(err))
	}

	status := http.StatusOK
	if outcome.Status == alerting.CycleAborted {
		status = http.StatusInternalServerError
	}

	response := gin.H{
		"status":  outcome.Status,
		"summary": outcome.Summary,
	}
	if outcome.Reason != "" {
		response["reason"] = outcome.Reason
	}
	if outcome.Err != nil {
		response["error"] = outcome.Err.Error()
	}
	c.JSON(status, response)
}

// RunIngestion fetches the recent daily bars for all tracked stocks
// POST /api/v1/admin/ingestion/run
func (oc *OpsController) RunIngestion(c *gin.Context) {
	stored, err := oc.fetcher.FetchAllDailyBars()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Ingestion completed",
		"bars_stored": stored,
	})
}

// RunSnapshots computes indicator snapshots for all tracked stocks
// POST /api/v1/admin/snapshots/run
func (oc *OpsController) RunSnapshots(c *gin.Context) {
	computed, err := oc.snapshots.ComputeAll(time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Snapshots computed",
		"computed": computed,
	})
}
