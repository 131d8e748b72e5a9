package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"stockwatch_backend/controllers"
	"stockwatch_backend/middleware"
	"stockwatch_backend/services"
	"stockwatch_backend/services/alerting"
	"stockwatch_backend/services/analysis"
	"stockwatch_backend/services/datafetcher"
	"stockwatch_backend/services/stream"
)

// Deps carries the shared service instances the routes are wired to
type Deps struct {
	DB        *gorm.DB
	Engine    *alerting.Engine
	Fetcher   *datafetcher.DataFetcher
	Snapshots *analysis.SnapshotService
	Hub       *stream.Hub
	Archive   *services.MongoArchive
	Logger    *zap.Logger
	JWTSecret string
}

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine, deps Deps) {
	stockController := controllers.NewStockController(deps.DB)
	alertController := controllers.NewAlertController(deps.DB)
	watchlistController := controllers.NewWatchlistController(deps.DB)
	opsController := controllers.NewOpsController(deps.Engine, deps.Fetcher, deps.Snapshots, deps.Hub, deps.Archive, deps.Logger)

	adminLimiter := middleware.NewRateLimiter(5, 15*time.Minute, 30*time.Minute)

	// API v1 group
	api := router.Group("/api/v1")
	{
		// Stock routes (public browse)
		stocks := api.Group("/stocks")
		{
			stocks.GET("", stockController.GetStocks)
			stocks.GET("/:symbol/prices", stockController.GetStockPrices)
			stocks.GET("/:symbol/quote", stockController.GetLatestQuote)
			stocks.GET("/:symbol/indicators", stockController.GetIndicators)
		}

		// Alert routes (authenticated users)
		alerts := api.Group("/alerts")
		alerts.Use(middleware.JWTAuthMiddleware(deps.JWTSecret))
		{
			alerts.GET("", alertController.GetAlerts)
			alerts.POST("", alertController.CreateAlert)
			alerts.GET("/history", alertController.GetAlertHistory)
			alerts.GET("/:id", alertController.GetAlert)
			alerts.DELETE("/:id", alertController.CancelAlert)
		}

		// Watchlist routes (authenticated users)
		watchlist := api.Group("/watchlist")
		watchlist.Use(middleware.JWTAuthMiddleware(deps.JWTSecret))
		{
			watchlist.GET("", watchlistController.GetWatchlist)
			watchlist.POST("", watchlistController.AddToWatchlist)
			watchlist.DELETE("/:id", watchlistController.RemoveFromWatchlist)
		}

		// Operator routes (basic auth + lockout)
		admin := api.Group("/admin")
		admin.Use(adminLimiter.Middleware())
		admin.Use(middleware.AdminAuthMiddleware(deps.DB, adminLimiter))
		{
			admin.POST("/cycles/run", opsController.RunAlertCycle)
			admin.POST("/ingestion/run", opsController.RunIngestion)
			admin.POST("/snapshots/run", opsController.RunSnapshots)
		}
	}

	// Live trigger/summary stream
	router.GET("/ws/stream", deps.Hub.ServeWS)
}
