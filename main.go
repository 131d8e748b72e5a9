package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stockwatch_backend/config"
	"stockwatch_backend/models"
	"stockwatch_backend/routes"
	"stockwatch_backend/scheduler"
	"stockwatch_backend/services"
	"stockwatch_backend/services/alerting"
	"stockwatch_backend/services/analysis"
	"stockwatch_backend/services/datafetcher"
	"stockwatch_backend/services/stream"
)

// dbInitialized tracks whether database has been successfully initialized
// This global variable is used for thread-safe access across goroutines to allow
// the /ready health endpoint to dynamically check database status
var dbInitialized bool
var dbInitMutex sync.RWMutex

func main() {
	log.Println("==============================================")
	log.Println("  StockWatch Backend API - Starting...")
	log.Println("==============================================")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("Warning: Config load issue: %v", err)
	}

	// Set Gin mode based on environment
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Structured logger for the services
	zapLogger, err := buildLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zapLogger.Sync()

	// Create Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestLogger())

	// Setup health check endpoints FIRST so the platform can detect the
	// service is up; database is initialized in background
	setupHealthEndpoints(router)

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	// Start server immediately
	go func() {
		log.Printf("Server listening on 0.0.0.0:%s", cfg.Port)
		log.Println("==============================================")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Initialize database and wire services in background
	var jobScheduler *scheduler.Scheduler
	var hub *stream.Hub
	var archive *services.MongoArchive
	go func() {
		db, err := config.InitDB()
		if err != nil {
			log.Printf("ERROR: Database connection failed: %v", err)
			log.Println("Service will continue in limited mode (health check only)")
			return
		}

		log.Println("Running database migrations...")
		if err := runMigrations(); err != nil {
			log.Printf("ERROR: Migration failed: %v", err)
		} else {
			log.Println("Database migrations completed successfully")
		}

		if err := models.SeedDefaultAdminUser(db, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			log.Printf("Warning: Could not seed admin user: %v", err)
		}

		archive, err = services.NewMongoArchive(cfg.MongoURI, zapLogger)
		if err != nil {
			zapLogger.Warn("MongoDB archive unavailable, continuing without it", zap.Error(err))
			archive, _ = services.NewMongoArchive("", zapLogger)
		}

		fetcher := datafetcher.NewDataFetcher(db, zapLogger)
		if err := fetcher.SeedStockList(); err != nil {
			zapLogger.Warn("failed to seed stock list", zap.Error(err))
		}

		provider := alerting.NewPriceProvider(db, zapLogger)
		engine := alerting.NewEngine(db, provider, zapLogger)
		snapshots := analysis.NewSnapshotService(db, zapLogger)

		hub = stream.NewHub(zapLogger)
		go hub.Run()

		// Mark database as ready
		dbInitMutex.Lock()
		dbInitialized = true
		dbInitMutex.Unlock()

		routes.SetupRoutes(router, routes.Deps{
			DB:        db,
			Engine:    engine,
			Fetcher:   fetcher,
			Snapshots: snapshots,
			Hub:       hub,
			Archive:   archive,
			Logger:    zapLogger,
			JWTSecret: cfg.JWTSecret,
		})

		jobScheduler = scheduler.NewScheduler(db, engine, fetcher, snapshots, hub, archive, zapLogger)
		go jobScheduler.Start()

		log.Println("Application fully initialized with database")
	}()

	gracefulShutdown(server, func() {
		if jobScheduler != nil {
			jobScheduler.Stop()
		}
		if hub != nil {
			hub.Stop()
		}
		if archive != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			archive.Close(ctx)
		}
	})
}

// buildLogger creates the zap logger for the environment
func buildLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// runMigrations runs all database migrations
func runMigrations() error {
	db := config.DB

	if err := models.MigrateStockModels(db); err != nil {
		return err
	}
	if err := models.MigrateUserModels(db); err != nil {
		return err
	}
	if err := models.MigrateAlertModels(db); err != nil {
		return err
	}
	if err := models.MigrateAdminModels(db); err != nil {
		return err
	}

	return nil
}

// setupHealthEndpoints sets up health check endpoints
func setupHealthEndpoints(router *gin.Engine) {
	// Root endpoint
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "StockWatch Backend API",
			"version": "1.0.0",
		})
	})

	// Liveness probe - always returns OK if server is running
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// Readiness probe - checks if service is ready to receive traffic
	router.GET("/ready", func(c *gin.Context) {
		dbInitMutex.RLock()
		isDBReady := dbInitialized
		dbInitMutex.RUnlock()

		if !isDBReady {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Database not connected",
			})
			return
		}

		sqlDB, err := config.DB.DB()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Database connection error",
			})
			return
		}
		if err := sqlDB.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Database ping failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
		})
	})
}

// corsMiddleware returns a CORS middleware handler
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestLogger returns a request logging middleware
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip logging for health checks to reduce noise
		path := c.Request.URL.Path
		if path == "/health" || path == "/ready" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		log.Printf("%s %s %d %v", c.Request.Method, path, c.Writer.Status(), latency)
	}
}

// gracefulShutdown handles graceful shutdown of the server
func gracefulShutdown(server *http.Server, stopServices func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("Received signal %v, shutting down gracefully...", sig)

	stopServices()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
