package main

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"payment-recon/internal/config"
	"payment-recon/internal/engine"
	"payment-recon/internal/enrichment"
	"payment-recon/internal/handler"
	"payment-recon/internal/middleware"
	"payment-recon/internal/repository"
	"payment-recon/internal/service"
	"payment-recon/pkg/logger"
)

// @title Payment Channel Reconciliation API
// @version 1.0
// @description API for reconciling deposit/withdraw ledgers against payment channel statements

// @host localhost:8080
// @BasePath /
// @schemes http https

func main() {
	// .env is optional in production, handy in development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.App.LogLevel)
	logger.GetLogger().Info("Starting Payment Channel Reconciliation Service")

	// A broken mapping file can never resolve any upload; fail fast.
	mapping, err := config.LoadColumnMapping(cfg.App.MappingFile)
	if err != nil {
		logger.GetLogger().WithError(err).Fatal("Failed to load column mapping")
	}

	eng, err := engine.New(mapping)
	if err != nil {
		logger.GetLogger().WithError(err).Fatal("Failed to initialize reconciliation engine")
	}

	var repo repository.RunRepository
	if cfg.Database.Enabled {
		db, err := connectDB(cfg.Database)
		if err != nil {
			logger.GetLogger().WithError(err).Fatal("Failed to connect to database")
		}
		defer db.Close()
		repo = repository.NewRunRepository(db)
		logger.GetLogger().Info("Database connection established")
	} else {
		logger.GetLogger().Info("Running without database, run history disabled")
	}

	var enricher enrichment.Service
	if cfg.App.EnrichmentURL != "" {
		enricher = enrichment.NewHTTPService(cfg.App.EnrichmentURL)
		logger.GetLogger().WithField("url", cfg.App.EnrichmentURL).Info("Enrichment service configured")
	}

	reconService := service.NewReconciliationService(eng, repo, enricher)
	reconHandler := handler.NewReconciliationHandler(reconService)
	runHandler := handler.NewRunHandler(reconService)

	router := setupRouter(reconHandler, runHandler)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.GetLogger().WithField("address", addr).Info("Server starting")

	if err := router.Run(addr); err != nil {
		logger.GetLogger().WithError(err).Fatal("Failed to start server")
	}
}

func connectDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func setupRouter(reconHandler *handler.ReconciliationHandler, runHandler *handler.RunHandler) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/reconcile", reconHandler.Reconcile)

		runs := v1.Group("/runs")
		{
			runs.GET("", runHandler.ListRuns)
			runs.GET("/:run_id", runHandler.GetRun)
		}
	}

	return router
}
