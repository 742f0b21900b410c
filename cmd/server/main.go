package main

import (
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jengzang/wayfarer-backend-go/internal/api"
	"github.com/jengzang/wayfarer-backend-go/internal/config"
	"github.com/jengzang/wayfarer-backend-go/internal/database"
	"github.com/jengzang/wayfarer-backend-go/internal/export"
	"github.com/jengzang/wayfarer-backend-go/internal/handler"
	"github.com/jengzang/wayfarer-backend-go/internal/repository"
	"github.com/jengzang/wayfarer-backend-go/internal/scheduler"
	"github.com/jengzang/wayfarer-backend-go/internal/service"
	"github.com/jengzang/wayfarer-backend-go/internal/weather"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer logger.Sync()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		logger.Fatal("failed to create data directory", zap.Error(err))
	}

	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := database.NewMigrationManager(db, logger).RunMigrations(); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	trackRepo := repository.NewTrackRepository(db)
	editRepo := repository.NewEditRepository(db)
	eventRepo := repository.NewLifeEventRepository(db)
	jobRepo := repository.NewExportJobRepository(db)
	weatherRepo := repository.NewWeatherCacheRepository(db)

	sched := scheduler.NewPool(cfg.Scheduler.Workers, cfg.Scheduler.QueueSize, logger)
	defer sched.Stop()

	auditService := service.NewAuditService(trackRepo, cfg.AntiCheat, logger)
	stayService := service.NewStayService(trackRepo, eventRepo, cfg.Stay, logger)
	trackService := service.NewTrackService(trackRepo, auditService, stayService, sched, cfg.Ingest, logger)
	editService := service.NewEditService(editRepo, trackRepo)
	statsService := service.NewStatsService(trackRepo)
	eventService := service.NewLifeEventService(eventRepo)

	weatherClient := weather.NewClient(cfg.Weather, logger)
	weatherService := weather.NewService(weatherRepo, weatherClient, cfg.Weather.GeohashPrecision, logger)

	exportService := export.NewService(jobRepo, trackRepo, weatherService, sched,
		cfg.Export, cfg.ExportDir, logger)

	router := api.SetupRouter(cfg, logger, api.Handlers{
		Track:     handler.NewTrackHandler(trackService, editService),
		Stats:     handler.NewStatsHandler(statsService),
		LifeEvent: handler.NewLifeEventHandler(eventService),
		Export:    handler.NewExportHandler(exportService),
	})

	logger.Info("server starting", zap.String("port", cfg.Port))
	if err := router.Run(cfg.Port); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
