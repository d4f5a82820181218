package main

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sitemonitor/config"
	"sitemonitor/db"
	"sitemonitor/handlers"
	"sitemonitor/middleware"
	"sitemonitor/services"
	"sitemonitor/store"
)

func newLogger(appEnv string) *zap.Logger {
	if appEnv == "development" {
		return zap.Must(zap.NewDevelopment())
	}
	return zap.Must(zap.NewProduction())
}

func runMigrations(logger *zap.Logger) {
	sqlBytes, err := os.ReadFile("schema.sql")
	if err != nil {
		logger.Fatal("failed to read schema.sql", zap.Error(err))
	}

	if _, err := db.GetDB().Exec(string(sqlBytes)); err != nil {
		logger.Fatal("failed to apply schema", zap.Error(err))
	}
	logger.Info("database schema verified")
}

func main() {
	cfg := config.Load()
	logger := newLogger(cfg.AppEnv)
	defer func() { _ = logger.Sync() }()

	if err := db.InitDB(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	runMigrations(logger)

	if err := os.MkdirAll(cfg.ReportsDir, 0o755); err != nil {
		logger.Fatal("failed to create reports directory",
			zap.String("dir", cfg.ReportsDir),
			zap.Error(err),
		)
	}

	st := store.NewPostgres(db.GetDB())
	notifier := services.NewNotifier(logger, cfg)
	reports := services.NewReports(logger, st, cfg, notifier)

	if cfg.ReportRetention > 0 {
		sweeper := services.NewSweeper(logger, st, cfg.ReportRetention)
		go func() {
			if err := sweeper.Run(context.Background()); err != nil {
				logger.Error("report sweeper stopped", zap.Error(err))
			}
		}()
		logger.Info("report retention sweeper started",
			zap.Duration("retention", cfg.ReportRetention),
		)
	}

	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(logger), gin.Recovery())

	h := handlers.New(logger, reports, st)

	r.POST("/trigger_report", h.TriggerReport)
	r.GET("/get_report/:report_id", h.GetReport)

	// Read-only stats
	api := r.Group("/api")
	{
		api.GET("/stats/overview", h.StatsOverview)
	}

	logger.Info("server starting", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
