package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"papertrail/config"
	"papertrail/lifecycle"
	"papertrail/store"
	"papertrail/storage"
)

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.APIAuthToken == "" {
		logging.Warn("API_AUTH_TOKEN is not set; only session cookies can access the API")
	}
	if !cfg.DatabaseConfigured() {
		logging.Fatal("DATABASE_URL is missing. Copy .env.example to .env and adjust credentials.")
	}

	// Datenbank
	db, err := store.Open(cfg, logging)
	if err != nil {
		logging.Fatal("Failed to connect to papers database", zap.Error(err))
	}
	defer db.Close()

	if cfg.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		if err := db.Migrate(ctx); err != nil {
			logging.Fatal("Database migration failed", zap.Error(err))
		}
		cancel()
	}

	// PDF-Speicher ist optional
	var files lifecycle.FileStore
	if cfg.S3Configured() {
		s3Client, err := storage.NewS3Client(context.Background(), cfg)
		if err != nil {
			logging.Fatal("S3 client creation failed", zap.Error(err))
		}
		files = storage.NewPDFStore(s3Client, cfg.S3Endpoint, cfg.S3Bucket, logging)
		logging.Info("PDF storage enabled", zap.String("bucket", cfg.S3Bucket))
	} else {
		logging.Info("PDF storage disabled; S3_* settings incomplete")
	}

	svc := lifecycle.NewService(db, files, logging, lifecycle.Options{
		DefaultActorID:    cfg.DefaultActorID,
		ListLimit:         cfg.ListLimit,
		AbstractMaxLength: cfg.AbstractMaxLen,
		PDFMaxBytes:       cfg.PDFMaxBytes,
	})

	router := newRouter(cfg, svc, db, logging)

	// Papierkorb-Bereinigung
	cronScheduler := cron.New()
	if cfg.PurgeSchedule != "" {
		_, err := cronScheduler.AddFunc(cfg.PurgeSchedule, func() {
			logging.Info("Running scheduled trash purge...")
			if _, err := svc.PurgeDeleted(context.Background(), cfg.TrashRetention()); err != nil {
				logging.Error("Trash purge failed", zap.Error(err))
			}
		})
		if err != nil {
			logging.Fatal("Invalid PURGE_SCHEDULE", zap.String("schedule", cfg.PurgeSchedule), zap.Error(err))
		}
		cronScheduler.Start()
		logging.Info("Trash purge scheduled",
			zap.String("schedule", cfg.PurgeSchedule),
			zap.Int("retention_days", cfg.TrashRetentionDays))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("Failed to run server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info("Shutting down server...")

	<-cronScheduler.Stop().Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Server shutdown failed", zap.Error(err))
	}
}
