package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/smartpantry/smartpantry/internal/backup"
	"github.com/smartpantry/smartpantry/internal/database"
	"github.com/smartpantry/smartpantry/internal/inference"
	"github.com/smartpantry/smartpantry/internal/logging"
	"github.com/smartpantry/smartpantry/internal/push"
	"github.com/smartpantry/smartpantry/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("PANTRY_LOG_LEVEL"), os.Getenv("PANTRY_LOG_FORMAT"))

	port := envOr("PANTRY_PORT", "8080")
	dbPath := envOr("PANTRY_DB_PATH", "pantry.db")

	jwtSecret := os.Getenv("PANTRY_JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("PANTRY_JWT_SECRET must be set")
		os.Exit(1)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("failed to open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	cfg := server.Config{
		JWTSecret:      jwtSecret,
		GoogleClientID: os.Getenv("PANTRY_GOOGLE_CLIENT_ID"),
		CORSOrigin:     envOr("PANTRY_CORS_ORIGIN", "*"),
		Inference: inference.Config{
			GenerateURL: envOr("PANTRY_INFERENCE_URL", "http://localhost:8000/text-generation"),
			AnalysisURL: envOr("PANTRY_ANALYSIS_URL", "http://localhost:8001"),
		},
		Push: push.Config{
			VAPIDPublicKey:  os.Getenv("PANTRY_VAPID_PUBLIC_KEY"),
			VAPIDPrivateKey: os.Getenv("PANTRY_VAPID_PRIVATE_KEY"),
		},
		Backup: backup.Config{
			S3: backup.S3Config{
				Endpoint:  os.Getenv("PANTRY_BACKUP_S3_ENDPOINT"),
				Bucket:    os.Getenv("PANTRY_BACKUP_S3_BUCKET"),
				Region:    envOr("PANTRY_BACKUP_S3_REGION", "us-east-1"),
				AccessKey: os.Getenv("PANTRY_BACKUP_S3_ACCESS_KEY"),
				SecretKey: os.Getenv("PANTRY_BACKUP_S3_SECRET_KEY"),
			},
			DBPath:        dbPath,
			Interval:      envDuration("PANTRY_BACKUP_INTERVAL", 24*time.Hour),
			RetentionDays: envInt("PANTRY_BACKUP_RETENTION_DAYS", 30),
		},
	}

	srv := server.New(db, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sched := srv.PushScheduler(); sched != nil {
		sched.Start(ctx)
		defer sched.Stop()
	}
	if mgr := srv.BackupManager(); mgr.Enabled() {
		mgr.Start(ctx)
		defer mgr.Stop()
	}

	// Periodically drop stale rate limiter entries.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 130 * time.Second, // inference proxying can be slow
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("smartpantry listening", "addr", fmt.Sprintf("http://localhost:%s", port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
