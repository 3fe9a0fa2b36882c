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

	"github.com/dapperAuteur/my-health-blueprint/internal/backup"
	"github.com/dapperAuteur/my-health-blueprint/internal/database"
	"github.com/dapperAuteur/my-health-blueprint/internal/email"
	"github.com/dapperAuteur/my-health-blueprint/internal/logging"
	"github.com/dapperAuteur/my-health-blueprint/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("BLUEPRINT_LOG_LEVEL"))

	port := os.Getenv("BLUEPRINT_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("BLUEPRINT_DB_PATH")
	if dbPath == "" {
		dbPath = "blueprint.db"
	}

	baseURL := os.Getenv("BLUEPRINT_BASE_URL")
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%s", port)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	emailClient := email.NewClient(
		os.Getenv("BLUEPRINT_POSTMARK_TOKEN"),
		os.Getenv("BLUEPRINT_FROM_EMAIL"),
		baseURL,
	)

	srv := server.New(db, emailClient, logger)

	backupMgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  os.Getenv("BLUEPRINT_S3_ENDPOINT"),
			Bucket:    os.Getenv("BLUEPRINT_S3_BUCKET"),
			Region:    os.Getenv("BLUEPRINT_S3_REGION"),
			AccessKey: os.Getenv("BLUEPRINT_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("BLUEPRINT_S3_SECRET_KEY"),
		},
		Passphrase:    os.Getenv("BLUEPRINT_BACKUP_PASSPHRASE"),
		ScheduleHour:  envInt("BLUEPRINT_BACKUP_HOUR", 3),
		RetentionDays: envInt("BLUEPRINT_BACKUP_RETENTION_DAYS", 30),
	}, db, logger.With("component", "backup"))
	backupMgr.Start(context.Background())
	defer backupMgr.Stop()

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Background cleanup goroutine
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.TokenStore().DeleteExpired(time.Now().UTC()); err != nil {
					logger.Error("cleanup expired tokens", "error", err)
				} else if n > 0 {
					logger.Info("cleaned up expired tokens", "count", n)
				}
				srv.RateLimiter().Cleanup()
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("blueprint service starting", "addr", ":"+port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cleanupCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
