package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hollyoak/chorebank/internal/backup"
	"github.com/hollyoak/chorebank/internal/config"
	"github.com/hollyoak/chorebank/internal/database"
	"github.com/hollyoak/chorebank/internal/generator"
	"github.com/hollyoak/chorebank/internal/logging"
	"github.com/hollyoak/chorebank/internal/metrics"
	"github.com/hollyoak/chorebank/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := metrics.Register(); err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	backupCfg := backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.Backup.S3Endpoint,
			Bucket:    cfg.Backup.S3Bucket,
			Region:    cfg.Backup.S3Region,
			AccessKey: cfg.Backup.AccessKey,
			SecretKey: cfg.Backup.SecretKey,
		},
		DBPath:       cfg.DBPath,
		Passphrase:   cfg.Backup.Passphrase,
		ScheduleHour: cfg.GenerationHour,
	}

	srv := server.New(db, backupCfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := generator.NewRunner(srv.Generator(), logger.With("component", "runner"), cfg.GenerationHour)
	runner.Start(ctx)
	defer runner.Stop()

	srv.BackupManager().Start(ctx)
	defer srv.BackupManager().Stop()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("chorebank listening", "port", cfg.Port)
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
