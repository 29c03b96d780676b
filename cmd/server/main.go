package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/testdeck/testdeck/internal/api"
	"github.com/testdeck/testdeck/internal/config"
	"github.com/testdeck/testdeck/internal/logger"
	"github.com/testdeck/testdeck/internal/session"
	"github.com/testdeck/testdeck/internal/storage"
	"github.com/testdeck/testdeck/internal/store"
)

func main() {
	cfg := config.Load()

	// Initialize logger
	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	log.Info("===========================================")
	log.Info("Testdeck Server Starting")
	log.Info("===========================================")
	log.Info("configuration loaded")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("capacity_bytes=%d", cfg.CapacityBytes)
	log.Debug("soft_limit_bytes=%d", cfg.SoftLimitBytes)
	log.Debug("backup_limit_bytes=%d", cfg.BackupLimitBytes)
	log.Debug("backup_interval=%s", cfg.BackupInterval)
	log.Debug("autosave_delay=%s", cfg.AutosaveDelay)
	log.Debug("retention_days=%d", cfg.RetentionDays)

	// Open the slot namespace
	ns, err := storage.Open(cfg.DBPath, cfg.CapacityBytes)
	if err != nil {
		log.Error("failed to open storage: %v", err)
		os.Exit(1)
	}

	// Build the store and load persisted state
	st := store.New(ns, store.Options{
		SoftLimitBytes:   cfg.SoftLimitBytes,
		BackupLimitBytes: cfg.BackupLimitBytes,
		BackupInterval:   cfg.BackupInterval,
		AutosaveDelay:    cfg.AutosaveDelay,
		RetentionDays:    cfg.RetentionDays,
	})
	if err := st.Load(); err != nil {
		log.Error("failed to load store: %v", err)
		ns.Close()
		os.Exit(1)
	}

	// One-shot legacy migration; a failure leaves the legacy data in
	// place and the server still starts.
	if migrated, err := st.MigrateLegacy(); err != nil {
		log.Warn("legacy migration failed: %v", err)
	} else if migrated > 0 {
		log.Info("migrated %d legacy cards", migrated)
	}

	eng := session.New(st)
	srv := api.NewServer(st, eng)

	// Configure HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server
	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server
	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	// Flush pending mutations and release the namespace
	log.Debug("flushing store")
	if err := st.Close(); err != nil {
		log.Error("store close error: %v", err)
	}

	log.Info("===========================================")
	log.Info("Testdeck Server Stopped")
	log.Info("===========================================")
}
