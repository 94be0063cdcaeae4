package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Landmarklens/ImobiliareScraper/api"
	"github.com/Landmarklens/ImobiliareScraper/config"
	"github.com/Landmarklens/ImobiliareScraper/logging"
	"github.com/Landmarklens/ImobiliareScraper/metrics"
	"github.com/Landmarklens/ImobiliareScraper/pricing"
	"github.com/Landmarklens/ImobiliareScraper/scheduler"
	"github.com/Landmarklens/ImobiliareScraper/services"
	"github.com/Landmarklens/ImobiliareScraper/storage"
	"github.com/Landmarklens/ImobiliareScraper/workers"
)

const (
	alertWorkerInterval     = 15 * time.Minute
	retentionWorkerInterval = 6 * time.Hour
	shutdownTimeout         = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logWriter, err := logging.Setup(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		logger.Warn().Err(err).Msg("file logging disabled")
	}
	if logWriter != nil {
		defer logWriter.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("database", maskConnectionString(cfg.DatabaseURL)).
		Str("addr", cfg.HTTPAddr).
		Msg("starting price tracker daemon")

	retention := pricing.Retention{
		MaxEntries: cfg.Tracker.HistoryMaxEntries,
		MaxAge:     cfg.Tracker.HistoryMaxAge,
	}

	pgStore, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL, retention)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pgStore.Close()

	opsStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open operational store: %w", err)
	}
	defer opsStore.Close()

	recorder := metrics.NewRecorder()

	reconciler := services.NewReconciler(pgStore, cfg.Tracker, logger)
	reconciler.SetJournal(opsStore)
	reconciler.SetMetrics(recorder)

	queries := services.NewQueryService(pgStore, logger)

	alertWorker := workers.NewAlertWorker(pgStore, cfg.Tracker.AlertWindow, logger)
	alertWorker.SetMetrics(recorder)
	go alertWorker.Run(ctx, alertWorkerInterval)

	retentionWorker := workers.NewRetentionWorker(pgStore, logger)
	retentionWorker.SetMetrics(recorder)
	go retentionWorker.Run(ctx, retentionWorkerInterval)

	sched := scheduler.New(cfg, opsStore, logger)
	sched.SetWorkers(alertWorker, retentionWorker)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	server := api.NewServer(reconciler, queries, opsStore, logger)
	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("daemon stopped")
	return nil
}

// maskConnectionString hides credentials before the URL hits the logs.
func maskConnectionString(connString string) string {
	u, err := url.Parse(connString)
	if err != nil {
		return "<unparseable>"
	}
	if u.User != nil {
		u.User = url.User(u.User.Username())
	}
	return u.Redacted()
}
