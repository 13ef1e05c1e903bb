// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Shivanand-hulikatti/event-registration-engine/internal/config"
	"github.com/Shivanand-hulikatti/event-registration-engine/internal/database"
	"github.com/Shivanand-hulikatti/event-registration-engine/internal/handler"
	"github.com/Shivanand-hulikatti/event-registration-engine/internal/logging"
	"github.com/Shivanand-hulikatti/event-registration-engine/internal/metrics"
	"github.com/Shivanand-hulikatti/event-registration-engine/internal/notify"
	"github.com/Shivanand-hulikatti/event-registration-engine/internal/repository"
	"github.com/Shivanand-hulikatti/event-registration-engine/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Storage ───────────────────────────────────────────────────────
	var store service.Store
	switch cfg.Store {
	case config.StoreMemory:
		store = repository.NewMemoryStore()
		log.Warn("using in-memory store; data is lost on exit")
	default:
		pool, err := database.NewPool(ctx, cfg.DB, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		store = repository.NewPostgres(pool)
		log.Info("connected to postgres")
	}

	// ── 2. Metrics and notifications ─────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	dispatcher := notify.NewDispatcher(notify.LogSender(log),
		notify.WithLogger(log),
		notify.WithMetrics(m),
		notify.WithConcurrency(cfg.Notify.Concurrency),
		notify.WithMaxAttempts(cfg.Notify.MaxAttempts),
		notify.WithTimeout(cfg.Notify.Timeout),
	)

	// ── 3. Wire up services ──────────────────────────────────────────────
	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithNotifier(dispatcher),
		service.WithJoinAttempts(cfg.TeamJoinAttempts),
	}
	events := service.NewEventService(store, opts...)
	inventory := service.NewInventory(store, store, opts...)
	ledger := service.NewLedger(store, store, store, inventory, opts...)
	teams := service.NewTeamService(store, store, ledger, opts...)

	router := handler.NewRouter(handler.RouterConfig{
		Handler:     handler.New(events, inventory, ledger, teams, log),
		Log:         log,
		CORSOrigins: cfg.CORSOrigins,
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	})

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Warn("pending notifications dropped", "error", err)
	}
	log.Info("server stopped")
	return nil
}
