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

	"golang.org/x/sync/errgroup"

	korehttp "github.com/socket-link/kore/internal/adapter/http"
	korenats "github.com/socket-link/kore/internal/adapter/nats"
	koreotel "github.com/socket-link/kore/internal/adapter/otel"
	"github.com/socket-link/kore/internal/adapter/postgres"
	"github.com/socket-link/kore/internal/adapter/ristretto"
	"github.com/socket-link/kore/internal/bus"
	"github.com/socket-link/kore/internal/config"
	"github.com/socket-link/kore/internal/logger"
	"github.com/socket-link/kore/internal/service"
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
	logger.Init(cfg.Logging)

	// SIGHUP re-reads the config file; a failed reload keeps the previous
	// config. Only the logging section takes effect without a restart.
	holder := config.NewHolder(cfg, config.DefaultConfigFile)
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			if err := holder.Reload(); err != nil {
				slog.Warn("config reload failed, keeping previous", "error", err)
				continue
			}
			logger.Init(holder.Get().Logging)
			slog.Info("config reloaded", "log_level", holder.Get().Logging.Level)
		}
	}()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"poll_interval", cfg.Meetings.PollInterval,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	msgr, err := korenats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = msgr.Close() }()

	meetingCache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer meetingCache.Close()

	metrics, err := koreotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Core ---

	b := bus.New(bus.WithMetrics(metrics))
	eventStore := postgres.NewEventStore(pool)
	meetingStore := postgres.NewMeetingStore(pool)
	dir := postgres.NewDirectory(pool)

	orch := service.NewMeetingOrchestrator(meetingStore, msgr, dir, b, cfg.Meetings.Channel)
	scheduler := service.NewMeetingScheduler(meetingStore, orch, cfg.Meetings.PollInterval)

	partRouter := service.NewParticipationRouter(b, meetingStore, dir, msgr,
		service.WithMeetingCache(meetingCache, cfg.Cache.MeetingTTL))
	partRouter.Start()

	eventRouter := service.NewEventRouter(b)
	eventRouter.StartRouting()

	scheduler.Start(ctx)
	defer scheduler.Stop()

	// --- HTTP ---

	handlers := korehttp.NewHandlers(orch, partRouter, eventStore)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           korehttp.NewRouter(handlers),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
