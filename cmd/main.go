package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/podium/internal/adapters/http/api"
	"github.com/okian/podium/internal/adapters/mq/publisher"
	"github.com/okian/podium/internal/adapters/mq/worker"
	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/adapters/scheduler"
	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/config"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 20 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithLevel(cfg.LogLevel)); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	log := logger.Get()
	metrics.Configure(
		metrics.WithHistogramBuckets(cfg.MetricsHistogramBuckets),
		metrics.WithConstLabels(cfg.MetricsConstLabels),
	)

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	pub, closePub, err := openPublisher(cfg, log)
	if err != nil {
		_ = store.Close()
		return err
	}
	defer closePub()

	svc := service.New(
		service.WithLogger(log),
		service.WithStore(store),
		service.WithPublisher(pub),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.EventQueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithDefaultPageLimit(cfg.DefaultPageLimit),
		service.WithMaxPageLimit(cfg.MaxPageLimit),
		service.WithNearDefaultLimit(cfg.NearDefaultLimit),
	)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("start service: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(stopCtx, "service stop failed", logger.Error(err))
		}
	}()

	if cfg.ResetSchedulerEnabled {
		sched, err := scheduler.New(svc,
			scheduler.WithSyncInterval(time.Duration(cfg.ResetSyncIntervalSec)*time.Second),
			scheduler.WithLogger(log.Named("scheduler")),
		)
		if err != nil {
			return fmt.Errorf("create reset scheduler: %w", err)
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start reset scheduler: %w", err)
		}
		defer func() {
			if err := sched.Shutdown(); err != nil {
				log.Error(context.Background(), "reset scheduler shutdown failed", logger.Error(err))
			}
		}()
	}

	go startSystemMetricsUpdater(ctx)

	apiServer := api.NewServer(svc,
		api.WithSubmitRateLimit(cfg.SubmitRateLimit, cfg.SubmitRateBurst),
		api.WithTrustedProxy(cfg.TrustedProxy),
		api.WithLogger(log.Named("http")),
	)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Handler(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("store", cfg.Store),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(context.Background(), "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	log.Info(shutdownCtx, "server stopped")
	return nil
}

// openStore builds the configured persistence backend.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Store {
	case config.StorePostgres:
		store, err := repository.NewPostgresStore(ctx, cfg.DatabaseURL,
			repository.WithMaxConns(int32(cfg.DBMaxConns)), //nolint:gosec // validated range
			repository.WithMinConns(int32(cfg.DBMinConns)), //nolint:gosec // validated range
		)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	default:
		return repository.NewMemoryStore(), nil
	}
}

// openPublisher returns the NATS publisher when configured and the log
// publisher otherwise. The returned func releases the connection.
func openPublisher(cfg *config.Config, log logger.Logger) (worker.Publisher, func(), error) {
	if cfg.NATSURL == "" {
		return publisher.NewLogPublisher(log.Named("events")), func() {}, nil
	}
	p, err := publisher.NewNATSPublisher(cfg.NATSURL,
		publisher.WithSubjectPrefix(cfg.NATSSubjectPrefix),
		publisher.WithLogger(log.Named("nats")),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats: %w", err)
	}
	return p, func() {
		if err := p.Close(); err != nil {
			log.Error(context.Background(), "nats close failed", logger.Error(err))
		}
	}, nil
}

// startSystemMetricsUpdater refreshes runtime gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateSystemMetrics()
		}
	}
}
