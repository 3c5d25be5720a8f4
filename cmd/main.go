package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/scoreline/internal/adapters/cache"
	"github.com/okian/scoreline/internal/adapters/http/api"
	"github.com/okian/scoreline/internal/adapters/http/swagger"
	"github.com/okian/scoreline/internal/adapters/repository"
	"github.com/okian/scoreline/internal/adapters/repository/postgres"
	"github.com/okian/scoreline/internal/adapters/scheduler"
	service "github.com/okian/scoreline/internal/app"
	"github.com/okian/scoreline/internal/config"
	"github.com/okian/scoreline/pkg/logger"
	"github.com/okian/scoreline/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 15 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Custom system gauges replace the default Go collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	configureMetrics(cfg)

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "scoreline exited", logger.Error(err))
		os.Exit(1)
	}
}

// application holds the wired components of one process.
type application struct {
	svc     *service.Service
	sched   *scheduler.Scheduler
	handler http.Handler
	closers []func() error
}

func (a *application) close(ctx context.Context, log logger.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn(ctx, "close failed", logger.Error(err))
		}
	}
}

// run serves HTTP until ctx is cancelled, then shuts down gracefully.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	app, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.close(context.Background(), log)

	app.sched.Start()
	go startSystemMetricsUpdater(ctx, metrics.RefreshInterval())
	go startServiceMetricsUpdater(ctx, app.svc, log, metrics.RefreshInterval())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// build wires store, cache, service, scheduler and HTTP routes from cfg.
// Nothing is started.
func build(ctx context.Context, cfg *config.Config, log logger.Logger) (*application, error) {
	app := &application{}
	built := false
	defer func() {
		if !built {
			app.close(ctx, log)
		}
	}()
	checks := make(map[string]api.Pinger)

	store, err := openStore(ctx, cfg, app, checks)
	if err != nil {
		return nil, err
	}
	statsCache, err := openCache(ctx, cfg, app, checks)
	if err != nil {
		return nil, err
	}

	app.svc = service.New(store,
		service.WithLogger(log.Named("service")),
		service.WithStatsCache(statsCache),
		service.WithOperationTimeout(cfg.OperationTimeout),
		service.WithLeaderboardLimits(cfg.DefaultLeaderboardLimit, cfg.MaxLeaderboardLimit),
		service.WithDefaultMinPredictions(cfg.DefaultMinPredictions),
	)

	sched, err := scheduler.New(scheduler.WithLogger(log.Named("scheduler")))
	if err != nil {
		return nil, err
	}
	app.sched = sched
	app.closers = append(app.closers, sched.Stop)
	if cfg.AutoLockInterval > 0 {
		if err := app.sched.Add(ctx, scheduler.AutoLockJob(app.svc, cfg.AutoLockInterval, cfg.AutoLockMinutesBefore)); err != nil {
			return nil, err
		}
	}
	if cfg.ScoreSweepInterval > 0 {
		if err := app.sched.Add(ctx, scheduler.ScoreSweepJob(app.svc, cfg.ScoreSweepInterval)); err != nil {
			return nil, err
		}
	}

	app.handler = api.NewServer(app.svc,
		api.WithLogger(log.Named("http")),
		api.WithAllowedOrigins(cfg.AllowedOrigins),
		api.WithHealthChecks(checks),
		api.WithDocs(swagger.Register),
	).Handler(ctx)
	built = true
	return app, nil
}

func openStore(ctx context.Context, cfg *config.Config, app *application, checks map[string]api.Pinger) (repository.Store, error) {
	if cfg.Store != config.StorePostgres {
		mem := repository.NewMemoryStore()
		app.closers = append(app.closers, mem.Close)
		return mem, nil
	}
	pg, err := postgres.New(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, pg.Close)
	if err := pg.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	checks["postgres"] = pg
	return pg, nil
}

func openCache(ctx context.Context, cfg *config.Config, app *application, checks map[string]api.Pinger) (cache.StatsCache, error) {
	if cfg.RedisURL == "" {
		return cache.NewMemory(cache.WithTTL(cfg.StatsCacheTTL)), nil
	}
	client, err := cache.Dial(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, client.Close)
	rc := cache.NewRedis(client, cache.WithTTL(cfg.StatsCacheTTL))
	checks["redis"] = rc
	return rc, nil
}

// configureMetrics rebuilds the metrics registry from cfg.
func configureMetrics(cfg *config.Config) {
	metrics.Configure(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithRefreshInterval(cfg.MetricsRefreshInterval),
	)
}

// startSystemMetricsUpdater refreshes runtime gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater publishes table sizes until ctx is done.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service, log logger.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc, log)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

func updateServiceMetrics(ctx context.Context, svc *service.Service, log logger.Logger) {
	if err := svc.PublishStoreRecords(ctx); err != nil {
		log.Warn(ctx, "store record gauges not updated", logger.Error(err))
	}
}
