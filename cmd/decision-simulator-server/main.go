package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Artem7898/ai-decision-simulator/internal/logging"
	"github.com/Artem7898/ai-decision-simulator/internal/marketdata"
	"github.com/Artem7898/ai-decision-simulator/internal/observability"
	"github.com/Artem7898/ai-decision-simulator/internal/projection"
	"github.com/Artem7898/ai-decision-simulator/internal/runner"
	"github.com/Artem7898/ai-decision-simulator/internal/server"
	"github.com/Artem7898/ai-decision-simulator/internal/store"
	"github.com/Artem7898/ai-decision-simulator/pkg/constants"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	shutdownTimeout = 10 * time.Second
	purgeInterval   = time.Hour
)

func main() {
	configLocation := flag.String("config", constants.DefaultServerConfigFile, "path to server configuration file")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := server.LoadConfig(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load server configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging, "")
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics(constants.MetricsNamespace)

	var runs *store.Store
	if cfg.Database.Path != "" {
		runs, err = store.Open(ctx, cfg.Database.Path, metrics)
		if err != nil {
			logger.Fatal("failed to open run store",
				zap.String("op", "main"),
				zap.String("path", cfg.Database.Path),
				zap.Error(err),
			)
		}
		defer func() {
			if err := runs.Close(); err != nil {
				logger.Warn("failed to close run store",
					zap.String("op", "main"),
					zap.Error(err),
				)
			}
		}()
		go purgeExpired(ctx, logger, runs)
	} else {
		logger.Info("run storage disabled", zap.String("op", "main"))
	}

	provider, closeCache, err := newProvider(ctx, logger, cfg, runs, metrics)
	if err != nil {
		logger.Fatal("failed to configure external data cache",
			zap.String("op", "main"),
			zap.String("backend", cfg.Cache.Backend),
			zap.Error(err),
		)
	}
	defer closeCache()

	opts := runner.Options{
		Provider: provider,
		Metrics:  metrics,
		Defaults: projection.RunConfig{
			TimeHorizonYears: cfg.Simulation.TimeHorizonYears,
			SampleCount:      cfg.Simulation.SampleCount,
		},
		Timeout:     cfg.RunTimeout,
		Parallelism: cfg.Parallelism,
	}
	handlerOpts := server.Options{
		Metrics:       metrics,
		MaxUploadSize: cfg.UploadSizeBytes(),
		Version:       version,
	}
	if runs != nil {
		opts.Store = runs
		handlerOpts.Runs = runs
	}
	svc := runner.NewService(logger, opts)

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      server.NewHandler(logger, svc, handlerOpts),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RunTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("op", "main"),
			zap.String("address", cfg.Address),
			zap.String("version", version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logger.Error("server failed",
			zap.String("op", "main"),
			zap.Error(err),
		)
		return
	case <-ctx.Done():
		logger.Info("shutting down server", zap.String("op", "main"))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during server shutdown",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
	logger.Info("server exited", zap.String("op", "main"))
}

// newProvider wraps the reference data provider with the configured cache.
// The returned function releases the cache's resources.
func newProvider(ctx context.Context, logger *zap.Logger, cfg *server.Config, runs *store.Store, metrics *observability.Metrics) (marketdata.Provider, func(), error) {
	reference := marketdata.NewReferenceProvider()
	noop := func() {}

	var cache marketdata.Cache
	closeCache := noop
	switch cfg.Cache.Backend {
	case server.CacheBackendNone:
		return reference, noop, nil
	case server.CacheBackendMemory:
		cache = marketdata.NewMemoryCache()
	case server.CacheBackendSQLite:
		if runs == nil {
			return nil, noop, errors.New("sqlite cache requires a database path")
		}
		cache = runs.Cache("reference")
	case server.CacheBackendRedis:
		redisCache := marketdata.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := redisCache.Ping(pingCtx); err != nil {
			_ = redisCache.Close()
			return nil, noop, fmt.Errorf("ping redis at %s: %w", cfg.Cache.RedisAddr, err)
		}
		cache = redisCache
		closeCache = func() {
			if err := redisCache.Close(); err != nil {
				logger.Warn("failed to close redis cache",
					zap.String("op", "main"),
					zap.Error(err),
				)
			}
		}
	default:
		return nil, noop, fmt.Errorf("unsupported cache backend %q", cfg.Cache.Backend)
	}

	logger.Info("caching external data",
		zap.String("op", "main"),
		zap.String("backend", cfg.Cache.Backend),
		zap.Duration("ttl", cfg.Cache.TTL),
	)
	return marketdata.NewCachingProvider(logger, reference, cache, cfg.Cache.TTL, metrics), closeCache, nil
}

// purgeExpired drops expired cache rows until ctx is done.
func purgeExpired(ctx context.Context, logger *zap.Logger, runs *store.Store) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := runs.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("failed to purge expired cache entries",
					zap.String("op", "main.purgeExpired"),
					zap.Error(err),
				)
				continue
			}
			logger.Debug("purged expired cache entries",
				zap.String("op", "main.purgeExpired"),
				zap.Int64("rows", n),
			)
		}
	}
}
