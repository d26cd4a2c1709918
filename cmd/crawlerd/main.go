package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/andrewbelles/ml-shuffle/internal/adapters/acousticclient"
	"github.com/andrewbelles/ml-shuffle/internal/adapters/admin"
	"github.com/andrewbelles/ml-shuffle/internal/adapters/authorityclient"
	"github.com/andrewbelles/ml-shuffle/internal/adapters/catalogclient"
	"github.com/andrewbelles/ml-shuffle/internal/adapters/sink"
	"github.com/andrewbelles/ml-shuffle/internal/adapters/sqlite"
	"github.com/andrewbelles/ml-shuffle/internal/adapters/tagclient"
	"github.com/andrewbelles/ml-shuffle/internal/config"
	"github.com/andrewbelles/ml-shuffle/internal/core/services"
	"github.com/andrewbelles/ml-shuffle/internal/httpx"
	"github.com/andrewbelles/ml-shuffle/internal/metrics"
	"github.com/andrewbelles/ml-shuffle/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	store, err := sqlite.New(cfg.Persistence.DBPath)
	if err != nil {
		logger.Fatal("init store", zap.Error(err))
	}
	defer store.Close()

	httpClient := httpx.NewClient(httpx.TransportConfig{
		Timeout:            cfg.HTTP.Timeout,
		ConnectTimeout:     cfg.HTTP.ConnectTimeout,
		PoolMaxIdlePerHost: cfg.HTTP.PoolMaxIdlePerHost,
		PoolIdleTimeout:    cfg.HTTP.PoolIdleTimeout,
		MaxRedirects:       cfg.HTTP.MaxRedirects,
	})
	executor := httpx.NewExecutor(httpClient)
	retry := httpx.Config{MaxRetries: cfg.Retry.MaxAttempts, BaseBackoff: cfg.Retry.BaseBackoff}

	catalog := catalogclient.New(httpClient, executor, retry,
		cfg.Catalog.ClientID, cfg.Catalog.ClientSecret, cfg.Catalog.TokenURL, cfg.Catalog.APIBase)
	authority := authorityclient.New(executor, retry, cfg.Authority.BaseURL, cfg.Identity.UserAgent)
	acoustic := acousticclient.New(executor, retry, cfg.Acoustic.BaseURL)
	tags := tagclient.New(executor, retry, cfg.Tag.BaseURL, cfg.Tag.APIKey)
	rawSink := sink.New(cfg.Persistence.RawStoreRoot, 3)

	linkResolver := services.NewLinkResolver(store, authority)
	featureExtractor := services.NewFeatureExtractor(store, acoustic, tags, rawSink)
	feeder := services.NewFeeder(store, catalog, rawSink)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	limits := worker.Limits{
		AuthorityConcurrency: cfg.Limits.AuthorityConcurrency,
		AuthorityInterval:    time.Duration(cfg.Limits.AuthorityIntervalMs) * time.Millisecond,
		FeatureConcurrency:   cfg.Limits.FeatureConcurrency,
		QueuePoll:            time.Duration(cfg.Limits.QueuePollMs) * time.Millisecond,
		FeedMinPendingLinks:  int64(cfg.Limits.FeedMinPendingLinks),
		FeedSearchPageSize:   cfg.Limits.FeedSearchPageSize,
	}
	crawler := worker.New(store, linkResolver, featureExtractor, feeder, catalog, limits, logger, collector)

	adminHandler := admin.NewHandler(registry)
	adminServer := &http.Server{
		Addr:              cfg.Admin.Addr,
		Handler:           adminHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adminErr := make(chan error, 1)
	go func() {
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			adminErr <- err
			return
		}
		adminErr <- nil
	}()

	crawlerDone := make(chan error, 1)
	go func() { crawlerDone <- crawler.Run(ctx) }()

	select {
	case <-ctx.Done():
		logger.Info("crawlerd.shutdown", zap.String("reason", "signal"))
	case err := <-crawlerDone:
		if err != nil {
			logger.Error("crawlerd.crawler_exit", zap.Error(err))
		}
		stop()
	case err := <-adminErr:
		if err != nil {
			logger.Error("crawlerd.admin_exit", zap.Error(err))
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("admin server shutdown", zap.Error(err))
	}
	<-crawlerDone
	logger.Info("crawlerd.exit")
}

func newLogger(cfg config.Logging) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err == nil {
		zapCfg.Level = level
	}
	return zapCfg.Build()
}
