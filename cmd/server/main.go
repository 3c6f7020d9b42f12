package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/scmmishra/linkpulse/internal/analytics"
	"github.com/scmmishra/linkpulse/internal/cache"
	"github.com/scmmishra/linkpulse/internal/config"
	"github.com/scmmishra/linkpulse/internal/filter"
	"github.com/scmmishra/linkpulse/internal/geo"
	"github.com/scmmishra/linkpulse/internal/handlers"
	"github.com/scmmishra/linkpulse/internal/ledger"
	"github.com/scmmishra/linkpulse/internal/links"
	"github.com/scmmishra/linkpulse/internal/logging"
	"github.com/scmmishra/linkpulse/internal/messaging"
	"github.com/scmmishra/linkpulse/internal/shortener"
	"github.com/scmmishra/linkpulse/internal/slug"
	"github.com/scmmishra/linkpulse/internal/stats"
	"github.com/scmmishra/linkpulse/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	geoReader, err := geo.Open(cfg.GeoIPPath)
	if err != nil {
		logger.Warn("geoip database unavailable, local lookups disabled", zap.Error(err))
		geoReader, _ = geo.Open("")
	}
	defer geoReader.Close()

	resolver := geo.NewResolver(geo.Options{
		Reader:    geoReader,
		APIURL:    cfg.GeoAPIURL,
		Timeout:   cfg.GeoTimeout,
		CacheSize: cfg.GeoCacheSize,
		CacheTTL:  cfg.GeoCacheTTL,
		Logger:    logger.Named("geo"),
	})

	var open func() (store.Backend, error)
	if cfg.Durable() {
		open = func() (store.Backend, error) { return store.OpenSQLite(cfg.DBPath) }
	}
	storage := store.NewCoordinator(context.Background(), open, store.NewMemoryStore(), logger.Named("store"))

	gen, err := slug.New(cfg.CodeLength, cfg.MinAliasLength)
	if err != nil {
		logger.Fatal("code generator", zap.Error(err))
	}
	linkCache, err := cache.New(cfg.CacheSize)
	if err != nil {
		logger.Fatal("cache", zap.Error(err))
	}

	registry := links.NewRegistry(storage, gen, links.Options{
		Cache:  linkCache,
		Issued: filter.NewIssuedCodes(cfg.BloomCapacity, cfg.BloomFPRate),
		Logger: logger.Named("links"),
	})
	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 30*time.Second)
	if err := registry.Seed(seedCtx); err != nil {
		logger.Warn("seed issued codes", zap.Error(err))
	}
	cancelSeed()

	clickLedger := ledger.New(storage, resolver, registry.Locks(), cfg.Retention)
	aggregator := stats.NewAggregator(registry, clickLedger, cfg.BaseURL)
	collector := analytics.NewCollector(clickLedger, cfg.BufferSize, logger.Named("collector"))

	bus := messaging.NewBus(int64(cfg.BufferSize), logger)
	svc := shortener.New(registry, clickLedger, aggregator, collector, shortener.Options{
		Publish: messaging.NewPublishFunc[messaging.LinkCreated](bus, messaging.TopicLinkCreated),
		Logger:  logger,
	})

	group := messaging.NewConsumerGroup(bus, logger.Named("consumers"))
	group.Add(messaging.NewConsumer(bus, messaging.TopicLinkCreated, svc.HandleLinkCreated, logger.Named("qr")))

	consumerCtx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()
	if err := group.Start(consumerCtx); err != nil {
		logger.Fatal("start consumers", zap.Error(err))
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: handlers.NewRouter(svc, storage, handlers.RouterConfig{
			CreateRPS:   cfg.CreateRPS,
			CreateBurst: cfg.CreateBurst,
		}, logger.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("linkpulse listening",
			zap.String("port", cfg.Port),
			zap.String("storage", storage.Mode()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	// Drain buffered clicks before the store closes.
	collector.Shutdown()

	if err := group.Shutdown(); err != nil {
		logger.Error("consumer shutdown", zap.Error(err))
	}
	if err := storage.Close(); err != nil {
		logger.Error("storage close", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
