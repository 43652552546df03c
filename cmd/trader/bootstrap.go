package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"news-trading-bot/internal/book"
	"news-trading-bot/internal/classifier/claude"
	"news-trading-bot/internal/classifier/classifierobs"
	"news-trading-bot/internal/classifier/noop"
	"news-trading-bot/internal/classifier/openai"
	"news-trading-bot/internal/engine"
	"news-trading-bot/internal/engine/engineobs"
	"news-trading-bot/internal/gateway/gatewayobs"
	"news-trading-bot/internal/gateway/paper"
	"news-trading-bot/internal/gateway/venue"
	"news-trading-bot/internal/interfaces"
	"news-trading-bot/internal/journal"
	"news-trading-bot/internal/logger"
	"news-trading-bot/internal/metrics"
	"news-trading-bot/internal/orders"
	"news-trading-bot/internal/positions"
	"news-trading-bot/internal/source"
	"news-trading-bot/internal/store"
	"news-trading-bot/internal/trace"
	"news-trading-bot/internal/types"
)

// initializeSystem initializes env, logger, and tracer.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func loadConfig(ctx context.Context) (*store.Config, error) {
	path := "config.yaml"
	if v := os.Getenv("TRADER_CONFIG"); v != "" {
		path = v
	}
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// compressOldLogs compresses old journal files if retention is configured.
func compressOldLogs(ctx context.Context) {
	if v := os.Getenv("TRADER_LOG_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		if err := journal.CompressOlder(n); err != nil {
			logger.Warn(ctx, "Failed to compress old logs", "error", err)
		}
	}
}

// initializeAdapters builds one adapter per configured source.
func initializeAdapters(ctx context.Context, cfg *store.Config) map[string]interfaces.Adapter {
	adapters := make(map[string]interfaces.Adapter, len(cfg.Sources))
	for _, src := range cfg.Sources {
		switch src.Adapter {
		case "FEED":
			adapters[src.ID] = source.NewFeed(src, cfg.PollTimeout())
		default:
			adapters[src.ID] = source.NewStatic(src)
			logger.Info(ctx, "Using static mock feed", "source", src.ID)
		}
	}
	return adapters
}

// initializeGateway picks the venue for the configured mode and wraps
// it with observability.
func initializeGateway(ctx context.Context, cfg *store.Config) interfaces.Gateway {
	if cfg.Mode == "DRY_RUN" {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders are simulated against a paper venue")
		return gatewayobs.Wrap(paper.New(cfg))
	}
	logger.Info(ctx, "Using LIVE exchange gateway", "base_url", cfg.Gateway.BaseURL)
	return gatewayobs.Wrap(venue.New(cfg, os.Getenv("VENUE_API_KEY")))
}

// initializeClassifiers builds the classifier set from config, each
// wrapped with observability middleware.
func initializeClassifiers(ctx context.Context, cfg *store.Config) []interfaces.Classifier {
	out := make([]interfaces.Classifier, 0, len(cfg.Classifiers.Providers))
	for i, p := range cfg.Classifiers.Providers {
		id := fmt.Sprintf("%s-%d", p.Provider, i+1)
		var c interfaces.Classifier
		switch p.Provider {
		case "OPENAI":
			c = openai.New(id, p)
		case "CLAUDE":
			c = claude.New(id, p)
		default:
			c = noop.New(id)
			logger.Warn(ctx, "No provider configured for classifier slot - using noop", "slot", i+1)
		}
		out = append(out, classifierobs.Wrap(c))
	}
	return out
}

// initializeEngine wires mirror, positions, and order manager into the
// decision engine.
func initializeEngine(cfg *store.Config, mirror *book.Mirror, pos *positions.Store, gw interfaces.Gateway) interfaces.Engine {
	mgr := orders.New(cfg, gw, pos)
	return engineobs.Wrap(engine.New(cfg, mirror, pos, mgr))
}

// startMetricsServer exposes /metrics. Failures are logged, never fatal.
func startMetricsServer(ctx context.Context, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info(ctx, "Metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn(ctx, "Metrics server stopped", "error", err)
		}
	}()
	return srv
}

// runStreamDispatcher consumes the gateway push feed: book updates go
// to the mirror, fills to positions. Returns when the feed closes.
func runStreamDispatcher(ctx context.Context, events <-chan types.GatewayEvent, mirror *book.Mirror, pos *positions.Store) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				logger.Warn(ctx, "Gateway stream closed - book mirror is frozen")
				return
			}
			switch {
			case ev.Snapshot != nil:
				mirror.ApplySnapshot(*ev.Snapshot)
			case ev.Delta != nil:
				mirror.ApplyDelta(*ev.Delta)
			case ev.Fill != nil:
				pos.ApplyFill(*ev.Fill)
			}
		}
	}
}
