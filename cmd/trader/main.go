package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"news-trading-bot/internal/book"
	"news-trading-bot/internal/consensus"
	"news-trading-bot/internal/journal"
	"news-trading-bot/internal/logger"
	"news-trading-bot/internal/monitor"
	"news-trading-bot/internal/positions"
	"news-trading-bot/internal/trace"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	must(initializeSystem())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfig(ctx)
	must(err)

	compressOldLogs(ctx)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	gw := initializeGateway(ctx, cfg)
	mirror := book.New()
	pos := positions.New()

	// Seed positions from the venue before any decision runs.
	if venuePos, err := gw.Positions(ctx); err != nil {
		logger.Warn(ctx, "Could not read venue positions at startup", "error", err)
	} else {
		pos.Replace(venuePos)
		logger.Info(ctx, "Positions seeded from venue", "count", len(venuePos))
	}

	events, err := gw.Stream(ctx)
	must(err)
	go runStreamDispatcher(ctx, events, mirror, pos)

	eng := initializeEngine(cfg, mirror, pos, gw)
	classifiers := initializeClassifiers(ctx, cfg)
	orch := consensus.New(cfg, classifiers, eng)

	adapters := initializeAdapters(ctx, cfg)
	pool, err := monitor.NewPool(cfg, adapters)
	must(err)

	metricsSrv := startMetricsServer(ctx, cfg.Metrics.Addr)

	pool.Start(ctx)
	orchDone := make(chan struct{})
	go func() {
		orch.Run(ctx, pool.Observations())
		close(orchDone)
	}()

	logger.Info(ctx, "Trader started",
		"mode", cfg.Mode,
		"sources", len(cfg.Sources),
		"classifiers", len(classifiers),
		"contracts", len(cfg.Contracts),
	)

	<-sigc
	logger.Info(ctx, "Shutting down")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()

	if err := pool.Stop(stopCtx); err != nil {
		logger.Warn(ctx, "Monitor pool stop", "error", err)
	}
	cancel()
	<-orchDone

	if err := gw.Close(stopCtx); err != nil {
		logger.Warn(ctx, "Gateway close", "error", err)
	}
	_ = metricsSrv.Shutdown(stopCtx)

	if p, err := journal.SummarizeToday(); err == nil && p != "" {
		logger.Info(ctx, "Daily summary written", "path", p)
	}
	_ = trace.Shutdown(stopCtx)
}
