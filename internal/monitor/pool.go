package monitor

import (
	"context"
	"fmt"
	"sync"

	"news-trading-bot/internal/interfaces"
	"news-trading-bot/internal/logger"
	"news-trading-bot/internal/metrics"
	"news-trading-bot/internal/store"
	"news-trading-bot/internal/types"
)

// Pool owns the monitors and the single bounded channel into the
// orchestrator. When the channel is full the publishing monitor sheds
// the oldest queued observation instead of blocking its polling loop.
type Pool struct {
	out      chan types.Observation
	monitors []*Monitor

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool builds one monitor per configured source. adapters maps
// source id to its polling adapter.
func NewPool(cfg *store.Config, adapters map[string]interfaces.Adapter) (*Pool, error) {
	p := &Pool{
		out: make(chan types.Observation, cfg.Monitor.ChannelBuffer),
	}
	settings := Settings{
		FailureThreshold: cfg.Monitor.FailureThreshold,
		BackoffInitial:   cfg.BackoffInitial(),
		BackoffMax:       cfg.BackoffMax(),
		PollTimeout:      cfg.PollTimeout(),
	}
	for _, src := range cfg.Sources {
		adapter, ok := adapters[src.ID]
		if !ok {
			return nil, fmt.Errorf("no adapter for source '%s'", src.ID)
		}
		p.monitors = append(p.monitors, newMonitor(src, adapter, settings, p))
	}
	return p, nil
}

// Start launches every monitor in its own goroutine.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	for _, m := range p.monitors {
		p.wg.Add(1)
		go func(m *Monitor) {
			defer p.wg.Done()
			m.run(ctx)
		}(m)
	}

	logger.Info(ctx, "Monitor pool started",
		"sources", len(p.monitors),
		"channel_buffer", cap(p.out),
	)
}

// Stop cancels all monitors and closes the observation channel once
// they have drained. Respects ctx for bounded shutdown.
func (p *Pool) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(p.out)
		close(done)
	}()

	select {
	case <-done:
		logger.Info(ctx, "Monitor pool stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Observations is the bounded channel consumed by the orchestrator.
func (p *Pool) Observations() <-chan types.Observation {
	return p.out
}

// Monitors exposes monitor handles for health inspection.
func (p *Pool) Monitors() []*Monitor {
	return p.monitors
}

// publish enqueues an observation without ever blocking the caller.
// On a full channel it drops the oldest queued observation first; if
// the channel is still full the new observation itself is dropped.
func (p *Pool) publish(ctx context.Context, obs types.Observation) {
	select {
	case p.out <- obs:
		return
	default:
	}

	select {
	case dropped := <-p.out:
		metrics.ObservationDropped(dropped.SourceID)
		logger.Health(ctx, dropped.SourceID, "OBSERVATION_SHED",
			"content_id", dropped.ContentID,
			"observation_id", dropped.ID,
		)
	default:
	}

	select {
	case p.out <- obs:
	default:
		metrics.ObservationDropped(obs.SourceID)
		logger.Health(ctx, obs.SourceID, "OBSERVATION_SHED",
			"content_id", obs.ContentID,
			"observation_id", obs.ID,
		)
	}
}
