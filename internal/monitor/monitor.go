// Package monitor runs one concurrent watcher per configured source.
// A monitor owns its rate limiter, calibration baseline, and retry
// state; a failing source backs off on its own without slowing any
// other monitor or the downstream pipeline.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"news-trading-bot/internal/interfaces"
	"news-trading-bot/internal/logger"
	"news-trading-bot/internal/metrics"
	"news-trading-bot/internal/ratelimit"
	"news-trading-bot/internal/store"
	"news-trading-bot/internal/types"
)

// State is the monitor lifecycle state.
type State string

const (
	StateCalibrating  State = "CALIBRATING"
	StateActive       State = "ACTIVE"
	StateErrorBackoff State = "ERROR_BACKOFF"
	StateStopped      State = "STOPPED"
)

// Settings are the pool-wide monitor knobs from config.
type Settings struct {
	FailureThreshold int
	BackoffInitial   time.Duration
	BackoffMax       time.Duration
	PollTimeout      time.Duration
}

// Monitor watches a single source. All polling state (seen set, backoff,
// failure count) is owned by the run goroutine; only state is shared.
type Monitor struct {
	src      store.SourceConfig
	adapter  interfaces.Adapter
	limiter  *ratelimit.Limiter
	pool     *Pool
	settings Settings

	mu    sync.Mutex
	state State

	seen        map[string]struct{}
	consecFails int
	backoff     time.Duration
}

func newMonitor(src store.SourceConfig, adapter interfaces.Adapter, settings Settings, pool *Pool) *Monitor {
	initial := StateCalibrating
	if src.CalibrationWindow() <= 0 {
		initial = StateActive
	}
	return &Monitor{
		src:      src,
		adapter:  adapter,
		limiter:  ratelimit.New(src.RateLimit.Capacity, src.RateLimit.RefillPerSec),
		pool:     pool,
		settings: settings,
		state:    initial,
		seen:     make(map[string]struct{}),
		backoff:  settings.BackoffInitial,
	}
}

// SourceID returns the monitored source's id.
func (m *Monitor) SourceID() string { return m.src.ID }

// State returns the current lifecycle state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Monitor) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Monitor) run(ctx context.Context) {
	defer m.setState(StateStopped)

	calibrationDeadline := time.Now().Add(m.src.CalibrationWindow())

	ticker := time.NewTicker(m.src.PollInterval())
	defer ticker.Stop()

	// First poll happens immediately so calibration starts on real content.
	m.poll(ctx, calibrationDeadline)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(ctx, calibrationDeadline)
		}
	}
}

func (m *Monitor) poll(ctx context.Context, calibrationDeadline time.Time) {
	if !m.limiter.Allow() {
		logger.Debug(ctx, "Poll skipped by rate limiter", "source", m.src.ID)
		return
	}

	pctx, cancel := context.WithTimeout(ctx, m.settings.PollTimeout)
	items, err := m.adapter.Poll(pctx)
	cancel()

	if err != nil {
		m.handleFailure(ctx, err)
		return
	}

	m.consecFails = 0
	m.backoff = m.settings.BackoffInitial

	calibrating := time.Now().Before(calibrationDeadline)
	if calibrating {
		m.setState(StateCalibrating)
	} else {
		m.setState(StateActive)
	}

	for _, item := range items {
		if _, ok := m.seen[item.ContentID]; ok {
			continue
		}
		m.seen[item.ContentID] = struct{}{}

		if calibrating {
			// baseline content, never a signal
			continue
		}

		obs := types.Observation{
			ID:         uuid.NewString(),
			SourceID:   m.src.ID,
			ContentID:  item.ContentID,
			RawContent: item.RawContent,
			ObservedAt: item.Timestamp,
			IsNew:      true,
		}
		m.pool.publish(ctx, obs)
		metrics.ObservationForwarded(m.src.ID)
		logger.Info(ctx, "Observation forwarded",
			"source", m.src.ID,
			"content_id", item.ContentID,
			"observation_id", obs.ID,
		)
	}
}

// handleFailure backs off exponentially inside this monitor's own
// goroutine. Other monitors keep their cadence.
func (m *Monitor) handleFailure(ctx context.Context, err error) {
	m.consecFails++
	m.setState(StateErrorBackoff)
	metrics.MonitorError(m.src.ID)

	logger.ErrorWithErr(ctx, "Source poll failed", err,
		"source", m.src.ID,
		"consecutive_failures", m.consecFails,
		"backoff", m.backoff,
	)

	if m.consecFails == m.settings.FailureThreshold {
		metrics.MonitorDegraded(m.src.ID)
		logger.Health(ctx, m.src.ID, "SOURCE_DEGRADED",
			"consecutive_failures", m.consecFails,
		)
	}

	timer := time.NewTimer(m.backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}

	m.backoff *= 2
	if m.backoff > m.settings.BackoffMax {
		m.backoff = m.settings.BackoffMax
	}
}
