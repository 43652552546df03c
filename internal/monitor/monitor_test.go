package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"news-trading-bot/internal/interfaces"
	"news-trading-bot/internal/store"
	"news-trading-bot/internal/types"
)

// scriptedAdapter returns items computed from the poll count, or a
// failure when fail is set.
type scriptedAdapter struct {
	mu      sync.Mutex
	polls   int
	fail    bool
	perPoll func(n int) []types.Item
}

func (a *scriptedAdapter) Poll(ctx context.Context) ([]types.Item, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.polls++
	if a.fail {
		return nil, &types.AdapterError{SourceID: "scripted", Err: errors.New("connection refused")}
	}
	return a.perPoll(a.polls), nil
}

func (a *scriptedAdapter) pollCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.polls
}

func items(ids ...string) []types.Item {
	out := make([]types.Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, types.Item{ContentID: id, RawContent: "headline " + id, Timestamp: time.Now()})
	}
	return out
}

func testConfig(buffer int, sources ...store.SourceConfig) *store.Config {
	cfg := &store.Config{Mode: "DRY_RUN", Sources: sources}
	cfg.Monitor.ChannelBuffer = buffer
	cfg.Monitor.FailureThreshold = 3
	cfg.Monitor.BackoffInitialMS = 5
	cfg.Monitor.BackoffMaxMS = 20
	cfg.Monitor.PollTimeoutMS = 500
	return cfg
}

func testSource(id string, pollMS, calibrationS int) store.SourceConfig {
	src := store.SourceConfig{
		ID:           id,
		Adapter:      "STATIC",
		ContractID:   "FED-CUT",
		OutcomeID:    "YES",
		PollMS:       pollMS,
		CalibrationS: calibrationS,
	}
	src.RateLimit.Capacity = 1000
	src.RateLimit.RefillPerSec = 1000
	return src
}

func newTestPool(t *testing.T, cfg *store.Config, adapters map[string]*scriptedAdapter) *Pool {
	t.Helper()
	am := make(map[string]interfaces.Adapter, len(adapters))
	for id, a := range adapters {
		am[id] = a
	}
	p, err := NewPool(cfg, am)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCalibrationNeverForwards(t *testing.T) {
	adapter := &scriptedAdapter{perPoll: func(n int) []types.Item {
		// fresh content every poll: still baseline during calibration
		return items(fmt.Sprintf("headline-%d", n))
	}}
	cfg := testConfig(16, testSource("wire", 5, 3600))
	pool := newTestPool(t, cfg, map[string]*scriptedAdapter{"wire": adapter})

	ctx := context.Background()
	pool.Start(ctx)
	time.Sleep(80 * time.Millisecond)
	stopPool(t, pool)

	for obs := range pool.Observations() {
		t.Errorf("observation forwarded during calibration: %+v", obs)
	}
	if adapter.pollCount() == 0 {
		t.Error("expected calibration polls to happen")
	}
	if st := pool.Monitors()[0].State(); st != StateStopped {
		t.Errorf("expected STOPPED after shutdown, got %s", st)
	}
}

func TestZeroCalibrationWindowForwardsImmediately(t *testing.T) {
	adapter := &scriptedAdapter{perPoll: func(n int) []types.Item {
		return items("a", "b", "c")
	}}
	cfg := testConfig(16, testSource("wire", 5, 0))
	pool := newTestPool(t, cfg, map[string]*scriptedAdapter{"wire": adapter})

	pool.Start(context.Background())
	time.Sleep(40 * time.Millisecond)
	stopPool(t, pool)

	var got []types.Observation
	for obs := range pool.Observations() {
		got = append(got, obs)
	}
	if len(got) != 3 {
		t.Fatalf("expected the entire first poll to be new, got %d observations", len(got))
	}
	for _, obs := range got {
		if !obs.IsNew {
			t.Errorf("forwarded observation not marked new: %+v", obs)
		}
	}
}

func TestDedupAcrossPolls(t *testing.T) {
	adapter := &scriptedAdapter{perPoll: func(n int) []types.Item {
		return items("same-story")
	}}
	cfg := testConfig(16, testSource("wire", 5, 0))
	pool := newTestPool(t, cfg, map[string]*scriptedAdapter{"wire": adapter})

	pool.Start(context.Background())
	time.Sleep(60 * time.Millisecond)
	stopPool(t, pool)

	count := 0
	for range pool.Observations() {
		count++
	}
	if count != 1 {
		t.Errorf("expected a repeated story to be forwarded once, got %d", count)
	}
	if adapter.pollCount() < 3 {
		t.Errorf("expected repeated polls, got %d", adapter.pollCount())
	}
}

func TestFailureIsolation(t *testing.T) {
	failing := &scriptedAdapter{fail: true}
	healthy := &scriptedAdapter{perPoll: func(n int) []types.Item {
		return items(fmt.Sprintf("story-%d", n))
	}}
	cfg := testConfig(64,
		testSource("down", 5, 0),
		testSource("up", 5, 0),
	)
	pool := newTestPool(t, cfg, map[string]*scriptedAdapter{"down": failing, "up": healthy})

	pool.Start(context.Background())
	time.Sleep(100 * time.Millisecond)

	var downState State
	for _, m := range pool.Monitors() {
		if m.SourceID() == "down" {
			downState = m.State()
		}
	}
	stopPool(t, pool)

	if downState != StateErrorBackoff {
		t.Errorf("expected failing source in ERROR_BACKOFF, got %s", downState)
	}

	healthyCount := 0
	for obs := range pool.Observations() {
		if obs.SourceID != "up" {
			t.Errorf("unexpected observation from %s", obs.SourceID)
		}
		healthyCount++
	}
	if healthyCount < 5 {
		t.Errorf("healthy source starved by failing sibling: %d observations", healthyCount)
	}
}

func TestPublishShedsOldestWhenFull(t *testing.T) {
	cfg := testConfig(1, testSource("wire", 1000, 0))
	pool := newTestPool(t, cfg, map[string]*scriptedAdapter{
		"wire": {perPoll: func(n int) []types.Item { return nil }},
	})

	ctx := context.Background()
	first := types.Observation{ID: "1", SourceID: "wire", ContentID: "old", IsNew: true}
	second := types.Observation{ID: "2", SourceID: "wire", ContentID: "new", IsNew: true}

	pool.publish(ctx, first)
	pool.publish(ctx, second)

	got := <-pool.Observations()
	if got.ContentID != "new" {
		t.Errorf("expected oldest observation shed, kept %s", got.ContentID)
	}
	select {
	case extra := <-pool.Observations():
		t.Errorf("unexpected extra observation %+v", extra)
	default:
	}
}

func stopPool(t *testing.T, p *Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("pool stop: %v", err)
	}
}
