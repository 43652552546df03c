package source

import (
	"context"
	"fmt"
	"sync"
	"time"

	"news-trading-bot/internal/store"
	"news-trading-bot/internal/types"
)

// StaticAdapter serves a fixed baseline of headlines and appends one
// synthetic "breaking" headline every few polls. Used in DRY_RUN mode
// and tests; fully deterministic.
type StaticAdapter struct {
	mu       sync.Mutex
	sourceID string
	baseline []types.Item
	polls    int
	breaking []types.Item
}

// Polls between synthetic breaking headlines in DRY_RUN mode.
const breakingEvery = 4

// NewStatic creates a deterministic adapter for one configured source.
func NewStatic(src store.SourceConfig) *StaticAdapter {
	base := make([]types.Item, 0, 5)
	for i := 0; i < 5; i++ {
		base = append(base, types.Item{
			ContentID:  fmt.Sprintf("%s-baseline-%d", src.ID, i),
			RawContent: fmt.Sprintf("Archived coverage %d for %s", i, src.ContractID),
			Timestamp:  time.Now(),
		})
	}
	return &StaticAdapter{sourceID: src.ID, baseline: base}
}

func (a *StaticAdapter) Poll(ctx context.Context) ([]types.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, &types.AdapterError{SourceID: a.sourceID, Err: err}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.polls++
	if a.polls%breakingEvery == 0 {
		a.breaking = append(a.breaking, types.Item{
			ContentID:  fmt.Sprintf("%s-breaking-%d", a.sourceID, a.polls),
			RawContent: fmt.Sprintf("Breaking update %d on %s", a.polls, a.sourceID),
			Timestamp:  time.Now(),
		})
	}

	out := make([]types.Item, 0, len(a.baseline)+len(a.breaking))
	out = append(out, a.baseline...)
	out = append(out, a.breaking...)
	return out, nil
}
