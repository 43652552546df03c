package interfaces

import (
	"context"

	"news-trading-bot/internal/types"
)

// Adapter is the per-source polling primitive. Poll returns the source's
// current content in publication order; it must be idempotent across
// retries and fail with *types.AdapterError on network or parse failure.
type Adapter interface {
	Poll(ctx context.Context) ([]types.Item, error)
}
