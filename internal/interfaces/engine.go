package interfaces

import (
	"context"

	"news-trading-bot/internal/types"
)

// Engine evaluates one consensus into at most one trading intent.
// Calls for the same contract are serialized internally.
type Engine interface {
	HandleConsensus(ctx context.Context, cons types.Consensus) (*types.DecisionResult, error)
}

// OrderSubmitter converts an approved intent into venue orders and
// resolves every leg before returning.
type OrderSubmitter interface {
	Submit(ctx context.Context, intent types.TradingIntent) (*types.SubmitResult, error)
}
