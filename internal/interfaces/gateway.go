package interfaces

import (
	"context"

	"news-trading-bot/internal/types"
)

// Gateway is the exchange surface: order submission, position and book
// queries, and a push feed of fills and book updates.
type Gateway interface {
	Positions(ctx context.Context) ([]types.Position, error)
	OrderBook(ctx context.Context, contractID, outcomeID string) (types.OrderBookSnapshot, error)
	Submit(ctx context.Context, order types.Order) (types.OrderResult, error)
	Stream(ctx context.Context) (<-chan types.GatewayEvent, error)
	Close(ctx context.Context) error
}
