package gatewayobs

import (
	"context"

	"news-trading-bot/internal/interfaces"
	"news-trading-bot/internal/logger"
	"news-trading-bot/internal/trace"
	"news-trading-bot/internal/types"
)

// observableGateway wraps a Gateway with observability (logging & tracing)
type observableGateway struct {
	gw interfaces.Gateway
}

// Compile-time interface check
var _ interfaces.Gateway = (*observableGateway)(nil)

// Wrap wraps a gateway with observability middleware
func Wrap(gw interfaces.Gateway) interfaces.Gateway {
	return &observableGateway{
		gw: gw,
	}
}

func (og *observableGateway) Positions(ctx context.Context) ([]types.Position, error) {
	ctx, span := trace.StartSpan(ctx, "gateway.Positions")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching positions")

	positions, err := og.gw.Positions(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch positions", err)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Positions fetched successfully", "count", len(positions))
	return positions, nil
}

func (og *observableGateway) OrderBook(ctx context.Context, contractID, outcomeID string) (types.OrderBookSnapshot, error) {
	ctx, span := trace.StartSpan(ctx, "gateway.OrderBook")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching order book", "contract", contractID, "outcome", outcomeID)

	snap, err := og.gw.OrderBook(ctx, contractID, outcomeID)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch order book", err, "contract", contractID, "outcome", outcomeID)
		return types.OrderBookSnapshot{}, err
	}

	logger.DebugSkip(ctx, 1, "Order book fetched successfully",
		"contract", contractID,
		"outcome", outcomeID,
		"bids", len(snap.Bids),
		"asks", len(snap.Asks),
	)
	return snap, nil
}

func (og *observableGateway) Submit(ctx context.Context, order types.Order) (types.OrderResult, error) {
	ctx, span := trace.StartSpan(ctx, "gateway.Submit")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Submitting order",
		"contract", order.ContractID,
		"outcome", order.OutcomeID,
		"side", order.Side,
		"qty", order.Quantity,
		"price", order.Price,
		"tag", order.Tag,
	)

	result, err := og.gw.Submit(ctx, order)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to submit order", err,
			"contract", order.ContractID,
			"outcome", order.OutcomeID,
			"side", order.Side,
			"qty", order.Quantity,
		)
		return types.OrderResult{}, err
	}

	logger.InfoSkip(ctx, 1, "Order resolved",
		"contract", order.ContractID,
		"order_id", result.OrderID,
		"status", result.Status,
		"reason", result.Reason,
	)
	return result, nil
}

func (og *observableGateway) Stream(ctx context.Context) (<-chan types.GatewayEvent, error) {
	ctx, span := trace.StartSpan(ctx, "gateway.Stream")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Opening gateway stream")

	events, err := og.gw.Stream(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to open gateway stream", err)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Gateway stream opened")
	return events, nil
}

func (og *observableGateway) Close(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "gateway.Close")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Closing gateway")
	err := og.gw.Close(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to close gateway", err)
		return err
	}
	logger.InfoSkip(ctx, 1, "Gateway closed")
	return nil
}
