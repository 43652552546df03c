package engineobs

import (
	"context"
	"time"

	"news-trading-bot/internal/interfaces"
	"news-trading-bot/internal/logger"
	"news-trading-bot/internal/trace"
	"news-trading-bot/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) HandleConsensus(ctx context.Context, cons types.Consensus) (*types.DecisionResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.HandleConsensus")
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Starting decision cycle",
		"contract", cons.ContractID,
		"outcome", cons.OutcomeID,
		"score", cons.ResolvedScore,
	)

	result, err := oe.engine.HandleConsensus(ctx, cons)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Decision cycle failed", err,
			"contract", cons.ContractID,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Decision cycle completed",
		"contract", cons.ContractID,
		"state", result.State,
		"reason", result.Reason,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}
