package interfaces

import (
	"context"

	"news-trading-bot/internal/types"
)

// Classifier is one independent relevance judge. Non-response and
// malformed output are treated as abstention by the orchestrator.
type Classifier interface {
	ID() string
	Classify(ctx context.Context, obs types.Observation, contract types.Contract) (types.Classification, error)
}
