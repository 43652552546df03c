package noop

import (
	"context"
	"time"

	"news-trading-bot/internal/types"
)

// Classifier always reports irrelevance. It fills a quorum slot in
// paper runs without any provider credentials.
type Classifier struct {
	id string
}

func New(id string) *Classifier {
	return &Classifier{id: id}
}

func (c *Classifier) ID() string { return c.id }

func (c *Classifier) Classify(_ context.Context, obs types.Observation, _ types.Contract) (types.Classification, error) {
	return types.Classification{
		ObservationID: obs.ID,
		ClassifierID:  c.id,
		Score:         types.ScoreMin,
		Confidence:    1.0,
		ProducedAt:    time.Now().UTC(),
	}, nil
}
