package classifierobs

import (
	"context"

	"news-trading-bot/internal/interfaces"
	"news-trading-bot/internal/logger"
	"news-trading-bot/internal/trace"
	"news-trading-bot/internal/types"
)

// observableClassifier wraps a Classifier with logging and tracing.
type observableClassifier struct {
	classifier interfaces.Classifier
}

// Compile-time interface check
var _ interfaces.Classifier = (*observableClassifier)(nil)

// Wrap wraps a classifier with observability middleware.
func Wrap(classifier interfaces.Classifier) interfaces.Classifier {
	return &observableClassifier{classifier: classifier}
}

func (oc *observableClassifier) ID() string { return oc.classifier.ID() }

func (oc *observableClassifier) Classify(ctx context.Context, obs types.Observation, contract types.Contract) (types.Classification, error) {
	ctx, span := trace.StartSpan(ctx, "classifier.Classify")
	defer span.End()

	// Use DebugSkip(1) to report the actual caller, not this middleware wrapper
	logger.DebugSkip(ctx, 1, "Requesting classification",
		"classifier", oc.classifier.ID(),
		"observation_id", obs.ID,
		"contract", contract.ID,
	)

	cl, err := oc.classifier.Classify(ctx, obs, contract)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Classification failed", err,
			"classifier", oc.classifier.ID(),
			"observation_id", obs.ID,
		)
		return types.Classification{}, err
	}

	logger.InfoSkip(ctx, 1, "Classification received",
		"classifier", oc.classifier.ID(),
		"observation_id", obs.ID,
		"score", cl.Score,
		"confidence", cl.Confidence,
	)
	return cl, nil
}
