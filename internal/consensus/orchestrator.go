// Package consensus fans each new observation out to the configured
// classifiers, joins their answers under a deadline, and reduces them
// to a single consensus for the decision engine.
package consensus

import (
	"context"
	"sync"
	"time"

	"news-trading-bot/internal/interfaces"
	"news-trading-bot/internal/logger"
	"news-trading-bot/internal/metrics"
	"news-trading-bot/internal/store"
	"news-trading-bot/internal/types"
)

// binding ties a source to the contract and outcome its signals concern.
type binding struct {
	contract types.Contract
	outcome  string
}

// Orchestrator consumes the monitor pool channel. One worker goroutine
// per source preserves per-source arrival order while letting sources
// proceed in parallel.
type Orchestrator struct {
	classifiers  []interfaces.Classifier
	engine       interfaces.Engine
	bindings     map[string]binding
	quorum       int
	deadline     time.Duration
	minAgreement float64

	mu      sync.Mutex
	workers map[string]chan types.Observation
	wg      sync.WaitGroup
}

// New builds an orchestrator from config, the classifier set, and the
// downstream engine.
func New(cfg *store.Config, classifiers []interfaces.Classifier, engine interfaces.Engine) *Orchestrator {
	contracts := cfg.ContractMap()
	bindings := make(map[string]binding, len(cfg.Sources))
	for _, src := range cfg.Sources {
		bindings[src.ID] = binding{
			contract: contracts[src.ContractID],
			outcome:  src.OutcomeID,
		}
	}
	return &Orchestrator{
		classifiers:  classifiers,
		engine:       engine,
		bindings:     bindings,
		quorum:       cfg.Classifiers.Quorum,
		deadline:     cfg.ClassifierDeadline(),
		minAgreement: cfg.Classifiers.MinAgreement,
		workers:      make(map[string]chan types.Observation),
	}
}

// Run consumes observations until the channel closes or ctx is
// cancelled, then waits for in-flight work to finish.
func (o *Orchestrator) Run(ctx context.Context, in <-chan types.Observation) {
	for {
		select {
		case <-ctx.Done():
			o.drain()
			return
		case obs, ok := <-in:
			if !ok {
				o.drain()
				return
			}
			if !obs.IsNew {
				continue
			}
			o.dispatch(ctx, obs)
		}
	}
}

// dispatch routes an observation to its source's worker, creating the
// worker on first use.
func (o *Orchestrator) dispatch(ctx context.Context, obs types.Observation) {
	o.mu.Lock()
	ch, ok := o.workers[obs.SourceID]
	if !ok {
		ch = make(chan types.Observation, 16)
		o.workers[obs.SourceID] = ch
		o.wg.Add(1)
		go o.worker(ctx, ch)
	}
	o.mu.Unlock()

	// One backlogged source must not stall dispatch for the rest. On
	// a full worker buffer shed that source's oldest queued
	// observation first, then the new one if it is still full.
	select {
	case ch <- obs:
		return
	default:
	}

	select {
	case dropped := <-ch:
		metrics.ObservationDropped(dropped.SourceID)
		logger.Health(ctx, dropped.SourceID, "OBSERVATION_SHED",
			"content_id", dropped.ContentID,
			"observation_id", dropped.ID,
		)
	default:
	}

	select {
	case ch <- obs:
	default:
		metrics.ObservationDropped(obs.SourceID)
		logger.Health(ctx, obs.SourceID, "OBSERVATION_SHED",
			"content_id", obs.ContentID,
			"observation_id", obs.ID,
		)
	}
}

func (o *Orchestrator) drain() {
	o.mu.Lock()
	for _, ch := range o.workers {
		close(ch)
	}
	o.workers = make(map[string]chan types.Observation)
	o.mu.Unlock()
	o.wg.Wait()
}

func (o *Orchestrator) worker(ctx context.Context, in <-chan types.Observation) {
	defer o.wg.Done()
	for obs := range in {
		cons := o.Classify(ctx, obs)
		if _, err := o.engine.HandleConsensus(ctx, cons); err != nil {
			logger.ErrorWithErr(ctx, "Decision failed", err,
				"observation_id", obs.ID,
				"contract", cons.ContractID,
			)
		}
	}
}

// Classify fans the observation out to every classifier under the
// shared deadline and reduces the responses. Non-responses and invalid
// scores are abstentions; they delay nothing past the deadline.
func (o *Orchestrator) Classify(ctx context.Context, obs types.Observation) types.Consensus {
	start := time.Now()
	b := o.bindings[obs.SourceID]

	cctx, cancel := context.WithTimeout(ctx, o.deadline)
	defer cancel()

	type response struct {
		cl  types.Classification
		err error
		id  string
	}
	responses := make(chan response, len(o.classifiers))

	for _, c := range o.classifiers {
		go func(c interfaces.Classifier) {
			cl, err := c.Classify(cctx, obs, b.contract)
			responses <- response{cl: cl, err: err, id: c.ID()}
		}(c)
	}

	votes := make([]types.Classification, 0, len(o.classifiers))
	received := 0
collect:
	for received < len(o.classifiers) {
		select {
		case r := <-responses:
			received++
			switch {
			case r.err != nil:
				metrics.ClassifierAbstained(r.id)
				logger.Warn(ctx, "Classifier abstained",
					"classifier", r.id,
					"observation_id", obs.ID,
					"error", r.err,
				)
			case !types.ValidScore(r.cl.Score):
				metrics.ClassifierAbstained(r.id)
				logger.Warn(ctx, "Classifier returned out-of-scale score",
					"classifier", r.id,
					"observation_id", obs.ID,
					"score", r.cl.Score,
				)
			default:
				votes = append(votes, r.cl)
			}
		case <-cctx.Done():
			break collect
		}
	}

	cons := Reduce(obs.ID, b.contract.ID, b.outcome, votes, len(o.classifiers), o.quorum, o.minAgreement)
	metrics.StageLatency("consensus", time.Since(start).Seconds())
	metrics.ConsensusResolved(o.consensusKind(cons))

	logger.Consensus(ctx, cons.ContractID, cons.ResolvedScore, cons.AgreementRatio, cons.LowConfidence,
		"observation_id", obs.ID,
		"respondents", cons.Respondents,
		"dissent", cons.DissentCount,
	)
	return cons
}

func (o *Orchestrator) consensusKind(c types.Consensus) string {
	switch {
	case c.Respondents < o.quorum:
		return "low_quorum"
	case c.LowConfidence:
		return "low_agreement"
	case c.ResolvedScore == types.ScoreNeutral:
		return "neutral"
	default:
		return "actionable"
	}
}
