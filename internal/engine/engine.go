// Package engine turns consensus classifications into at most one
// trading intent per contract, sized against the local book mirror and
// validated by the risk controller before submission.
package engine

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"news-trading-bot/internal/book"
	"news-trading-bot/internal/interfaces"
	"news-trading-bot/internal/journal"
	"news-trading-bot/internal/logger"
	"news-trading-bot/internal/metrics"
	"news-trading-bot/internal/positions"
	"news-trading-bot/internal/store"
	"news-trading-bot/internal/types"
)

// contractSlot serializes decisions for one contract. inFlight is only
// read and written under mu; it stays set across the submission, which
// happens after mu is released.
type contractSlot struct {
	mu       sync.Mutex
	inFlight bool
	state    string
}

type Engine struct {
	contracts map[string]types.Contract
	actions   map[int]store.ActionRule
	limits    types.RiskLimits
	baseQty   int
	tolerance float64
	mirror    *book.Mirror
	positions *positions.Store
	submitter interfaces.OrderSubmitter

	mu    sync.Mutex
	slots map[string]*contractSlot
}

var _ interfaces.Engine = (*Engine)(nil)

func New(cfg *store.Config, mirror *book.Mirror, pos *positions.Store, submitter interfaces.OrderSubmitter) *Engine {
	actions := make(map[int]store.ActionRule, len(cfg.Actions))
	for _, a := range cfg.Actions {
		actions[a.Score] = a
	}
	return &Engine{
		contracts: cfg.ContractMap(),
		actions:   actions,
		limits:    cfg.RiskLimits(),
		baseQty:   cfg.Sizing.BaseQuantity,
		tolerance: cfg.Sizing.ImpactTolerance,
		mirror:    mirror,
		positions: pos,
		submitter: submitter,
		slots:     make(map[string]*contractSlot),
	}
}

func (e *Engine) slot(contractID string) *contractSlot {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.slots[contractID]
	if !ok {
		s = &contractSlot{state: types.StateIdle}
		e.slots[contractID] = s
	}
	return s
}

// State reports the current state of one contract's decision machine.
func (e *Engine) State(contractID string) string {
	s := e.slot(contractID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// HandleConsensus evaluates one consensus. At most one intent per
// contract is outstanding at any time; a consensus arriving while one
// is in flight is suppressed, not queued.
func (e *Engine) HandleConsensus(ctx context.Context, cons types.Consensus) (*types.DecisionResult, error) {
	start := time.Now()
	defer func() { metrics.StageLatency("decision", time.Since(start).Seconds()) }()

	slot := e.slot(cons.ContractID)
	slot.mu.Lock()
	if slot.inFlight {
		slot.mu.Unlock()
		return e.conclude(ctx, cons, &types.DecisionResult{
			ContractID: cons.ContractID,
			OutcomeID:  cons.OutcomeID,
			State:      types.StateSuppressed,
			Reason:     "intent in flight",
		}), nil
	}
	slot.state = types.StateEvaluating

	result := e.evaluate(cons)
	if result.Intent == nil {
		slot.state = types.StateIdle
		slot.mu.Unlock()
		return e.conclude(ctx, cons, result), nil
	}

	exp := Exposures{
		Contract: e.positions.ContractExposure(cons.ContractID),
		Total:    e.positions.TotalExposure(),
	}
	if err := ValidateIntent(*result.Intent, e.limits, exp); err != nil {
		slot.state = types.StateIdle
		slot.mu.Unlock()
		result.State = types.StateRejected
		result.Reason = err.Error()
		result.Intent = nil
		metrics.IntentResult("risk_rejected")
		logger.Risk(ctx, cons.ContractID, err.Error(),
			"observation_id", cons.ObservationID,
			"contract_exposure", exp.Contract,
			"total_exposure", exp.Total,
		)
		return e.conclude(ctx, cons, result), nil
	}

	slot.inFlight = true
	slot.state = types.StateSubmitted
	slot.mu.Unlock()

	metrics.IntentResult("approved")
	logger.Info(ctx, "Intent approved",
		"intent_id", result.Intent.ID,
		"contract", result.Intent.ContractID,
		"outcome", result.Intent.OutcomeID,
		"side", result.Intent.Side,
		"qty", result.Intent.MaxQuantity,
		"price_cap", result.Intent.PriceCap,
		"flatten", len(result.Intent.FlattenOutcomes),
	)

	sub, err := e.submitter.Submit(ctx, *result.Intent)

	slot.mu.Lock()
	slot.inFlight = false
	slot.state = types.StateIdle
	slot.mu.Unlock()

	if err != nil {
		result.State = types.StateRejected
		result.Reason = err.Error()
		return e.conclude(ctx, cons, result), err
	}

	result.Submit = sub
	result.State = types.StateFilled
	for _, r := range sub.Results {
		if r.Status == types.OrderRejected {
			result.State = types.StateRejected
			result.Reason = string(r.Reason)
			break
		}
	}
	return e.conclude(ctx, cons, result), nil
}

// evaluate maps the consensus to an intent under the per-contract
// lock. No I/O here: only book mirror and position reads.
func (e *Engine) evaluate(cons types.Consensus) *types.DecisionResult {
	result := &types.DecisionResult{
		ContractID: cons.ContractID,
		OutcomeID:  cons.OutcomeID,
		State:      types.StateIdle,
	}

	if cons.LowConfidence {
		result.Reason = "low confidence consensus"
		return result
	}
	rule, ok := e.actions[cons.ResolvedScore]
	if !ok {
		result.Reason = "no action for score"
		return result
	}

	desired := int(math.Round(float64(e.baseQty) * cons.AgreementRatio))
	if desired <= 0 {
		result.Reason = "sized to zero"
		return result
	}

	side := types.Side(rule.Side)
	held := e.positions.Get(cons.ContractID, cons.OutcomeID).Quantity

	if side == types.SideBuy && held >= desired {
		result.State = types.StateSuppressed
		result.Reason = "already positioned"
		return result
	}
	if side == types.SideSell {
		if held == 0 {
			result.State = types.StateSuppressed
			result.Reason = "nothing held to sell"
			return result
		}
		if desired > held {
			desired = held
		}
	}

	qty := desired
	if within := e.mirror.MaxQuantityWithin(cons.ContractID, cons.OutcomeID, side, rule.PriceCap, e.tolerance); within < qty {
		qty = within
	}
	if qty <= 0 {
		result.State = types.StateSuppressed
		result.Reason = "no depth within price cap"
		return result
	}

	intent := &types.TradingIntent{
		ID:             uuid.NewString(),
		ContractID:     cons.ContractID,
		OutcomeID:      cons.OutcomeID,
		Side:           side,
		PriceCap:       rule.PriceCap,
		MaxQuantity:    qty,
		ObservationID:  cons.ObservationID,
		AgreementRatio: cons.AgreementRatio,
	}

	// On a multi-outcome contract a new entry displaces whatever else
	// is held: the other outcomes are flattened first.
	if c, ok := e.contracts[cons.ContractID]; ok && c.MultiOutcome && side == types.SideBuy {
		for _, p := range e.positions.HeldOutcomes(cons.ContractID) {
			if p.OutcomeID != cons.OutcomeID {
				intent.FlattenOutcomes = append(intent.FlattenOutcomes, p.OutcomeID)
			}
		}
	}

	result.State = types.StateApproved
	result.Intent = intent
	return result
}

// conclude journals and counts the outcome. Journaling is best effort.
func (e *Engine) conclude(ctx context.Context, cons types.Consensus, result *types.DecisionResult) *types.DecisionResult {
	switch result.State {
	case types.StateSuppressed:
		metrics.IntentResult("suppressed")
		logger.Debug(ctx, "Intent suppressed",
			"contract", cons.ContractID,
			"outcome", cons.OutcomeID,
			"reason", result.Reason,
		)
	case types.StateIdle:
		logger.Debug(ctx, "No action",
			"contract", cons.ContractID,
			"score", cons.ResolvedScore,
			"reason", result.Reason,
		)
	}
	_ = journal.AppendDecision(journal.DecisionEntry{
		ObservationID: cons.ObservationID,
		ContractID:    cons.ContractID,
		OutcomeID:     cons.OutcomeID,
		Score:         cons.ResolvedScore,
		Agreement:     cons.AgreementRatio,
		Dissent:       cons.DissentCount,
		LowConfidence: cons.LowConfidence,
		State:         result.State,
		Reason:        result.Reason,
	})
	return result
}
