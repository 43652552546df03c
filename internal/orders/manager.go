// Package orders converts approved trading intents into venue orders:
// price quantization, multi-outcome flatten legs, and the
// reconciliation pass that repairs partial completion.
package orders

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"news-trading-bot/internal/interfaces"
	"news-trading-bot/internal/journal"
	"news-trading-bot/internal/logger"
	"news-trading-bot/internal/metrics"
	"news-trading-bot/internal/positions"
	"news-trading-bot/internal/store"
	"news-trading-bot/internal/types"
)

// reconcilePasses bounds the repair loop after a partial flatten.
const reconcilePasses = 3

type Manager struct {
	gw        interfaces.Gateway
	positions *positions.Store
	contracts map[string]types.Contract
}

var _ interfaces.OrderSubmitter = (*Manager)(nil)

func New(cfg *store.Config, gw interfaces.Gateway, pos *positions.Store) *Manager {
	return &Manager{
		gw:        gw,
		positions: pos,
		contracts: cfg.ContractMap(),
	}
}

// Submit executes one intent: flatten legs first, then the entry leg.
// Every leg resolves synchronously. A gateway error aborts the intent
// with whatever results accumulated; leg rejections do not.
func (m *Manager) Submit(ctx context.Context, intent types.TradingIntent) (*types.SubmitResult, error) {
	start := time.Now()
	defer func() { metrics.StageLatency("submission", time.Since(start).Seconds()) }()

	tick := m.tickSize(intent.ContractID)
	result := &types.SubmitResult{IntentID: intent.ID}

	for _, outcome := range intent.FlattenOutcomes {
		held := m.positions.Get(intent.ContractID, outcome).Quantity
		if held <= 0 {
			continue
		}
		leg := types.Order{
			ID:         uuid.NewString(),
			IntentID:   intent.ID,
			ContractID: intent.ContractID,
			OutcomeID:  outcome,
			Side:       types.SideSell,
			// Floor price: the flatten must cross whatever bid exists.
			Price:    tick,
			Quantity: held,
			Tag:      "FLATTEN",
		}
		r, err := m.submitLeg(ctx, leg)
		if err != nil {
			return result, err
		}
		result.Results = append(result.Results, r)
	}

	entry := types.Order{
		ID:         uuid.NewString(),
		IntentID:   intent.ID,
		ContractID: intent.ContractID,
		OutcomeID:  intent.OutcomeID,
		Side:       intent.Side,
		Price:      quantize(intent.PriceCap, tick),
		Quantity:   intent.MaxQuantity,
		Tag:        "ENTRY",
	}
	r, err := m.submitLeg(ctx, entry)
	if err != nil {
		return result, err
	}
	result.Results = append(result.Results, r)

	if len(intent.FlattenOutcomes) > 0 {
		result.Reconciled = m.reconcile(ctx, intent.ContractID, intent.OutcomeID)
	}
	return result, nil
}

// submitLeg sends one order and folds its outcome into positions and
// the journal. Only transport-level failures return an error.
func (m *Manager) submitLeg(ctx context.Context, order types.Order) (types.OrderResult, error) {
	r, err := m.gw.Submit(ctx, order)
	if err != nil {
		logger.ErrorWithErr(ctx, "Order submission failed", err,
			"order_id", order.ID,
			"contract", order.ContractID,
			"outcome", order.OutcomeID,
		)
		return types.OrderResult{}, err
	}

	switch r.Status {
	case types.OrderFilled:
		if r.Fill != nil {
			m.positions.ApplyFill(*r.Fill)
			logger.Trade(ctx, order.ContractID, order.OutcomeID, string(order.Side),
				r.Fill.Quantity, r.Fill.Price, r.OrderID,
				"intent_id", order.IntentID,
				"tag", order.Tag,
			)
		}
		metrics.OrderOutcome("filled")
	case types.OrderRejected:
		metrics.OrderOutcome("rejected")
		logger.Warn(ctx, "Order rejected",
			"order_id", r.OrderID,
			"contract", order.ContractID,
			"outcome", order.OutcomeID,
			"reason", r.Reason,
		)
	}

	entry := journal.OrderEntry{
		ContractID: order.ContractID,
		OutcomeID:  order.OutcomeID,
		Side:       string(order.Side),
		Qty:        order.Quantity,
		Price:      order.Price,
		OrderID:    r.OrderID,
		IntentID:   order.IntentID,
		Status:     r.Status,
		Reason:     string(r.Reason),
	}
	if r.Fill != nil {
		entry.Qty = r.Fill.Quantity
		entry.Price = r.Fill.Price
	}
	_ = journal.AppendOrder(entry)
	return r, nil
}

// reconcile re-reads the venue's positions and keeps flattening until
// at most the kept outcome remains held on the contract. Returns
// whether the contract converged within the pass budget.
func (m *Manager) reconcile(ctx context.Context, contractID, keepOutcome string) bool {
	tick := m.tickSize(contractID)

	for pass := 0; pass < reconcilePasses; pass++ {
		venue, err := m.gw.Positions(ctx)
		if err != nil {
			logger.ErrorWithErr(ctx, "Reconcile position read failed", err, "contract", contractID)
			return false
		}
		m.positions.Replace(venue)

		var stray []types.Position
		for _, p := range m.positions.HeldOutcomes(contractID) {
			if p.OutcomeID != keepOutcome && p.Quantity > 0 {
				stray = append(stray, p)
			}
		}
		if len(stray) == 0 {
			return true
		}

		logger.Warn(ctx, "Reconciling stray outcomes",
			"contract", contractID,
			"keep", keepOutcome,
			"stray", len(stray),
			"pass", pass+1,
		)
		for _, p := range stray {
			leg := types.Order{
				ID:         uuid.NewString(),
				ContractID: contractID,
				OutcomeID:  p.OutcomeID,
				Side:       types.SideSell,
				Price:      tick,
				Quantity:   p.Quantity,
				Tag:        "RECONCILE",
			}
			if _, err := m.submitLeg(ctx, leg); err != nil {
				return false
			}
		}
	}
	return false
}

func (m *Manager) tickSize(contractID string) float64 {
	if c, ok := m.contracts[contractID]; ok && c.TickSize > 0 {
		return c.TickSize
	}
	return 0.01
}

// quantize snaps a price onto the contract's tick grid.
func quantize(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	return math.Round(price/tick) * tick
}
