// Package paper is a deterministic simulated venue. Books are seeded
// per outcome, crossing orders fill at the best price, and every fill
// is echoed on the push feed the way the real venue would.
package paper

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"news-trading-bot/internal/interfaces"
	"news-trading-bot/internal/logger"
	"news-trading-bot/internal/store"
	"news-trading-bot/internal/types"
)

const bookLevels = 4

type Gateway struct {
	mu        sync.Mutex
	books     map[string]*types.OrderBookSnapshot
	positions map[string]types.Position
	events    chan types.GatewayEvent
	streaming bool
	orderSeq  int
	fillSeq   int
	closed    bool
}

var _ interfaces.Gateway = (*Gateway)(nil)

// New seeds one synthetic book per configured contract outcome.
func New(cfg *store.Config) *Gateway {
	g := &Gateway{
		books:     make(map[string]*types.OrderBookSnapshot),
		positions: make(map[string]types.Position),
		events:    make(chan types.GatewayEvent, 256),
	}
	for _, c := range cfg.Contracts {
		for _, outcome := range c.Outcomes {
			snap := seedBook(c.ID, outcome, c.TickSize)
			g.books[key(c.ID, outcome)] = &snap
		}
	}
	return g
}

func key(contractID, outcomeID string) string {
	return contractID + "|" + outcomeID
}

// seedBook derives a mid price from the outcome name so repeated runs
// see the same market.
func seedBook(contractID, outcomeID string, tick float64) types.OrderBookSnapshot {
	if tick <= 0 {
		tick = 0.01
	}
	h := fnv.New32a()
	h.Write([]byte(contractID + "|" + outcomeID))
	// Mid between 0.30 and 0.70 on the tick grid.
	mid := 0.30 + float64(h.Sum32()%41)*0.01

	snap := types.OrderBookSnapshot{
		ContractID: contractID,
		OutcomeID:  outcomeID,
		UpdatedAt:  time.Now().UTC(),
	}
	for i := 1; i <= bookLevels; i++ {
		snap.Asks = append(snap.Asks, types.PriceLevel{Price: mid + float64(i)*tick, Size: 100 * i})
		snap.Bids = append(snap.Bids, types.PriceLevel{Price: mid - float64(i)*tick, Size: 100 * i})
	}
	return snap
}

func (g *Gateway) Positions(ctx context.Context) ([]types.Position, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]types.Position, 0, len(g.positions))
	for _, p := range g.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return key(out[i].ContractID, out[i].OutcomeID) < key(out[j].ContractID, out[j].OutcomeID)
	})
	return out, nil
}

func (g *Gateway) OrderBook(ctx context.Context, contractID, outcomeID string) (types.OrderBookSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.books[key(contractID, outcomeID)]
	if !ok {
		return types.OrderBookSnapshot{}, fmt.Errorf("unknown market %s/%s", contractID, outcomeID)
	}
	return copyBook(b), nil
}

func copyBook(b *types.OrderBookSnapshot) types.OrderBookSnapshot {
	out := *b
	out.Bids = append([]types.PriceLevel(nil), b.Bids...)
	out.Asks = append([]types.PriceLevel(nil), b.Asks...)
	return out
}

// Submit fills a crossing limit order at the best price inside its
// limit, walking levels until the quantity or the limit is exhausted.
// A non-crossing order is rejected, not rested.
func (g *Gateway) Submit(ctx context.Context, order types.Order) (types.OrderResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return types.OrderResult{}, types.ErrGatewayUnavailable
	}

	g.orderSeq++
	orderID := fmt.Sprintf("PAPER-%06d", g.orderSeq)

	b, ok := g.books[key(order.ContractID, order.OutcomeID)]
	if !ok {
		return types.OrderResult{
			OrderID: orderID,
			Status:  types.OrderRejected,
			Reason:  types.RejectPriceOutOfRange,
			Message: "unknown market",
		}, nil
	}
	if order.Price <= 0 || order.Price >= 1 {
		return types.OrderResult{
			OrderID: orderID,
			Status:  types.OrderRejected,
			Reason:  types.RejectPriceOutOfRange,
		}, nil
	}

	levels := &b.Asks
	crosses := func(p float64) bool { return p <= order.Price }
	if order.Side == types.SideSell {
		levels = &b.Bids
		crosses = func(p float64) bool { return p >= order.Price }
	}

	filled := 0
	notional := 0.0
	for len(*levels) > 0 && filled < order.Quantity && crosses((*levels)[0].Price) {
		l := &(*levels)[0]
		take := order.Quantity - filled
		if take > l.Size {
			take = l.Size
		}
		filled += take
		notional += float64(take) * l.Price
		l.Size -= take
		g.emitDelta(order, *l)
		if l.Size == 0 {
			*levels = (*levels)[1:]
		}
	}

	if filled == 0 {
		return types.OrderResult{
			OrderID: orderID,
			Status:  types.OrderRejected,
			Reason:  types.RejectInsufficientLiquidity,
		}, nil
	}

	g.fillSeq++
	fill := types.Fill{
		ID:         fmt.Sprintf("FILL-%06d", g.fillSeq),
		OrderID:    orderID,
		ContractID: order.ContractID,
		OutcomeID:  order.OutcomeID,
		Side:       order.Side,
		Price:      notional / float64(filled),
		Quantity:   filled,
		Ts:         time.Now().UTC(),
	}
	g.applyFillLocked(fill)
	g.emit(types.GatewayEvent{Fill: &fill})

	return types.OrderResult{OrderID: orderID, Status: types.OrderFilled, Fill: &fill}, nil
}

func (g *Gateway) applyFillLocked(f types.Fill) {
	k := key(f.ContractID, f.OutcomeID)
	p := g.positions[k]
	p.ContractID = f.ContractID
	p.OutcomeID = f.OutcomeID
	if f.Side == types.SideBuy {
		total := p.Quantity + f.Quantity
		if total > 0 {
			p.AvgPrice = (float64(p.Quantity)*p.AvgPrice + float64(f.Quantity)*f.Price) / float64(total)
		}
		p.Quantity = total
	} else {
		p.Quantity -= f.Quantity
	}
	if p.Quantity <= 0 {
		delete(g.positions, k)
		return
	}
	g.positions[k] = p
}

func (g *Gateway) emitDelta(order types.Order, level types.PriceLevel) {
	side := types.SideSell
	if order.Side == types.SideSell {
		side = types.SideBuy
	}
	g.emit(types.GatewayEvent{Delta: &types.BookDelta{
		ContractID: order.ContractID,
		OutcomeID:  order.OutcomeID,
		Side:       side,
		Price:      level.Price,
		Size:       level.Size,
		Ts:         time.Now().UTC(),
	}})
}

// emit drops on a full channel; the simulated feed is as lossy as a
// real one.
func (g *Gateway) emit(ev types.GatewayEvent) {
	if !g.streaming {
		return
	}
	select {
	case g.events <- ev:
	default:
	}
}

// Stream delivers the seeded snapshots first, then live fills and
// deltas as submissions mutate the books.
func (g *Gateway) Stream(ctx context.Context) (<-chan types.GatewayEvent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil, types.ErrGatewayUnavailable
	}
	g.streaming = true
	for _, b := range g.books {
		snap := copyBook(b)
		select {
		case g.events <- types.GatewayEvent{Snapshot: &snap}:
		default:
		}
	}
	logger.Info(ctx, "Paper gateway stream started", "books", len(g.books))
	return g.events, nil
}

func (g *Gateway) Close(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	if g.streaming {
		close(g.events)
		g.streaming = false
	}
	logger.Info(ctx, "Paper gateway closed")
	return nil
}
