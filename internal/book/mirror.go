// Package book keeps a local mirror of venue order books. One writer
// (the gateway stream consumer) applies snapshots and deltas; sizing
// and depth queries are concurrent reads.
package book

import (
	"math"
	"sort"
	"sync"

	"news-trading-bot/internal/types"
)

// Mirror holds the last known depth per contract outcome. All reads
// are pure; prices never move as a side effect of a query.
type Mirror struct {
	mu    sync.RWMutex
	books map[string]*types.OrderBookSnapshot
}

func New() *Mirror {
	return &Mirror{books: make(map[string]*types.OrderBookSnapshot)}
}

func key(contractID, outcomeID string) string {
	return contractID + "|" + outcomeID
}

// ApplySnapshot replaces the whole book for one outcome. Both sides
// are re-sorted; snapshots from the venue are not trusted to be
// ordered.
func (m *Mirror) ApplySnapshot(snap types.OrderBookSnapshot) {
	bids := make([]types.PriceLevel, len(snap.Bids))
	copy(bids, snap.Bids)
	asks := make([]types.PriceLevel, len(snap.Asks))
	copy(asks, snap.Asks)
	sort.Slice(bids, func(i, j int) bool { return bids[i].Price > bids[j].Price })
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price < asks[j].Price })

	m.mu.Lock()
	defer m.mu.Unlock()
	m.books[key(snap.ContractID, snap.OutcomeID)] = &types.OrderBookSnapshot{
		ContractID: snap.ContractID,
		OutcomeID:  snap.OutcomeID,
		Bids:       bids,
		Asks:       asks,
		UpdatedAt:  snap.UpdatedAt,
	}
}

// ApplyDelta updates one price level. Size 0 removes the level. A
// delta for an outcome with no snapshot yet starts an empty book.
func (m *Mirror) ApplyDelta(d types.BookDelta) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(d.ContractID, d.OutcomeID)
	b, ok := m.books[k]
	if !ok {
		b = &types.OrderBookSnapshot{ContractID: d.ContractID, OutcomeID: d.OutcomeID}
		m.books[k] = b
	}
	if d.Side == types.SideBuy {
		b.Bids = applyLevel(b.Bids, d.Price, d.Size, func(i, j types.PriceLevel) bool { return i.Price > j.Price })
	} else {
		b.Asks = applyLevel(b.Asks, d.Price, d.Size, func(i, j types.PriceLevel) bool { return i.Price < j.Price })
	}
	b.UpdatedAt = d.Ts
}

func applyLevel(levels []types.PriceLevel, price float64, size int, before func(i, j types.PriceLevel) bool) []types.PriceLevel {
	for i, l := range levels {
		if l.Price == price {
			if size == 0 {
				return append(levels[:i], levels[i+1:]...)
			}
			levels[i].Size = size
			return levels
		}
	}
	if size == 0 {
		return levels
	}
	levels = append(levels, types.PriceLevel{Price: price, Size: size})
	sort.Slice(levels, func(i, j int) bool { return before(levels[i], levels[j]) })
	return levels
}

// Snapshot returns a copy of the current book for one outcome.
func (m *Mirror) Snapshot(contractID, outcomeID string) (types.OrderBookSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[key(contractID, outcomeID)]
	if !ok {
		return types.OrderBookSnapshot{}, false
	}
	out := *b
	out.Bids = append([]types.PriceLevel(nil), b.Bids...)
	out.Asks = append([]types.PriceLevel(nil), b.Asks...)
	return out, true
}

// AvailableDepth sums the size a taker on the given side could reach
// within the price cap: ask size at or under the cap for buys, bid
// size at or over it for sells. Unknown books have zero depth.
func (m *Mirror) AvailableDepth(contractID, outcomeID string, side types.Side, priceCap float64) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[key(contractID, outcomeID)]
	if !ok {
		return 0
	}
	total := 0
	for _, l := range facing(b, side) {
		if !withinCap(side, l.Price, priceCap) {
			break
		}
		total += l.Size
	}
	return total
}

// EstimatedImpact is the price displacement of filling qty against the
// book: worst consumed level minus best level, as a positive number.
// Insufficient depth reports +Inf.
func (m *Mirror) EstimatedImpact(contractID, outcomeID string, side types.Side, qty int) float64 {
	if qty <= 0 {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[key(contractID, outcomeID)]
	if !ok {
		return math.Inf(1)
	}
	levels := facing(b, side)
	if len(levels) == 0 {
		return math.Inf(1)
	}
	best := levels[0].Price
	remaining := qty
	for _, l := range levels {
		remaining -= l.Size
		if remaining <= 0 {
			return math.Abs(l.Price - best)
		}
	}
	return math.Inf(1)
}

// MaxQuantityWithin is the largest quantity whose fill stays inside
// both the price cap and the impact tolerance. Used by the decision
// engine to clip sizing before risk validation.
func (m *Mirror) MaxQuantityWithin(contractID, outcomeID string, side types.Side, priceCap, tolerance float64) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[key(contractID, outcomeID)]
	if !ok {
		return 0
	}
	levels := facing(b, side)
	if len(levels) == 0 {
		return 0
	}
	best := levels[0].Price
	total := 0
	for _, l := range levels {
		if !withinCap(side, l.Price, priceCap) {
			break
		}
		// Small epsilon so float noise does not reject a level sitting
		// exactly on the tolerance.
		if math.Abs(l.Price-best) > tolerance+1e-9 {
			break
		}
		total += l.Size
	}
	return total
}

// facing returns the side of the book a taker order consumes.
func facing(b *types.OrderBookSnapshot, side types.Side) []types.PriceLevel {
	if side == types.SideBuy {
		return b.Asks
	}
	return b.Bids
}

// withinCap: the cap is a ceiling for buys and a floor for sells.
func withinCap(side types.Side, price, cap float64) bool {
	if side == types.SideBuy {
		return price <= cap
	}
	return price >= cap
}
