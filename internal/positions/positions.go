// Package positions tracks held quantities per contract outcome.
// Quantities change only through applied fills; everything else is a
// read.
package positions

import (
	"sync"

	"news-trading-bot/internal/types"
)

// Store is the single source of truth for held positions. ApplyFill is
// idempotent by fill id so replayed stream events cannot double-count.
type Store struct {
	mu      sync.RWMutex
	held    map[string]types.Position
	applied map[string]struct{}
}

func New() *Store {
	return &Store{
		held:    make(map[string]types.Position),
		applied: make(map[string]struct{}),
	}
}

func key(contractID, outcomeID string) string {
	return contractID + "|" + outcomeID
}

// ApplyFill folds one fill into the position it belongs to. A fill id
// seen before is a no-op. Returns whether the fill was applied.
func (s *Store) ApplyFill(f types.Fill) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.applied[f.ID]; seen {
		return false
	}
	s.applied[f.ID] = struct{}{}

	k := key(f.ContractID, f.OutcomeID)
	p := s.held[k]
	p.ContractID = f.ContractID
	p.OutcomeID = f.OutcomeID

	switch f.Side {
	case types.SideBuy:
		// Weighted-average entry price across buys.
		total := p.Quantity + f.Quantity
		if total > 0 {
			p.AvgPrice = (float64(p.Quantity)*p.AvgPrice + float64(f.Quantity)*f.Price) / float64(total)
		}
		p.Quantity = total
	case types.SideSell:
		p.Quantity -= f.Quantity
		if p.Quantity <= 0 {
			delete(s.held, k)
			return true
		}
	}
	s.held[k] = p
	return true
}

// Get returns the position for one outcome, zero-valued when flat.
func (s *Store) Get(contractID, outcomeID string) types.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.held[key(contractID, outcomeID)]
	if !ok {
		return types.Position{ContractID: contractID, OutcomeID: outcomeID}
	}
	return p
}

// HeldOutcomes lists the outcomes of one contract with nonzero
// quantity.
func (s *Store) HeldOutcomes(contractID string) []types.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Position
	for _, p := range s.held {
		if p.ContractID == contractID {
			out = append(out, p)
		}
	}
	return out
}

// ContractExposure is the capital committed across all outcomes of one
// contract.
func (s *Store) ContractExposure(contractID string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0.0
	for _, p := range s.held {
		if p.ContractID == contractID {
			total += p.Exposure()
		}
	}
	return total
}

// TotalExposure is the capital committed across every contract.
func (s *Store) TotalExposure() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0.0
	for _, p := range s.held {
		total += p.Exposure()
	}
	return total
}

// All returns every open position.
func (s *Store) All() []types.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Position, 0, len(s.held))
	for _, p := range s.held {
		out = append(out, p)
	}
	return out
}

// Replace overwrites the store with the venue's view. Used at startup
// and by order-manager reconciliation; the applied-fill set is kept so
// replayed fills stay idempotent across a reconcile.
func (s *Store) Replace(positions []types.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held = make(map[string]types.Position, len(positions))
	for _, p := range positions {
		if p.Quantity == 0 {
			continue
		}
		s.held[key(p.ContractID, p.OutcomeID)] = p
	}
}
