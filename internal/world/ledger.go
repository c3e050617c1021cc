package world

import (
	"errors"
	"fmt"

	"github.com/erasrts/server/internal/data"
)

// ErrInsufficient is the refused-debit outcome. Never a clamp: a bundled
// debit that cannot be covered in full deducts nothing.
var ErrInsufficient = errors.New("insufficient resources")

// CanAfford reports whether every line item of the cost is covered.
func (n *Nation) CanAfford(c data.Cost) bool {
	return n.Stocks[Gold] >= c.Gold &&
		n.Stocks[Lumber] >= c.Lumber &&
		n.Stocks[Food] >= c.Food &&
		n.Stocks[Arcana] >= c.Arcana
}

// Credit adds to one stock. Negative amounts are a programming error.
func (s *State) Credit(nation int32, r Resource, amount int64) {
	if amount < 0 {
		panic(fmt.Sprintf("ledger: negative credit %d %s", amount, r))
	}
	n := s.nations[nation]
	if n == nil {
		return
	}
	n.Stocks[r] += amount
}

// Debit atomically deducts a bundled cost, failing closed: on
// ErrInsufficient no stock is touched and no stock ever goes negative.
func (s *State) Debit(nation int32, c data.Cost) error {
	n := s.nations[nation]
	if n == nil {
		return fmt.Errorf("ledger: unknown nation %d", nation)
	}
	if !n.CanAfford(c) {
		return ErrInsufficient
	}
	n.Stocks[Gold] -= c.Gold
	n.Stocks[Lumber] -= c.Lumber
	n.Stocks[Food] -= c.Food
	n.Stocks[Arcana] -= c.Arcana
	return nil
}

// ConsumeUpTo deducts at most the requested amount from one stock and
// returns what was actually taken. Used for passive upkeep, where partial
// consumption (starvation) is the intended semantics, unlike command debits.
func (s *State) ConsumeUpTo(nation int32, r Resource, amount int64) int64 {
	n := s.nations[nation]
	if n == nil || amount <= 0 {
		return 0
	}
	taken := amount
	if n.Stocks[r] < taken {
		taken = n.Stocks[r]
	}
	n.Stocks[r] -= taken
	return taken
}
