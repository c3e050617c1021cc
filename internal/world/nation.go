package world

import (
	"sort"

	"github.com/erasrts/server/internal/core/ecs"
	"github.com/erasrts/server/internal/data"
)

// Resource indexes into a nation's stock array.
type Resource uint8

const (
	Gold Resource = iota
	Lumber
	Food
	Arcana
	resourceCount
)

func (r Resource) String() string {
	switch r {
	case Gold:
		return "gold"
	case Lumber:
		return "lumber"
	case Food:
		return "food"
	case Arcana:
		return "arcana"
	}
	return "unknown"
}

// Nation is the per-player mutable record. Created once at match start from
// the roster, never destroyed — elimination only flips Alive.
type Nation struct {
	ID     int32
	Def    *data.NationDef
	Stocks [4]int64 // non-negative by construction; debit fails closed

	SupplyCap  int32
	SupplyUsed int32

	// Tech cursor: sorted unlocked ids plus at most one in-flight node.
	Unlocked     []string
	unlockedSet  map[string]struct{}
	Researching  string
	ResearchLeft int32

	Alive bool
	Base  ecs.EntityID
}

func newNation(def *data.NationDef) *Nation {
	n := &Nation{
		ID:          def.ID,
		Def:         def,
		Alive:       true,
		unlockedSet: make(map[string]struct{}, 16),
	}
	n.Stocks[Gold] = def.StartStock.Gold
	n.Stocks[Lumber] = def.StartStock.Lumber
	n.Stocks[Food] = def.StartStock.Food
	n.Stocks[Arcana] = def.StartStock.Arcana
	return n
}

func (n *Nation) IsHorde() bool { return n.ID == data.HordeNationID }

func (n *Nation) HasUnlocked(nodeID string) bool {
	_, ok := n.unlockedSet[nodeID]
	return ok
}

// unlock inserts keeping Unlocked sorted; the slice is checksummed.
func (n *Nation) unlock(nodeID string) {
	if n.HasUnlocked(nodeID) {
		return
	}
	n.unlockedSet[nodeID] = struct{}{}
	i := sort.SearchStrings(n.Unlocked, nodeID)
	n.Unlocked = append(n.Unlocked, "")
	copy(n.Unlocked[i+1:], n.Unlocked[i:])
	n.Unlocked[i] = nodeID
}

// Tier returns the highest tier among unlocked nodes, minimum 1.
func (n *Nation) Tier(tech *data.TechTable) int32 {
	tier := int32(1)
	for _, id := range n.Unlocked {
		if node := tech.Get(id); node != nil && node.Tier > tier {
			tier = node.Tier
		}
	}
	return tier
}

// StatModifier folds all unlocked stat-effect nodes for one stat key into a
// single permille multiplier. Re-derived on demand instead of cached so the
// checksum never has to cover derived values.
func (n *Nation) StatModifier(tech *data.TechTable, stat string) int64 {
	mod := int64(1000)
	for _, id := range n.Unlocked {
		node := tech.Get(id)
		if node == nil || node.Effect.Kind != data.EffectStat || node.Effect.Stat != stat {
			continue
		}
		mod = mod * int64(node.Effect.Permille) / 1000
	}
	return mod
}

// TypeAvailable reports whether a unit/building type is buildable: either
// ungated or gated behind a tech node this nation has unlocked.
func (n *Nation) TypeAvailable(u *data.UnitType) bool {
	if u.RequiresTech == "" {
		return true
	}
	return n.HasUnlocked(u.RequiresTech)
}
