package world

import (
	"fmt"
	"sort"

	"github.com/erasrts/server/internal/core/ecs"
	"github.com/erasrts/server/internal/data"
)

// DirectorState is the zombie director's entire mutable state. Everything
// the director needs beyond this struct lives in static content or in nest
// components, so every peer derives identical spawn decisions.
type DirectorState struct {
	Phase       int32 // 1..4, monotonic, never deactivates
	ActivatedAt [5]uint64
	ZombieKills int64 // threat input: total zombies slain by nations
}

// State is all mutable match state: nations, the entity registry, component
// stores, and the director cursor. Mutated only by the single active tick's
// pipeline — no locks, per the lockstep concurrency model.
type State struct {
	Tick    uint64
	Content *data.Content

	ECS       *ecs.World
	Actors    *ecs.PtrComponentStore[Actor]
	Positions *ecs.PtrComponentStore[Position]
	Healths   *ecs.PtrComponentStore[Health]
	Combats   *ecs.PtrComponentStore[Combat]
	Actions   *ecs.PtrComponentStore[Action]
	Statuses  *ecs.PtrComponentStore[StatusList]
	Nests     *ecs.PtrComponentStore[Nest]
	Nodes     *ecs.PtrComponentStore[Node]

	nations   map[int32]*Nation
	nationIDs []int32 // ascending, fixed at match start

	Director DirectorState
}

// NewState builds the initial match state from static content: one nation
// per roster entry, a base per player nation, map resource nodes, and nests.
func NewState(content *data.Content) (*State, error) {
	s := &State{
		Content:   content,
		ECS:       ecs.NewWorld(),
		Actors:    ecs.NewPtrComponentStore[Actor](),
		Positions: ecs.NewPtrComponentStore[Position](),
		Healths:   ecs.NewPtrComponentStore[Health](),
		Combats:   ecs.NewPtrComponentStore[Combat](),
		Actions:   ecs.NewPtrComponentStore[Action](),
		Statuses:  ecs.NewPtrComponentStore[StatusList](),
		Nests:     ecs.NewPtrComponentStore[Nest](),
		Nodes:     ecs.NewPtrComponentStore[Node](),
		nations:   make(map[int32]*Nation, 9),
	}
	for _, store := range []ecs.Removable{
		s.Actors, s.Positions, s.Healths, s.Combats,
		s.Actions, s.Statuses, s.Nests, s.Nodes,
	} {
		s.ECS.Registry().Register(store)
	}
	s.Director.Phase = 1 // phase 1 is active from tick 0

	for _, id := range content.Nations.IDs() {
		def := content.Nations.Get(id)
		n := newNation(def)
		s.nations[id] = n
		s.nationIDs = append(s.nationIDs, id)
		if n.IsHorde() {
			continue
		}
		base := content.Units.Get("base")
		if base == nil {
			return nil, fmt.Errorf("content has no %q building type", "base")
		}
		n.Base = s.SpawnEntity("base", id, def.StartX, def.StartY)
	}
	sort.Slice(s.nationIDs, func(i, j int) bool { return s.nationIDs[i] < s.nationIDs[j] })

	for _, nd := range content.Map.Nodes {
		id := s.ECS.CreateEntity()
		s.Nodes.Set(id, &Node{
			Kind:          nd.Kind,
			Remaining:     nd.Amount,
			Infinite:      nd.Infinite,
			CooldownTicks: nd.CooldownTicks,
		})
		s.Positions.Set(id, &Position{X: nd.X, Y: nd.Y})
	}
	for _, nest := range content.Map.Nests {
		id := s.SpawnEntity("nest", data.HordeNationID, nest.X, nest.Y)
		if h, ok := s.Healths.Get(id); ok && nest.HP > 0 {
			h.HP, h.Max = nest.HP, nest.HP
		}
		s.Nests.Set(id, &Nest{})
	}
	s.RecomputeSupply(12)
	return s, nil
}

// Nation returns a nation by id, or nil for an unknown id.
func (s *State) Nation(id int32) *Nation {
	return s.nations[id]
}

// NationIDs returns all roster ids ascending, including the Horde.
func (s *State) NationIDs() []int32 {
	return s.nationIDs
}

// EachNation visits player nations (not the Horde) in ascending id order.
func (s *State) EachNation(fn func(*Nation)) {
	for _, id := range s.nationIDs {
		n := s.nations[id]
		if !n.IsHorde() {
			fn(n)
		}
	}
}

// AliveNations counts player nations still in the match.
func (s *State) AliveNations() int {
	count := 0
	s.EachNation(func(n *Nation) {
		if n.Alive {
			count++
		}
	})
	return count
}

// SpawnEntity creates an entity of the given type with full health at a
// position. Unknown type ids panic: content is cross-checked at load, so a
// bad id here is a programming error, not runtime input.
func (s *State) SpawnEntity(typeID string, owner int32, x, y int32) ecs.EntityID {
	tmpl := s.Content.Units.Get(typeID)
	if tmpl == nil {
		panic(fmt.Sprintf("world: spawn of unknown type %q", typeID))
	}
	id := s.ECS.CreateEntity()
	s.Actors.Set(id, &Actor{TypeID: typeID, Owner: owner})
	s.Positions.Set(id, &Position{X: x, Y: y})
	s.Healths.Set(id, &Health{HP: tmpl.HP, Max: tmpl.HP})
	s.Actions.Set(id, &Action{State: ActionIdle})
	s.Statuses.Set(id, &StatusList{})
	if tmpl.CanAttack() {
		s.Combats.Set(id, &Combat{})
	}
	return id
}

// Template resolves an entity's static type. Second return is false when the
// entity or its actor component is gone (stale reference).
func (s *State) Template(id ecs.EntityID) (*data.UnitType, bool) {
	a, ok := s.Actors.Get(id)
	if !ok {
		return nil, false
	}
	tmpl := s.Content.Units.Get(a.TypeID)
	return tmpl, tmpl != nil
}

// OwnedBy reports whether a live entity belongs to the nation.
func (s *State) OwnedBy(id ecs.EntityID, nation int32) bool {
	if !s.ECS.Alive(id) {
		return false
	}
	a, ok := s.Actors.Get(id)
	return ok && a.Owner == nation
}

// CountOwned counts live entities of one nation matching the class filter
// ("" = all classes).
func (s *State) CountOwned(nation int32, class string) int {
	count := 0
	s.ECS.Each(func(id ecs.EntityID) {
		a, ok := s.Actors.Get(id)
		if !ok || a.Owner != nation {
			return
		}
		if class != "" {
			tmpl := s.Content.Units.Get(a.TypeID)
			if tmpl == nil || tmpl.Class != class {
				return
			}
		}
		count++
	})
	return count
}

// RecomputeSupply re-derives supply cap and usage for every nation from the
// live entity set. Derived, not incremental: cheap enough per call and
// immune to drift bugs. Called by systems that change the entity population
// (training, building, cleanup).
func (s *State) RecomputeSupply(baseSupply int32) {
	if baseSupply <= 0 {
		baseSupply = 12
	}
	for _, n := range s.nations {
		n.SupplyCap = baseSupply
		n.SupplyUsed = 0
	}
	s.ECS.Each(func(id ecs.EntityID) {
		a, ok := s.Actors.Get(id)
		if !ok {
			return
		}
		n := s.nations[a.Owner]
		if n == nil || n.IsHorde() {
			return
		}
		tmpl := s.Content.Units.Get(a.TypeID)
		if tmpl == nil {
			return
		}
		n.SupplyCap += tmpl.SupplyAdd
		n.SupplyUsed += tmpl.SupplyCost
	})
}

// Chebyshev returns the board distance between two entities, or false if
// either lacks a position.
func (s *State) Chebyshev(a, b ecs.EntityID) (int32, bool) {
	pa, ok := s.Positions.Get(a)
	if !ok {
		return 0, false
	}
	pb, ok := s.Positions.Get(b)
	if !ok {
		return 0, false
	}
	return chebyshev(pa.X, pa.Y, pb.X, pb.Y), true
}

func chebyshev(x1, y1, x2, y2 int32) int32 {
	dx := abs32(x1 - x2)
	dy := abs32(y1 - y2)
	if dy > dx {
		return dy
	}
	return dx
}

func abs32(n int32) int32 {
	if n < 0 {
		return -n
	}
	return n
}
