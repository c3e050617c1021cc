package world

import "github.com/erasrts/server/internal/core/ecs"

// ActionState is what an entity is doing this tick.
type ActionState uint8

const (
	ActionIdle ActionState = iota
	ActionMove
	ActionGather
	ActionAttack
	ActionBuild
	ActionTraining
)

// Actor is the identity component present on every entity: its static type
// and owning nation. Zombies are owned by the Horde pseudo-nation (id 0).
type Actor struct {
	TypeID string
	Owner  int32
}

type Position struct {
	X, Y int32
}

type Health struct {
	HP, Max int32
}

// Combat carries the mutable attack bookkeeping. Static attack/range/armor
// live in the unit type template; cooldown is the only per-entity counter.
type Combat struct {
	CooldownLeft uint64
}

// Action is the current order. Target references are entity ids re-resolved
// through the registry every tick — the target may have died since the order
// was issued, and a stale id must degrade to a no-op, never a crash.
type Action struct {
	State        ActionState
	Target       ecs.EntityID // attack/gather target
	DestX, DestY int32        // move destination
	MoveCooldown uint64       // ticks until next step
}

// StatusKind discriminates status effects.
type StatusKind uint8

const (
	StatusMorale      StatusKind = iota + 1 // survived combat vs zombies
	StatusPhaseDebuff                       // world-level debuff, re-derived each tick
)

// StatusEffect is a time-boxed stat modifier. Expiry is an absolute tick.
type StatusEffect struct {
	Kind          StatusKind
	Stat          string // data.Stat* key
	Permille      int32
	ExpiresAtTick uint64
	SourceTypeID  string // who inflicted it, for diagnostics
}

// StatusList is kept in application order; stacking order matters for
// on-hit effects, raw damage is commutative either way.
type StatusList struct {
	Effects []StatusEffect
}

// Modifier returns the combined permille multiplier this entity's effects
// apply to a stat at the given tick.
func (s *StatusList) Modifier(stat string, tick uint64) int64 {
	mod := int64(1000)
	for _, e := range s.Effects {
		if e.Stat == stat && e.ExpiresAtTick > tick {
			mod = mod * int64(e.Permille) / 1000
		}
	}
	return mod
}

// Refresh replaces an existing effect of the same kind+stat or appends.
func (s *StatusList) Refresh(ef StatusEffect) {
	for i := range s.Effects {
		if s.Effects[i].Kind == ef.Kind && s.Effects[i].Stat == ef.Stat {
			s.Effects[i] = ef
			return
		}
	}
	s.Effects = append(s.Effects, ef)
}

// Nest is the spawn-source component on nest entities. Destroying the nest
// entity removes the component and with it all future spawns from its
// region.
type Nest struct {
	NextSpawnTick uint64
}

// Node is the resource-node component. Gold/lumber deplete; arcana relics
// are infinite with a harvest cooldown instead.
type Node struct {
	Kind          string // data.Node* kind
	Remaining     int64
	Infinite      bool
	CooldownTicks uint64
	CooldownLeft  uint64
}
