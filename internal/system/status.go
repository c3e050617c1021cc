package system

import (
	"github.com/erasrts/server/internal/core/ecs"
	coresys "github.com/erasrts/server/internal/core/system"
	"github.com/erasrts/server/internal/data"
	"github.com/erasrts/server/internal/world"
)

// StatusSystem expires finished status effects and re-derives the active
// phase's world debuff. The debuff is refreshed every tick with a short
// expiry instead of being applied once: phase state then never needs a
// "remove old debuff" transition, and a freshly spawned unit picks it up on
// its first status pass.
type StatusSystem struct {
	deps *Deps
}

func NewStatusSystem(deps *Deps) *StatusSystem {
	return &StatusSystem{deps: deps}
}

func (s *StatusSystem) Phase() coresys.Phase { return coresys.PhaseStatus }

func (s *StatusSystem) Update(tick uint64) {
	ws := s.deps.World
	debuff := s.activeDebuff()

	ws.ECS.Each(func(id ecs.EntityID) {
		st, ok := ws.Statuses.Get(id)
		if !ok {
			return
		}
		expire(st, tick)
		if debuff == nil {
			return
		}
		a, ok := ws.Actors.Get(id)
		if !ok || a.Owner == data.HordeNationID {
			return
		}
		st.Refresh(world.StatusEffect{
			Kind:          world.StatusPhaseDebuff,
			Stat:          debuff.Stat,
			Permille:      debuff.Permille,
			ExpiresAtTick: tick + 2,
		})
	})
}

func (s *StatusSystem) activeDebuff() *data.PhaseDebuff {
	ph := s.deps.World.Content.Phases.Get(s.deps.World.Director.Phase)
	if ph == nil || ph.Debuff.Stat == "" {
		return nil
	}
	return &ph.Debuff
}

// expire filters in place, preserving application order of survivors.
func expire(st *world.StatusList, tick uint64) {
	kept := st.Effects[:0]
	for _, e := range st.Effects {
		if e.ExpiresAtTick > tick {
			kept = append(kept, e)
		}
	}
	st.Effects = kept
}
