package system

import (
	"github.com/erasrts/server/internal/core/ecs"
	coresys "github.com/erasrts/server/internal/core/system"
	"github.com/erasrts/server/internal/data"
	"github.com/erasrts/server/internal/world"
)

// MovementSystem advances move/chase orders one step at a time and gives
// zombies their engine-level target acquisition. Registered before
// CombatSystem in the same phase; the runner's stable ordering guarantees
// steps land before attack collection on every peer.
//
// Per-unit micro-behavior lives in content, not here: this system only
// closes distance along the straight-line king move, the way the reference
// server steps NPCs tile by tile.
type MovementSystem struct {
	deps *Deps
}

func NewMovementSystem(deps *Deps) *MovementSystem {
	return &MovementSystem{deps: deps}
}

func (s *MovementSystem) Phase() coresys.Phase { return coresys.PhaseCombat }

func (s *MovementSystem) Update(tick uint64) {
	ws := s.deps.World
	ws.ECS.Each(func(id ecs.EntityID) {
		act, ok := ws.Actions.Get(id)
		if !ok {
			return
		}
		tmpl, ok := ws.Template(id)
		if !ok {
			return
		}
		if tmpl.Class == data.ClassZombie && tmpl.CanAttack() {
			s.acquireZombieTarget(id, act)
		}
		switch act.State {
		case world.ActionMove:
			s.stepToward(tick, id, act, tmpl, act.DestX, act.DestY)
		case world.ActionAttack:
			s.chase(tick, id, act, tmpl)
		case world.ActionGather:
			s.approachNode(tick, id, act, tmpl)
		}
	})
}

// acquireZombieTarget retargets a zombie whose victim died: nearest entity
// of any player nation, ties broken by lowest id so peers agree.
func (s *MovementSystem) acquireZombieTarget(id ecs.EntityID, act *world.Action) {
	ws := s.deps.World
	if act.State == world.ActionAttack && ws.ECS.Alive(act.Target) {
		return
	}
	pos, ok := ws.Positions.Get(id)
	if !ok {
		return
	}
	var best ecs.EntityID
	bestDist := int32(1 << 30)
	ws.ECS.Each(func(other ecs.EntityID) {
		a, ok := ws.Actors.Get(other)
		if !ok || a.Owner == data.HordeNationID {
			return
		}
		if _, ok := ws.Healths.Get(other); !ok {
			return
		}
		p, ok := ws.Positions.Get(other)
		if !ok {
			return
		}
		d := chebyshev(pos.X, pos.Y, p.X, p.Y)
		if d < bestDist { // strict: first (lowest) id wins ties
			bestDist = d
			best = other
		}
	})
	if best != 0 {
		act.State = world.ActionAttack
		act.Target = best
	} else {
		act.State = world.ActionIdle
		act.Target = 0
	}
}

// chase closes distance on an attack target that is out of range.
func (s *MovementSystem) chase(tick uint64, id ecs.EntityID, act *world.Action, tmpl *data.UnitType) {
	ws := s.deps.World
	if !ws.ECS.Alive(act.Target) {
		act.State = world.ActionIdle
		act.Target = 0
		return
	}
	dist, ok := ws.Chebyshev(id, act.Target)
	if !ok {
		act.State = world.ActionIdle
		return
	}
	if dist <= tmpl.Range {
		return // in range, resolver takes it from here
	}
	tp, ok := ws.Positions.Get(act.Target)
	if !ok {
		return
	}
	s.stepToward(tick, id, act, tmpl, tp.X, tp.Y)
}

// approachNode walks a gatherer adjacent to its node.
func (s *MovementSystem) approachNode(tick uint64, id ecs.EntityID, act *world.Action, tmpl *data.UnitType) {
	ws := s.deps.World
	if !ws.ECS.Alive(act.Target) {
		act.State = world.ActionIdle
		act.Target = 0
		return
	}
	dist, ok := ws.Chebyshev(id, act.Target)
	if !ok || dist <= 1 {
		return
	}
	tp, ok := ws.Positions.Get(act.Target)
	if !ok {
		return
	}
	s.stepToward(tick, id, act, tmpl, tp.X, tp.Y)
}

// stepToward performs one king move toward the destination when the move
// cooldown allows, honoring speed status effects as permille interval
// scaling.
func (s *MovementSystem) stepToward(tick uint64, id ecs.EntityID, act *world.Action, tmpl *data.UnitType, tx, ty int32) {
	ws := s.deps.World
	if tmpl.MoveEveryTicks == 0 {
		return // immobile
	}
	if act.MoveCooldown > 0 {
		act.MoveCooldown--
		return
	}
	pos, ok := ws.Positions.Get(id)
	if !ok {
		return
	}
	if pos.X == tx && pos.Y == ty {
		if act.State == world.ActionMove {
			act.State = world.ActionIdle
		}
		return
	}
	pos.X += sign(tx - pos.X)
	pos.Y += sign(ty - pos.Y)

	interval := int64(tmpl.MoveEveryTicks)
	if st, ok := ws.Statuses.Get(id); ok {
		speedMod := st.Modifier(data.StatSpeed, tick)
		if speedMod > 0 {
			interval = interval * 1000 / speedMod
		}
	}
	if interval < 1 {
		interval = 1
	}
	act.MoveCooldown = uint64(interval) - 1
}

func sign(n int32) int32 {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}

func chebyshev(x1, y1, x2, y2 int32) int32 {
	dx := x1 - x2
	if dx < 0 {
		dx = -dx
	}
	dy := y1 - y2
	if dy < 0 {
		dy = -dy
	}
	if dy > dx {
		return dy
	}
	return dx
}
