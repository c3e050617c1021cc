package system

import (
	"go.uber.org/zap"

	"github.com/erasrts/server/internal/core/ecs"
	"github.com/erasrts/server/internal/core/event"
	coresys "github.com/erasrts/server/internal/core/system"
	"github.com/erasrts/server/internal/data"
	"github.com/erasrts/server/internal/world"
)

// EconomySystem runs the resource loop: node harvesting, farm output, food
// upkeep, research timers, and elimination checks. All income and drain is
// integer math on the ledger; contested nodes deplete in ascending gatherer
// id order so every peer empties them identically.
type EconomySystem struct {
	deps *Deps
}

func NewEconomySystem(deps *Deps) *EconomySystem {
	return &EconomySystem{deps: deps}
}

func (s *EconomySystem) Phase() coresys.Phase { return coresys.PhaseEconomy }

func (s *EconomySystem) Update(tick uint64) {
	ws := s.deps.World

	ws.ECS.Each(func(id ecs.EntityID) {
		if node, ok := ws.Nodes.Get(id); ok && node.CooldownLeft > 0 {
			node.CooldownLeft--
		}
	})

	ws.ECS.Each(func(id ecs.EntityID) {
		s.gather(id)
	})
	ws.ECS.Each(func(id ecs.EntityID) {
		s.produce(id)
	})

	upkeep := s.deps.Cfg.Economy.UpkeepEveryTicks
	if upkeep > 0 && tick > 0 && tick%upkeep == 0 {
		s.consumeUpkeep()
	}

	s.tickResearch(tick)
	s.checkEliminations(tick)
}

// gather resolves one worker's harvest against its node. Depleting the last
// of a finite node destroys the node entity; the worker's stale target
// degrades to idle on its next order resolution.
func (s *EconomySystem) gather(id ecs.EntityID) {
	ws := s.deps.World
	act, ok := ws.Actions.Get(id)
	if !ok || act.State != world.ActionGather {
		return
	}
	if !ws.ECS.Alive(act.Target) {
		act.State = world.ActionIdle
		act.Target = 0
		return
	}
	node, ok := ws.Nodes.Get(act.Target)
	if !ok {
		act.State = world.ActionIdle
		return
	}
	if dist, ok := ws.Chebyshev(id, act.Target); !ok || dist > 1 {
		return // still walking over
	}
	a, _ := ws.Actors.Get(id)
	n := ws.Nation(a.Owner)
	if n == nil || !n.Alive {
		return
	}
	tmpl, ok := ws.Template(id)
	if !ok {
		return
	}

	switch node.Kind {
	case data.NodeGold:
		s.harvest(n, node, act, world.Gold, tmpl.GoldPerTick)
	case data.NodeLumber:
		s.harvest(n, node, act, world.Lumber, tmpl.LumberPerTick)
	case data.NodeArcana:
		// Relics answer only to nations deep enough into the tech graph,
		// and only once per cooldown window.
		if n.Tier(ws.Content.Tech) < s.deps.Cfg.Economy.ArcanaTierMinimum {
			return
		}
		if node.CooldownLeft > 0 {
			return
		}
		node.CooldownLeft = node.CooldownTicks
		ws.Credit(n.ID, world.Arcana, 1)
	}
}

func (s *EconomySystem) harvest(n *world.Nation, node *world.Node, act *world.Action, res world.Resource, perTick int64) {
	ws := s.deps.World
	yield := perTick * int64(n.Def.GatherPermille) / 1000
	yield = yield * n.StatModifier(ws.Content.Tech, data.StatGather) / 1000
	if yield <= 0 {
		return
	}
	if !node.Infinite {
		if yield > node.Remaining {
			yield = node.Remaining
		}
		node.Remaining -= yield
	}
	ws.Credit(n.ID, res, yield)
	if !node.Infinite && node.Remaining == 0 {
		ws.ECS.MarkForDestruction(act.Target)
		act.State = world.ActionIdle
		act.Target = 0
	}
}

// produce credits passive building output (farms).
func (s *EconomySystem) produce(id ecs.EntityID) {
	ws := s.deps.World
	tmpl, ok := ws.Template(id)
	if !ok || tmpl.FoodPerTick == 0 {
		return
	}
	hp, ok := ws.Healths.Get(id)
	if !ok || hp.HP <= 0 {
		return
	}
	a, _ := ws.Actors.Get(id)
	n := ws.Nation(a.Owner)
	if n == nil || !n.Alive || n.IsHorde() {
		return
	}
	ws.Credit(n.ID, world.Food, tmpl.FoodPerTick)
}

// consumeUpkeep drains food proportional to supply in use. Partial
// consumption is starvation, not a fault; the stock floors at zero.
func (s *EconomySystem) consumeUpkeep() {
	ws := s.deps.World
	div := s.deps.Cfg.Economy.UpkeepSupplyDiv
	if div <= 0 {
		div = 5
	}
	ws.EachNation(func(n *world.Nation) {
		if !n.Alive {
			return
		}
		ws.ConsumeUpTo(n.ID, world.Food, int64(n.SupplyUsed)/div)
	})
}

func (s *EconomySystem) tickResearch(tick uint64) {
	ws := s.deps.World
	ws.EachNation(func(n *world.Nation) {
		if !n.Alive {
			return
		}
		done := ws.TickResearch(n.ID)
		if done == "" {
			return
		}
		event.Emit(s.deps.Bus, event.ResearchCompleted{Nation: n.ID, NodeID: done, Tick: tick})
		s.deps.Log.Info("research completed",
			zap.Int32("nation", n.ID),
			zap.String("node", done),
			zap.Uint64("tick", tick))
	})
}

// checkEliminations flips Alive off for nations whose base has fallen and
// whose last unit is gone. HP is checked alongside registry liveness because
// combat marks deaths before cleanup flushes them.
func (s *EconomySystem) checkEliminations(tick uint64) {
	ws := s.deps.World
	ws.EachNation(func(n *world.Nation) {
		if !n.Alive {
			return
		}
		if s.entityStanding(n.Base) {
			return
		}
		if s.countStandingUnits(n.ID) > 0 {
			return
		}
		n.Alive = false
		event.Emit(s.deps.Bus, event.NationEliminated{Nation: n.ID, Tick: tick})
		s.deps.Log.Info("nation eliminated",
			zap.Int32("nation", n.ID),
			zap.String("name", n.Def.Name),
			zap.Uint64("tick", tick))
	})
}

func (s *EconomySystem) entityStanding(id ecs.EntityID) bool {
	ws := s.deps.World
	if !ws.ECS.Alive(id) {
		return false
	}
	hp, ok := ws.Healths.Get(id)
	return ok && hp.HP > 0
}

func (s *EconomySystem) countStandingUnits(nation int32) int {
	ws := s.deps.World
	count := 0
	ws.ECS.Each(func(id ecs.EntityID) {
		a, ok := ws.Actors.Get(id)
		if !ok || a.Owner != nation {
			return
		}
		tmpl := ws.Content.Units.Get(a.TypeID)
		if tmpl == nil || tmpl.Class != data.ClassUnit {
			return
		}
		if hp, ok := ws.Healths.Get(id); ok && hp.HP > 0 {
			count++
		}
	})
	return count
}
