package system

import (
	"go.uber.org/zap"

	"github.com/erasrts/server/internal/command"
	"github.com/erasrts/server/internal/core/ecs"
	"github.com/erasrts/server/internal/core/event"
	coresys "github.com/erasrts/server/internal/core/system"
	"github.com/erasrts/server/internal/data"
	"github.com/erasrts/server/internal/scripting"
	"github.com/erasrts/server/internal/world"
)

// DirectorSystem drives the zombie escalation: it scores the world's threat,
// advances the phase when the window and score allow (or the ceiling tick
// forces it), and turns every standing nest into spawn commands for the next
// tick. The director holds no private state — its cursor lives in the world
// checksum and its spawns travel through the canonical command stream, so
// every peer runs the same horde.
type DirectorSystem struct {
	deps *Deps
}

func NewDirectorSystem(deps *Deps) *DirectorSystem {
	return &DirectorSystem{deps: deps}
}

func (s *DirectorSystem) Phase() coresys.Phase { return coresys.PhaseDirector }

func (s *DirectorSystem) Update(tick uint64) {
	threat := s.threat(tick)
	s.escalate(tick, threat)
	s.spawn(tick)
}

// threat scores world prosperity. A Lua policy wins when present; otherwise
// BuiltinThreat keeps deployments without scripts running.
func (s *DirectorSystem) threat(tick uint64) int64 {
	ctx := s.threatContext(tick)
	if s.deps.Scripting != nil {
		if score, ok := s.deps.Scripting.ThreatScore(ctx); ok {
			return score
		}
	}
	return BuiltinThreat(ctx)
}

func (s *DirectorSystem) threatContext(tick uint64) scripting.ThreatContext {
	ws := s.deps.World
	ctx := scripting.ThreatContext{
		Tick:        tick,
		ZombieKills: ws.Director.ZombieKills,
	}
	ws.EachNation(func(n *world.Nation) {
		if !n.Alive {
			return
		}
		ctx.NationsAlive++
		ctx.TotalStock += n.Stocks[world.Gold] + n.Stocks[world.Lumber]
		ctx.TotalTechTier += int64(n.Tier(ws.Content.Tech))
		ctx.TotalUnits += int64(ws.CountOwned(n.ID, data.ClassUnit))
		ctx.TotalBuild += int64(ws.CountOwned(n.ID, data.ClassBuilding))
	})
	return ctx
}

// BuiltinThreat is the default threat formula: stockpile wealth, tech
// progress, and expansion all pull the horde forward. Integer math only.
func BuiltinThreat(ctx scripting.ThreatContext) int64 {
	return ctx.TotalStock/8 + ctx.TotalTechTier*15 + ctx.TotalBuild*5 + ctx.TotalUnits*2
}

// escalate advances the phase cursor. The loop handles a pathological
// content table where several ceilings passed at once; phases only ever go
// up.
func (s *DirectorSystem) escalate(tick uint64, threat int64) {
	ws := s.deps.World
	for {
		next := ws.Director.Phase + 1
		ph := ws.Content.Phases.Get(next)
		if ph == nil {
			return
		}
		forced := tick >= ph.CeilTick
		earned := tick >= ph.MinTick && threat >= ph.ThreatThreshold
		if !forced && !earned {
			return
		}
		ws.Director.Phase = next
		if int(next) < len(ws.Director.ActivatedAt) {
			ws.Director.ActivatedAt[next] = tick
		}
		event.Emit(s.deps.Bus, event.PhaseActivated{Phase: next, Tick: tick})
		s.deps.Log.Info("zombie phase activated",
			zap.Int32("phase", next),
			zap.String("name", ph.Name),
			zap.Uint64("tick", tick),
			zap.Int64("threat", threat),
			zap.Bool("forced", forced))
	}
}

// spawn walks every standing nest in ascending id order and injects horde
// spawn commands for the next tick. A wounded nest spawns proportionally
// fewer zombies; a dead nest spawns nothing, ever again.
func (s *DirectorSystem) spawn(tick uint64) {
	ws := s.deps.World
	ph := ws.Content.Phases.Get(ws.Director.Phase)
	if ph == nil || ph.SpawnEveryTicks == 0 {
		return
	}

	var cmds []command.Command
	ws.ECS.Each(func(id ecs.EntityID) {
		nest, ok := ws.Nests.Get(id)
		if !ok {
			return
		}
		if tick < nest.NextSpawnTick {
			return
		}
		nest.NextSpawnTick = tick + ph.SpawnEveryTicks

		hp, ok := ws.Healths.Get(id)
		if !ok || hp.HP <= 0 || hp.Max <= 0 {
			return
		}
		pos, ok := ws.Positions.Get(id)
		if !ok {
			return
		}

		count := int64(ph.SpawnCount) * int64(ph.SpawnRatePermille) / 1000
		count = count * int64(hp.HP) / int64(hp.Max)
		for i := int64(0); i < count; i++ {
			pick := ph.Pool[spawnPick(tick, uint64(id), uint64(i), len(ph.Pool))]
			cmds = append(cmds, command.Command{
				Nation: data.HordeNationID,
				Tick:   tick + 1,
				Kind:   command.KindSpawnHorde,
				TypeID: pick,
				X:      pos.X,
				Y:      pos.Y,
			})
		}
	})
	if len(cmds) > 0 {
		s.deps.Injector.InjectLocal(tick+1, cmds)
	}
}

// spawnPick selects a pool index from (tick, nest, slot) with a splitmix64
// style mix. Pure function of checksummed inputs; there is no RNG stream to
// keep in sync across peers.
func spawnPick(tick, nest, slot uint64, poolLen int) int {
	z := tick*0x9e3779b97f4a7c15 + nest*0xbf58476d1ce4e5b9 + slot*0x94d049bb133111eb
	z ^= z >> 30
	z *= 0xbf58476d1ce4e5b9
	z ^= z >> 27
	z *= 0x94d049bb133111eb
	z ^= z >> 31
	return int(z % uint64(poolLen))
}
