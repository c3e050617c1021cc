package system

import (
	"errors"

	"go.uber.org/zap"

	"github.com/erasrts/server/internal/command"
	"github.com/erasrts/server/internal/core/ecs"
	coresys "github.com/erasrts/server/internal/core/system"
	"github.com/erasrts/server/internal/data"
	"github.com/erasrts/server/internal/world"
)

// CommandSystem applies the tick's canonical command set (Phase 0).
// The session stores the agreed batch before the runner ticks; validation
// failures drop the command with a recorded reason and never partially
// apply. Per-command errors never halt the pipeline.
type CommandSystem struct {
	deps  *Deps
	batch []command.Command
}

func NewCommandSystem(deps *Deps) *CommandSystem {
	return &CommandSystem{deps: deps}
}

func (s *CommandSystem) Phase() coresys.Phase { return coresys.PhaseCommands }

// SetBatch hands over the canonical command set for the upcoming tick.
func (s *CommandSystem) SetBatch(cmds []command.Command) {
	s.batch = cmds
}

func (s *CommandSystem) Update(tick uint64) {
	for _, c := range s.batch {
		reason, changedPop := s.apply(tick, c)
		if reason != "" {
			s.reject(tick, c, reason)
			continue
		}
		// Recompute immediately so later commands in the same batch validate
		// against the updated supply figures, not the start-of-tick ones.
		if changedPop {
			s.deps.World.RecomputeSupply(s.deps.Cfg.Economy.BaseSupply)
		}
	}
	s.batch = nil
}

func (s *CommandSystem) reject(tick uint64, c command.Command, reason command.RejectReason) {
	rej := command.Rejected{Nation: c.Nation, Tick: tick, Kind: c.Kind, Reason: reason}
	if s.deps.Diag != nil {
		s.deps.Diag.RecordRejected(rej)
	}
	s.deps.Log.Debug("command rejected",
		zap.Int32("nation", c.Nation),
		zap.Uint64("tick", tick),
		zap.String("kind", c.Kind.String()),
		zap.String("reason", string(reason)))
}

// apply returns a non-empty reject reason on failure; changedPop reports
// whether the entity population changed (supply must be recomputed).
func (s *CommandSystem) apply(tick uint64, c command.Command) (command.RejectReason, bool) {
	ws := s.deps.World

	if c.Kind == command.KindSpawnHorde {
		// Horde entities carry no supply, so no recompute is needed.
		return s.applySpawnHorde(c), false
	}

	n := ws.Nation(c.Nation)
	if n == nil || n.IsHorde() {
		return command.RejectNotOwner, false
	}
	if !n.Alive {
		return command.RejectNationDead, false
	}

	switch c.Kind {
	case command.KindMove:
		return s.applyMove(c), false
	case command.KindTrain:
		return s.applyTrain(n, c)
	case command.KindBuild:
		return s.applyBuild(n, c)
	case command.KindResearch:
		return s.applyResearch(c), false
	case command.KindAttack:
		return s.applyAttack(c), false
	case command.KindGather:
		return s.applyGather(c), false
	case command.KindCancel:
		return s.applyCancel(c), false
	}
	return command.RejectUnknownKind, false
}

func (s *CommandSystem) applyMove(c command.Command) command.RejectReason {
	ws := s.deps.World
	if !ws.OwnedBy(c.Actor, c.Nation) {
		return command.RejectNotOwner
	}
	tmpl, ok := ws.Template(c.Actor)
	if !ok {
		return command.RejectNotFound
	}
	if tmpl.Class != data.ClassUnit || tmpl.MoveEveryTicks == 0 {
		return command.RejectWrongClass
	}
	if !s.inBounds(c.X, c.Y) {
		return command.RejectOutOfBounds
	}
	act, ok := ws.Actions.Get(c.Actor)
	if !ok {
		return command.RejectNotFound
	}
	act.State = world.ActionMove
	act.DestX, act.DestY = c.X, c.Y
	act.Target = 0
	return ""
}

func (s *CommandSystem) applyTrain(n *world.Nation, c command.Command) (command.RejectReason, bool) {
	ws := s.deps.World
	tmpl := ws.Content.Units.Get(c.TypeID)
	if tmpl == nil {
		return command.RejectTypeUnknown, false
	}
	if tmpl.Class != data.ClassUnit {
		return command.RejectWrongClass, false
	}
	if !n.TypeAvailable(tmpl) {
		return command.RejectTypeLocked, false
	}
	// Training bonus yields extra units per order at very high permille,
	// mirroring the roster's original floor(1 * bonus) semantics.
	count := int32(n.Def.TrainingPermille / 1000)
	if count < 1 {
		count = 1
	}
	if n.SupplyUsed+tmpl.SupplyCost*count > n.SupplyCap {
		return command.RejectSupplyCap, false
	}
	if err := ws.Debit(n.ID, tmpl.Cost); err != nil {
		return command.RejectInsufficient, false
	}
	base, ok := ws.Positions.Get(n.Base)
	x, y := c.X, c.Y
	if x == 0 && y == 0 && ok {
		x, y = base.X+1, base.Y+1 // rally next to the base by default
	}
	for i := int32(0); i < count; i++ {
		ws.SpawnEntity(c.TypeID, n.ID, x, y)
	}
	return "", true
}

func (s *CommandSystem) applyBuild(n *world.Nation, c command.Command) (command.RejectReason, bool) {
	ws := s.deps.World
	tmpl := ws.Content.Units.Get(c.TypeID)
	if tmpl == nil {
		return command.RejectTypeUnknown, false
	}
	if tmpl.Class != data.ClassBuilding {
		return command.RejectWrongClass, false
	}
	if !n.TypeAvailable(tmpl) {
		return command.RejectTypeLocked, false
	}
	if !s.inBounds(c.X, c.Y) {
		return command.RejectOutOfBounds, false
	}
	if s.buildingAt(c.X, c.Y) {
		return command.RejectBadPlacement, false
	}
	if err := ws.Debit(n.ID, tmpl.Cost); err != nil {
		return command.RejectInsufficient, false
	}
	ws.SpawnEntity(c.TypeID, n.ID, c.X, c.Y)
	return "", true
}

func (s *CommandSystem) applyResearch(c command.Command) command.RejectReason {
	err := s.deps.World.BeginResearch(c.Nation, c.TechID)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, world.ErrTechUnknown):
		return command.RejectTechUnknown
	case errors.Is(err, world.ErrTechPrereq):
		return command.RejectTechPrereq
	case errors.Is(err, world.ErrTechUnlocked):
		return command.RejectTechUnlocked
	case errors.Is(err, world.ErrTechBusy):
		return command.RejectTechBusy
	case errors.Is(err, world.ErrTechForeign):
		return command.RejectTechForeign
	case errors.Is(err, world.ErrInsufficient):
		return command.RejectInsufficient
	}
	return command.RejectTechUnknown
}

func (s *CommandSystem) applyAttack(c command.Command) command.RejectReason {
	ws := s.deps.World
	if !ws.OwnedBy(c.Actor, c.Nation) {
		return command.RejectNotOwner
	}
	tmpl, ok := ws.Template(c.Actor)
	if !ok || !tmpl.CanAttack() {
		return command.RejectWrongClass
	}
	// The target may die later this tick; stale ids degrade to no-ops in
	// the resolver, but a target already gone at submission is rejected.
	if !ws.ECS.Alive(c.Target) {
		return command.RejectNotFound
	}
	act, ok := ws.Actions.Get(c.Actor)
	if !ok {
		return command.RejectNotFound
	}
	act.State = world.ActionAttack
	act.Target = c.Target
	return ""
}

func (s *CommandSystem) applyGather(c command.Command) command.RejectReason {
	ws := s.deps.World
	if !ws.OwnedBy(c.Actor, c.Nation) {
		return command.RejectNotOwner
	}
	tmpl, ok := ws.Template(c.Actor)
	if !ok {
		return command.RejectNotFound
	}
	if tmpl.GoldPerTick == 0 && tmpl.LumberPerTick == 0 {
		return command.RejectWrongClass // not a gatherer
	}
	if !ws.ECS.Alive(c.Target) {
		return command.RejectNotFound
	}
	if _, ok := ws.Nodes.Get(c.Target); !ok {
		return command.RejectNotFound
	}
	act, ok := ws.Actions.Get(c.Actor)
	if !ok {
		return command.RejectNotFound
	}
	act.State = world.ActionGather
	act.Target = c.Target
	return ""
}

func (s *CommandSystem) applyCancel(c command.Command) command.RejectReason {
	ws := s.deps.World
	if c.TechID != "" {
		if !ws.CancelResearch(c.Nation) {
			return command.RejectNothingToCancel
		}
		return ""
	}
	if !ws.OwnedBy(c.Actor, c.Nation) {
		return command.RejectNotOwner
	}
	act, ok := ws.Actions.Get(c.Actor)
	if !ok || act.State == world.ActionIdle {
		return command.RejectNothingToCancel
	}
	act.State = world.ActionIdle
	act.Target = 0
	return ""
}

func (s *CommandSystem) applySpawnHorde(c command.Command) command.RejectReason {
	ws := s.deps.World
	if c.Nation != data.HordeNationID {
		return command.RejectNotOwner
	}
	tmpl := ws.Content.Units.Get(c.TypeID)
	if tmpl == nil || tmpl.Class != data.ClassZombie {
		return command.RejectTypeUnknown
	}
	ws.SpawnEntity(c.TypeID, data.HordeNationID, c.X, c.Y)
	return ""
}

func (s *CommandSystem) inBounds(x, y int32) bool {
	m := s.deps.World.Content.Map
	return x >= 0 && y >= 0 && x < m.Width && y < m.Height
}

func (s *CommandSystem) buildingAt(x, y int32) bool {
	ws := s.deps.World
	found := false
	ws.ECS.Each(func(id ecs.EntityID) {
		if found {
			return
		}
		p, ok := ws.Positions.Get(id)
		if !ok || p.X != x || p.Y != y {
			return
		}
		tmpl, ok := ws.Template(id)
		if ok && tmpl.Class == data.ClassBuilding {
			found = true
		}
	})
	return found
}
