package system

import (
	"sort"

	"github.com/erasrts/server/internal/core/ecs"
	"github.com/erasrts/server/internal/core/event"
	coresys "github.com/erasrts/server/internal/core/system"
	"github.com/erasrts/server/internal/data"
	"github.com/erasrts/server/internal/world"
)

// attackIntent is one resolved hit, collected before any damage lands.
type attackIntent struct {
	attacker   ecs.EntityID
	target     ecs.EntityID
	damage     int64
	zombie     bool // attacker is a zombie
	attackerTy string
}

// CombatSystem resolves all combat for the tick. Resolution is simultaneous:
// every attack intent is collected from the pre-damage state before any
// health is touched, so two units that deal mutually lethal blows both land
// them. Deaths are marked only after every target has been processed.
type CombatSystem struct {
	deps    *Deps
	intents []attackIntent // reused across ticks
}

func NewCombatSystem(deps *Deps) *CombatSystem {
	return &CombatSystem{deps: deps}
}

func (s *CombatSystem) Phase() coresys.Phase { return coresys.PhaseCombat }

func (s *CombatSystem) Update(tick uint64) {
	ws := s.deps.World

	ws.ECS.Each(func(id ecs.EntityID) {
		if cb, ok := ws.Combats.Get(id); ok && cb.CooldownLeft > 0 {
			cb.CooldownLeft--
		}
	})

	s.intents = s.intents[:0]
	ws.ECS.Each(func(id ecs.EntityID) {
		s.collect(tick, id)
	})
	if len(s.intents) == 0 {
		return
	}

	// Group hits by target and walk targets in ascending id order.
	byTarget := make(map[ecs.EntityID][]attackIntent, len(s.intents))
	targets := make([]ecs.EntityID, 0, len(s.intents))
	for _, in := range s.intents {
		if _, seen := byTarget[in.target]; !seen {
			targets = append(targets, in.target)
		}
		byTarget[in.target] = append(byTarget[in.target], in)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })

	type death struct {
		id     ecs.EntityID
		killer ecs.EntityID
	}
	var deaths []death
	for _, target := range targets {
		killer, zombieHit := s.applyHits(tick, target, byTarget[target])
		hp, ok := ws.Healths.Get(target)
		if !ok {
			continue
		}
		if hp.HP <= 0 {
			deaths = append(deaths, death{id: target, killer: killer})
		} else if zombieHit != "" {
			s.applyMorale(tick, target, zombieHit)
		}
	}

	for _, d := range deaths {
		a, _ := ws.Actors.Get(d.id)
		if a == nil {
			continue
		}
		tmpl := ws.Content.Units.Get(a.TypeID)
		if tmpl != nil && tmpl.Class == data.ClassZombie {
			if ka, ok := ws.Actors.Get(d.killer); ok && ka.Owner != data.HordeNationID {
				ws.Director.ZombieKills++
			}
		}
		event.Emit(s.deps.Bus, event.EntityDied{
			ID:     d.id,
			TypeID: a.TypeID,
			Owner:  a.Owner,
			Killer: d.killer,
			Tick:   tick,
		})
		ws.ECS.MarkForDestruction(d.id)
	}
}

// collect turns an in-range, off-cooldown attack order into an intent and
// starts the attacker's cooldown. Damage is computed here, from the state as
// it stood before any hit this tick.
func (s *CombatSystem) collect(tick uint64, id ecs.EntityID) {
	ws := s.deps.World
	act, ok := ws.Actions.Get(id)
	if !ok || act.State != world.ActionAttack {
		return
	}
	cb, ok := ws.Combats.Get(id)
	if !ok || cb.CooldownLeft > 0 {
		return
	}
	if !ws.ECS.Alive(act.Target) {
		return
	}
	tmpl, ok := ws.Template(id)
	if !ok || !tmpl.CanAttack() {
		return
	}
	dist, ok := ws.Chebyshev(id, act.Target)
	if !ok || dist > tmpl.Range {
		return
	}

	a, _ := ws.Actors.Get(id)
	dmg := int64(tmpl.Attack)
	if n := ws.Nation(a.Owner); n != nil {
		dmg = dmg * n.StatModifier(ws.Content.Tech, data.StatAttack) / 1000
	}
	if st, ok := ws.Statuses.Get(id); ok {
		dmg = dmg * st.Modifier(data.StatAttack, tick) / 1000
	}
	if dmg < 0 {
		dmg = 0
	}

	cb.CooldownLeft = uint64(tmpl.CooldownTicks)
	s.intents = append(s.intents, attackIntent{
		attacker:   id,
		target:     act.Target,
		damage:     dmg,
		zombie:     tmpl.Class == data.ClassZombie,
		attackerTy: tmpl.ID,
	})
}

// applyHits lands every hit on one target. Armor reduces each hit flatly but
// never below 1 damage. Returns the killing attacker (last hit to land once
// HP crossed zero) and the type id of any zombie attacker, for morale.
func (s *CombatSystem) applyHits(tick uint64, target ecs.EntityID, hits []attackIntent) (killer ecs.EntityID, zombieTy string) {
	ws := s.deps.World
	hp, ok := ws.Healths.Get(target)
	if !ok {
		return 0, ""
	}
	armor := s.effectiveArmor(tick, target)
	for _, h := range hits {
		dealt := h.damage - armor
		if dealt < 1 {
			dealt = 1
		}
		wasAlive := hp.HP > 0
		hp.HP -= int32(dealt)
		if wasAlive && hp.HP <= 0 {
			killer = h.attacker
		}
		if h.zombie {
			zombieTy = h.attackerTy
		}
	}
	return killer, zombieTy
}

// effectiveArmor folds template armor through the owner's defense bonus, tech
// armor nodes, and active status effects. Permille throughout.
func (s *CombatSystem) effectiveArmor(tick uint64, target ecs.EntityID) int64 {
	ws := s.deps.World
	tmpl, ok := ws.Template(target)
	if !ok {
		return 0
	}
	armor := int64(tmpl.Armor)
	a, _ := ws.Actors.Get(target)
	if n := ws.Nation(a.Owner); n != nil && !n.IsHorde() {
		armor = armor * int64(n.Def.DefensePermille) / 1000
		armor = armor * n.StatModifier(ws.Content.Tech, data.StatArmor) / 1000
	}
	if st, ok := ws.Statuses.Get(target); ok {
		armor = armor * st.Modifier(data.StatArmor, tick) / 1000
	}
	if armor < 0 {
		armor = 0
	}
	return armor
}

// applyMorale grants the survived-the-horde surge to player units that took
// zombie hits and lived. Refreshing replaces the timer, it never stacks.
func (s *CombatSystem) applyMorale(tick uint64, target ecs.EntityID, sourceTy string) {
	ws := s.deps.World
	a, ok := ws.Actors.Get(target)
	if !ok || a.Owner == data.HordeNationID {
		return
	}
	tmpl := ws.Content.Units.Get(a.TypeID)
	if tmpl == nil || tmpl.Class != data.ClassUnit {
		return
	}
	st, ok := ws.Statuses.Get(target)
	if !ok {
		return
	}
	cfg := s.deps.Cfg.Combat
	expires := tick + cfg.MoraleDurationTicks
	st.Refresh(world.StatusEffect{
		Kind:          world.StatusMorale,
		Stat:          data.StatAttack,
		Permille:      cfg.MoraleAttackPermille,
		ExpiresAtTick: expires,
		SourceTypeID:  sourceTy,
	})
	st.Refresh(world.StatusEffect{
		Kind:          world.StatusMorale,
		Stat:          data.StatSpeed,
		Permille:      cfg.MoraleSpeedPermille,
		ExpiresAtTick: expires,
		SourceTypeID:  sourceTy,
	})
}
