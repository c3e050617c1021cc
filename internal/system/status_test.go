package system

import (
	"testing"

	"github.com/erasrts/server/internal/data"
	"github.com/erasrts/server/internal/world"
)

func TestStatus_ExpiryKeepsSurvivorOrder(t *testing.T) {
	deps, _, _ := testDeps(t)
	ws := deps.World
	s := ws.SpawnEntity("soldier", 1, 10, 10)

	st, _ := ws.Statuses.Get(s)
	st.Refresh(world.StatusEffect{Kind: world.StatusMorale, Stat: data.StatAttack, Permille: 1350, ExpiresAtTick: 5})
	st.Refresh(world.StatusEffect{Kind: world.StatusMorale, Stat: data.StatSpeed, Permille: 1250, ExpiresAtTick: 50})
	st.Refresh(world.StatusEffect{Kind: world.StatusPhaseDebuff, Stat: data.StatGather, Permille: 950, ExpiresAtTick: 50})

	NewStatusSystem(deps).Update(5)

	if len(st.Effects) != 2 {
		t.Fatalf("effects = %d, want 2 after expiry", len(st.Effects))
	}
	if st.Effects[0].Stat != data.StatSpeed || st.Effects[1].Stat != data.StatGather {
		t.Fatalf("survivor order changed: %+v", st.Effects)
	}
}

func TestStatus_PhaseDebuffCoversPlayersOnly(t *testing.T) {
	deps, _, _ := testDeps(t)
	ws := deps.World
	ws.Director.Phase = 2 // gather 950 debuff in the fixture

	s := ws.SpawnEntity("soldier", 1, 10, 10)
	z := ws.SpawnEntity("shambler", data.HordeNationID, 20, 20)

	NewStatusSystem(deps).Update(100)

	st, _ := ws.Statuses.Get(s)
	if got := st.Modifier(data.StatGather, 101); got != 950 {
		t.Fatalf("gather modifier = %d, want 950", got)
	}
	zst, _ := ws.Statuses.Get(z)
	if len(zst.Effects) != 0 {
		t.Fatalf("horde unit picked up the phase debuff: %+v", zst.Effects)
	}
}

func TestStatus_DebuffRefreshesNotStacks(t *testing.T) {
	deps, _, _ := testDeps(t)
	ws := deps.World
	ws.Director.Phase = 2
	s := ws.SpawnEntity("soldier", 1, 10, 10)

	sys := NewStatusSystem(deps)
	for tick := uint64(1); tick <= 20; tick++ {
		sys.Update(tick)
	}

	st, _ := ws.Statuses.Get(s)
	if len(st.Effects) != 1 {
		t.Fatalf("debuff stacked: %d effects", len(st.Effects))
	}
	if st.Effects[0].ExpiresAtTick != 22 {
		t.Fatalf("expiry = %d, want 22", st.Effects[0].ExpiresAtTick)
	}
}

func TestStatus_DebuffFadesAfterShortWindow(t *testing.T) {
	deps, _, _ := testDeps(t)
	ws := deps.World
	ws.Director.Phase = 2
	s := ws.SpawnEntity("soldier", 1, 10, 10)

	sys := NewStatusSystem(deps)
	sys.Update(10)

	// No further refreshes (as if the phase table lost its debuff): two
	// ticks later the effect is gone.
	ws.Director.Phase = 1
	sys.Update(11)
	sys.Update(12)

	st, _ := ws.Statuses.Get(s)
	if len(st.Effects) != 0 {
		t.Fatalf("stale debuff lingered: %+v", st.Effects)
	}
}
