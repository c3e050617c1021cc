package match

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/erasrts/server/internal/command"
	"github.com/erasrts/server/internal/config"
	"github.com/erasrts/server/internal/core/ecs"
	"github.com/erasrts/server/internal/data"
	"github.com/erasrts/server/internal/lockstep"
	"github.com/erasrts/server/internal/world"
)

func testContent(t *testing.T) *data.Content {
	t.Helper()
	nations, err := data.NewNationTable([]data.NationDef{
		{ID: 0, Name: "The Horde", GatherPermille: 1000, ResearchPermille: 1000, TrainingPermille: 1000, DefensePermille: 1000},
		{ID: 1, Name: "Valdoria", GatherPermille: 1000, ResearchPermille: 1000, TrainingPermille: 1000, DefensePermille: 1000,
			StartStock: data.Cost{Gold: 500, Lumber: 200, Food: 30}, StartX: 5, StartY: 5},
		{ID: 2, Name: "Emberfall", GatherPermille: 1000, ResearchPermille: 1000, TrainingPermille: 1000, DefensePermille: 1000,
			StartStock: data.Cost{Gold: 500, Lumber: 200, Food: 30}, StartX: 40, StartY: 40},
	})
	if err != nil {
		t.Fatalf("nations: %v", err)
	}
	units, err := data.NewUnitTypeTable([]data.UnitType{
		{ID: "base", Class: data.ClassBuilding, HP: 1200, Armor: 4},
		{ID: "worker", Class: data.ClassUnit, HP: 40, Attack: 2, Range: 1, CooldownTicks: 10, MoveEveryTicks: 3,
			SupplyCost: 1, GoldPerTick: 2, LumberPerTick: 2, Cost: data.Cost{Gold: 50}},
		{ID: "soldier", Class: data.ClassUnit, HP: 100, Attack: 12, Armor: 2, Range: 1, CooldownTicks: 8,
			MoveEveryTicks: 3, SupplyCost: 1, Cost: data.Cost{Gold: 60, Lumber: 20}},
		{ID: "nest", Class: data.ClassZombie, HP: 800, Armor: 2},
		{ID: "shambler", Class: data.ClassZombie, HP: 50, Attack: 6, Range: 1, CooldownTicks: 12, MoveEveryTicks: 5},
	})
	if err != nil {
		t.Fatalf("units: %v", err)
	}
	tech, err := data.NewTechTable([]data.TechNode{
		{ID: "tools", Tier: 1, Cost: data.Cost{Gold: 40}, Ticks: 10,
			Effect: data.TechEffect{Kind: data.EffectStat, Stat: data.StatGather, Permille: 1150}},
	})
	if err != nil {
		t.Fatalf("tech: %v", err)
	}
	phases, err := data.NewPhaseTable([]data.ZombiePhase{
		{Number: 1, Name: "Stirring", CeilTick: 0, SpawnEveryTicks: 20, SpawnCount: 1,
			SpawnRatePermille: 1000, Pool: []string{"shambler"}},
	})
	if err != nil {
		t.Fatalf("phases: %v", err)
	}
	return &data.Content{
		Nations: nations,
		Units:   units,
		Tech:    tech,
		Phases:  phases,
		Map: &data.MapDef{
			Width: 64, Height: 64,
			Nodes: []data.NodeDef{{Kind: data.NodeGold, X: 6, Y: 5, Amount: 5000}},
			Nests: []data.NestDef{{X: 60, Y: 60, HP: 800}},
		},
	}
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(config.Defaults(), testContent(t), 1, []int32{1}, zap.NewNop(), Options{})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	return s
}

// plannedOrders derives a scripted command stream from the session's own
// state. Because both replicas hold identical state, the derived orders are
// identical too, exactly as a client would issue them from its local view.
func plannedOrders(s *Session, tick uint64) []command.Command {
	st := s.State()
	switch tick {
	case 0:
		return []command.Command{
			{Nation: 1, Tick: tick, Kind: command.KindTrain, TypeID: "worker"},
			{Nation: 2, Tick: tick, Kind: command.KindTrain, TypeID: "soldier"},
		}
	case 2:
		w := findOwned(st, 1, "worker")
		node := findNode(st)
		if w != 0 && node != 0 {
			return []command.Command{{Nation: 1, Tick: tick, Kind: command.KindGather, Actor: w, Target: node}}
		}
	case 5:
		return []command.Command{{Nation: 1, Tick: tick, Kind: command.KindResearch, TechID: "tools"}}
	case 8:
		sold := findOwned(st, 2, "soldier")
		if sold != 0 {
			return []command.Command{{Nation: 2, Tick: tick, Kind: command.KindMove, Actor: sold, X: 50, Y: 50}}
		}
	}
	return nil
}

func findOwned(st *world.State, nation int32, typeID string) ecs.EntityID {
	var found ecs.EntityID
	st.ECS.Each(func(id ecs.EntityID) {
		if found != 0 {
			return
		}
		if a, ok := st.Actors.Get(id); ok && a.Owner == nation && a.TypeID == typeID {
			found = id
		}
	})
	return found
}

func findNode(st *world.State) ecs.EntityID {
	var found ecs.EntityID
	st.ECS.Each(func(id ecs.EntityID) {
		if found != 0 {
			return
		}
		if _, ok := st.Nodes.Get(id); ok {
			found = id
		}
	})
	return found
}

func TestSession_ReplicasStayInLockstep(t *testing.T) {
	a := newTestSession(t)
	b := newTestSession(t)
	ctx := context.Background()

	for tick := uint64(0); tick < 150; tick++ {
		cmds := plannedOrders(a, tick)
		if err := a.SubmitLocal(tick, cmds); err != nil {
			t.Fatalf("tick %d: submit a: %v", tick, err)
		}
		if err := b.SubmitLocal(tick, cmds); err != nil {
			t.Fatalf("tick %d: submit b: %v", tick, err)
		}

		for name, s := range map[string]*Session{"a": a, "b": b} {
			ok, err := s.Step(ctx, false)
			if err != nil {
				t.Fatalf("tick %d: step %s: %v", tick, name, err)
			}
			if !ok {
				t.Fatalf("tick %d: session %s did not advance", tick, name)
			}
		}

		if a.LastChecksum() != b.LastChecksum() {
			t.Fatalf("tick %d: checksums diverged: %016x vs %016x",
				tick, a.LastChecksum(), b.LastChecksum())
		}
		// Cross-report as the transport would; neither side may fault.
		if err := a.OnPeerChecksum(tick, 2, b.LastChecksum()); err != nil {
			t.Fatalf("tick %d: a faulted: %v", tick, err)
		}
		if err := b.OnPeerChecksum(tick, 2, a.LastChecksum()); err != nil {
			t.Fatalf("tick %d: b faulted: %v", tick, err)
		}
	}

	if a.Checksum() != b.Checksum() {
		t.Fatalf("full digests diverged after replay")
	}
	if a.State().Tick != 150 {
		t.Fatalf("tick cursor = %d, want 150", a.State().Tick)
	}
}

func TestSession_DropPolicyKeepsSurvivorsInLockstep(t *testing.T) {
	cfg := config.Defaults()
	cfg.Lockstep.Policy = "drop"
	peers := []int32{1, 2, 3}

	newPeer := func(id int32) *Session {
		s, err := NewSession(cfg, testContent(t), id, peers, zap.NewNop(), Options{})
		if err != nil {
			t.Fatalf("session %d: %v", id, err)
		}
		return s
	}
	a := newPeer(1)
	b := newPeer(2)
	ctx := context.Background()

	for tick := uint64(0); tick < 60; tick++ {
		// Peer 3 goes silent at tick 42 and never comes back.
		for _, p := range peers {
			if p == 3 && tick >= 42 {
				continue
			}
			batch := command.Batch{Peer: p, Tick: tick}
			for _, s := range []*Session{a, b} {
				if !s.Sync().Dropped(p) {
					if err := s.Sync().SubmitBatch(batch); err != nil {
						t.Fatalf("tick %d: submit peer %d: %v", tick, p, err)
					}
				}
			}
		}

		for name, s := range map[string]*Session{"a": a, "b": b} {
			ok, err := s.Step(ctx, false)
			if err != nil {
				t.Fatalf("tick %d: step %s: %v", tick, name, err)
			}
			if !ok {
				// Resolve deadline passed: the drop policy excuses peer 3.
				ok, err = s.Step(ctx, true)
				if err != nil || !ok {
					t.Fatalf("tick %d: timed-out step %s: ok=%v err=%v", tick, name, ok, err)
				}
			}
		}

		if tick < 42 && a.Sync().Dropped(3) {
			t.Fatalf("tick %d: peer 3 dropped while still submitting", tick)
		}
		if a.LastChecksum() != b.LastChecksum() {
			t.Fatalf("tick %d: survivors diverged: %016x vs %016x",
				tick, a.LastChecksum(), b.LastChecksum())
		}
	}

	if !a.Sync().Dropped(3) || !b.Sync().Dropped(3) {
		t.Fatalf("straggler never dropped")
	}
}

func TestSession_DetectsDesync(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	if err := s.SubmitLocal(0, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ok, err := s.Step(ctx, false); err != nil || !ok {
		t.Fatalf("step: ok=%v err=%v", ok, err)
	}

	err := s.OnPeerChecksum(0, 2, s.LastChecksum()+1)
	if err == nil {
		t.Fatalf("corrupted remote checksum accepted")
	}
	var fault *lockstep.DesyncFault
	if !errors.As(err, &fault) {
		t.Fatalf("error type = %T, want *lockstep.DesyncFault", err)
	}
	if fault.Tick != 0 || fault.Peer != 2 {
		t.Fatalf("fault = %+v", fault)
	}
}

func TestSession_DetectsDesyncFromEarlyReport(t *testing.T) {
	// The reference replica computes tick 0's checksum first.
	ref := newTestSession(t)
	ctx := context.Background()
	if err := ref.SubmitLocal(0, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ok, err := ref.Step(ctx, false); err != nil || !ok {
		t.Fatalf("reference step: ok=%v err=%v", ok, err)
	}

	// A slower peer receives a corrupted report before running the tick; the
	// fault must surface from its own Step, with no resend from the remote.
	s := newTestSession(t)
	if err := s.OnPeerChecksum(0, 2, ref.LastChecksum()+1); err != nil {
		t.Fatalf("early report faulted before local completion: %v", err)
	}
	if err := s.SubmitLocal(0, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, err := s.Step(ctx, false)
	var fault *lockstep.DesyncFault
	if !errors.As(err, &fault) {
		t.Fatalf("step error = %v, want *lockstep.DesyncFault", err)
	}
	if fault.Tick != 0 || fault.Peer != 2 {
		t.Fatalf("fault = %+v", fault)
	}

	// The honest early report passes cleanly.
	clean := newTestSession(t)
	if err := clean.OnPeerChecksum(0, 2, ref.LastChecksum()); err != nil {
		t.Fatalf("early report faulted: %v", err)
	}
	if err := clean.SubmitLocal(0, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ok, err := clean.Step(ctx, false); err != nil || !ok {
		t.Fatalf("clean step: ok=%v err=%v", ok, err)
	}
}

func TestSession_StallsWithoutBatches(t *testing.T) {
	s := newTestSession(t)
	advanced, err := s.Step(context.Background(), false)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if advanced {
		t.Fatalf("advanced without the local batch")
	}
	if s.State().Tick != 0 {
		t.Fatalf("tick moved to %d while stalled", s.State().Tick)
	}
}

func TestSession_FinishedTracksAliveNations(t *testing.T) {
	s := newTestSession(t)
	if s.Finished() {
		t.Fatalf("finished at match start")
	}
	s.State().Nation(2).Alive = false
	if !s.Finished() {
		t.Fatalf("not finished with one nation standing")
	}
}
