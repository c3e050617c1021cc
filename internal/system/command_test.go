package system

import (
	"testing"

	"github.com/erasrts/server/internal/command"
	"github.com/erasrts/server/internal/data"
	"github.com/erasrts/server/internal/world"
)

func TestCommands_TrainDebitsAtomically(t *testing.T) {
	deps, _, diag := testDeps(t)
	ws := deps.World
	sys := NewCommandSystem(deps)

	// 120 gold / 50 lumber buys exactly two soldiers (60g/20l each). The
	// third order must fail whole: no partial lumber debit.
	train := command.Command{Nation: 1, Kind: command.KindTrain, TypeID: "soldier"}
	sys.SetBatch([]command.Command{train, train, train})
	sys.Update(1)

	n := ws.Nation(1)
	if n.Stocks[world.Gold] != 0 || n.Stocks[world.Lumber] != 10 {
		t.Fatalf("stocks = %d gold / %d lumber, want 0/10", n.Stocks[world.Gold], n.Stocks[world.Lumber])
	}
	if got := ws.CountOwned(1, data.ClassUnit); got != 2 {
		t.Fatalf("soldiers = %d, want 2", got)
	}
	if len(diag.rejected) != 1 || diag.rejected[0].Reason != command.RejectInsufficient {
		t.Fatalf("rejections = %+v, want one insufficient_resources", diag.rejected)
	}
}

func TestCommands_TrainRecomputesSupply(t *testing.T) {
	deps, _, _ := testDeps(t)
	ws := deps.World
	sys := NewCommandSystem(deps)

	sys.SetBatch([]command.Command{{Nation: 1, Kind: command.KindTrain, TypeID: "worker"}})
	sys.Update(1)

	if got := ws.Nation(1).SupplyUsed; got != 1 {
		t.Fatalf("supply used = %d, want 1", got)
	}
}

func TestCommands_SameTickTrainsShareSupplyHeadroom(t *testing.T) {
	deps, _, diag := testDeps(t)
	ws := deps.World
	n := ws.Nation(1)
	ws.Credit(1, world.Gold, 10000)

	// Fill 11 of the 12 supply slots with real units so recomputation sees
	// them, leaving headroom for exactly one more.
	for i := 0; i < 11; i++ {
		ws.SpawnEntity("worker", 1, 10, 10)
	}
	ws.RecomputeSupply(deps.Cfg.Economy.BaseSupply)
	if n.SupplyUsed != 11 || n.SupplyCap != 12 {
		t.Fatalf("setup: supply %d/%d, want 11/12", n.SupplyUsed, n.SupplyCap)
	}

	train := command.Command{Nation: 1, Kind: command.KindTrain, TypeID: "worker"}
	sys := NewCommandSystem(deps)
	sys.SetBatch([]command.Command{train, train, train, train})
	sys.Update(1)

	if n.SupplyUsed > n.SupplyCap {
		t.Fatalf("supply overshot: %d/%d", n.SupplyUsed, n.SupplyCap)
	}
	if got := ws.CountOwned(1, data.ClassUnit); got != 12 {
		t.Fatalf("units = %d, want 12 (one train through, three rejected)", got)
	}
	if len(diag.rejected) != 3 {
		t.Fatalf("rejections = %d, want 3", len(diag.rejected))
	}
	for _, rej := range diag.rejected {
		if rej.Reason != command.RejectSupplyCap {
			t.Fatalf("rejection reason = %q, want supply_cap", rej.Reason)
		}
	}
}

func TestCommands_SupplyCapBlocksTraining(t *testing.T) {
	deps, _, diag := testDeps(t)
	ws := deps.World
	n := ws.Nation(1)
	n.SupplyUsed = n.SupplyCap

	sys := NewCommandSystem(deps)
	sys.SetBatch([]command.Command{{Nation: 1, Kind: command.KindTrain, TypeID: "worker"}})
	sys.Update(1)

	if n.Stocks[world.Gold] != 120 {
		t.Fatalf("gold debited despite supply cap: %d", n.Stocks[world.Gold])
	}
	if len(diag.rejected) != 1 || diag.rejected[0].Reason != command.RejectSupplyCap {
		t.Fatalf("rejections = %+v, want one supply_cap", diag.rejected)
	}
}

func TestCommands_LastOrderWinsPerActor(t *testing.T) {
	deps, _, _ := testDeps(t)
	ws := deps.World
	s := ws.SpawnEntity("soldier", 1, 10, 10)
	z := ws.SpawnEntity("shambler", data.HordeNationID, 12, 12)

	sys := NewCommandSystem(deps)
	sys.SetBatch([]command.Command{
		{Nation: 1, Kind: command.KindMove, Actor: s, X: 20, Y: 20},
		{Nation: 1, Kind: command.KindAttack, Actor: s, Target: z},
	})
	sys.Update(1)

	act, _ := ws.Actions.Get(s)
	if act.State != world.ActionAttack || act.Target != z {
		t.Fatalf("action = %v target %d, want attack on %d", act.State, act.Target, z)
	}
}

func TestCommands_MoveRejectsOutOfBounds(t *testing.T) {
	deps, _, diag := testDeps(t)
	ws := deps.World
	s := ws.SpawnEntity("soldier", 1, 10, 10)

	sys := NewCommandSystem(deps)
	sys.SetBatch([]command.Command{{Nation: 1, Kind: command.KindMove, Actor: s, X: 500, Y: 10}})
	sys.Update(1)

	act, _ := ws.Actions.Get(s)
	if act.State != world.ActionIdle {
		t.Fatalf("out-of-bounds move accepted")
	}
	if len(diag.rejected) != 1 || diag.rejected[0].Reason != command.RejectOutOfBounds {
		t.Fatalf("rejections = %+v, want one out_of_bounds", diag.rejected)
	}
}

func TestCommands_ActorOwnershipEnforced(t *testing.T) {
	deps, _, diag := testDeps(t)
	ws := deps.World
	s := ws.SpawnEntity("soldier", 1, 10, 10)

	// Nation 2 tries to steer nation 1's soldier.
	sys := NewCommandSystem(deps)
	sys.SetBatch([]command.Command{{Nation: 2, Kind: command.KindMove, Actor: s, X: 20, Y: 20}})
	sys.Update(1)

	if act, _ := ws.Actions.Get(s); act.State != world.ActionIdle {
		t.Fatalf("foreign actor command accepted")
	}
	if len(diag.rejected) != 1 || diag.rejected[0].Reason != command.RejectNotOwner {
		t.Fatalf("rejections = %+v, want one not_owner", diag.rejected)
	}
}

func TestCommands_GatherRequiresNodeTarget(t *testing.T) {
	deps, _, diag := testDeps(t)
	ws := deps.World
	w := ws.SpawnEntity("worker", 1, 6, 6)

	sys := NewCommandSystem(deps)
	sys.SetBatch([]command.Command{{Nation: 1, Kind: command.KindGather, Actor: w, Target: ws.Nation(1).Base}})
	sys.Update(1)

	if act, _ := ws.Actions.Get(w); act.State != world.ActionIdle {
		t.Fatalf("gather on a non-node accepted")
	}
	if len(diag.rejected) != 1 || diag.rejected[0].Reason != command.RejectNotFound {
		t.Fatalf("rejections = %+v, want one target_not_found", diag.rejected)
	}
}

func TestCommands_SpawnHordeIsHordeOnly(t *testing.T) {
	deps, _, diag := testDeps(t)
	ws := deps.World
	before := ws.ECS.Count()

	sys := NewCommandSystem(deps)
	sys.SetBatch([]command.Command{
		{Nation: 1, Kind: command.KindSpawnHorde, TypeID: "shambler", X: 30, Y: 30},
		{Nation: data.HordeNationID, Kind: command.KindSpawnHorde, TypeID: "shambler", X: 30, Y: 30},
	})
	sys.Update(1)

	if got := ws.ECS.Count(); got != before+1 {
		t.Fatalf("entities = %d, want %d (one horde spawn)", got, before+1)
	}
	if len(diag.rejected) != 1 || diag.rejected[0].Reason != command.RejectNotOwner {
		t.Fatalf("rejections = %+v, want one not_owner", diag.rejected)
	}
}

func TestCommands_DeadNationIsSilenced(t *testing.T) {
	deps, _, diag := testDeps(t)
	ws := deps.World
	ws.Nation(1).Alive = false

	sys := NewCommandSystem(deps)
	sys.SetBatch([]command.Command{{Nation: 1, Kind: command.KindTrain, TypeID: "worker"}})
	sys.Update(1)

	if got := ws.CountOwned(1, data.ClassUnit); got != 0 {
		t.Fatalf("eliminated nation trained a unit")
	}
	if len(diag.rejected) != 1 || diag.rejected[0].Reason != command.RejectNationDead {
		t.Fatalf("rejections = %+v, want one nation_eliminated", diag.rejected)
	}
}
