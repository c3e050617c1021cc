package system

import (
	"testing"

	"go.uber.org/zap"

	"github.com/erasrts/server/internal/command"
	"github.com/erasrts/server/internal/config"
	"github.com/erasrts/server/internal/core/event"
	"github.com/erasrts/server/internal/data"
	"github.com/erasrts/server/internal/world"
)

// recordingInjector captures director spawn injections.
type recordingInjector struct {
	ticks []uint64
	cmds  [][]command.Command
}

func (r *recordingInjector) InjectLocal(tick uint64, cmds []command.Command) {
	r.ticks = append(r.ticks, tick)
	r.cmds = append(r.cmds, cmds)
}

// recordingDiag captures rejection diagnostics.
type recordingDiag struct {
	rejected []command.Rejected
}

func (r *recordingDiag) RecordRejected(rej command.Rejected) {
	r.rejected = append(r.rejected, rej)
}

func testContent(t *testing.T) *data.Content {
	t.Helper()
	nations, err := data.NewNationTable([]data.NationDef{
		{ID: 0, Name: "The Horde", GatherPermille: 1000, ResearchPermille: 1000, TrainingPermille: 1000, DefensePermille: 1000},
		{ID: 1, Name: "Valdoria", GatherPermille: 1000, ResearchPermille: 1000, TrainingPermille: 1000, DefensePermille: 1000,
			StartStock: data.Cost{Gold: 120, Lumber: 50, Food: 10}, StartX: 5, StartY: 5},
		{ID: 2, Name: "Emberfall", GatherPermille: 1000, ResearchPermille: 1000, TrainingPermille: 1000, DefensePermille: 1000,
			StartStock: data.Cost{Gold: 120, Lumber: 50, Food: 10}, StartX: 25, StartY: 25},
	})
	if err != nil {
		t.Fatalf("nations: %v", err)
	}
	units, err := data.NewUnitTypeTable([]data.UnitType{
		{ID: "base", Class: data.ClassBuilding, HP: 1000, Armor: 4},
		{ID: "worker", Class: data.ClassUnit, HP: 40, Attack: 2, Range: 1, CooldownTicks: 10, MoveEveryTicks: 3,
			SupplyCost: 1, GoldPerTick: 2, LumberPerTick: 2, Cost: data.Cost{Gold: 60}},
		{ID: "soldier", Class: data.ClassUnit, HP: 100, Attack: 12, Armor: 2, Range: 1, CooldownTicks: 8,
			MoveEveryTicks: 3, SupplyCost: 1, Cost: data.Cost{Gold: 60, Lumber: 20}},
		{ID: "farm", Class: data.ClassBuilding, HP: 200, FoodPerTick: 1, Cost: data.Cost{Gold: 80, Lumber: 60}},
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
		{Number: 1, Name: "Stirring", CeilTick: 0, SpawnEveryTicks: 10, SpawnCount: 2,
			SpawnRatePermille: 1000, Pool: []string{"shambler"}},
		{Number: 2, Name: "Gathering", MinTick: 300, CeilTick: 900, ThreatThreshold: 500,
			SpawnEveryTicks: 8, SpawnCount: 2, SpawnRatePermille: 1000, Pool: []string{"shambler"},
			Debuff: data.PhaseDebuff{Stat: data.StatGather, Permille: 950}},
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
			Nodes: []data.NodeDef{
				{Kind: data.NodeGold, X: 6, Y: 5, Amount: 100},
			},
			Nests: []data.NestDef{{X: 60, Y: 60, HP: 800}},
		},
	}
}

func testDeps(t *testing.T) (*Deps, *recordingInjector, *recordingDiag) {
	t.Helper()
	state, err := world.NewState(testContent(t))
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	inj := &recordingInjector{}
	diag := &recordingDiag{}
	deps := &Deps{
		World:    state,
		Cfg:      config.Defaults(),
		Bus:      event.NewBus(),
		Log:      zap.NewNop(),
		Diag:     diag,
		Injector: inj,
	}
	return deps, inj, diag
}
