package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Entity classes. Zombies are engine-driven actors owned by the Horde;
// units and buildings belong to player nations.
const (
	ClassUnit     = "unit"
	ClassBuilding = "building"
	ClassZombie   = "zombie"
)

// UnitType holds static stats for one unit, building, or zombie type.
type UnitType struct {
	ID             string `yaml:"id"`
	Class          string `yaml:"class"`
	Name           string `yaml:"name"`
	HP             int32  `yaml:"hp"`
	Attack         int32  `yaml:"attack"`
	Armor          int32  `yaml:"armor"`
	Range          int32  `yaml:"range"` // Chebyshev tiles; 0 = cannot attack
	CooldownTicks  uint64 `yaml:"cooldown_ticks"`
	MoveEveryTicks uint64 `yaml:"move_every_ticks"` // 0 = immobile
	SupplyCost     int32  `yaml:"supply_cost"`
	SupplyAdd      int32  `yaml:"supply_add"`    // buildings: supply cap contribution
	FoodPerTick    int64  `yaml:"food_per_tick"` // farms
	GoldPerTick    int64  `yaml:"gold_per_tick"` // workers: gather yield per tick on a node
	LumberPerTick  int64  `yaml:"lumber_per_tick"`
	Cost           Cost   `yaml:"cost"`
	RequiresTech   string `yaml:"requires_tech"` // tech node id gating this type, "" = always
}

func (u *UnitType) CanAttack() bool { return u.Attack > 0 && u.Range > 0 }

type unitListFile struct {
	Types []UnitType `yaml:"types"`
}

// UnitTypeTable holds all entity type templates indexed by type id.
type UnitTypeTable struct {
	types map[string]*UnitType
}

// LoadUnitTypeTable loads unit/building/zombie templates from a YAML file.
func LoadUnitTypeTable(path string) (*UnitTypeTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read unit_types: %w", err)
	}
	var f unitListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse unit_types: %w", err)
	}
	return NewUnitTypeTable(f.Types)
}

// NewUnitTypeTable builds a table from in-memory types (used by tests).
func NewUnitTypeTable(types []UnitType) (*UnitTypeTable, error) {
	t := &UnitTypeTable{types: make(map[string]*UnitType, len(types))}
	for i := range types {
		u := &types[i]
		if u.ID == "" {
			return nil, fmt.Errorf("unit type %d has empty id", i)
		}
		if _, dup := t.types[u.ID]; dup {
			return nil, fmt.Errorf("duplicate unit type %q", u.ID)
		}
		switch u.Class {
		case ClassUnit, ClassBuilding, ClassZombie:
		default:
			return nil, fmt.Errorf("unit type %q: unknown class %q", u.ID, u.Class)
		}
		t.types[u.ID] = u
	}
	return t, nil
}

// Get returns a type template by id, or nil if not found.
func (t *UnitTypeTable) Get(id string) *UnitType {
	return t.types[id]
}

func (t *UnitTypeTable) Count() int {
	return len(t.types)
}
