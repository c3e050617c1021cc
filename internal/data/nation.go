package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// HordeNationID is the synthetic pseudo-nation owning all zombie actors.
const HordeNationID int32 = 0

// NationDef holds static roster data for one nation. All bonus values are
// permille multipliers (1000 = 1.0x) so peers never disagree on float math.
type NationDef struct {
	ID               int32  `yaml:"id"`
	Name             string `yaml:"name"`
	Bonus            string `yaml:"bonus"`
	GatherPermille   int32  `yaml:"gather_permille"`
	ResearchPermille int32  `yaml:"research_permille"`
	TrainingPermille int32  `yaml:"training_permille"`
	DefensePermille  int32  `yaml:"defense_permille"`
	StartStock       Cost   `yaml:"start_stock"`
	StartX           int32  `yaml:"start_x"`
	StartY           int32  `yaml:"start_y"`
}

type nationListFile struct {
	Nations []NationDef `yaml:"nations"`
}

// NationTable holds the fixed match roster indexed by nation id.
type NationTable struct {
	defs map[int32]*NationDef
	ids  []int32 // ascending
}

// LoadNationTable loads the nation roster from a YAML file.
func LoadNationTable(path string) (*NationTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read nations: %w", err)
	}
	var f nationListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse nations: %w", err)
	}
	return NewNationTable(f.Nations)
}

// NewNationTable builds a table from in-memory defs (used by tests).
func NewNationTable(defs []NationDef) (*NationTable, error) {
	t := &NationTable{defs: make(map[int32]*NationDef, len(defs))}
	for i := range defs {
		d := &defs[i]
		if _, dup := t.defs[d.ID]; dup {
			return nil, fmt.Errorf("duplicate nation id %d", d.ID)
		}
		t.defs[d.ID] = d
		t.ids = append(t.ids, d.ID)
	}
	sort.Slice(t.ids, func(i, j int) bool { return t.ids[i] < t.ids[j] })
	return t, nil
}

// Get returns a nation def by id, or nil if not found.
func (t *NationTable) Get(id int32) *NationDef {
	return t.defs[id]
}

// IDs returns all roster ids in ascending order, including the Horde.
func (t *NationTable) IDs() []int32 {
	out := make([]int32, len(t.ids))
	copy(out, t.ids)
	return out
}

func (t *NationTable) Count() int {
	return len(t.defs)
}
