package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Tech effect kinds.
const (
	EffectUnlock = "unlock" // makes a unit/building type available
	EffectStat   = "stat"   // permille multiplier on a stat key
)

// Stat keys referenced by tech effects and status effects.
const (
	StatAttack = "attack"
	StatArmor  = "armor"
	StatGather = "gather"
	StatSpeed  = "speed"
)

type TechEffect struct {
	Kind     string `yaml:"kind"`
	Unit     string `yaml:"unit"`     // EffectUnlock: type id
	Stat     string `yaml:"stat"`     // EffectStat: stat key
	Permille int32  `yaml:"permille"` // EffectStat: 1100 = +10%
}

// TechNode is one research node in the static tech graph. Tier-4 nodes with
// a non-zero Nation field form that nation's Legacy branch and are
// researchable by that nation alone.
type TechNode struct {
	ID       string     `yaml:"id"`
	Tier     int32      `yaml:"tier"`
	Requires []string   `yaml:"requires"`
	Cost     Cost       `yaml:"cost"`
	Ticks    int32      `yaml:"ticks"`
	Effect   TechEffect `yaml:"effect"`
	Nation   int32      `yaml:"nation"` // 0 = researchable by all
}

type techListFile struct {
	Nodes []TechNode `yaml:"nodes"`
}

// TechTable holds the static research graph indexed by node id.
type TechTable struct {
	nodes map[string]*TechNode
	ids   []string // sorted, for deterministic walks
}

// LoadTechTable loads the tech graph from a YAML file.
func LoadTechTable(path string) (*TechTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tech_tree: %w", err)
	}
	var f techListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse tech_tree: %w", err)
	}
	return NewTechTable(f.Nodes)
}

// NewTechTable builds a table from in-memory nodes (used by tests). It
// verifies every prerequisite exists and sits on a strictly lower tier, so a
// well-formed table can never deadlock research.
func NewTechTable(nodes []TechNode) (*TechTable, error) {
	t := &TechTable{nodes: make(map[string]*TechNode, len(nodes))}
	for i := range nodes {
		n := &nodes[i]
		if n.ID == "" {
			return nil, fmt.Errorf("tech node %d has empty id", i)
		}
		if n.Tier < 1 || n.Tier > 4 {
			return nil, fmt.Errorf("tech node %q: tier %d out of range 1-4", n.ID, n.Tier)
		}
		if _, dup := t.nodes[n.ID]; dup {
			return nil, fmt.Errorf("duplicate tech node %q", n.ID)
		}
		t.nodes[n.ID] = n
		t.ids = append(t.ids, n.ID)
	}
	for _, id := range t.ids {
		n := t.nodes[id]
		for _, req := range n.Requires {
			pre := t.nodes[req]
			if pre == nil {
				return nil, fmt.Errorf("tech node %q requires unknown node %q", n.ID, req)
			}
			if pre.Tier >= n.Tier {
				return nil, fmt.Errorf("tech node %q (tier %d) requires %q on tier %d", n.ID, n.Tier, req, pre.Tier)
			}
		}
	}
	sort.Strings(t.ids)
	return t, nil
}

// Get returns a tech node by id, or nil if not found.
func (t *TechTable) Get(id string) *TechNode {
	return t.nodes[id]
}

// IDs returns all node ids in sorted order.
func (t *TechTable) IDs() []string {
	out := make([]string, len(t.ids))
	copy(out, t.ids)
	return out
}

func (t *TechTable) Count() int {
	return len(t.nodes)
}
