package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Resource node kinds.
const (
	NodeGold   = "gold"
	NodeLumber = "lumber"
	NodeArcana = "arcana"
)

// NodeDef places one resource node. Gold/lumber nodes deplete and vanish;
// arcana relics are infinite but gate yield behind a cooldown.
type NodeDef struct {
	Kind          string `yaml:"kind"`
	X             int32  `yaml:"x"`
	Y             int32  `yaml:"y"`
	Amount        int64  `yaml:"amount"`
	Infinite      bool   `yaml:"infinite"`
	CooldownTicks uint64 `yaml:"cooldown_ticks"`
}

// NestDef places one zombie nest.
type NestDef struct {
	X  int32 `yaml:"x"`
	Y  int32 `yaml:"y"`
	HP int32 `yaml:"hp"`
}

// MapDef is the static map geometry the match starts from.
type MapDef struct {
	Width  int32     `yaml:"width"`
	Height int32     `yaml:"height"`
	Nodes  []NodeDef `yaml:"nodes"`
	Nests  []NestDef `yaml:"nests"`
}

// LoadMapDef loads map geometry from a YAML file.
func LoadMapDef(path string) (*MapDef, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map: %w", err)
	}
	var m MapDef
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse map: %w", err)
	}
	for i, n := range m.Nodes {
		switch n.Kind {
		case NodeGold, NodeLumber, NodeArcana:
		default:
			return nil, fmt.Errorf("map node %d: unknown kind %q", i, n.Kind)
		}
	}
	return &m, nil
}
