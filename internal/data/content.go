package data

import (
	"fmt"
	"path/filepath"
)

// Content bundles every static table a match needs. Loaded once at match
// start, immutable for the match's duration, shared read-only by all
// concurrent sessions in the process.
type Content struct {
	Nations *NationTable
	Units   *UnitTypeTable
	Tech    *TechTable
	Phases  *PhaseTable
	Map     *MapDef
}

// LoadContent loads all static content from a directory of YAML files.
func LoadContent(dir string) (*Content, error) {
	nations, err := LoadNationTable(filepath.Join(dir, "nations.yaml"))
	if err != nil {
		return nil, fmt.Errorf("load nations: %w", err)
	}
	units, err := LoadUnitTypeTable(filepath.Join(dir, "unit_types.yaml"))
	if err != nil {
		return nil, fmt.Errorf("load unit types: %w", err)
	}
	tech, err := LoadTechTable(filepath.Join(dir, "tech_tree.yaml"))
	if err != nil {
		return nil, fmt.Errorf("load tech tree: %w", err)
	}
	phases, err := LoadPhaseTable(filepath.Join(dir, "zombie_phases.yaml"))
	if err != nil {
		return nil, fmt.Errorf("load zombie phases: %w", err)
	}
	mapDef, err := LoadMapDef(filepath.Join(dir, "map.yaml"))
	if err != nil {
		return nil, fmt.Errorf("load map: %w", err)
	}
	c := &Content{
		Nations: nations,
		Units:   units,
		Tech:    tech,
		Phases:  phases,
		Map:     mapDef,
	}
	if err := c.crossCheck(); err != nil {
		return nil, err
	}
	return c, nil
}

// crossCheck verifies references between tables so a bad content drop fails
// at load time, not mid-match.
func (c *Content) crossCheck() error {
	for _, num := range []int32{1, 2, 3, 4} {
		p := c.Phases.Get(num)
		if p == nil {
			continue
		}
		for _, typeID := range p.Pool {
			u := c.Units.Get(typeID)
			if u == nil {
				return fmt.Errorf("phase %d pool references unknown type %q", num, typeID)
			}
			if u.Class != ClassZombie {
				return fmt.Errorf("phase %d pool type %q is not a zombie", num, typeID)
			}
		}
	}
	for _, id := range c.Tech.IDs() {
		n := c.Tech.Get(id)
		if n.Effect.Kind == EffectUnlock && c.Units.Get(n.Effect.Unit) == nil {
			return fmt.Errorf("tech %q unlocks unknown type %q", id, n.Effect.Unit)
		}
		if n.Nation != 0 && c.Nations.Get(n.Nation) == nil {
			return fmt.Errorf("tech %q restricted to unknown nation %d", id, n.Nation)
		}
	}
	return nil
}
