package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// PhaseDebuff is the world-level status effect an active phase imposes on
// every nation-owned combatant. Re-derived each tick, never mutated ad hoc.
type PhaseDebuff struct {
	Stat     string `yaml:"stat"`
	Permille int32  `yaml:"permille"` // e.g. 900 = -10% attack
}

// ZombiePhase describes one escalation stage. Activation obeys:
// never before MinTick, immediately once threat >= ThreatThreshold after
// MinTick, and unconditionally at CeilTick even if players under-expand.
type ZombiePhase struct {
	Number            int32       `yaml:"number"`
	Name              string      `yaml:"name"`
	MinTick           uint64      `yaml:"min_tick"`
	CeilTick          uint64      `yaml:"ceil_tick"`
	ThreatThreshold   int64       `yaml:"threat_threshold"`
	SpawnEveryTicks   uint64      `yaml:"spawn_every_ticks"`
	SpawnCount        int32       `yaml:"spawn_count"` // per nest at full health
	SpawnRatePermille int32       `yaml:"spawn_rate_permille"`
	Pool              []string    `yaml:"pool"` // zombie type ids drawn per spawn
	Debuff            PhaseDebuff `yaml:"debuff"`
}

type phaseListFile struct {
	Phases []ZombiePhase `yaml:"phases"`
}

// PhaseTable holds the ordered escalation sequence 1..4.
type PhaseTable struct {
	phases []ZombiePhase // ascending by Number
}

// LoadPhaseTable loads the zombie phase table from a YAML file.
func LoadPhaseTable(path string) (*PhaseTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zombie_phases: %w", err)
	}
	var f phaseListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse zombie_phases: %w", err)
	}
	return NewPhaseTable(f.Phases)
}

// NewPhaseTable builds a table from in-memory phases (used by tests).
// Phases must number 1..N contiguously with non-decreasing tick windows.
func NewPhaseTable(phases []ZombiePhase) (*PhaseTable, error) {
	if len(phases) == 0 {
		return nil, fmt.Errorf("phase table is empty")
	}
	sorted := make([]ZombiePhase, len(phases))
	copy(sorted, phases)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })
	for i := range sorted {
		p := &sorted[i]
		if p.Number != int32(i+1) {
			return nil, fmt.Errorf("phase numbers must be contiguous from 1, got %d at index %d", p.Number, i)
		}
		if p.CeilTick < p.MinTick {
			return nil, fmt.Errorf("phase %d: ceil_tick %d below min_tick %d", p.Number, p.CeilTick, p.MinTick)
		}
		if i > 0 && p.MinTick < sorted[i-1].MinTick {
			return nil, fmt.Errorf("phase %d: min_tick regresses", p.Number)
		}
		if len(p.Pool) == 0 {
			return nil, fmt.Errorf("phase %d: empty spawn pool", p.Number)
		}
	}
	return &PhaseTable{phases: sorted}, nil
}

// Get returns phase N (1-based), or nil if out of range.
func (t *PhaseTable) Get(number int32) *ZombiePhase {
	if number < 1 || int(number) > len(t.phases) {
		return nil
	}
	return &t.phases[number-1]
}

func (t *PhaseTable) Count() int {
	return len(t.phases)
}
