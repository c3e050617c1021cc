package system

// Phase defines execution ordering within a single tick. The pipeline is
// fixed: reordering phases changes observable state and breaks lockstep.
type Phase int

const (
	PhaseCommands Phase = iota // 0: apply the canonical command batch
	PhaseCombat                // 1: movement + simultaneous damage resolution
	PhaseDirector              // 2: horde escalation, next-tick spawn scheduling
	PhaseEconomy               // 3: production, upkeep, research timers
	PhaseStatus                // 4: effect expiry, phase debuff re-derivation
	PhaseOutput                // 5: snapshot delta + checksum
	PhasePersist               // 6: diagnostics flush
	PhaseCleanup               // 7: destroy queued entities
)

// System is the interface every tick-pipeline system implements.
type System interface {
	Phase() Phase
	Update(tick uint64)
}
