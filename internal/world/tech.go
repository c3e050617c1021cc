package world

import "errors"

// Research rejection reasons. All are per-command diagnostics, not faults.
var (
	ErrTechUnknown  = errors.New("unknown tech node")
	ErrTechPrereq   = errors.New("prerequisite not unlocked")
	ErrTechUnlocked = errors.New("already unlocked")
	ErrTechBusy     = errors.New("another research in progress")
	ErrTechForeign  = errors.New("legacy branch of another nation")
)

// BeginResearch validates and starts a research order. The cost is debited
// atomically on acceptance; any rejection leaves the nation untouched.
// One concurrent research per nation — a deliberate pacing constraint.
func (s *State) BeginResearch(nation int32, nodeID string) error {
	n := s.nations[nation]
	if n == nil || !n.Alive {
		return ErrTechUnknown
	}
	node := s.Content.Tech.Get(nodeID)
	if node == nil {
		return ErrTechUnknown
	}
	if node.Nation != 0 && node.Nation != nation {
		return ErrTechForeign
	}
	if n.HasUnlocked(nodeID) {
		return ErrTechUnlocked
	}
	if n.Researching != "" {
		return ErrTechBusy
	}
	for _, req := range node.Requires {
		if !n.HasUnlocked(req) {
			return ErrTechPrereq
		}
	}
	if err := s.Debit(nation, node.Cost); err != nil {
		return err
	}
	n.Researching = nodeID
	// Research bonus shortens the timer; permille floor keeps it >= 1 tick.
	ticks := int64(node.Ticks) * 1000 / int64(n.Def.ResearchPermille)
	if ticks < 1 {
		ticks = 1
	}
	n.ResearchLeft = int32(ticks)
	return nil
}

// CancelResearch drops the in-flight node. Spent resources are forfeit
// (unlock is pay-on-start, same as the original).
func (s *State) CancelResearch(nation int32) bool {
	n := s.nations[nation]
	if n == nil || n.Researching == "" {
		return false
	}
	n.Researching = ""
	n.ResearchLeft = 0
	return true
}

// TickResearch advances one nation's research timer and returns the node id
// on completion, or "". Unlock is permanent; there is no de-research.
func (s *State) TickResearch(nation int32) string {
	n := s.nations[nation]
	if n == nil || n.Researching == "" {
		return ""
	}
	n.ResearchLeft--
	if n.ResearchLeft > 0 {
		return ""
	}
	done := n.Researching
	n.Researching = ""
	n.ResearchLeft = 0
	n.unlock(done)
	return done
}

// CheckTechInvariant verifies prerequisite closure over a nation's unlocked
// set. Used by tests and the desync triage tool; a violation here means a
// bug, the engine never produces one.
func (s *State) CheckTechInvariant(nation int32) bool {
	n := s.nations[nation]
	if n == nil {
		return true
	}
	for _, id := range n.Unlocked {
		node := s.Content.Tech.Get(id)
		if node == nil {
			return false
		}
		for _, req := range node.Requires {
			if !n.HasUnlocked(req) {
				return false
			}
		}
	}
	return true
}
