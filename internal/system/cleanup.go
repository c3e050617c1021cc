package system

import (
	coresys "github.com/erasrts/server/internal/core/system"
)

// CleanupSystem flushes the deferred destroy queue at the very end of the
// tick. Every earlier phase saw the same entity set; ids freed here are
// never reused.
type CleanupSystem struct {
	deps *Deps
}

func NewCleanupSystem(deps *Deps) *CleanupSystem {
	return &CleanupSystem{deps: deps}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(tick uint64) {
	destroyed := s.deps.World.ECS.FlushDestroyQueue()
	if len(destroyed) > 0 {
		s.deps.World.RecomputeSupply(s.deps.Cfg.Economy.BaseSupply)
	}
}
