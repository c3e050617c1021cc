package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/erasrts/server/internal/command"
	"github.com/erasrts/server/internal/core/event"
	coresys "github.com/erasrts/server/internal/core/system"
)

// Archive is the diagnostics store behind the persist system. The pgx repo
// implements it; tests plug in a recorder. Archive writes are observability
// egress only — nothing in the simulation ever reads them back, and a failed
// write must never stall or fork the tick.
type Archive interface {
	SaveRejected(ctx context.Context, rows []command.Rejected) error
	SavePhaseActivations(ctx context.Context, rows []event.PhaseActivated) error
	SaveEliminations(ctx context.Context, rows []event.NationEliminated) error
}

// PersistSystem buffers diagnostics during the tick and flushes them to the
// archive on a coarse cadence. It doubles as the pipeline's DiagSink.
type PersistSystem struct {
	deps    *Deps
	archive Archive

	rejected []command.Rejected
	phases   []event.PhaseActivated
	elims    []event.NationEliminated
}

func NewPersistSystem(deps *Deps, archive Archive) *PersistSystem {
	s := &PersistSystem{deps: deps, archive: archive}
	event.Subscribe(deps.Bus, func(ev event.PhaseActivated) {
		s.phases = append(s.phases, ev)
	})
	event.Subscribe(deps.Bus, func(ev event.NationEliminated) {
		s.elims = append(s.elims, ev)
	})
	return s
}

func (s *PersistSystem) Phase() coresys.Phase { return coresys.PhasePersist }

// RecordRejected implements DiagSink.
func (s *PersistSystem) RecordRejected(rej command.Rejected) {
	s.rejected = append(s.rejected, rej)
}

func (s *PersistSystem) Update(tick uint64) {
	every := s.deps.Cfg.Diagnostics.FlushEveryTicks
	if every == 0 || tick%every != 0 {
		return
	}
	s.Flush()
}

// Flush drains all buffers to the archive. Errors are logged and the rows
// dropped: diagnostics loss is acceptable, a stalled tick is not.
func (s *PersistSystem) Flush() {
	if s.archive == nil {
		s.rejected = s.rejected[:0]
		s.phases = s.phases[:0]
		s.elims = s.elims[:0]
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if len(s.rejected) > 0 {
		if err := s.archive.SaveRejected(ctx, s.rejected); err != nil {
			s.deps.Log.Warn("archive rejected commands", zap.Error(err))
		}
		s.rejected = s.rejected[:0]
	}
	if len(s.phases) > 0 {
		if err := s.archive.SavePhaseActivations(ctx, s.phases); err != nil {
			s.deps.Log.Warn("archive phase activations", zap.Error(err))
		}
		s.phases = s.phases[:0]
	}
	if len(s.elims) > 0 {
		if err := s.archive.SaveEliminations(ctx, s.elims); err != nil {
			s.deps.Log.Warn("archive eliminations", zap.Error(err))
		}
		s.elims = s.elims[:0]
	}
}
