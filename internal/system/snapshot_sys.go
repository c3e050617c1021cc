package system

import (
	coresys "github.com/erasrts/server/internal/core/system"
	"github.com/erasrts/server/internal/snapshot"
)

// DeltaSink receives per-tick state deltas for the presentation layer.
// A nil sink skips delta computation entirely; the checksum is still taken.
type DeltaSink interface {
	OnDelta(snapshot.Delta)
}

// SnapshotSystem is the output end of the tick: it encodes the canonical
// state, takes the lockstep checksum, and ships a keyed delta to whichever
// renderer or recorder is attached.
type SnapshotSystem struct {
	deps     *Deps
	sink     DeltaSink
	prev     []snapshot.Record
	checksum uint64
}

func NewSnapshotSystem(deps *Deps, sink DeltaSink) *SnapshotSystem {
	return &SnapshotSystem{deps: deps, sink: sink}
}

func (s *SnapshotSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *SnapshotSystem) Update(tick uint64) {
	records := snapshot.EncodeRecords(s.deps.World)
	s.checksum = snapshot.ChecksumRecords(records)

	if s.sink != nil {
		changed, removed := snapshot.Diff(s.prev, records)
		s.sink.OnDelta(snapshot.Delta{
			Tick:     tick,
			Checksum: s.checksum,
			Changed:  changed,
			Removed:  removed,
		})
	}
	s.prev = records
}

// LastChecksum returns the checksum taken at the end of the most recent
// tick. The session submits it to the synchronizer for peer comparison.
func (s *SnapshotSystem) LastChecksum() uint64 {
	return s.checksum
}
