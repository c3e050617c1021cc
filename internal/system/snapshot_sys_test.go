package system

import (
	"testing"

	"github.com/erasrts/server/internal/snapshot"
	"github.com/erasrts/server/internal/world"
)

type recordingSink struct {
	deltas []snapshot.Delta
}

func (r *recordingSink) OnDelta(d snapshot.Delta) {
	r.deltas = append(r.deltas, d)
}

func TestSnapshotSystem_ChecksumStableWhenIdle(t *testing.T) {
	deps, _, _ := testDeps(t)
	sys := NewSnapshotSystem(deps, nil)

	sys.Update(1)
	first := sys.LastChecksum()
	sys.Update(2)
	if sys.LastChecksum() != first {
		t.Fatalf("checksum drifted over an idle tick: %016x -> %016x", first, sys.LastChecksum())
	}
}

func TestSnapshotSystem_DeltaShrinksAfterFirstTick(t *testing.T) {
	deps, _, _ := testDeps(t)
	sink := &recordingSink{}
	sys := NewSnapshotSystem(deps, sink)

	sys.Update(1) // first delta carries the full state
	deps.World.Credit(1, world.Gold, 5)
	sys.Update(2)

	if len(sink.deltas) != 2 {
		t.Fatalf("deltas = %d, want 2", len(sink.deltas))
	}
	if len(sink.deltas[0].Changed) <= len(sink.deltas[1].Changed) {
		t.Fatalf("second delta not incremental: %d then %d records",
			len(sink.deltas[0].Changed), len(sink.deltas[1].Changed))
	}
	if len(sink.deltas[1].Changed) != 1 {
		t.Fatalf("ledger change produced %d records, want 1", len(sink.deltas[1].Changed))
	}
	if sink.deltas[1].Tick != 2 || sink.deltas[1].Checksum != sys.LastChecksum() {
		t.Fatalf("delta header wrong: %+v", sink.deltas[1])
	}
}
