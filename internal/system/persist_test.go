package system

import (
	"context"
	"errors"
	"testing"

	"github.com/erasrts/server/internal/command"
	"github.com/erasrts/server/internal/core/event"
)

type fakeArchive struct {
	rejected []command.Rejected
	phases   []event.PhaseActivated
	elims    []event.NationEliminated
	fail     bool
}

func (f *fakeArchive) SaveRejected(_ context.Context, rows []command.Rejected) error {
	if f.fail {
		return errors.New("archive down")
	}
	f.rejected = append(f.rejected, rows...)
	return nil
}

func (f *fakeArchive) SavePhaseActivations(_ context.Context, rows []event.PhaseActivated) error {
	if f.fail {
		return errors.New("archive down")
	}
	f.phases = append(f.phases, rows...)
	return nil
}

func (f *fakeArchive) SaveEliminations(_ context.Context, rows []event.NationEliminated) error {
	if f.fail {
		return errors.New("archive down")
	}
	f.elims = append(f.elims, rows...)
	return nil
}

func TestPersist_FlushesOnCadence(t *testing.T) {
	deps, _, _ := testDeps(t)
	deps.Cfg.Diagnostics.FlushEveryTicks = 10
	arch := &fakeArchive{}
	sys := NewPersistSystem(deps, arch)

	sys.RecordRejected(command.Rejected{Nation: 1, Tick: 3, Kind: command.KindTrain, Reason: command.RejectInsufficient})
	sys.Update(5)
	if len(arch.rejected) != 0 {
		t.Fatalf("flushed off-cadence")
	}
	sys.Update(10)
	if len(arch.rejected) != 1 {
		t.Fatalf("archived rejections = %d, want 1", len(arch.rejected))
	}

	// Buffer drained: the next flush writes nothing new.
	sys.Update(20)
	if len(arch.rejected) != 1 {
		t.Fatalf("rejection re-archived: %d rows", len(arch.rejected))
	}
}

func TestPersist_CollectsBusEvents(t *testing.T) {
	deps, _, _ := testDeps(t)
	arch := &fakeArchive{}
	sys := NewPersistSystem(deps, arch)

	event.Emit(deps.Bus, event.PhaseActivated{Phase: 2, Tick: 40})
	event.Emit(deps.Bus, event.NationEliminated{Nation: 2, Tick: 41})
	deps.Bus.SwapBuffers()
	deps.Bus.DispatchAll()

	sys.Flush()
	if len(arch.phases) != 1 || arch.phases[0].Phase != 2 {
		t.Fatalf("phase activations = %+v", arch.phases)
	}
	if len(arch.elims) != 1 || arch.elims[0].Nation != 2 {
		t.Fatalf("eliminations = %+v", arch.elims)
	}
}

func TestPersist_ArchiveFailureDropsRows(t *testing.T) {
	deps, _, _ := testDeps(t)
	arch := &fakeArchive{fail: true}
	sys := NewPersistSystem(deps, arch)

	sys.RecordRejected(command.Rejected{Nation: 1, Reason: command.RejectSupplyCap})
	sys.Flush() // must not panic or retry

	arch.fail = false
	sys.Flush()
	if len(arch.rejected) != 0 {
		t.Fatalf("failed rows retried: %+v", arch.rejected)
	}
}

func TestPersist_NoArchiveStillDrains(t *testing.T) {
	deps, _, _ := testDeps(t)
	sys := NewPersistSystem(deps, nil)

	sys.RecordRejected(command.Rejected{Nation: 1, Reason: command.RejectSupplyCap})
	sys.Flush()
	sys.RecordRejected(command.Rejected{Nation: 2, Reason: command.RejectSupplyCap})
	sys.Flush()
}
