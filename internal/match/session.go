package match

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erasrts/server/internal/command"
	"github.com/erasrts/server/internal/config"
	"github.com/erasrts/server/internal/core/event"
	coresys "github.com/erasrts/server/internal/core/system"
	"github.com/erasrts/server/internal/data"
	"github.com/erasrts/server/internal/lockstep"
	"github.com/erasrts/server/internal/scripting"
	"github.com/erasrts/server/internal/snapshot"
	"github.com/erasrts/server/internal/system"
	"github.com/erasrts/server/internal/world"
)

// Session is one peer's view of a running match: world state, the tick
// pipeline, and the synchronizer gating it. The transport feeds batches and
// remote checksums in; Step drives exactly one tick when the synchronizer
// allows it.
type Session struct {
	ID   uuid.UUID
	Peer int32

	state  *world.State
	runner *coresys.Runner
	bus    *event.Bus
	sync   *lockstep.Synchronizer
	log    *zap.Logger

	commands *system.CommandSystem
	output   *system.SnapshotSystem
	persist  *system.PersistSystem
}

// Options carries the optional collaborators a session can run without.
type Options struct {
	DeltaSink system.DeltaSink
	Archive   system.Archive
	Scripts   *scripting.Engine
}

// NewSession wires a full tick pipeline over fresh match state.
func NewSession(cfg *config.Config, content *data.Content, peer int32, peers []int32, log *zap.Logger, opts Options) (*Session, error) {
	state, err := world.NewState(content)
	if err != nil {
		return nil, fmt.Errorf("match: init state: %w", err)
	}

	s := &Session{
		ID:     uuid.New(),
		Peer:   peer,
		state:  state,
		runner: coresys.NewRunner(),
		bus:    event.NewBus(),
		log:    log,
	}
	s.sync = lockstep.NewSynchronizer(cfg.Lockstep, peers, log)

	deps := &system.Deps{
		World:     state,
		Cfg:       cfg,
		Bus:       s.bus,
		Log:       log,
		Scripting: opts.Scripts,
		Injector:  s.sync,
	}
	s.persist = system.NewPersistSystem(deps, opts.Archive)
	deps.Diag = s.persist

	s.commands = system.NewCommandSystem(deps)
	s.output = system.NewSnapshotSystem(deps, opts.DeltaSink)

	s.runner.Register(s.commands)
	s.runner.Register(system.NewMovementSystem(deps))
	s.runner.Register(system.NewCombatSystem(deps))
	s.runner.Register(system.NewDirectorSystem(deps))
	s.runner.Register(system.NewEconomySystem(deps))
	s.runner.Register(system.NewStatusSystem(deps))
	s.runner.Register(s.output)
	s.runner.Register(s.persist)
	s.runner.Register(system.NewCleanupSystem(deps))

	event.Subscribe(s.bus, func(ev event.EntityDied) {
		log.Debug("entity died",
			zap.Uint64("id", uint64(ev.ID)),
			zap.String("type", ev.TypeID),
			zap.Int32("owner", ev.Owner),
			zap.Uint64("tick", ev.Tick))
	})

	return s, nil
}

// State exposes the match state for inspection (tests, triage tooling).
func (s *Session) State() *world.State { return s.state }

// Sync exposes the synchronizer for the transport collaborator.
func (s *Session) Sync() *lockstep.Synchronizer { return s.sync }

// SubmitLocal queues this peer's own commands for the given tick.
func (s *Session) SubmitLocal(tick uint64, cmds []command.Command) error {
	return s.sync.SubmitBatch(command.Batch{Peer: s.Peer, Tick: tick, Commands: cmds})
}

// Step runs exactly one tick if the synchronizer can resolve it, returning
// whether the simulation advanced. timedOut marks the tick as past its
// resolve deadline so the drop policy can excuse stragglers.
func (s *Session) Step(ctx context.Context, timedOut bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	tick := s.state.Tick

	batch, ok := s.sync.TryResolve(tick)
	if !ok && timedOut {
		batch, ok = s.sync.ResolveTimeout(tick)
	}
	if !ok {
		return false, nil
	}

	s.bus.SwapBuffers()
	s.bus.DispatchAll()

	s.commands.SetBatch(batch)
	s.runner.Tick(tick)

	sum := s.output.LastChecksum()
	fault := s.sync.SubmitLocalChecksum(tick, sum)
	s.sync.Advance(tick)
	s.state.Tick = tick + 1
	if fault != nil {
		// A peer reported this tick before we finished it and the sums
		// disagree. The tick itself still completed.
		s.logDesync(fault)
		return true, fault
	}
	return true, nil
}

// OnPeerChecksum feeds a remote end-of-tick checksum in. Reports for ticks
// not yet completed locally are buffered and settled by Step. A non-nil
// error is a *lockstep.DesyncFault and the match is over for this peer.
func (s *Session) OnPeerChecksum(tick uint64, peer int32, sum uint64) error {
	if fault := s.sync.SubmitPeerChecksum(tick, peer, sum); fault != nil {
		s.logDesync(fault)
		return fault
	}
	return nil
}

func (s *Session) logDesync(fault *lockstep.DesyncFault) {
	s.log.Error("lockstep desync",
		zap.Uint64("tick", fault.Tick),
		zap.Int32("peer", fault.Peer),
		zap.String("local", fmt.Sprintf("%016x", fault.Local)),
		zap.String("remote", fmt.Sprintf("%016x", fault.Remote)))
}

// Checksum returns the full digest of current state, for triage tooling.
func (s *Session) Checksum() [32]byte {
	return snapshot.FullChecksum(s.state)
}

// LastChecksum is the lockstep checksum taken at the end of the most recent
// completed tick.
func (s *Session) LastChecksum() uint64 {
	return s.output.LastChecksum()
}

// Finished reports whether the match has a result: one nation standing, or
// none.
func (s *Session) Finished() bool {
	return s.state.AliveNations() <= 1
}

// Close flushes buffered diagnostics. The Lua engine and archive are owned
// by the caller and outlive the session.
func (s *Session) Close() {
	s.persist.Flush()
}
