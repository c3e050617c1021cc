package lockstep

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/erasrts/server/internal/command"
	"github.com/erasrts/server/internal/config"
)

// Synchronizer gates tick advancement on command agreement. The simulation
// may not execute tick N until every participating peer's batch for N is in
// (or the timeout policy has excused the stragglers); all peers then derive
// the identical canonical command set and, a tick later, compare state
// checksums.
//
// Single-goroutine access: the session owns the synchronizer and the
// transport hands batches to the session, never to the synchronizer
// directly.
type Synchronizer struct {
	cfg config.LockstepConfig
	log *zap.Logger

	peers    []int32 // ascending, fixed at match start
	batches  map[uint64]map[int32]command.Batch
	injected map[uint64][]command.Command

	// Dropped peers are excused from all future ticks under the "drop"
	// policy. Under "stall" this set stays empty.
	dropped map[int32]struct{}

	local     map[uint64]uint64       // tick -> local checksum
	pending   map[uint64][]peerReport // remote reports that arrived early
	confirmed uint64                  // highest tick with all peer checksums verified
}

// peerReport is a remote checksum that arrived before the tick completed
// locally. Held until SubmitLocalChecksum can compare it.
type peerReport struct {
	peer int32
	sum  uint64
}

// NewSynchronizer builds a synchronizer for a fixed peer roster.
func NewSynchronizer(cfg config.LockstepConfig, peers []int32, log *zap.Logger) *Synchronizer {
	sorted := make([]int32, len(peers))
	copy(sorted, peers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return &Synchronizer{
		cfg:      cfg,
		log:      log,
		peers:    sorted,
		batches:  make(map[uint64]map[int32]command.Batch),
		injected: make(map[uint64][]command.Command),
		dropped:  make(map[int32]struct{}),
		local:    make(map[uint64]uint64),
		pending:  make(map[uint64][]peerReport),
	}
}

// SubmitBatch records one peer's commands for one tick. Batches may arrive
// ahead of the tick being resolved; a second batch from the same peer for
// the same tick replaces the first (the transport retries on reconnect).
func (s *Synchronizer) SubmitBatch(b command.Batch) error {
	if !s.knownPeer(b.Peer) {
		return fmt.Errorf("lockstep: batch from unknown peer %d", b.Peer)
	}
	if _, gone := s.dropped[b.Peer]; gone {
		return fmt.Errorf("lockstep: batch from dropped peer %d", b.Peer)
	}
	perPeer, ok := s.batches[b.Tick]
	if !ok {
		perPeer = make(map[int32]command.Batch, len(s.peers))
		s.batches[b.Tick] = perPeer
	}
	perPeer[b.Peer] = b
	return nil
}

// InjectLocal appends engine-generated commands (director spawns) to a
// future tick's canonical set. Injected commands are derived identically on
// every peer and are never part of any batch.
func (s *Synchronizer) InjectLocal(tick uint64, cmds []command.Command) {
	s.injected[tick] = append(s.injected[tick], cmds...)
}

// TryResolve returns the canonical command set for the tick once every
// non-dropped peer has submitted. The second return is false while batches
// are still outstanding.
func (s *Synchronizer) TryResolve(tick uint64) ([]command.Command, bool) {
	perPeer := s.batches[tick]
	for _, p := range s.peers {
		if _, gone := s.dropped[p]; gone {
			continue
		}
		if _, ok := perPeer[p]; !ok {
			return nil, false
		}
	}
	return s.canonical(tick, perPeer), true
}

// ResolveTimeout applies the configured policy to a tick whose batches did
// not all arrive in time. Under "drop" the missing peers are excused
// permanently and the tick resolves without them; under "stall" it returns
// false and the session keeps waiting.
func (s *Synchronizer) ResolveTimeout(tick uint64) ([]command.Command, bool) {
	if s.cfg.Policy != "drop" {
		return nil, false
	}
	perPeer := s.batches[tick]
	for _, p := range s.peers {
		if _, gone := s.dropped[p]; gone {
			continue
		}
		if _, ok := perPeer[p]; ok {
			continue
		}
		s.dropped[p] = struct{}{}
		s.log.Warn("peer dropped from lockstep",
			zap.Int32("peer", p),
			zap.Uint64("tick", tick))
	}
	return s.canonical(tick, perPeer), true
}

func (s *Synchronizer) canonical(tick uint64, perPeer map[int32]command.Batch) []command.Command {
	list := make([]command.Batch, 0, len(perPeer))
	for _, p := range s.peers {
		if b, ok := perPeer[p]; ok {
			list = append(list, b)
		}
	}
	out := command.Canonical(list)
	out = append(out, s.injected[tick]...)
	return out
}

// checksumWindow bounds how long local checksums are retained. Remote
// reports for a tick arrive after the tick completed locally, so checksums
// outlive Advance by a fixed window.
const checksumWindow = 64

// Advance discards batch bookkeeping for a completed tick.
func (s *Synchronizer) Advance(tick uint64) {
	delete(s.batches, tick)
	delete(s.injected, tick)
	if tick >= checksumWindow {
		delete(s.local, tick-checksumWindow)
		delete(s.pending, tick-checksumWindow)
	}
}

// SubmitLocalChecksum records this peer's end-of-tick checksum and settles
// any remote reports that arrived before the tick completed locally. The
// first mismatch among them is returned as a fatal desync fault.
func (s *Synchronizer) SubmitLocalChecksum(tick, sum uint64) *DesyncFault {
	s.local[tick] = sum
	reports := s.pending[tick]
	delete(s.pending, tick)
	for _, r := range reports {
		if fault := s.compare(tick, r.peer, sum, r.sum); fault != nil {
			return fault
		}
	}
	return nil
}

// SubmitPeerChecksum compares a remote checksum against the local one for
// the same tick. A report for a tick still in flight locally is buffered and
// settled by SubmitLocalChecksum. A mismatch is a fatal desync fault.
func (s *Synchronizer) SubmitPeerChecksum(tick uint64, peer int32, sum uint64) *DesyncFault {
	local, ok := s.local[tick]
	if !ok {
		s.pending[tick] = append(s.pending[tick], peerReport{peer: peer, sum: sum})
		return nil
	}
	return s.compare(tick, peer, local, sum)
}

func (s *Synchronizer) compare(tick uint64, peer int32, local, remote uint64) *DesyncFault {
	if local == remote {
		if tick > s.confirmed {
			s.confirmed = tick
		}
		return nil
	}
	return &DesyncFault{Tick: tick, Peer: peer, Local: local, Remote: remote}
}

// Confirmed is the highest tick for which at least one peer agreement has
// been verified.
func (s *Synchronizer) Confirmed() uint64 {
	return s.confirmed
}

// Dropped reports whether a peer has been excused under the drop policy.
func (s *Synchronizer) Dropped(peer int32) bool {
	_, ok := s.dropped[peer]
	return ok
}

func (s *Synchronizer) knownPeer(p int32) bool {
	i := sort.Search(len(s.peers), func(i int) bool { return s.peers[i] >= p })
	return i < len(s.peers) && s.peers[i] == p
}
