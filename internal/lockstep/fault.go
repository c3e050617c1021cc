package lockstep

import "fmt"

// DesyncFault reports a checksum disagreement between this peer and another.
// It is unrecoverable by design: once states diverge, replaying commands can
// only diverge further, so the session tears the match down and archives the
// fault for triage.
type DesyncFault struct {
	Tick   uint64
	Peer   int32
	Local  uint64
	Remote uint64
}

func (f *DesyncFault) Error() string {
	return fmt.Sprintf("desync at tick %d: peer %d reports %016x, local %016x",
		f.Tick, f.Peer, f.Remote, f.Local)
}
