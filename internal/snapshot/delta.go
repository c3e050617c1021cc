package snapshot

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/klauspost/compress/zstd"
)

// Delta is the per-tick state egress for the presentation collaborator:
// records whose encoding changed since the previous tick, plus removed keys.
type Delta struct {
	Tick     uint64
	Checksum uint64
	Changed  []Record // sorted by key
	Removed  []string // sorted
}

// Diff computes the delta between two record sets.
func Diff(prev, cur []Record) (changed []Record, removed []string) {
	prevByKey := make(map[string][]byte, len(prev))
	for _, r := range prev {
		prevByKey[r.Key] = r.Data
	}
	curKeys := make(map[string]struct{}, len(cur))
	for _, r := range cur {
		curKeys[r.Key] = struct{}{}
		if old, ok := prevByKey[r.Key]; !ok || !bytes.Equal(old, r.Data) {
			changed = append(changed, r)
		}
	}
	for key := range prevByKey {
		if _, ok := curKeys[key]; !ok {
			removed = append(removed, key)
		}
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i].Key < changed[j].Key })
	sort.Strings(removed)
	return changed, removed
}

// Compressor wraps a shared zstd encoder for delta payloads. Deltas for a
// busy late-game tick are dominated by repetitive component encodings and
// compress well.
type Compressor struct {
	enc *zstd.Encoder
}

func NewCompressor() (*Compressor, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	return &Compressor{enc: enc}, nil
}

// Pack serializes and compresses a delta's record payload.
func (c *Compressor) Pack(d Delta) []byte {
	var w writer
	w.u64(d.Tick)
	w.u64(d.Checksum)
	w.u32(uint32(len(d.Changed)))
	for _, r := range d.Changed {
		w.str(r.Key)
		w.u32(uint32(len(r.Data)))
		w.buf.Write(r.Data)
	}
	w.u32(uint32(len(d.Removed)))
	for _, key := range d.Removed {
		w.str(key)
	}
	return c.enc.EncodeAll(w.buf.Bytes(), nil)
}

func (c *Compressor) Close() {
	c.enc.Close()
}
