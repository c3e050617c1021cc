package snapshot

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"

	"github.com/erasrts/server/internal/world"
)

// Checksum hashes the canonical state encoding with BLAKE2b-256 and folds
// the first 8 bytes into the uint64 peers exchange for desync detection.
func Checksum(s *world.State) uint64 {
	sum := blake2b.Sum256(Encode(s))
	return binary.LittleEndian.Uint64(sum[:8])
}

// FullChecksum returns the whole 32-byte digest, used by the desync triage
// tool where 8 bytes of collision margin would not do.
func FullChecksum(s *world.State) [32]byte {
	return blake2b.Sum256(Encode(s))
}

// ChecksumRecords hashes an already-encoded record set, letting the output
// system encode once per tick and reuse the rows for both diffing and
// checksumming.
func ChecksumRecords(records []Record) uint64 {
	h, _ := blake2b.New256(nil)
	for _, r := range records {
		h.Write([]byte(r.Key))
		h.Write(r.Data)
	}
	var sum [32]byte
	h.Sum(sum[:0])
	return binary.LittleEndian.Uint64(sum[:8])
}
