package command

import (
	"sort"

	"github.com/erasrts/server/internal/core/ecs"
)

// Kind enumerates player command kinds plus the director-injected SpawnHorde.
type Kind uint8

const (
	KindMove Kind = iota + 1
	KindTrain
	KindBuild
	KindResearch
	KindAttack
	KindGather
	KindCancel
	KindSpawnHorde // injected locally by the zombie director, nation 0 only
)

func (k Kind) String() string {
	switch k {
	case KindMove:
		return "move"
	case KindTrain:
		return "train"
	case KindBuild:
		return "build"
	case KindResearch:
		return "research"
	case KindAttack:
		return "attack"
	case KindGather:
		return "gather"
	case KindCancel:
		return "cancel"
	case KindSpawnHorde:
		return "spawn_horde"
	}
	return "unknown"
}

// Command is one player order. Immutable once accepted into a tick's
// canonical set.
type Command struct {
	Nation int32        `json:"nation"`
	Tick   uint64       `json:"tick"`
	Kind   Kind         `json:"kind"`
	Actor  ecs.EntityID `json:"actor,omitempty"`  // move/attack/gather/cancel
	TypeID string       `json:"type,omitempty"`   // train/build/spawn_horde
	TechID string       `json:"tech,omitempty"`   // research
	Target ecs.EntityID `json:"target,omitempty"` // attack/gather
	X      int32        `json:"x,omitempty"`
	Y      int32        `json:"y,omitempty"`
}

// Batch is one peer's command submissions for one tick. The transport
// collaborator guarantees per-peer ordering; cross-peer ordering is the
// synchronizer's job.
type Batch struct {
	Peer     int32
	Tick     uint64
	Commands []Command
}

// Canonical merges per-peer batches into the agreed per-tick command set:
// batches in ascending peer id, commands in submission order within a batch.
// Every peer derives the identical sequence from the same batches.
func Canonical(batches []Batch) []Command {
	sorted := make([]Batch, len(batches))
	copy(sorted, batches)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Peer < sorted[j].Peer })
	var out []Command
	for _, b := range sorted {
		out = append(out, b.Commands...)
	}
	return out
}
