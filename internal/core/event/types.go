package event

import "github.com/erasrts/server/internal/core/ecs"

// EntityDied is emitted by the combat resolver when lethal damage lands.
// Dispatched at the start of the next tick.
type EntityDied struct {
	ID     ecs.EntityID
	TypeID string
	Owner  int32
	Killer ecs.EntityID
	Tick   uint64
}

// ResearchCompleted is emitted when a tech node finishes.
type ResearchCompleted struct {
	Nation int32
	NodeID string
	Tick   uint64
}

// PhaseActivated is emitted when the zombie director escalates.
type PhaseActivated struct {
	Phase int32
	Tick  uint64
}

// NationEliminated is emitted when a nation's base falls with no units left.
type NationEliminated struct {
	Nation int32
	Tick   uint64
}
