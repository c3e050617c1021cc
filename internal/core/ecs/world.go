package ecs

import "sort"

// World is the top-level ECS container. It owns the entity pool, the component
// registry, an ordered id index, and a deferred destruction queue flushed by
// the cleanup phase each tick.
//
// Iteration order is always ascending entity id. Downstream consumers (combat
// grouping, snapshot hashing) rely on this so peers never diverge on map
// iteration order.
type World struct {
	pool         *EntityPool
	registry     *Registry
	ids          []EntityID // sorted ascending; creates append, destroys splice
	destroyQueue []EntityID
}

func NewWorld() *World {
	return &World{
		pool:         NewEntityPool(),
		registry:     NewRegistry(),
		ids:          make([]EntityID, 0, 1024),
		destroyQueue: make([]EntityID, 0, 64),
	}
}

func (w *World) Pool() *EntityPool   { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

// CreateEntity allocates the next id. Ids only grow, so appending keeps the
// index sorted without a search.
func (w *World) CreateEntity() EntityID {
	id := w.pool.Create()
	w.ids = append(w.ids, id)
	return id
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

func (w *World) Count() int {
	return w.pool.Count()
}

// Each visits all live entities in ascending id order. The callback may mark
// entities for destruction but must not create entities mid-walk.
func (w *World) Each(fn func(EntityID)) {
	for _, id := range w.ids {
		if w.pool.Alive(id) {
			fn(id)
		}
	}
}

// IDs returns a copy of the live id set in ascending order.
func (w *World) IDs() []EntityID {
	out := make([]EntityID, 0, len(w.ids))
	for _, id := range w.ids {
		if w.pool.Alive(id) {
			out = append(out, id)
		}
	}
	return out
}

// MarkForDestruction queues an entity for end-of-tick cleanup. Queuing the
// same id twice is harmless; the flush is idempotent.
func (w *World) MarkForDestruction(id EntityID) {
	w.destroyQueue = append(w.destroyQueue, id)
}

// FlushDestroyQueue destroys all queued entities and clears their components.
// Called by CleanupSystem at the end of each tick.
func (w *World) FlushDestroyQueue() []EntityID {
	if len(w.destroyQueue) == 0 {
		return nil
	}
	destroyed := make([]EntityID, 0, len(w.destroyQueue))
	for _, id := range w.destroyQueue {
		if !w.pool.Alive(id) {
			continue
		}
		w.registry.RemoveAll(id)
		w.pool.Destroy(id)
		destroyed = append(destroyed, id)
	}
	w.destroyQueue = w.destroyQueue[:0]
	w.compact()
	sort.Slice(destroyed, func(i, j int) bool { return destroyed[i] < destroyed[j] })
	return destroyed
}

// compact drops dead ids from the ordered index once enough have accumulated.
func (w *World) compact() {
	live := w.ids[:0]
	for _, id := range w.ids {
		if w.pool.Alive(id) {
			live = append(live, id)
		}
	}
	w.ids = live
}
