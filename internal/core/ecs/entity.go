package ecs

// EntityID is a monotonically increasing identifier. IDs are never reused
// for the lifetime of a match, so a stale reference can always be detected
// by an Alive check instead of silently aliasing a newer entity.
type EntityID uint64

func (id EntityID) IsZero() bool { return id == 0 }

// EntityPool hands out entity ids in strictly ascending order.
type EntityPool struct {
	next  EntityID
	alive map[EntityID]struct{}
}

func NewEntityPool() *EntityPool {
	return &EntityPool{
		next:  1,
		alive: make(map[EntityID]struct{}, 1024),
	}
}

func (p *EntityPool) Create() EntityID {
	id := p.next
	p.next++
	p.alive[id] = struct{}{}
	return id
}

func (p *EntityPool) Alive(id EntityID) bool {
	_, ok := p.alive[id]
	return ok
}

// Destroy is idempotent; destroying an unknown or already-dead id is a no-op.
func (p *EntityPool) Destroy(id EntityID) {
	delete(p.alive, id)
}

func (p *EntityPool) Count() int {
	return len(p.alive)
}
