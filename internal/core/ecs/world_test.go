package ecs

import "testing"

func TestCreateEntity_IDsAscendNeverReuse(t *testing.T) {
	w := NewWorld()
	a := w.CreateEntity()
	b := w.CreateEntity()
	if b <= a {
		t.Fatalf("ids must ascend: got %d then %d", a, b)
	}

	w.MarkForDestruction(a)
	w.FlushDestroyQueue()

	c := w.CreateEntity()
	if c == a {
		t.Fatalf("id %d was reused after destruction", a)
	}
	if c <= b {
		t.Fatalf("ids must keep ascending after destroy: got %d after %d", c, b)
	}
}

func TestEach_AscendingOrderSkipsDead(t *testing.T) {
	w := NewWorld()
	var made []EntityID
	for i := 0; i < 5; i++ {
		made = append(made, w.CreateEntity())
	}
	w.MarkForDestruction(made[2])
	w.FlushDestroyQueue()

	var seen []EntityID
	w.Each(func(id EntityID) {
		seen = append(seen, id)
	})
	if len(seen) != 4 {
		t.Fatalf("seen %d entities, want 4", len(seen))
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] <= seen[i-1] {
			t.Fatalf("Each out of order: %v", seen)
		}
	}
	for _, id := range seen {
		if id == made[2] {
			t.Fatalf("destroyed entity %d still visited", made[2])
		}
	}
}

func TestFlushDestroyQueue_IdempotentAndClearsComponents(t *testing.T) {
	w := NewWorld()
	store := NewPtrComponentStore[int]()
	w.Registry().Register(store)

	id := w.CreateEntity()
	v := 7
	store.Set(id, &v)

	w.MarkForDestruction(id)
	w.MarkForDestruction(id) // double queue is harmless
	destroyed := w.FlushDestroyQueue()
	if len(destroyed) != 1 || destroyed[0] != id {
		t.Fatalf("destroyed = %v, want [%d]", destroyed, id)
	}
	if w.Alive(id) {
		t.Fatalf("entity %d still alive after flush", id)
	}
	if store.Has(id) {
		t.Fatalf("component survived destruction")
	}
	if again := w.FlushDestroyQueue(); len(again) != 0 {
		t.Fatalf("second flush destroyed %v", again)
	}
}

func TestDestroy_StaleReferenceDetectable(t *testing.T) {
	w := NewWorld()
	id := w.CreateEntity()
	w.MarkForDestruction(id)
	w.FlushDestroyQueue()
	if w.Alive(id) {
		t.Fatalf("stale id %d reports alive", id)
	}
}
