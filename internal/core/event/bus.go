package event

// Bus is a double-buffered event bus. Events emitted in tick N are readable
// in tick N+1. SwapBuffers() is called once at tick start by the session.
//
// Unlike a type-keyed map bus, events are kept in one queue and delivered in
// emission order, with handlers called in registration order. Both orders are
// part of the deterministic tick contract; map iteration must never decide
// when a handler runs.
type Bus struct {
	front    []any
	back     []any
	handlers []func(any) bool
}

func NewBus() *Bus {
	return &Bus{
		front:    make([]any, 0, 64),
		back:     make([]any, 0, 64),
		handlers: make([]func(any) bool, 0, 16),
	}
}

// Emit queues an event into the back buffer (readable next tick).
func Emit[T any](b *Bus, ev T) {
	b.back = append(b.back, ev)
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.handlers = append(b.handlers, func(raw any) bool {
		ev, ok := raw.(T)
		if !ok {
			return false
		}
		fn(ev)
		return true
	})
}

// SwapBuffers rotates back→front and clears the new back buffer.
func (b *Bus) SwapBuffers() {
	b.front, b.back = b.back, b.front
	b.back = b.back[:0]
}

// DispatchAll delivers all front-buffer events in emission order.
func (b *Bus) DispatchAll() {
	for _, ev := range b.front {
		for _, h := range b.handlers {
			h(ev)
		}
	}
	b.front = b.front[:0]
}
