package call

import (
	"slices"
	"sync"

	"github.com/roach88/aepbridge/internal/dyn"
)

// Listener receives an event name and its fully encoded payload.
type Listener func(name string, payload dyn.Value)

// Emitter delivers named events to subscribers. Delivery is synchronous on
// the emitting goroutine and follows subscription order; there is no queue
// and no backpressure. Deliveries are serialized across goroutines: one
// Emit reaches all its listeners before the next one starts. A listener
// must not call Emit on the same Emitter; that deadlocks.
type Emitter struct {
	deliver sync.Mutex

	mu    sync.RWMutex
	next  uint64
	named map[string]map[uint64]Listener
	all   map[uint64]Listener
}

// NewEmitter creates an Emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{
		named: make(map[string]map[uint64]Listener),
		all:   make(map[uint64]Listener),
	}
}

// Subscription is returned by Subscribe; call Unsubscribe to stop delivery.
type Subscription struct {
	once   sync.Once
	remove func()
}

// Unsubscribe stops delivery. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.remove)
}

// Subscribe registers l for events called name.
func (e *Emitter) Subscribe(name string, l Listener) *Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	id := e.next
	if e.named[name] == nil {
		e.named[name] = make(map[uint64]Listener)
	}
	e.named[name][id] = l
	return &Subscription{remove: func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.named[name], id)
		if len(e.named[name]) == 0 {
			delete(e.named, name)
		}
	}}
}

// SubscribeAll registers l for every event.
func (e *Emitter) SubscribeAll(l Listener) *Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	id := e.next
	e.all[id] = l
	return &Subscription{remove: func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.all, id)
	}}
}

// ListenerCount returns how many listeners would receive name.
func (e *Emitter) ListenerCount(name string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.named[name]) + len(e.all)
}

// Emit delivers payload to every current listener of name, then to every
// SubscribeAll listener, each group in subscription order. Listeners may
// subscribe or unsubscribe during delivery; the change applies to the next
// Emit.
func (e *Emitter) Emit(name string, payload dyn.Value) {
	if payload == nil {
		payload = dyn.Null{}
	}
	e.deliver.Lock()
	defer e.deliver.Unlock()
	for _, l := range e.snapshot(name) {
		l(name, payload)
	}
}

func (e *Emitter) snapshot(name string) []Listener {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]uint64, 0, len(e.named[name]))
	for id := range e.named[name] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	allIDs := make([]uint64, 0, len(e.all))
	for id := range e.all {
		allIDs = append(allIDs, id)
	}
	slices.Sort(allIDs)

	out := make([]Listener, 0, len(ids)+len(allIDs))
	for _, id := range ids {
		out = append(out, e.named[name][id])
	}
	for _, id := range allIDs {
		out = append(out, e.all[id])
	}
	return out
}
