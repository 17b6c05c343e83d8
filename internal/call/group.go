package call

import "sync"

// Canceler is anything pending that teardown can release.
type Canceler interface {
	Cancel() bool
}

// Group tracks pending results and gates owned by one module so that
// teardown can release all of them. A closed group cancels anything added
// afterwards.
type Group struct {
	mu     sync.Mutex
	next   uint64
	items  map[uint64]Canceler
	closed bool
}

// NewGroup creates an empty group.
func NewGroup() *Group {
	return &Group{items: make(map[uint64]Canceler)}
}

// Track adds r to g and removes it again when r completes.
func Track[T any](g *Group, r *Result[T]) *Result[T] {
	id, ok := g.add(r)
	if !ok {
		r.Cancel()
		return r
	}
	r.onComplete(func() { g.remove(id) })
	return r
}

// TrackGate adds gate to g. The gate is removed when it opens or closes.
func TrackGate[T any](g *Group, gate *Gate[T]) *Gate[T] {
	id, ok := g.add(gate)
	if !ok {
		gate.Close()
		return gate
	}
	go func() {
		<-gate.Opened()
		g.remove(id)
	}()
	return gate
}

func (g *Group) add(c Canceler) (uint64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return 0, false
	}
	g.next++
	g.items[g.next] = c
	return g.next, true
}

func (g *Group) remove(id uint64) {
	g.mu.Lock()
	delete(g.items, id)
	g.mu.Unlock()
}

// Len returns the number of pending items.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.items)
}

// Close cancels every pending item and refuses new ones.
func (g *Group) Close() {
	g.mu.Lock()
	g.closed = true
	items := make([]Canceler, 0, len(g.items))
	for _, c := range g.items {
		items = append(items, c)
	}
	g.items = make(map[uint64]Canceler)
	g.mu.Unlock()

	for _, c := range items {
		c.Cancel()
	}
}
