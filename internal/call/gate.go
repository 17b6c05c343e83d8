package call

import "sync"

// Gate is a one-shot rendezvous. A vendor goroutine calls Wait and parks
// until another goroutine calls Open with the answer. Only the first Open or
// Close has an effect.
//
// There is no timeout. If nobody ever answers, the waiter stays parked until
// Close is called during teardown. Open must not be called from the waiting
// goroutine.
type Gate[T any] struct {
	once sync.Once
	ch   chan struct{}
	val  T
	ok   bool
}

// NewGate creates a closed-for-passage gate.
func NewGate[T any]() *Gate[T] {
	return &Gate[T]{ch: make(chan struct{})}
}

// Open releases the waiter with v. Returns false if the gate was already
// opened or closed.
func (g *Gate[T]) Open(v T) bool {
	opened := false
	g.once.Do(func() {
		g.val, g.ok = v, true
		close(g.ch)
		opened = true
	})
	return opened
}

// Close releases the waiter without an answer. Wait then reports ok=false
// and the zero value.
func (g *Gate[T]) Close() bool {
	closed := false
	g.once.Do(func() {
		close(g.ch)
		closed = true
	})
	return closed
}

// Cancel implements Canceler.
func (g *Gate[T]) Cancel() bool {
	return g.Close()
}

// Wait blocks until the gate is opened or closed.
func (g *Gate[T]) Wait() (T, bool) {
	<-g.ch
	return g.val, g.ok
}

// Opened is closed once the gate is opened or closed.
func (g *Gate[T]) Opened() <-chan struct{} {
	return g.ch
}
