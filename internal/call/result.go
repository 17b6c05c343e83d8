package call

import (
	"context"
	"sync"
)

// Result is a single asynchronous result. The first of Resolve, Reject or
// Cancel wins; later completions are ignored and report false.
type Result[T any] struct {
	mu     sync.Mutex
	done   chan struct{}
	closed bool
	val    T
	err    error
	hooks  []func()
}

// NewResult creates a pending Result.
func NewResult[T any]() *Result[T] {
	return &Result[T]{done: make(chan struct{})}
}

// Resolve completes the result successfully.
func (r *Result[T]) Resolve(v T) bool {
	return r.Complete(v, nil)
}

// Reject completes the result with err.
func (r *Result[T]) Reject(err error) bool {
	var zero T
	return r.Complete(zero, err)
}

// Complete sets the value and error together. Vendor callbacks of the form
// func(T, error) can call it directly.
func (r *Result[T]) Complete(v T, err error) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	r.closed = true
	r.val, r.err = v, err
	hooks := r.hooks
	r.hooks = nil
	close(r.done)
	r.mu.Unlock()

	for _, h := range hooks {
		h()
	}
	return true
}

// Cancel drops the pending result. The vendor callback, if it arrives
// later, is ignored.
func (r *Result[T]) Cancel() bool {
	var zero T
	return r.Complete(zero, Canceled("", nil))
}

// Callback returns a completion function suitable for a vendor API.
func (r *Result[T]) Callback() func(T, error) {
	return func(v T, err error) { r.Complete(v, err) }
}

// Done is closed once the result completes.
func (r *Result[T]) Done() <-chan struct{} {
	return r.done
}

// Await blocks until the result completes or ctx ends. When ctx ends first
// the result is canceled so a late vendor callback has no effect.
func (r *Result[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-r.done:
	case <-ctx.Done():
		var zero T
		r.Complete(zero, Canceled("", ctx.Err()))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.val, r.err
}

// onComplete registers fn to run after completion. If the result is
// already complete fn runs immediately.
func (r *Result[T]) onComplete(fn func()) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		fn()
		return
	}
	r.hooks = append(r.hooks, fn)
	r.mu.Unlock()
}
