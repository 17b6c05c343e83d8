package call

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultResolve(t *testing.T) {
	r := NewResult[string]()
	go r.Resolve("ok")

	v, err := r.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestResultFirstCompletionWins(t *testing.T) {
	r := NewResult[int]()
	assert.True(t, r.Resolve(1))
	assert.False(t, r.Resolve(2))
	assert.False(t, r.Reject(errors.New("late")))

	v, err := r.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestResultCallbackFromManyGoroutines(t *testing.T) {
	r := NewResult[int]()
	cb := r.Callback()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			cb(n, nil)
		}(i)
	}
	wg.Wait()

	v, err := r.Await(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, v, 0)
	assert.Less(t, v, 16)
}

func TestResultAwaitContextCancel(t *testing.T) {
	r := NewResult[string]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := r.Await(ctx)
	require.Error(t, err)
	assert.True(t, IsCanceled(err))

	// Late vendor callback is dropped.
	assert.False(t, r.Resolve("late"))
}

func TestResultCancel(t *testing.T) {
	r := NewResult[string]()
	assert.True(t, r.Cancel())
	_, err := r.Await(context.Background())
	assert.True(t, IsCanceled(err))
}

func TestGroupCloseCancelsPending(t *testing.T) {
	g := NewGroup()
	pending := Track(g, NewResult[int]())
	done := Track(g, NewResult[int]())
	done.Resolve(7)

	assert.Equal(t, 1, g.Len(), "completed results leave the group")

	g.Close()
	_, err := pending.Await(context.Background())
	assert.True(t, IsCanceled(err))
	assert.Equal(t, 0, g.Len())

	late := Track(g, NewResult[int]())
	_, err = late.Await(context.Background())
	assert.True(t, IsCanceled(err), "closed group cancels new results")
}

func TestDo(t *testing.T) {
	g := NewGroup()
	v, err := Do(context.Background(), g, func(done func(string, error)) {
		go done("async", nil)
	})
	require.NoError(t, err)
	assert.Equal(t, "async", v)

	_, err = Do(context.Background(), g, func(done func(int, error)) {
		done(0, errors.New("vendor failed"))
	})
	require.EqualError(t, err, "vendor failed")
	assert.Equal(t, 0, g.Len())
}
