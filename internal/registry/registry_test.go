package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handle struct{ name string }

func TestRegistryLastWriteWins(t *testing.T) {
	r := New[*handle]()
	first := &handle{"first"}
	second := &handle{"second"}

	r.Put("m1", first)
	r.Put("m1", second)

	got, ok := r.Get("m1")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryRemove(t *testing.T) {
	r := New[*handle]()
	r.Put("m1", &handle{"x"})
	r.Remove("m1")
	r.Remove("never-registered")

	_, ok := r.Get("m1")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryTake(t *testing.T) {
	r := New[int]()
	r.Put("a", 1)
	v, ok := r.Take("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	_, ok = r.Take("a")
	assert.False(t, ok)
}

func TestRegistryClearAndOrdering(t *testing.T) {
	r := New[int]()
	r.Put("b", 2)
	r.Put("a", 1)
	r.Put("c", 3)

	assert.Equal(t, []string{"a", "b", "c"}, r.IDs())
	assert.Equal(t, []int{1, 2, 3}, r.Values())

	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Values())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := New[int]()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := fmt.Sprintf("id-%d", i%50)
				r.Put(id, w)
				if v, ok := r.Get(id); ok {
					assert.GreaterOrEqual(t, v, 0)
				}
				if i%7 == 0 {
					r.Remove(id)
				}
			}
		}(w)
	}
	wg.Wait()
	assert.LessOrEqual(t, r.Len(), 50)
}
