package pool

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	id    int
	items []int
}

func newTestPool(t *testing.T, opts Options) *Pool[record] {
	t.Helper()
	p, err := New[record](opts)
	require.NoError(t, err)
	return p
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"zero initial", Options{InitialCapacity: 0, GrowthFactor: 2}},
		{"growth of one", Options{InitialCapacity: 4, GrowthFactor: 1}},
		{"negative min", Options{InitialCapacity: 4, GrowthFactor: 2, MinCapacity: -1}},
		{"max below initial", Options{InitialCapacity: 8, GrowthFactor: 2, MaxCapacity: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New[record](tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestAcquire_SequentialHandles(t *testing.T) {
	p := newTestPool(t, Options{InitialCapacity: 4, GrowthFactor: 2})
	for i := 0; i < 4; i++ {
		h, rec, err := p.Acquire()
		require.NoError(t, err)
		assert.Equal(t, Handle(i), h)
		rec.id = i
	}
	assert.Equal(t, 4, p.Len())
	assert.Equal(t, 4, p.Cap())
}

func TestAcquire_GrowthKeepsPointersStable(t *testing.T) {
	p := newTestPool(t, Options{InitialCapacity: 2, GrowthFactor: 2})

	ptrs := make([]*record, 0, 20)
	for i := 0; i < 20; i++ {
		h, rec, err := p.Acquire()
		require.NoError(t, err)
		rec.id = i
		ptrs = append(ptrs, rec)
		require.Same(t, rec, p.Get(h))
	}

	// 2 -> 4 -> 8 -> 16 -> 32
	assert.Equal(t, 32, p.Cap())
	for i, rec := range ptrs {
		assert.Same(t, rec, p.Get(Handle(i)))
		assert.Equal(t, i, rec.id)
	}
}

func TestAcquire_CustomGrowthFactor(t *testing.T) {
	p := newTestPool(t, Options{InitialCapacity: 10, GrowthFactor: 1.5})
	for i := 0; i < 11; i++ {
		_, _, err := p.Acquire()
		require.NoError(t, err)
	}
	assert.Equal(t, 15, p.Cap())
}

func TestAcquire_MaxCapacity(t *testing.T) {
	p := newTestPool(t, Options{InitialCapacity: 2, GrowthFactor: 2, MaxCapacity: 3})
	for i := 0; i < 3; i++ {
		_, _, err := p.Acquire()
		require.NoError(t, err)
	}
	_, rec, err := p.Acquire()
	assert.Nil(t, rec)
	assert.True(t, errors.Is(err, ErrResourceExhausted))
}

func TestReset_ReusesSlots(t *testing.T) {
	p := newTestPool(t, Options{InitialCapacity: 2, GrowthFactor: 2})

	_, first, err := p.Acquire()
	require.NoError(t, err)
	first.items = append(first.items[:0], 1, 2, 3)
	for i := 0; i < 5; i++ {
		_, _, err := p.Acquire()
		require.NoError(t, err)
	}
	capBefore := p.Cap()

	p.Reset()
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, capBefore, p.Cap())

	h, again, err := p.Acquire()
	require.NoError(t, err)
	assert.Equal(t, Handle(0), h)
	assert.Same(t, first, again)
	// contents survive so inner slices can be reused
	assert.Equal(t, []int{1, 2, 3}, again.items)
}

func TestGet_OutOfRangePanics(t *testing.T) {
	p := newTestPool(t, Options{InitialCapacity: 2, GrowthFactor: 2})
	_, _, err := p.Acquire()
	require.NoError(t, err)

	assert.Panics(t, func() { p.Get(1) })
	assert.Panics(t, func() { p.Get(NoHandle) })

	p.Reset()
	assert.Panics(t, func() { p.Get(0) })
}

func TestShrink(t *testing.T) {
	p := newTestPool(t, Options{InitialCapacity: 4, GrowthFactor: 2, MinCapacity: 4})

	for i := 0; i < 30; i++ {
		_, _, err := p.Acquire()
		require.NoError(t, err)
	}
	require.Equal(t, 32, p.Cap())

	// the peak of the busy frame still holds the capacity
	p.Reset()
	assert.Equal(t, 0, p.Shrink())
	assert.Equal(t, 32, p.Cap())

	// a quiet frame lets trailing chunks go
	for i := 0; i < 3; i++ {
		_, _, err := p.Acquire()
		require.NoError(t, err)
	}
	p.Reset()
	released := p.Shrink()
	assert.Equal(t, 28, released)
	assert.Equal(t, 4, p.Cap())

	// growth still works after shrinking
	for i := 0; i < 9; i++ {
		_, _, err := p.Acquire()
		require.NoError(t, err)
	}
	assert.Equal(t, 16, p.Cap())
}

func TestShrink_RespectsFloor(t *testing.T) {
	p := newTestPool(t, Options{InitialCapacity: 2, GrowthFactor: 2, MinCapacity: 8})
	for i := 0; i < 16; i++ {
		_, _, err := p.Acquire()
		require.NoError(t, err)
	}
	p.Reset()
	p.Shrink() // consumes the busy peak

	p.Reset()
	p.Shrink()
	assert.Equal(t, 8, p.Cap())
}
