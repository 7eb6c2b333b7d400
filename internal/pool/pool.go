// Package pool provides an arena allocator for fixed-size records that are
// reused from one detection pass to the next.
//
// A Pool hands out records in allocation order. Records live in chunks that
// are never moved or copied once allocated; a handle table maps each Handle to
// its record. Growing the pool appends a new trailing chunk, so every Handle
// and every *T returned earlier stays valid until Reset.
//
// # Lifecycle
//
//	p, _ := pool.New[myRecord](pool.DefaultOptions())
//	for frame := range frames {
//	    p.Reset()
//	    h, rec, err := p.Acquire()
//	    ...
//	}
//
// Reset is O(1): it only moves the cursor back to zero. Slot contents are not
// cleared, which lets record types keep the capacity of their inner slices
// between passes. Callers must fully re-initialise a record after Acquire.
//
// # Thread Safety
//
// A Pool is not safe for concurrent use and is not reentrant. Exactly one
// pass may use a Pool at a time; concurrent passes need one Pool each.
package pool

import (
	"errors"
	"fmt"
	"math"
)

// Handle identifies a record inside a Pool. Handles are dense indices in
// allocation order, starting at zero after every Reset.
type Handle int32

// NoHandle is the zero-value replacement for "no record".
const NoHandle Handle = -1

// ErrResourceExhausted is returned when the pool cannot grow any further,
// either because MaxCapacity is reached or the handle space is used up.
var ErrResourceExhausted = errors.New("pool: resource exhausted")

// maxHandles bounds the capacity so every slot is addressable by a Handle.
const maxHandles = math.MaxInt32

// Options configures the sizing behaviour of a Pool.
type Options struct {
	// InitialCapacity is the number of slots allocated up front.
	InitialCapacity int

	// GrowthFactor multiplies the capacity whenever the pool runs full.
	// Must be greater than 1.
	GrowthFactor float64

	// MinCapacity is the floor below which Shrink never releases slots.
	MinCapacity int

	// MaxCapacity caps growth. Zero means limited only by the handle space.
	MaxCapacity int
}

// DefaultOptions returns the sizing used when nothing else is configured:
// 4096 initial slots, doubling on exhaustion, never shrinking below 1024.
func DefaultOptions() Options {
	return Options{
		InitialCapacity: 4096,
		GrowthFactor:    2,
		MinCapacity:     1024,
	}
}

// Validate reports whether the options describe a usable pool.
func (o Options) Validate() error {
	if o.InitialCapacity < 1 {
		return fmt.Errorf("pool: initial capacity must be positive, got %d", o.InitialCapacity)
	}
	if !(o.GrowthFactor > 1) || math.IsInf(o.GrowthFactor, 0) {
		return fmt.Errorf("pool: growth factor must be a finite value > 1, got %v", o.GrowthFactor)
	}
	if o.MinCapacity < 0 {
		return fmt.Errorf("pool: min capacity must not be negative, got %d", o.MinCapacity)
	}
	if o.MaxCapacity < 0 {
		return fmt.Errorf("pool: max capacity must not be negative, got %d", o.MaxCapacity)
	}
	if o.MaxCapacity > 0 && o.MaxCapacity < o.InitialCapacity {
		return fmt.Errorf("pool: max capacity %d below initial capacity %d", o.MaxCapacity, o.InitialCapacity)
	}
	return nil
}

// Pool is a growable arena of T records addressed by Handle.
type Pool[T any] struct {
	opts   Options
	chunks [][]T
	slots  []*T
	next   int
	peak   int
}

// New creates a pool with InitialCapacity slots already allocated.
func New[T any](opts Options) (*Pool[T], error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	p := &Pool[T]{opts: opts}
	p.addChunk(opts.InitialCapacity)
	return p, nil
}

// Acquire returns the next free slot and its handle, growing the pool when
// all slots are in use. The record holds whatever the previous user left in
// it; callers re-initialise it.
func (p *Pool[T]) Acquire() (Handle, *T, error) {
	if p.next == len(p.slots) {
		if err := p.grow(); err != nil {
			return NoHandle, nil, err
		}
	}
	h := Handle(p.next)
	p.next++
	return h, p.slots[h], nil
}

// Get returns the record for a handle issued since the last Reset.
// It panics on handles that were never issued.
func (p *Pool[T]) Get(h Handle) *T {
	if h < 0 || int(h) >= p.next {
		panic(fmt.Sprintf("pool: handle %d out of range [0,%d)", h, p.next))
	}
	return p.slots[h]
}

// Len is the number of slots handed out since the last Reset.
func (p *Pool[T]) Len() int { return p.next }

// Cap is the number of allocated slots.
func (p *Pool[T]) Cap() int { return len(p.slots) }

// Reset makes every slot available again without releasing memory.
func (p *Pool[T]) Reset() {
	if p.next > p.peak {
		p.peak = p.next
	}
	p.next = 0
}

// Shrink releases trailing chunks when the peak utilisation since the last
// Shrink stayed below Cap()/GrowthFactor. Capacity never drops below the
// slots currently in use, the observed peak or MinCapacity. It returns the
// number of released slots.
func (p *Pool[T]) Shrink() int {
	peak := p.peak
	if p.next > peak {
		peak = p.next
	}
	p.peak = p.next

	if float64(peak) >= float64(len(p.slots))/p.opts.GrowthFactor {
		return 0
	}
	floor := peak
	if p.opts.MinCapacity > floor {
		floor = p.opts.MinCapacity
	}

	released := 0
	for len(p.chunks) > 1 {
		last := len(p.chunks[len(p.chunks)-1])
		if len(p.slots)-last < floor {
			break
		}
		keep := len(p.slots) - last
		clear(p.slots[keep:])
		p.slots = p.slots[:keep]
		p.chunks[len(p.chunks)-1] = nil
		p.chunks = p.chunks[:len(p.chunks)-1]
		released += last
	}
	return released
}

func (p *Pool[T]) grow() error {
	cur := len(p.slots)
	target := int(math.Ceil(float64(cur) * p.opts.GrowthFactor))
	if target <= cur {
		target = cur + 1
	}
	limit := maxHandles
	if p.opts.MaxCapacity > 0 && p.opts.MaxCapacity < limit {
		limit = p.opts.MaxCapacity
	}
	if target > limit {
		target = limit
	}
	if target <= cur {
		return fmt.Errorf("%w: capacity %d reached", ErrResourceExhausted, cur)
	}
	p.addChunk(target - cur)
	return nil
}

func (p *Pool[T]) addChunk(n int) {
	chunk := make([]T, n)
	p.chunks = append(p.chunks, chunk)
	for i := range chunk {
		p.slots = append(p.slots, &chunk[i])
	}
}
