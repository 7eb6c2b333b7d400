package detection

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/ironsheep/region-tools-mcp/internal/pool"
)

// join turns every merge-tree root into a region, in the order the roots
// were allocated.
func (d *Detector[V]) join() error {
	n := d.parts.Len()
	for h := 0; h < n; h++ {
		if !d.parts.Get(pool.Handle(h)).isRoot() {
			continue
		}
		r, err := d.finalize(pool.Handle(h))
		if err != nil {
			return err
		}
		d.frame.regions = append(d.frame.regions, r)
	}
	return nil
}

// finalize flattens the tree below root into a new region record.
func (d *Detector[V]) finalize(root pool.Handle) (*Region[V], error) {
	rp := d.parts.Get(root)
	if rp.counted || rp.collected {
		return nil, fmt.Errorf("%w: root %d assembled twice", ErrInconsistentState, root)
	}

	n, err := d.count(root)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: root %d has no runs", ErrInconsistentState, root)
	}

	h, r, err := d.regions.Acquire()
	if err != nil {
		return nil, fmt.Errorf("assemble region: %w", err)
	}
	r.init(int(h), n, &d.frame)

	if err := d.collect(root, h, r); err != nil {
		return nil, err
	}
	slices.SortFunc(r.runs, func(a, b Run[V]) int {
		if c := cmp.Compare(a.Y, b.Y); c != 0 {
			return c
		}
		return cmp.Compare(a.X, b.X)
	})
	return r, nil
}

// count returns the number of runs reachable from root. Every node is
// marked on the way; meeting a marked node means two trees share it.
func (d *Detector[V]) count(root pool.Handle) (int, error) {
	n := 0
	stack := append(d.stack[:0], root)
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		p := d.parts.Get(h)
		if p.counted {
			d.stack = stack
			return 0, fmt.Errorf("%w: node %d counted twice", ErrInconsistentState, h)
		}
		p.counted = true
		if p.run != pool.NoHandle {
			n++
		}
		stack = append(stack, p.children...)
	}
	d.stack = stack
	return n, nil
}

// collect copies every leaf run below root into r and points the pooled
// run back at region h.
func (d *Detector[V]) collect(root, h pool.Handle, r *Region[V]) error {
	k := 0
	stack := append(d.stack[:0], root)
	defer func() { d.stack = stack[:0] }()

	for len(stack) > 0 {
		nh := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		p := d.parts.Get(nh)
		if p.collected {
			return fmt.Errorf("%w: node %d collected twice", ErrInconsistentState, nh)
		}
		p.collected = true
		if p.run != pool.NoHandle {
			s := d.runs.Get(p.run)
			if k == len(r.runs) {
				return fmt.Errorf("%w: region %d holds more runs than counted", ErrInconsistentState, h)
			}
			if k > 0 && s.Value != r.value {
				return fmt.Errorf("%w: region %d mixes values %v and %v", ErrInconsistentState, h, r.value, s.Value)
			}
			if k == 0 {
				r.value = s.Value
			}
			r.runs[k] = s.Run
			r.size += s.Len()
			s.region = h
			k++
		}
		stack = append(stack, p.children...)
	}
	if k != len(r.runs) {
		return fmt.Errorf("%w: region %d collected %d of %d runs", ErrInconsistentState, h, k, len(r.runs))
	}
	return nil
}
