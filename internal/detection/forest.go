package detection

import (
	"fmt"
	"slices"

	"github.com/ironsheep/region-tools-mcp/internal/pool"
)

// part is a merge-tree node. A leaf wraps one run; a union node (run ==
// NoHandle) joins several earlier roots with the leaf of the run that
// bridged them. Nodes only reference each other by handle.
type part struct {
	run      pool.Handle
	parent   pool.Handle
	children []pool.Handle

	// one-shot markers of the assembler traversals
	counted   bool
	collected bool
}

func (p *part) isRoot() bool { return p.parent == pool.NoHandle }

func (d *Detector[V]) newPart(run pool.Handle) (pool.Handle, *part, error) {
	h, p, err := d.parts.Acquire()
	if err != nil {
		return pool.NoHandle, nil, err
	}
	p.run = run
	p.parent = pool.NoHandle
	p.children = p.children[:0]
	p.counted = false
	p.collected = false
	return h, p, nil
}

// analyse links the runs of all rows into merge trees, top to bottom.
func (d *Detector[V]) analyse(height int) error {
	d.prevRoots = d.prevRoots[:0]
	for y := 0; y < height; y++ {
		if err := d.mergeRow(y); err != nil {
			return fmt.Errorf("analyse row %d: %w", y, err)
		}
	}
	return nil
}

// mergeRow gives every run of row y a merge-tree leaf and hangs it under
// the roots of the equal-valued, overlapping runs of row y-1. prevRoots holds
// the current root of each run of the previous row and is kept current when
// a union replaces roots.
func (d *Detector[V]) mergeRow(y int) error {
	lo, hi := d.rowRuns(y)
	plo, phi := 0, 0
	if y > 0 {
		plo, phi = d.rowRuns(y - 1)
	}

	d.curRoots = d.curRoots[:0]
	j := plo
	for c := lo; c < hi; c++ {
		cur := d.runs.Get(pool.Handle(c))

		// previous runs ending left of cur can not touch any later run either
		for j < phi && d.runs.Get(pool.Handle(j)).XEnd <= cur.X {
			j++
		}
		d.matched = d.matched[:0]
		for k := j; k < phi; k++ {
			prev := d.runs.Get(pool.Handle(k))
			if prev.X >= cur.XEnd {
				break
			}
			if prev.Value != cur.Value {
				continue
			}
			root := d.prevRoots[k-plo]
			if !slices.Contains(d.matched, root) {
				d.matched = append(d.matched, root)
			}
		}

		leaf, lp, err := d.newPart(pool.Handle(c))
		if err != nil {
			return err
		}

		root := leaf
		switch len(d.matched) {
		case 0:
		case 1:
			root = d.matched[0]
			rp := d.parts.Get(root)
			rp.children = append(rp.children, leaf)
			lp.parent = root
		default:
			root, err = d.union(leaf, lp, d.matched)
			if err != nil {
				return err
			}
		}
		d.curRoots = append(d.curRoots, root)
	}

	d.prevRoots, d.curRoots = d.curRoots, d.prevRoots
	return nil
}

// union creates one node above leaf and roots and re-points every cached
// root of the previous and current row that referred to one of roots.
func (d *Detector[V]) union(leaf pool.Handle, lp *part, roots []pool.Handle) (pool.Handle, error) {
	h, n, err := d.newPart(pool.NoHandle)
	if err != nil {
		return pool.NoHandle, err
	}
	n.children = append(n.children, leaf)
	lp.parent = h
	for _, r := range roots {
		n.children = append(n.children, r)
		d.parts.Get(r).parent = h
	}

	for i, r := range d.prevRoots {
		if slices.Contains(roots, r) {
			d.prevRoots[i] = h
		}
	}
	for i, r := range d.curRoots {
		if slices.Contains(roots, r) {
			d.curRoots[i] = h
		}
	}
	d.stats.unions++
	return h, nil
}
