package detection

import (
	"cmp"
	"fmt"
	"slices"
	"sort"

	"github.com/ironsheep/region-tools-mcp/internal/pool"
)

// Neighbor is one entry of a region's neighbourhood: either another region
// of the same pass or the frame border.
type Neighbor[V Value] struct {
	region *Region[V]
}

// FrameBorder returns the border sentinel.
func FrameBorder[V Value]() Neighbor[V] { return Neighbor[V]{} }

// IsFrameBorder reports whether n stands for the outside of the image.
func (n Neighbor[V]) IsFrameBorder() bool { return n.region == nil }

// Region returns the neighbouring region, or nil for the frame border.
func (n Neighbor[V]) Region() *Region[V] { return n.region }

// buildGraph links all regions whose runs touch. Two runs of one row touch
// when one ends where the other starts. Runs of consecutive rows touch when
// they share a column, or in 8-neighbourhood mode also when they meet at a
// corner. Runs on the image edge mark their region as bordering the frame.
func (d *Detector[V]) buildGraph() error {
	w, h := d.frame.width, d.frame.height
	diagonal := d.cfg.Neighborhood == Neighborhood8

	for y := 0; y < h; y++ {
		lo, hi := d.rowRuns(y)
		for c := lo; c < hi; c++ {
			s := d.runs.Get(pool.Handle(c))
			r, err := d.regionOf(s)
			if err != nil {
				return err
			}
			if y == 0 || y == h-1 || s.X == 0 || s.XEnd == w {
				r.border = true
			}
			if d.cfg.UseBackground && !r.open && d.touchesBackground(y, c, lo, hi, diagonal) {
				r.open = true
			}
			if c > lo {
				left := d.runs.Get(pool.Handle(c - 1))
				if left.XEnd == s.X {
					l, err := d.regionOf(left)
					if err != nil {
						return err
					}
					link(l, r)
				}
			}
		}
		if y == 0 {
			continue
		}

		plo, phi := d.rowRuns(y - 1)
		j := plo
		for c := lo; c < hi; c++ {
			cur := d.runs.Get(pool.Handle(c))
			for j < phi && !reaches(d.runs.Get(pool.Handle(j)).XEnd, cur.X, diagonal) {
				j++
			}
			for k := j; k < phi; k++ {
				prev := d.runs.Get(pool.Handle(k))
				if !reaches(cur.XEnd, prev.X, diagonal) {
					break
				}
				if !overlaps(prev.X, prev.XEnd, cur.X, cur.XEnd, diagonal) {
					continue
				}
				a, err := d.regionOf(prev)
				if err != nil {
					return err
				}
				b, err := d.regionOf(cur)
				if err != nil {
					return err
				}
				link(a, b)
			}
		}
	}

	for _, r := range d.frame.regions {
		slices.SortFunc(r.neighbours, byID[V])
	}
	if d.frame.hierarchy != nil {
		d.frame.linkHierarchy()
	}
	return nil
}

// touchesBackground reports whether run c of row y, whose row holds runs
// [lo, hi), has a background pixel among its neighbours inside the image.
func (d *Detector[V]) touchesBackground(y, c, lo, hi int, diagonal bool) bool {
	w, h := d.frame.width, d.frame.height
	s := d.runs.Get(pool.Handle(c))
	if s.X > 0 && (c == lo || d.runs.Get(pool.Handle(c-1)).XEnd != s.X) {
		return true
	}
	if s.XEnd < w && (c == hi-1 || d.runs.Get(pool.Handle(c+1)).X != s.XEnd) {
		return true
	}

	x0, x1 := s.X, s.XEnd
	if diagonal {
		x0, x1 = max(x0-1, 0), min(x1+1, w)
	}
	for _, ny := range [2]int{y - 1, y + 1} {
		if ny < 0 || ny >= h {
			continue
		}
		if d.covered(ny, x0, x1) < x1-x0 {
			return true
		}
	}
	return false
}

// covered returns how many pixels of columns [x0, x1) in row y belong to
// runs.
func (d *Detector[V]) covered(y, x0, x1 int) int {
	lo, hi := d.rowRuns(y)
	i := lo + sort.Search(hi-lo, func(i int) bool {
		return d.runs.Get(pool.Handle(lo+i)).XEnd > x0
	})
	n := 0
	for ; i < hi; i++ {
		s := d.runs.Get(pool.Handle(i))
		if s.X >= x1 {
			break
		}
		n += min(s.XEnd, x1) - max(s.X, x0)
	}
	return n
}

// reaches reports whether an interval ending at end can touch one starting
// at start.
func reaches(end, start int, diagonal bool) bool {
	if diagonal {
		return end >= start
	}
	return end > start
}

func (d *Detector[V]) regionOf(s *runSlot[V]) (*Region[V], error) {
	if s.region == pool.NoHandle {
		return nil, fmt.Errorf("%w: run at row %d x %d has no region", ErrInconsistentState, s.Y, s.X)
	}
	return d.regions.Get(s.region), nil
}

// link records a symmetric edge between a and b unless they are the same
// region or the edge exists.
func link[V Value](a, b *Region[V]) {
	if a == b {
		return
	}
	if a.nbSet == nil {
		a.nbSet = make(map[int]struct{})
	}
	if _, ok := a.nbSet[b.id]; ok {
		return
	}
	if b.nbSet == nil {
		b.nbSet = make(map[int]struct{})
	}
	a.nbSet[b.id] = struct{}{}
	b.nbSet[a.id] = struct{}{}
	a.neighbours = append(a.neighbours, b)
	b.neighbours = append(b.neighbours, a)
}

func byID[V Value](a, b *Region[V]) int { return cmp.Compare(a.id, b.id) }

// linkHierarchy sets each region's parent to its lowest-id neighbour whose
// value is the parent level of the region's own value.
func (f *frame[V]) linkHierarchy() {
	for _, r := range f.regions {
		for _, n := range r.neighbours {
			if f.hierarchy(int64(r.value), int64(n.value)) {
				r.parent = n
				n.children = append(n.children, r)
				break
			}
		}
	}
	f.containmentDone = true
}

// ensureContainment derives parent and children from the graph topology when
// no hierarchy was configured. A neighbour n of r is a child of r if it
// does not touch the frame and, without crossing r, no region reachable from
// n touches the frame, touches the background or extends beyond r's bounding
// box. Background pixels count as outside, so a region is never nested in a
// parent across a background hole, even one the parent surrounds.
func (f *frame[V]) ensureContainment() {
	if f.containmentDone {
		return
	}
	f.containmentDone = true

	seen := make([]int, len(f.regions))
	stamp := 0
	var stack []*Region[V]
	for _, r := range f.regions {
		outer := r.Bounds()
		for _, n := range r.neighbours {
			if n.parent != nil || n.border {
				continue
			}
			stamp++
			seen[r.id] = stamp
			if escapes(n, outer, seen, stamp, stack[:0]) {
				continue
			}
			n.parent = r
			r.children = append(r.children, n)
		}
	}
}

// escapes searches depth first from start for a region on the frame border,
// one open to the background or one whose bounding box is not inside outer. Regions marked with stamp
// are not entered.
func escapes[V Value](start *Region[V], outer Bounds, seen []int, stamp int, stack []*Region[V]) bool {
	seen[start.id] = stamp
	stack = append(stack, start)
	for len(stack) > 0 {
		r := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if r.border || r.open || exceeds(r.Bounds(), outer) {
			return true
		}
		for _, n := range r.neighbours {
			if seen[n.id] != stamp {
				seen[n.id] = stamp
				stack = append(stack, n)
			}
		}
	}
	return false
}

func exceeds(a, b Bounds) bool {
	return a.X1 < b.X1 || a.Y1 < b.Y1 || a.X2 > b.X2 || a.Y2 > b.Y2
}

func (r *Region[V]) requireGraph(op string) error {
	if !r.frame.graph {
		return fmt.Errorf("%w: %s of region %d", ErrNoGraph, op, r.id)
	}
	return nil
}

// Neighbours returns the regions adjacent to r ordered by id, followed by
// the frame border sentinel if r touches the image edge.
func (r *Region[V]) Neighbours() ([]Neighbor[V], error) {
	if err := r.requireGraph("neighbours"); err != nil {
		return nil, err
	}
	out := make([]Neighbor[V], 0, len(r.neighbours)+1)
	for _, n := range r.neighbours {
		out = append(out, Neighbor[V]{region: n})
	}
	if r.border {
		out = append(out, FrameBorder[V]())
	}
	return out, nil
}

// NeighbourRegions returns the adjacent regions ordered by id. The slice is
// owned by the region.
func (r *Region[V]) NeighbourRegions() ([]*Region[V], error) {
	if err := r.requireGraph("neighbours"); err != nil {
		return nil, err
	}
	return r.neighbours, nil
}

// IsBorderRegion reports whether the region touches the image edge. It does
// not need the graph.
func (r *Region[V]) IsBorderRegion() bool { return r.TouchesBorder() }

// Parent returns the region directly containing r, or nil.
func (r *Region[V]) Parent() (*Region[V], error) {
	if err := r.requireGraph("parent"); err != nil {
		return nil, err
	}
	r.frame.ensureContainment()
	return r.parent, nil
}

// ParentTree returns the chain of enclosing regions, innermost first.
func (r *Region[V]) ParentTree() ([]*Region[V], error) {
	if err := r.requireGraph("parent tree"); err != nil {
		return nil, err
	}
	r.frame.ensureContainment()
	var tree []*Region[V]
	for p := r.parent; p != nil; p = p.parent {
		tree = append(tree, p)
	}
	return tree, nil
}

// Children returns the regions directly contained in r, ordered by id.
func (r *Region[V]) Children() ([]*Region[V], error) {
	if err := r.requireGraph("children"); err != nil {
		return nil, err
	}
	r.frame.ensureContainment()
	return r.children, nil
}

// AllSubRegions returns every region nested in r at any depth, ordered by id.
func (r *Region[V]) AllSubRegions() ([]*Region[V], error) {
	if err := r.requireGraph("sub regions"); err != nil {
		return nil, err
	}
	r.frame.ensureContainment()
	var all []*Region[V]
	stack := slices.Clone(r.children)
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		all = append(all, c)
		stack = append(stack, c.children...)
	}
	slices.SortFunc(all, byID[V])
	return all, nil
}
