package detection

import (
	"fmt"

	"github.com/ironsheep/region-tools-mcp/internal/pool"
)

// Run is a maximal horizontal sequence of equal classification values in
// one row. Pixels X through XEnd-1 of row Y belong to the run.
type Run[V Value] struct {
	Y     int `json:"y"`
	X     int `json:"x"`
	XEnd  int `json:"x_end"`
	Value V   `json:"value"`
}

// Len returns the number of pixels covered by the run.
func (r Run[V]) Len() int { return r.XEnd - r.X }

// runSlot is the pooled record behind a Run. It carries the merge-tree leaf
// during analysis and the owning region once the region is assembled.
type runSlot[V Value] struct {
	Run[V]
	region pool.Handle
}

// scanRuns calls emit once per maximal run of row, left to right. Runs whose
// value is the background are skipped.
func scanRuns[V Value](row []V, skip func(V) bool, emit func(x, xEnd int, v V) error) error {
	w := len(row)
	for x := 0; x < w; {
		v := row[x]
		end := x + 1
		for end < w && row[end] == v {
			end++
		}
		if !skip(v) {
			if err := emit(x, end, v); err != nil {
				return err
			}
		}
		x = end
	}
	return nil
}

// ExtractRuns returns the runs of one row without using a pool. It is the
// standalone form of the run extractor, handy for inspecting a single row.
func ExtractRuns[V Value](row []V, y int, background *V) ([]Run[V], error) {
	if len(row) == 0 {
		return nil, fmt.Errorf("%w: row %d is empty", ErrInvalidInput, y)
	}
	skip := func(V) bool { return false }
	if background != nil {
		bg := *background
		skip = func(v V) bool { return v == bg }
	}
	var runs []Run[V]
	err := scanRuns(row, skip, func(x, xEnd int, v V) error {
		runs = append(runs, Run[V]{Y: y, X: x, XEnd: xEnd, Value: v})
		return nil
	})
	return runs, err
}

// encodeRow appends the runs of row y to the run pool and records where the
// next row starts.
func (d *Detector[V]) encodeRow(row []V, y int) error {
	err := scanRuns(row, d.isBackground, func(x, xEnd int, v V) error {
		_, s, err := d.runs.Acquire()
		if err != nil {
			return err
		}
		s.Run = Run[V]{Y: y, X: x, XEnd: xEnd, Value: v}
		s.region = pool.NoHandle
		return nil
	})
	if err != nil {
		return fmt.Errorf("encode row %d: %w", y, err)
	}
	d.rowStart = append(d.rowStart, d.runs.Len())
	return nil
}

func (d *Detector[V]) isBackground(v V) bool {
	return d.cfg.UseBackground && int64(v) == d.cfg.Background
}

// rowRuns returns the run handle range [lo, hi) of row y.
func (d *Detector[V]) rowRuns(y int) (lo, hi int) {
	return d.rowStart[y], d.rowStart[y+1]
}

// overlaps reports whether [a0,a1) and [b0,b1) share a column, or with
// diagonal set, whether they share a column or touch at a corner.
func overlaps(a0, a1, b0, b1 int, diagonal bool) bool {
	lo, hi := a0, a1
	if b0 > lo {
		lo = b0
	}
	if b1 < hi {
		hi = b1
	}
	if diagonal {
		return lo <= hi
	}
	return lo < hi
}
