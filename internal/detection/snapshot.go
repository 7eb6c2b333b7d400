package detection

import (
	"sort"

	"github.com/google/uuid"
)

// Span is a run without its value, as stored in a snapshot.
type Span struct {
	Y    int `json:"y"`
	X    int `json:"x"`
	XEnd int `json:"x_end"`
}

// Descriptors holds the shape measurements of a region under the names of
// the Region methods that compute them.
type Descriptors struct {
	COG            Point2D `json:"cog"`
	BoundaryLength float64 `json:"boundary_length"`
	FormFactor     float64 `json:"form_factor"`
	PCA            PCAInfo `json:"pca"`
}

// Descriptors computes all shape measurements of r.
func (r *Region[V]) Descriptors() Descriptors {
	return Descriptors{
		COG:            r.COG(),
		BoundaryLength: r.BoundaryLength(),
		FormFactor:     r.FormFactor(),
		PCA:            r.PCA(),
	}
}

// RegionSnapshot is a detached copy of a region and its descriptors. It
// does not reference detector memory and survives later passes.
//
// The BoundaryLength, FormFactor and PCA methods shadow the embedded fields
// of the same name; both return the stored values.
type RegionSnapshot struct {
	ID         int    `json:"id"`
	Value      int64  `json:"value"`
	PixelCount int    `json:"pixel_count"`
	Runs       []Span `json:"runs"`
	Bounds     Bounds `json:"bounds"`
	Descriptors
	TouchesBorder bool  `json:"border"`
	HasGraph      bool  `json:"has_graph"`
	NeighbourIDs  []int `json:"neighbours,omitempty"`
	ParentID      *int  `json:"parent,omitempty"`
	ChildIDs      []int `json:"children,omitempty"`
}

// FilterValue implements Measured.
func (s RegionSnapshot) FilterValue() float64 { return float64(s.Value) }

// Size implements Measured.
func (s RegionSnapshot) Size() int { return s.PixelCount }

// BoundaryLength implements Measured.
func (s RegionSnapshot) BoundaryLength() float64 { return s.Descriptors.BoundaryLength }

// FormFactor implements Measured.
func (s RegionSnapshot) FormFactor() float64 { return s.Descriptors.FormFactor }

// PCA implements Measured.
func (s RegionSnapshot) PCA() PCAInfo { return s.Descriptors.PCA }

// Contains reports whether pixel (x, y) belongs to the region.
func (s RegionSnapshot) Contains(x, y int) bool {
	i := sort.Search(len(s.Runs), func(i int) bool {
		r := s.Runs[i]
		return r.Y > y || (r.Y == y && r.XEnd > x)
	})
	return i < len(s.Runs) && s.Runs[i].Y == y && s.Runs[i].X <= x
}

// Snapshot is a detached copy of a Result.
type Snapshot struct {
	FrameID uuid.UUID        `json:"frame_id"`
	Width   int              `json:"width"`
	Height  int              `json:"height"`
	Regions []RegionSnapshot `json:"regions"`
}

// Snapshot deep-copies the result, computing every descriptor once. With a
// region graph it also records neighbours and containment.
func (r *Result[V]) Snapshot() *Snapshot {
	s := &Snapshot{
		FrameID: r.FrameID,
		Width:   r.Width,
		Height:  r.Height,
		Regions: make([]RegionSnapshot, len(r.Regions)),
	}
	for i, reg := range r.Regions {
		s.Regions[i] = snapshotRegion(reg)
	}
	return s
}

func snapshotRegion[V Value](r *Region[V]) RegionSnapshot {
	rs := RegionSnapshot{
		ID:            r.id,
		Value:         int64(r.value),
		PixelCount:    r.size,
		Runs:          make([]Span, len(r.runs)),
		Bounds:        r.Bounds(),
		Descriptors:   r.Descriptors(),
		TouchesBorder: r.TouchesBorder(),
		HasGraph:      r.frame.graph,
	}
	for i, run := range r.runs {
		rs.Runs[i] = Span{Y: run.Y, X: run.X, XEnd: run.XEnd}
	}
	if !r.frame.graph {
		return rs
	}

	r.frame.ensureContainment()
	rs.NeighbourIDs = make([]int, len(r.neighbours))
	for i, n := range r.neighbours {
		rs.NeighbourIDs[i] = n.id
	}
	if r.parent != nil {
		id := r.parent.id
		rs.ParentID = &id
	}
	for _, c := range r.children {
		rs.ChildIDs = append(rs.ChildIDs, c.id)
	}
	return rs
}

// Region returns the region with the given id.
func (s *Snapshot) Region(id int) (*RegionSnapshot, bool) {
	if id < 0 || id >= len(s.Regions) {
		return nil, false
	}
	return &s.Regions[id], true
}

// RegionAt returns the region containing pixel (x, y), or nil.
func (s *Snapshot) RegionAt(x, y int) *RegionSnapshot {
	if x < 0 || y < 0 || x >= s.Width || y >= s.Height {
		return nil
	}
	for i := range s.Regions {
		rs := &s.Regions[i]
		b := rs.Bounds
		if x < b.X1 || x >= b.X2 || y < b.Y1 || y >= b.Y2 {
			continue
		}
		if rs.Contains(x, y) {
			return rs
		}
	}
	return nil
}

// Filter returns copies of the regions accepted by spec in id order.
func (s *Snapshot) Filter(spec FilterSpec) ([]RegionSnapshot, error) {
	return Filter(s.Regions, spec)
}
