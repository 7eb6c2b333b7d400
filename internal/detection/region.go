package detection

import (
	"image"
	"math"
	"sort"

	"github.com/google/uuid"
)

// Bounds represents a rectangular bounding box in pixel coordinates.
//
// The coordinate convention follows standard image bounds:
//   - (X1, Y1) is the top-left corner (inclusive)
//   - (X2, Y2) is the bottom-right corner (exclusive)
type Bounds struct {
	X1 int `json:"x1"` // Left edge (inclusive)
	Y1 int `json:"y1"` // Top edge (inclusive)
	X2 int `json:"x2"` // Right edge (exclusive)
	Y2 int `json:"y2"` // Bottom edge (exclusive)
}

// Width is X2 - X1.
func (b Bounds) Width() int { return b.X2 - b.X1 }

// Height is Y2 - Y1.
func (b Bounds) Height() int { return b.Y2 - b.Y1 }

// Rect converts the bounds to an image.Rectangle.
func (b Bounds) Rect() image.Rectangle { return image.Rect(b.X1, b.Y1, b.X2, b.Y2) }

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

// Point2D is a sub-pixel position such as a center of gravity.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// frame holds what all regions of one pass share.
type frame[V Value] struct {
	id        uuid.UUID
	width     int
	height    int
	graph     bool
	hierarchy HierarchyFunc
	regions   []*Region[V]

	containmentDone bool
}

const (
	haveBounds uint8 = 1 << iota
	haveCOG
	havePCA
	havePerimeter
	haveBoundary
	havePixels
)

// Region is a connected component of equal classification values.
//
// A Region is produced by Detector.Detect and is immutable for callers. Its
// record lives in the detector's pool: it stays valid until the next Detect
// call, after which it is reused. Use Snapshot to keep a copy.
//
// Descriptors are computed on first use and cached.
type Region[V Value] struct {
	id    int
	value V
	runs  []Run[V]
	size  int
	frame *frame[V]

	have      uint8
	bounds    Bounds
	cog       Point2D
	pca       PCAInfo
	perimeter int
	boundary  []image.Point
	pixels    []image.Point

	// graph data, see graph.go
	nbSet      map[int]struct{}
	neighbours []*Region[V]
	border     bool
	open       bool // touches a background pixel
	parent     *Region[V]
	children   []*Region[V]
}

// init prepares a pooled record for a region of nRuns runs. The run block is
// reused when it is large enough.
func (r *Region[V]) init(id, nRuns int, f *frame[V]) {
	var zero V
	r.id = id
	r.value = zero
	r.size = 0
	r.frame = f
	if cap(r.runs) < nRuns {
		r.runs = make([]Run[V], nRuns)
	} else {
		r.runs = r.runs[:nRuns]
	}

	r.have = 0
	r.boundary = r.boundary[:0]
	r.pixels = r.pixels[:0]

	clear(r.nbSet)
	r.neighbours = r.neighbours[:0]
	r.border = false
	r.open = false
	r.parent = nil
	r.children = r.children[:0]
}

// ID returns the region's id, unique within its pass and assigned in
// discovery order starting at 0.
func (r *Region[V]) ID() int { return r.id }

// Value returns the classification value shared by all pixels.
func (r *Region[V]) Value() V { return r.value }

// FilterValue returns the value as float64 for range filtering.
func (r *Region[V]) FilterValue() float64 { return float64(r.value) }

// Size returns the pixel count.
func (r *Region[V]) Size() int { return r.size }

// RunCount returns the number of runs.
func (r *Region[V]) RunCount() int { return len(r.runs) }

// Runs returns the region's runs ordered by row, then column. The slice is
// owned by the region and must not be modified.
func (r *Region[V]) Runs() []Run[V] { return r.runs }

// FrameID identifies the pass that produced the region.
func (r *Region[V]) FrameID() uuid.UUID { return r.frame.id }

// Bounds returns the bounding box.
func (r *Region[V]) Bounds() Bounds {
	if r.have&haveBounds != 0 {
		return r.bounds
	}
	b := Bounds{X1: math.MaxInt, Y1: math.MaxInt, X2: math.MinInt, Y2: math.MinInt}
	for _, s := range r.runs {
		if s.X < b.X1 {
			b.X1 = s.X
		}
		if s.XEnd > b.X2 {
			b.X2 = s.XEnd
		}
		if s.Y < b.Y1 {
			b.Y1 = s.Y
		}
		if s.Y+1 > b.Y2 {
			b.Y2 = s.Y + 1
		}
	}
	r.bounds = b
	r.have |= haveBounds
	return b
}

// COG returns the center of gravity.
func (r *Region[V]) COG() Point2D {
	if r.have&haveCOG != 0 {
		return r.cog
	}
	var sx, sy float64
	for _, s := range r.runs {
		l := float64(s.Len())
		sx += l * (float64(s.X) + 0.5*(l-1))
		sy += l * float64(s.Y)
	}
	n := float64(r.size)
	r.cog = Point2D{X: sx / n, Y: sy / n}
	r.have |= haveCOG
	return r.cog
}

// UpperLeft returns the leftmost pixel of the region's top row.
func (r *Region[V]) UpperLeft() Point {
	return Point{X: r.runs[0].X, Y: r.runs[0].Y}
}

// Contains reports whether pixel (x, y) belongs to the region.
func (r *Region[V]) Contains(x, y int) bool {
	i := sort.Search(len(r.runs), func(i int) bool {
		s := r.runs[i]
		return s.Y > y || (s.Y == y && s.XEnd > x)
	})
	return i < len(r.runs) && r.runs[i].Y == y && r.runs[i].X <= x
}

// Pixels lists every pixel of the region in row-major order. Prefer Runs
// for anything performance sensitive.
func (r *Region[V]) Pixels() []image.Point {
	if r.have&havePixels != 0 {
		return r.pixels
	}
	for _, s := range r.runs {
		for x := s.X; x < s.XEnd; x++ {
			r.pixels = append(r.pixels, image.Pt(x, s.Y))
		}
	}
	r.have |= havePixels
	return r.pixels
}

// TouchesBorder reports whether any pixel lies on the image border.
func (r *Region[V]) TouchesBorder() bool {
	b := r.Bounds()
	return b.X1 == 0 || b.Y1 == 0 || b.X2 == r.frame.width || b.Y2 == r.frame.height
}

// BoundaryLength returns the perimeter as the number of unit pixel edges
// separating the region from everything else, holes included.
func (r *Region[V]) BoundaryLength() float64 {
	if r.have&havePerimeter == 0 {
		r.perimeter = r.perimeterEdges()
		r.have |= havePerimeter
	}
	return float64(r.perimeter)
}

// FormFactor returns P²/(4πA) for perimeter P and area A. A square scores
// 4/π; more elongated or ragged shapes score higher.
func (r *Region[V]) FormFactor() float64 {
	p := r.BoundaryLength()
	return p * p / (4 * math.Pi * float64(r.size))
}

// perimeterEdges counts the two vertical edges of every run plus the top
// and bottom edges not shared with a run of the same region in the
// neighbouring row.
func (r *Region[V]) perimeterEdges() int {
	shared := 0
	prevLo, prevHi, prevY := 0, 0, math.MinInt
	for i := 0; i < len(r.runs); {
		y := r.runs[i].Y
		j := i
		for j < len(r.runs) && r.runs[j].Y == y {
			j++
		}
		if prevY == y-1 {
			shared += sharedColumns(r.runs[prevLo:prevHi], r.runs[i:j])
		}
		prevLo, prevHi, prevY = i, j, y
		i = j
	}
	return 2*len(r.runs) + 2*r.size - 2*shared
}

// sharedColumns sums the column overlap of two sorted run lists.
func sharedColumns[V Value](a, b []Run[V]) int {
	total := 0
	for i, j := 0, 0; i < len(a) && j < len(b); {
		lo := max(a[i].X, b[j].X)
		hi := min(a[i].XEnd, b[j].XEnd)
		if hi > lo {
			total += hi - lo
		}
		if a[i].XEnd < b[j].XEnd {
			i++
		} else {
			j++
		}
	}
	return total
}
