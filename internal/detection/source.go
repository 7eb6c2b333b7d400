package detection

import "fmt"

// Value is the closed set of classification value types a Detector can be
// instantiated with. Floating point values are excluded because regions are
// formed from exactly equal neighbours.
type Value interface {
	~uint8 | ~uint16 | ~int16 | ~int32 | ~int
}

// Source exposes a classified image row by row.
//
// Row must return a slice of exactly Width() values for every y in
// [0, Height()). The detector only reads the returned slices.
type Source[V Value] interface {
	Width() int
	Height() int
	Row(y int) []V
}

// Rows adapts a slice of rows to Source. Width is taken from the first row.
type Rows[V Value] [][]V

// Width returns the length of the first row, or zero for an empty image.
func (r Rows[V]) Width() int {
	if len(r) == 0 {
		return 0
	}
	return len(r[0])
}

// Height returns the number of rows.
func (r Rows[V]) Height() int { return len(r) }

// Row returns row y.
func (r Rows[V]) Row(y int) []V { return r[y] }

// Grid is a row-major classified image stored in one slice.
type Grid[V Value] struct {
	W, H int
	Pix  []V
}

// NewGrid wraps pix as a w×h grid. It fails if pix does not hold exactly
// w*h values.
func NewGrid[V Value](w, h int, pix []V) (*Grid[V], error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: grid size %dx%d", ErrInvalidInput, w, h)
	}
	if len(pix) != w*h {
		return nil, fmt.Errorf("%w: grid %dx%d needs %d values, got %d", ErrInvalidInput, w, h, w*h, len(pix))
	}
	return &Grid[V]{W: w, H: h, Pix: pix}, nil
}

// Width returns the grid width.
func (g *Grid[V]) Width() int { return g.W }

// Height returns the grid height.
func (g *Grid[V]) Height() int { return g.H }

// Row returns row y as a sub-slice of Pix.
func (g *Grid[V]) Row(y int) []V { return g.Pix[y*g.W : (y+1)*g.W] }

// validateSource checks dimensions and every row before the pass allocates
// anything.
func validateSource[V Value](src Source[V]) (w, h int, err error) {
	if src == nil {
		return 0, 0, fmt.Errorf("%w: nil source", ErrInvalidInput)
	}
	w, h = src.Width(), src.Height()
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: image size %dx%d", ErrInvalidInput, w, h)
	}
	for y := 0; y < h; y++ {
		row := src.Row(y)
		if row == nil {
			return 0, 0, fmt.Errorf("%w: row %d missing", ErrInvalidInput, y)
		}
		if len(row) != w {
			return 0, 0, fmt.Errorf("%w: row %d has width %d, want %d", ErrInvalidInput, y, len(row), w)
		}
	}
	return w, h, nil
}
