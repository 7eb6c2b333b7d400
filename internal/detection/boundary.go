package detection

import "image"

// Direction tables for 4-neighbour contour following: 0 up, 1 right,
// 2 down, 3 left, repeated so a search can run past left without wrapping.
// turnLeft[d] is the direction to resume searching from after a step in
// direction d.
var (
	stepX    = [8]int{0, 1, 0, -1, 0, 1, 0, -1}
	stepY    = [8]int{-1, 0, 1, 0, -1, 0, 1, 0}
	turnLeft = [8]int{3, 0, 1, 2, 3, 0, 1, 2}
)

// Boundary returns the outer contour of the region as a closed sequence of
// pixels, starting at UpperLeft and running clockwise. The last point is
// the 4-neighbour of the first. Pixels on thin parts of the region appear
// once per pass along them. Holes are not traced.
//
// The slice is owned by the region and must not be modified.
func (r *Region[V]) Boundary() []image.Point {
	if r.have&haveBoundary == 0 {
		r.boundary = traceBoundary(r.boundary[:0], r.runs, r.Bounds(), r.size)
		r.have |= haveBoundary
	}
	return r.boundary
}

// traceBoundary follows the region's outer edge keeping the outside on the
// left hand, on a mask of the bounding box.
func traceBoundary[V Value](dst []image.Point, runs []Run[V], b Bounds, size int) []image.Point {
	start := image.Pt(runs[0].X, runs[0].Y)
	dst = append(dst, start)
	if size == 1 {
		return dst
	}

	w, h := b.Width(), b.Height()
	mask := make([]bool, w*h)
	for _, s := range runs {
		row := (s.Y - b.Y1) * w
		for x := s.X; x < s.XEnd; x++ {
			mask[row+x-b.X1] = true
		}
	}
	inside := func(x, y int) bool {
		x -= b.X1
		y -= b.Y1
		return x >= 0 && x < w && y >= 0 && y < h && mask[y*w+x]
	}
	// the region is 4-connected and larger than one pixel, so a
	// neighbour is always found within four directions
	step := func(p image.Point, dir int) (image.Point, int) {
		for {
			q := image.Pt(p.X+stepX[dir], p.Y+stepY[dir])
			if inside(q.X, q.Y) {
				return q, turnLeft[dir]
			}
			dir++
		}
	}

	p, dir := step(start, 0)
	stop, stopDir := p, dir
	for {
		dst = append(dst, p)
		p, dir = step(p, dir)
		if p == stop && dir == stopDir {
			break
		}
	}
	// the final point is start again
	return dst[:len(dst)-1]
}
