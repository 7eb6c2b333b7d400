package detection

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// PCAInfo describes the principal axes of a region's pixel distribution.
//
// Len1 and Len2 are twice the standard deviation along the major and minor
// axis (Len1 >= Len2). Angle is the direction of the major axis in radians,
// measured from the +x axis towards +y (image rows grow downwards), in
// (-π/2, π/2].
type PCAInfo struct {
	Len1  float64 `json:"len1"`
	Len2  float64 `json:"len2"`
	Angle float64 `json:"angle"`
}

// AxisRatio returns Len1/Len2, or +Inf for a degenerate region whose minor
// axis has zero length.
func (p PCAInfo) AxisRatio() float64 {
	if p.Len2 == 0 {
		return math.Inf(1)
	}
	return p.Len1 / p.Len2
}

// PCA returns the region's principal component descriptor.
func (r *Region[V]) PCA() PCAInfo {
	if r.have&havePCA == 0 {
		r.pca = pcaOf(r.runs)
		r.have |= havePCA
	}
	return r.pca
}

// moments accumulates first and second order pixel coordinate sums. The
// coordinates are taken relative to an origin to keep the sums small.
type moments struct {
	ox, oy int

	n, sx, sy, sxx, syy, sxy float64
}

func sumTo(k int64) int64   { return k * (k + 1) / 2 }
func sumSqTo(k int64) int64 { return k * (k + 1) * (2*k + 1) / 6 }

// addRun adds the pixels of one run using the closed form sums of i and i²
// instead of visiting every pixel.
func (m *moments) addRun(y, x, xEnd int) {
	x0 := int64(x - m.ox)
	x1 := int64(xEnd-m.ox) - 1
	dy := float64(y - m.oy)
	l := float64(xEnd - x)

	s1 := float64(sumTo(x1) - sumTo(x0-1))
	s2 := float64(sumSqTo(x1) - sumSqTo(x0-1))

	m.n += l
	m.sx += s1
	m.sy += l * dy
	m.sxx += s2
	m.syy += l * dy * dy
	m.sxy += dy * s1
}

// covariance returns the population covariance matrix entries.
func (m *moments) covariance() (cxx, cyy, cxy float64) {
	mx, my := m.sx/m.n, m.sy/m.n
	cxx = m.sxx/m.n - mx*mx
	cyy = m.syy/m.n - my*my
	cxy = m.sxy/m.n - mx*my
	// rounding can push a zero variance slightly negative
	cxx = math.Max(cxx, 0)
	cyy = math.Max(cyy, 0)
	return cxx, cyy, cxy
}

func pcaOf[V Value](runs []Run[V]) PCAInfo {
	if len(runs) == 0 {
		return PCAInfo{}
	}
	m := moments{ox: runs[0].X, oy: runs[0].Y}
	for _, s := range runs {
		m.addRun(s.Y, s.X, s.XEnd)
	}
	cxx, cyy, cxy := m.covariance()

	l1, l2, vx, vy, ok := eigen2(cxx, cyy, cxy)
	if !ok {
		l1, l2, vx, vy = closedFormEigen(cxx, cyy, cxy)
	}

	eps := 1e-9 * math.Max(1, l1)
	if l1 < eps {
		l1 = 0
	}
	if l2 < eps {
		l2 = 0
	}

	info := PCAInfo{Len1: 2 * math.Sqrt(l1), Len2: 2 * math.Sqrt(l2)}
	if l1 > 0 && l1-l2 > eps {
		info.Angle = axisAngle(vx, vy)
	}
	return info
}

// eigen2 decomposes the symmetric 2×2 covariance matrix and returns the
// eigenvalues in descending order with the eigenvector of the larger one.
func eigen2(cxx, cyy, cxy float64) (l1, l2, vx, vy float64, ok bool) {
	var eig mat.EigenSym
	if !eig.Factorize(mat.NewSymDense(2, []float64{cxx, cxy, cxy, cyy}), true) {
		return 0, 0, 0, 0, false
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	// Values are ascending
	return vals[1], vals[0], vecs.At(0, 1), vecs.At(1, 1), true
}

func closedFormEigen(cxx, cyy, cxy float64) (l1, l2, vx, vy float64) {
	p := (cxx + cyy) / 2
	d := math.Sqrt((cxx-cyy)*(cxx-cyy)/4 + cxy*cxy)
	l1, l2 = p+d, p-d
	vx, vy = cxy, l1-cxx
	if vx == 0 && vy == 0 {
		vx = 1
	}
	return l1, l2, vx, vy
}

// axisAngle maps the direction (vx, vy) to (-π/2, π/2]. Eigenvectors have
// no sign, so (vx, vy) and (-vx, -vy) give the same angle.
func axisAngle(vx, vy float64) float64 {
	if math.Abs(vx) < 1e-12 {
		vx = 0
	}
	if math.Abs(vy) < 1e-12 {
		vy = 0
	}
	if vx < 0 || (vx == 0 && vy < 0) {
		vx, vy = -vx, -vy
	}
	return math.Atan2(vy, vx)
}
