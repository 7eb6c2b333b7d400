package detection

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// bg is the background class used by the string fixtures.
const bg = '.'

// rows builds a classified image from strings, one byte per pixel.
func rows(lines ...string) Rows[uint8] {
	out := make(Rows[uint8], len(lines))
	for i, l := range lines {
		out[i] = []uint8(l)
	}
	return out
}

func newDetector(t *testing.T, cfg Config) *Detector[uint8] {
	t.Helper()
	d, err := New[uint8](cfg)
	require.NoError(t, err)
	return d
}

func detect(t *testing.T, cfg Config, src Source[uint8]) *Result[uint8] {
	t.Helper()
	res, err := newDetector(t, cfg).Detect(src)
	require.NoError(t, err)
	return res
}

// withBG is the default config with '.' as background.
func withBG() Config { return DefaultConfig().WithBackground(bg) }

// randomGrid returns a w×h grid of values in [0, classes) from a fixed seed.
func randomGrid(seed int64, w, h, classes int) *Grid[uint8] {
	rng := rand.New(rand.NewSource(seed))
	pix := make([]uint8, w*h)
	for i := range pix {
		pix[i] = uint8(rng.Intn(classes))
	}
	return &Grid[uint8]{W: w, H: h, Pix: pix}
}

// regionByValue returns the first region with value v.
func regionByValue(t *testing.T, res *Result[uint8], v uint8) *Region[uint8] {
	t.Helper()
	for _, r := range res.Regions {
		if r.Value() == v {
			return r
		}
	}
	t.Fatalf("no region with value %q", v)
	return nil
}
