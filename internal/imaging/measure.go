package imaging

import (
	"fmt"
	"math"

	"github.com/ironsheep/region-tools-mcp/internal/detection"
)

// DistanceResult is the offset between the centres of gravity of two
// regions.
type DistanceResult struct {
	From                  int     `json:"from"`
	To                    int     `json:"to"`
	DistancePixels        float64 `json:"distance_pixels"`
	DeltaX                float64 `json:"delta_x"`
	DeltaY                float64 `json:"delta_y"`
	AngleDegrees          float64 `json:"angle_degrees"` // 0 = right, 90 = down
	DistancePercentWidth  float64 `json:"distance_percent_width"`
	DistancePercentHeight float64 `json:"distance_percent_height"`
}

// MeasureDistance measures from the COG of region from to that of region
// to. Distances are rounded to two decimals, the angle to one.
func MeasureDistance(snap *detection.Snapshot, from, to int) (*DistanceResult, error) {
	a, err := lookup(snap, from)
	if err != nil {
		return nil, err
	}
	b, err := lookup(snap, to)
	if err != nil {
		return nil, err
	}

	dx := b.COG.X - a.COG.X
	dy := b.COG.Y - a.COG.Y
	distance := math.Hypot(dx, dy)
	angle := math.Atan2(dy, dx) * 180 / math.Pi

	return &DistanceResult{
		From:                  from,
		To:                    to,
		DistancePixels:        round(distance, 100),
		DeltaX:                round(dx, 100),
		DeltaY:                round(dy, 100),
		AngleDegrees:          round(angle, 10),
		DistancePercentWidth:  round(distance/float64(snap.Width)*100, 10),
		DistancePercentHeight: round(distance/float64(snap.Height)*100, 10),
	}, nil
}

// AlignmentResult reports whether region centres line up.
type AlignmentResult struct {
	HorizontallyAligned bool    `json:"horizontally_aligned"`
	VerticallyAligned   bool    `json:"vertically_aligned"`
	HorizontalSpread    float64 `json:"horizontal_spread"` // std dev of y
	VerticalSpread      float64 `json:"vertical_spread"`   // std dev of x
	AverageX            float64 `json:"average_x"`
	AverageY            float64 `json:"average_y"`
}

// CheckAlignment checks whether the COGs of the regions ids lie on one
// horizontal or vertical line. A set of regions is aligned along an axis
// when the standard deviation across it is at most tolerance pixels. Fewer
// than two regions are trivially aligned.
func CheckAlignment(snap *detection.Snapshot, ids []int, tolerance float64) (*AlignmentResult, error) {
	if tolerance < 0 {
		return nil, fmt.Errorf("invalid tolerance %g: must not be negative", tolerance)
	}
	centres := make([]detection.Point2D, 0, len(ids))
	for _, id := range ids {
		r, err := lookup(snap, id)
		if err != nil {
			return nil, err
		}
		centres = append(centres, r.COG)
	}
	if len(centres) < 2 {
		res := &AlignmentResult{HorizontallyAligned: true, VerticallyAligned: true}
		if len(centres) == 1 {
			res.AverageX, res.AverageY = round(centres[0].X, 100), round(centres[0].Y, 100)
		}
		return res, nil
	}

	n := float64(len(centres))
	var sumX, sumY float64
	for _, c := range centres {
		sumX += c.X
		sumY += c.Y
	}
	avgX, avgY := sumX/n, sumY/n

	var varX, varY float64
	for _, c := range centres {
		varX += (c.X - avgX) * (c.X - avgX)
		varY += (c.Y - avgY) * (c.Y - avgY)
	}
	sdX, sdY := math.Sqrt(varX/n), math.Sqrt(varY/n)

	return &AlignmentResult{
		HorizontallyAligned: sdY <= tolerance,
		VerticallyAligned:   sdX <= tolerance,
		HorizontalSpread:    round(sdY, 100),
		VerticalSpread:      round(sdX, 100),
		AverageX:            round(avgX, 100),
		AverageY:            round(avgY, 100),
	}, nil
}

func lookup(snap *detection.Snapshot, id int) (*detection.RegionSnapshot, error) {
	if snap == nil {
		return nil, fmt.Errorf("no frame")
	}
	r, ok := snap.Region(id)
	if !ok {
		return nil, fmt.Errorf("no region %d in frame %s", id, snap.FrameID)
	}
	return r, nil
}

// round rounds v to 1/scale.
func round(v, scale float64) float64 { return math.Round(v*scale) / scale }
