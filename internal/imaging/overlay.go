package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/region-tools-mcp/internal/detection"
)

// RenderOptions controls RenderRegions.
type RenderOptions struct {
	// Base is drawn below the regions. It must have the snapshot's size.
	// Without it the regions are drawn on white.
	Base image.Image
	// IDs restricts drawing to these regions. Nil draws all regions.
	IDs []int
	// Opacity of the region fill, in [0, 1]. Zero disables filling.
	Opacity float64
	// Boxes outlines each region's bounding box.
	Boxes bool
	// BoxColor is "#RRGGBB" or "#RRGGBBAA". Empty uses each region's fill
	// colour.
	BoxColor string
	// Labels writes each region's id at the top-left of its box.
	Labels bool
}

// RenderResult is a rendered overlay.
type RenderResult struct {
	EncodedImage
	Regions int `json:"regions"`
}

// RenderRegions draws the regions of snap as a PNG.
//
// Each region gets a stable colour derived from its id, so the same id is
// drawn in the same colour across calls.
func RenderRegions(snap *detection.Snapshot, opts RenderOptions) (*RenderResult, error) {
	if snap == nil || snap.Width <= 0 || snap.Height <= 0 {
		return nil, fmt.Errorf("nothing to render")
	}
	if opts.Opacity < 0 || opts.Opacity > 1 {
		return nil, fmt.Errorf("invalid opacity %g: must be in [0, 1]", opts.Opacity)
	}

	var canvas *image.NRGBA
	if opts.Base != nil {
		b := opts.Base.Bounds()
		if b.Dx() != snap.Width || b.Dy() != snap.Height {
			return nil, fmt.Errorf("base image is %dx%d, regions were detected on %dx%d",
				b.Dx(), b.Dy(), snap.Width, snap.Height)
		}
		canvas = imaging.Clone(opts.Base)
	} else {
		canvas = imaging.New(snap.Width, snap.Height, color.White)
	}

	var boxColor *color.NRGBA
	if opts.BoxColor != "" {
		c, err := parseHexColor(opts.BoxColor)
		if err != nil {
			return nil, fmt.Errorf("invalid box color %q: %w", opts.BoxColor, err)
		}
		boxColor = &c
	}

	regions, err := selectRegions(snap, opts.IDs)
	if err != nil {
		return nil, err
	}

	for _, r := range regions {
		fill := RegionColor(r.ID)
		if opts.Opacity > 0 {
			for _, s := range r.Runs {
				for x := s.X; x < s.XEnd; x++ {
					blendPixel(canvas, x, s.Y, fill, opts.Opacity)
				}
			}
		}
		if opts.Boxes {
			c := fill
			if boxColor != nil {
				c = *boxColor
			}
			drawBox(canvas, r.Bounds, c)
		}
	}
	// labels go last so that no fill covers them
	if opts.Labels {
		fg := color.RGBA{255, 255, 255, 255}
		bg := color.RGBA{0, 0, 0, 180}
		for _, r := range regions {
			drawLabel(canvas, r.Bounds.X1+1, r.Bounds.Y1+1, strconv.Itoa(r.ID), fg, bg)
		}
	}

	enc, err := EncodePNG(canvas)
	if err != nil {
		return nil, err
	}
	return &RenderResult{EncodedImage: *enc, Regions: len(regions)}, nil
}

func selectRegions(snap *detection.Snapshot, ids []int) ([]detection.RegionSnapshot, error) {
	if ids == nil {
		return snap.Regions, nil
	}
	out := make([]detection.RegionSnapshot, 0, len(ids))
	for _, id := range ids {
		r, ok := snap.Region(id)
		if !ok {
			return nil, fmt.Errorf("no region %d in frame %s", id, snap.FrameID)
		}
		out = append(out, *r)
	}
	return out, nil
}

// RegionColor returns the fill colour for region id. Hues advance by the
// golden angle so that neighbouring ids get clearly different colours.
func RegionColor(id int) color.NRGBA {
	h := math.Mod(float64(id)*137.508, 360)
	r, g, b := colorful.Hsv(h, 0.65, 0.95).RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

func blendPixel(img *image.NRGBA, x, y int, c color.NRGBA, alpha float64) {
	i := img.PixOffset(x, y)
	p := img.Pix[i : i+4 : i+4]
	mix := func(dst, src uint8) uint8 {
		return uint8(math.Round(float64(dst)*(1-alpha) + float64(src)*alpha))
	}
	p[0] = mix(p[0], c.R)
	p[1] = mix(p[1], c.G)
	p[2] = mix(p[2], c.B)
	p[3] = 255
}

// drawBox outlines b; X2 and Y2 are exclusive.
func drawBox(img *image.NRGBA, b detection.Bounds, c color.NRGBA) {
	for x := b.X1; x < b.X2; x++ {
		img.SetNRGBA(x, b.Y1, c)
		img.SetNRGBA(x, b.Y2-1, c)
	}
	for y := b.Y1; y < b.Y2; y++ {
		img.SetNRGBA(b.X1, y, c)
		img.SetNRGBA(b.X2-1, y, c)
	}
}

// parseHexColor parses "#RRGGBB" or "#RRGGBBAA"; the '#' is optional.
func parseHexColor(hex string) (color.NRGBA, error) {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("want 6 or 8 hex digits, got %d", len(hex))
	}
	val, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, err
	}
	if len(hex) == 6 {
		val = val<<8 | 0xFF
	}
	return color.NRGBA{R: uint8(val >> 24), G: uint8(val >> 16), B: uint8(val >> 8), A: uint8(val)}, nil
}

// glyphs is a 3x5 pixel font for region ids.
var glyphs = map[rune][]string{
	'0': {"111", "101", "101", "101", "111"},
	'1': {"010", "110", "010", "010", "111"},
	'2': {"111", "001", "111", "100", "111"},
	'3': {"111", "001", "111", "001", "111"},
	'4': {"101", "101", "111", "001", "001"},
	'5': {"111", "100", "111", "001", "111"},
	'6': {"111", "100", "111", "101", "111"},
	'7': {"111", "001", "001", "001", "001"},
	'8': {"111", "101", "111", "101", "111"},
	'9': {"111", "101", "111", "001", "111"},
	'-': {"000", "000", "111", "000", "000"},
}

// drawLabel writes text with its top-left corner at (x, y) on a filled
// background. Unknown runes leave a gap; pixels outside img are skipped.
func drawLabel(img draw.Image, x, y int, text string, fg, bg color.Color) {
	const charWidth, labelHeight = 4, 7
	bounds := img.Bounds()
	set := func(px, py int, c color.Color) {
		if image.Pt(px, py).In(bounds) {
			img.Set(px, py, c)
		}
	}

	labelWidth := len(text) * charWidth
	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			set(x+dx, y+dy, bg)
		}
	}

	cx := x
	for _, ch := range text {
		for row, line := range glyphs[ch] {
			for col, pixel := range line {
				if pixel == '1' {
					set(cx+col, y+row, fg)
				}
			}
		}
		cx += charWidth
	}
}
