package imaging

import (
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/region-tools-mcp/internal/detection"
)

// RGBColor is a colour with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

func (c RGBColor) color() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

// ColorFrequency is a quantized colour and the share of pixels that have it.
type ColorFrequency struct {
	Hex        string   `json:"hex"`        // "#RRGGBB" (quantized)
	Percentage float64  `json:"percentage"` // 0-100
	RGB        RGBColor `json:"rgb"`
}

// DominantColorsResult holds colours sorted by frequency, most common first.
type DominantColorsResult struct {
	Colors []ColorFrequency `json:"colors"`
}

// DominantColors returns the count most common colours of img, or of roi
// within it when roi is not nil.
//
// Colours are quantized to 16 levels per channel before counting, so
// #F0F0F0 and #FAFAFA count as the same colour (#F0F0F0). Fully transparent
// pixels are skipped. Ties are broken by hex value so the result is stable.
func DominantColors(img image.Image, count int, roi *ROI) (*DominantColorsResult, error) {
	if count <= 0 {
		return nil, fmt.Errorf("invalid color count %d: must be positive", count)
	}
	bounds := img.Bounds()
	if roi != nil {
		if err := roi.Validate(bounds); err != nil {
			return nil, err
		}
		bounds = roi.Rect()
	}

	counts := make(map[uint16]int)
	total := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				continue
			}
			counts[quantize(c)]++
			total++
		}
	}

	colors := make([]ColorFrequency, 0, len(counts))
	for key, n := range counts {
		rgb := dequantize(key)
		colors = append(colors, ColorFrequency{
			Hex:        fmt.Sprintf("#%02X%02X%02X", rgb.R, rgb.G, rgb.B),
			Percentage: float64(n) / float64(total) * 100,
			RGB:        rgb,
		})
	}
	sort.Slice(colors, func(i, j int) bool {
		if colors[i].Percentage != colors[j].Percentage {
			return colors[i].Percentage > colors[j].Percentage
		}
		return colors[i].Hex < colors[j].Hex
	})
	if len(colors) > count {
		colors = colors[:count]
	}
	return &DominantColorsResult{Colors: colors}, nil
}

// quantize packs the top four bits of each channel.
func quantize(c colorful.Color) uint16 {
	r, g, b := c.Clamped().RGB255()
	return uint16(r>>4)<<8 | uint16(g>>4)<<4 | uint16(b>>4)
}

// dequantize returns the colour a quantized key stands for.
func dequantize(key uint16) RGBColor {
	return RGBColor{R: uint8(key>>8) << 4, G: uint8(key>>4&0xF) << 4, B: uint8(key&0xF) << 4}
}

// MeanColor returns the average colour of the pixels covered by spans, as
// "#RRGGBB". Colours are averaged in linear RGB. Spans are in img
// coordinates relative to its bounds origin.
func MeanColor(img image.Image, spans []detection.Span) (string, error) {
	bounds := img.Bounds()
	var r, g, b float64
	n := 0
	for _, s := range spans {
		if s.Y < 0 || s.Y >= bounds.Dy() || s.X < 0 || s.XEnd > bounds.Dx() {
			return "", fmt.Errorf("span (%d, %d-%d) outside image bounds", s.Y, s.X, s.XEnd)
		}
		for x := s.X; x < s.XEnd; x++ {
			c, ok := colorful.MakeColor(img.At(bounds.Min.X+x, bounds.Min.Y+s.Y))
			if !ok {
				continue
			}
			lr, lg, lb := c.LinearRgb()
			r += lr
			g += lg
			b += lb
			n++
		}
	}
	if n == 0 {
		return "", fmt.Errorf("no opaque pixels to average")
	}
	fn := float64(n)
	return hexOf(colorful.LinearRgb(r/fn, g/fn, b/fn)), nil
}

// hexOf formats c as upper case "#RRGGBB".
func hexOf(c colorful.Color) string {
	return strings.ToUpper(c.Clamped().Hex())
}
