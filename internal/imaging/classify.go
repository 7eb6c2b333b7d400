package imaging

import (
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// Method selects how pixels are turned into class values.
type Method string

const (
	// MethodGray splits luminance into Levels equal bands.
	MethodGray Method = "gray"
	// MethodThreshold separates dark (0) from light (1) pixels at Threshold.
	MethodThreshold Method = "threshold"
	// MethodHue assigns saturated pixels to one of Levels hue sectors
	// (1..Levels). Grey, white and very dark pixels get class 0.
	MethodHue Method = "hue"
	// MethodPalette maps every pixel to the nearest of the image's Colors
	// dominant colours, compared in CIE L*a*b*.
	MethodPalette Method = "palette"
	// MethodEdges marks pixels whose Sobel gradient reaches Threshold
	// after a Gaussian blur of BlurRadius (1), others are 0.
	MethodEdges Method = "edges"
)

// ClassifyOptions configures Classify. Zero fields take the defaults of
// DefaultClassifyOptions.
type ClassifyOptions struct {
	Method        Method  `json:"method"`
	Levels        int     `json:"levels,omitempty"`
	Threshold     uint8   `json:"threshold,omitempty"`
	MinSaturation float64 `json:"min_saturation,omitempty"`
	MinValue      float64 `json:"min_value,omitempty"`
	Colors        int     `json:"colors,omitempty"`
	BlurRadius    float64 `json:"blur_radius,omitempty"`
}

// DefaultClassifyOptions returns four grey bands and the defaults used by
// the other methods.
func DefaultClassifyOptions() ClassifyOptions {
	return ClassifyOptions{
		Method:        MethodGray,
		Threshold:     128,
		MinSaturation: 0.25,
		MinValue:      0.15,
		Colors:        8,
		BlurRadius:    1,
	}
}

const (
	defaultGrayLevels = 4
	defaultHueLevels  = 6
)

// withDefaults fills zero fields.
func (o ClassifyOptions) withDefaults() ClassifyOptions {
	def := DefaultClassifyOptions()
	if o.Method == "" {
		o.Method = def.Method
	}
	if o.Levels == 0 {
		switch o.Method {
		case MethodHue:
			o.Levels = defaultHueLevels
		default:
			o.Levels = defaultGrayLevels
		}
	}
	if o.Threshold == 0 {
		o.Threshold = def.Threshold
	}
	if o.MinSaturation == 0 {
		o.MinSaturation = def.MinSaturation
	}
	if o.MinValue == 0 {
		o.MinValue = def.MinValue
	}
	if o.Colors == 0 {
		o.Colors = def.Colors
	}
	if o.BlurRadius == 0 {
		o.BlurRadius = def.BlurRadius
	}
	return o
}

// Validate checks the options after defaults are applied.
func (o ClassifyOptions) Validate() error {
	o = o.withDefaults()
	switch o.Method {
	case MethodGray:
		if o.Levels < 2 || o.Levels > 256 {
			return fmt.Errorf("gray levels %d: must be in [2, 256]", o.Levels)
		}
	case MethodHue:
		if o.Levels < 1 || o.Levels > 255 {
			return fmt.Errorf("hue levels %d: must be in [1, 255]", o.Levels)
		}
		if o.MinSaturation < 0 || o.MinSaturation > 1 || o.MinValue < 0 || o.MinValue > 1 {
			return fmt.Errorf("min_saturation and min_value must be in [0, 1]")
		}
	case MethodPalette:
		if o.Colors < 1 || o.Colors > 256 {
			return fmt.Errorf("palette colors %d: must be in [1, 256]", o.Colors)
		}
	case MethodEdges:
		if o.BlurRadius < 0 {
			return fmt.Errorf("blur radius %g: must not be negative", o.BlurRadius)
		}
	case MethodThreshold:
	default:
		return fmt.Errorf("unknown classification method %q", o.Method)
	}
	return nil
}

// ClassLabel describes one class value of a ClassMap.
type ClassLabel struct {
	Value uint8  `json:"value"`
	Name  string `json:"name"`
	Hex   string `json:"hex"` // representative colour
}

// ClassMap is a classified image, one value per pixel in row-major order.
// It is a detection.Source[uint8].
type ClassMap struct {
	W, H   int
	Pix    []uint8
	Labels []ClassLabel
}

// Width returns the map width.
func (m *ClassMap) Width() int { return m.W }

// Height returns the map height.
func (m *ClassMap) Height() int { return m.H }

// Row returns row y.
func (m *ClassMap) Row(y int) []uint8 { return m.Pix[y*m.W : (y+1)*m.W] }

// At returns the class of pixel (x, y).
func (m *ClassMap) At(x, y int) uint8 { return m.Pix[y*m.W+x] }

// Label returns the label of class value v.
func (m *ClassMap) Label(v uint8) (ClassLabel, bool) {
	for _, l := range m.Labels {
		if l.Value == v {
			return l, true
		}
	}
	return ClassLabel{}, false
}

// Classify turns img into a ClassMap using the method in opts.
//
// Transparent pixels are classified as if the image were drawn on white.
// The map has the size of img with its origin at (0, 0).
func Classify(img image.Image, opts ClassifyOptions) (*ClassMap, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("cannot classify an empty image")
	}
	src := flatten(img)
	m := &ClassMap{W: b.Dx(), H: b.Dy(), Pix: make([]uint8, b.Dx()*b.Dy())}

	switch opts.Method {
	case MethodGray:
		classifyGray(m, src, opts.Levels)
	case MethodThreshold:
		binarize(m, segment.Threshold(src, opts.Threshold))
		m.Labels = []ClassLabel{{0, "dark", "#000000"}, {1, "light", "#FFFFFF"}}
	case MethodHue:
		classifyHue(m, src, opts)
	case MethodPalette:
		if err := classifyPalette(m, src, opts.Colors); err != nil {
			return nil, err
		}
	case MethodEdges:
		blurred := blur.Gaussian(src, opts.BlurRadius)
		// Sobel clips negative responses; falling edges show up on the inverse
		binarize(m, segment.Threshold(effect.Sobel(blurred), opts.Threshold))
		binarize(m, segment.Threshold(effect.Sobel(effect.Invert(blurred)), opts.Threshold))
		m.Labels = []ClassLabel{{0, "flat", "#000000"}, {1, "edge", "#FFFFFF"}}
	}
	return m, nil
}

// flatten composites img onto opaque white at the origin.
func flatten(img image.Image) *image.NRGBA {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

// binarize sets m to 1 wherever mask is set. Other values are kept.
func binarize(m *ClassMap, mask *image.Gray) {
	for y := 0; y < m.H; y++ {
		row := mask.Pix[y*mask.Stride : y*mask.Stride+m.W]
		dst := m.Row(y)
		for x, v := range row {
			if v != 0 {
				dst[x] = 1
			}
		}
	}
}

func classifyGray(m *ClassMap, src image.Image, levels int) {
	g := effect.Grayscale(src)
	for y := 0; y < m.H; y++ {
		dst := m.Row(y)
		for x := range dst {
			dst[x] = uint8(int(g.Pix[y*g.Stride+x*4]) * levels / 256)
		}
	}
	m.Labels = make([]ClassLabel, levels)
	for i := range m.Labels {
		mid := (2*i + 1) * 256 / (2 * levels)
		m.Labels[i] = ClassLabel{
			Value: uint8(i),
			Name:  fmt.Sprintf("gray-%d", i),
			Hex:   fmt.Sprintf("#%02X%02X%02X", mid, mid, mid),
		}
	}
}

func classifyHue(m *ClassMap, src *image.NRGBA, opts ClassifyOptions) {
	for y := 0; y < m.H; y++ {
		dst := m.Row(y)
		for x := range dst {
			c, _ := colorful.MakeColor(src.NRGBAAt(x, y))
			h, s, v := c.Hsv()
			if s < opts.MinSaturation || v < opts.MinValue {
				continue
			}
			dst[x] = uint8(int(h*float64(opts.Levels)/360)%opts.Levels + 1)
		}
	}
	m.Labels = make([]ClassLabel, opts.Levels+1)
	m.Labels[0] = ClassLabel{Value: 0, Name: "achromatic", Hex: "#808080"}
	sector := 360 / float64(opts.Levels)
	for i := 1; i <= opts.Levels; i++ {
		centre := (float64(i) - 0.5) * sector
		m.Labels[i] = ClassLabel{
			Value: uint8(i),
			Name:  fmt.Sprintf("hue-%d", int(centre)),
			Hex:   hexOf(colorful.Hsv(centre, 1, 1)),
		}
	}
}

func classifyPalette(m *ClassMap, src *image.NRGBA, n int) error {
	dominant, err := DominantColors(src, n, nil)
	if err != nil {
		return err
	}
	palette := make([]colorful.Color, len(dominant.Colors))
	m.Labels = make([]ClassLabel, len(dominant.Colors))
	for i, f := range dominant.Colors {
		palette[i] = f.RGB.color()
		m.Labels[i] = ClassLabel{Value: uint8(i), Name: fmt.Sprintf("color-%d", i), Hex: f.Hex}
	}

	// pixels are matched by their quantized colour, once per colour
	nearest := make(map[uint16]uint8)
	for y := 0; y < m.H; y++ {
		dst := m.Row(y)
		for x := range dst {
			c, _ := colorful.MakeColor(src.NRGBAAt(x, y))
			key := quantize(c)
			v, ok := nearest[key]
			if !ok {
				v = nearestColor(palette, dequantize(key).color())
				nearest[key] = v
			}
			dst[x] = v
		}
	}
	return nil
}

func nearestColor(palette []colorful.Color, c colorful.Color) uint8 {
	best, bestDist := 0, c.DistanceLab(palette[0])
	for i := 1; i < len(palette); i++ {
		if d := c.DistanceLab(palette[i]); d < bestDist {
			best, bestDist = i, d
		}
	}
	return uint8(best)
}
