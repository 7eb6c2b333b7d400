package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/region-tools-mcp/internal/detection"
)

func TestDominantColors(t *testing.T) {
	// 80% red, 20% green
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			if x < 80 {
				img.Set(x, y, color.RGBA{255, 0, 0, 255})
			} else {
				img.Set(x, y, color.RGBA{0, 255, 0, 255})
			}
		}
	}

	result, err := DominantColors(img, 5, nil)
	if err != nil {
		t.Fatalf("DominantColors failed: %v", err)
	}
	if len(result.Colors) != 2 {
		t.Fatalf("expected 2 colors, got %d", len(result.Colors))
	}

	// 255/16*16 = 240 -> F0
	first := result.Colors[0]
	if first.Hex != "#F00000" || first.Percentage != 80 {
		t.Errorf("first color: got %s at %.1f%%, want #F00000 at 80%%", first.Hex, first.Percentage)
	}
	if first.RGB != (RGBColor{R: 0xF0}) {
		t.Errorf("first RGB: got %+v", first.RGB)
	}
	if result.Colors[1].Hex != "#00F000" {
		t.Errorf("second color: got %s, want #00F000", result.Colors[1].Hex)
	}
}

func TestDominantColors_WithROI(t *testing.T) {
	img := createPatternImage(100, 100)

	result, err := DominantColors(img, 5, &ROI{X1: 0, Y1: 0, X2: 50, Y2: 50})
	if err != nil {
		t.Fatalf("DominantColors with roi failed: %v", err)
	}
	if len(result.Colors) != 1 || result.Colors[0].Percentage != 100 {
		t.Errorf("expected only red in top-left quadrant, got %+v", result.Colors)
	}
}

func TestDominantColors_StableTies(t *testing.T) {
	img := createPatternImage(10, 10)

	result, err := DominantColors(img, 2, nil)
	if err != nil {
		t.Fatalf("DominantColors failed: %v", err)
	}
	// four colours with 25% each are ordered by hex
	if len(result.Colors) != 2 || result.Colors[0].Hex != "#0000F0" || result.Colors[1].Hex != "#00F000" {
		t.Errorf("unexpected colours: %+v", result.Colors)
	}
}

func TestDominantColors_SkipsTransparent(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 1))
	img.SetNRGBA(0, 0, color.NRGBA{0, 0, 255, 255})

	result, err := DominantColors(img, 3, nil)
	if err != nil {
		t.Fatalf("DominantColors failed: %v", err)
	}
	if len(result.Colors) != 1 || result.Colors[0].Percentage != 100 {
		t.Errorf("expected a single opaque colour, got %+v", result.Colors)
	}
}

func TestDominantColors_Invalid(t *testing.T) {
	img := createInMemoryImage(10, 10, color.RGBA{128, 128, 128, 255})

	if _, err := DominantColors(img, 0, nil); err == nil {
		t.Error("DominantColors should fail for a zero count")
	}
	if _, err := DominantColors(img, 3, &ROI{0, 0, 20, 20}); err == nil {
		t.Error("DominantColors should fail for a roi outside the image")
	}
}

func TestMeanColor(t *testing.T) {
	img := createPatternImage(10, 10)

	tests := []struct {
		name  string
		spans []detection.Span
		want  string
	}{
		{"red", []detection.Span{{Y: 0, X: 0, XEnd: 5}, {Y: 4, X: 2, XEnd: 3}}, "#FF0000"},
		{"white", []detection.Span{{Y: 9, X: 5, XEnd: 10}}, "#FFFFFF"},
		// linear light average of full red and full green
		{"red and green", []detection.Span{{Y: 0, X: 4, XEnd: 6}}, "#BCBC00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MeanColor(img, tt.spans)
			if err != nil {
				t.Fatalf("MeanColor failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMeanColor_Errors(t *testing.T) {
	img := createPatternImage(10, 10)

	if _, err := MeanColor(img, []detection.Span{{Y: 10, X: 0, XEnd: 1}}); err == nil {
		t.Error("MeanColor should fail for a span below the image")
	}
	if _, err := MeanColor(img, []detection.Span{{Y: 0, X: 8, XEnd: 11}}); err == nil {
		t.Error("MeanColor should fail for a span past the right edge")
	}
	if _, err := MeanColor(img, nil); err == nil {
		t.Error("MeanColor should fail without pixels")
	}
}
