package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// ROI is a rectangular region of interest. (X1, Y1) is inclusive and
// (X2, Y2) exclusive.
type ROI struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Rect returns the ROI as an image.Rectangle.
func (r ROI) Rect() image.Rectangle { return image.Rect(r.X1, r.Y1, r.X2, r.Y2) }

// Validate checks that r is non-empty and lies inside bounds.
func (r ROI) Validate(bounds image.Rectangle) error {
	if r.X1 >= r.X2 || r.Y1 >= r.Y2 {
		return fmt.Errorf("invalid roi: x1 must be < x2, y1 must be < y2")
	}
	if !r.Rect().In(bounds) {
		return fmt.Errorf("roi (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			r.X1, r.Y1, r.X2, r.Y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	return nil
}

// NamedROI returns the ROI called name within an image of the given bounds.
//
// Supported names are the quadrants ("top-left", "top-right", "bottom-left",
// "bottom-right"), the halves ("top-half", "bottom-half", "left-half",
// "right-half"), "center" (the middle half in both directions) and "full".
// Odd sizes give the extra row or column to the right and bottom parts.
func NamedROI(bounds image.Rectangle, name string) (ROI, error) {
	w, h := bounds.Dx(), bounds.Dy()
	midX, midY := w/2, h/2

	var r ROI
	switch name {
	case "full":
		r = ROI{0, 0, w, h}
	case "top-left":
		r = ROI{0, 0, midX, midY}
	case "top-right":
		r = ROI{midX, 0, w, midY}
	case "bottom-left":
		r = ROI{0, midY, midX, h}
	case "bottom-right":
		r = ROI{midX, midY, w, h}
	case "top-half":
		r = ROI{0, 0, w, midY}
	case "bottom-half":
		r = ROI{0, midY, w, h}
	case "left-half":
		r = ROI{0, 0, midX, h}
	case "right-half":
		r = ROI{midX, 0, w, h}
	case "center":
		qW, qH := w/4, h/4
		r = ROI{qW, qH, w - qW, h - qH}
	default:
		return ROI{}, fmt.Errorf("unknown roi: %s", name)
	}

	r.X1 += bounds.Min.X
	r.X2 += bounds.Min.X
	r.Y1 += bounds.Min.Y
	r.Y2 += bounds.Min.Y
	return r, nil
}

// Prepare crops img to roi, if given, and scales the result by scale.
//
// Scaling uses nearest-neighbour sampling so that no new colours appear at
// class boundaries. A scale of 0 or 1 leaves the size unchanged. The
// returned image always has its origin at (0, 0).
func Prepare(img image.Image, roi *ROI, scale float64) (*image.NRGBA, error) {
	if scale < 0 {
		return nil, fmt.Errorf("invalid scale %g: must not be negative", scale)
	}

	var out *image.NRGBA
	if roi != nil {
		if err := roi.Validate(img.Bounds()); err != nil {
			return nil, err
		}
		out = imaging.Crop(img, roi.Rect())
	} else {
		out = imaging.Clone(img)
	}

	if scale != 0 && scale != 1 {
		w := int(float64(out.Bounds().Dx()) * scale)
		h := int(float64(out.Bounds().Dy()) * scale)
		if w < 1 || h < 1 {
			return nil, fmt.Errorf("scale %g reduces the image to %dx%d", scale, w, h)
		}
		out = imaging.Resize(out, w, h, imaging.NearestNeighbor)
	}
	return out, nil
}

// EncodedImage is a PNG image in base64 form.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG encodes img as a base64 PNG.
func EncodePNG(img image.Image) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return &EncodedImage{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
