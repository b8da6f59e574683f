package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/anthonynsimon/bild/clone"
	"github.com/disintegration/imaging"
	"golang.org/x/image/vector"
)

// kappa places the control points of a cubic Bezier quarter circle.
const kappa = 0.5522847498

// Canvas returns a mutable RGBA copy of img with the same bounds. The source
// image is never modified.
func Canvas(img image.Image) *image.RGBA {
	return clone.AsRGBA(img)
}

// StrokeCircle draws an anti-aliased circle outline of the given stroke
// width, centred on the circle's radius, in native pixel coordinates.
func StrokeCircle(dst *image.RGBA, cx, cy, radius, width float64, c color.NRGBA) {
	if radius <= 0 || width <= 0 || c.A == 0 {
		return
	}
	b := dst.Bounds()
	if b.Empty() {
		return
	}

	z := vector.NewRasterizer(b.Dx(), b.Dy())
	x, y := float32(cx-float64(b.Min.X)), float32(cy-float64(b.Min.Y))

	outer := float32(radius + width/2)
	inner := float32(radius - width/2)

	// The inner circle is wound the other way so it cancels the outer
	// disk and leaves a ring.
	addCircle(z, x, y, outer, false)
	if inner > 0 {
		addCircle(z, x, y, inner, true)
	}
	z.Draw(dst, b, image.NewUniform(c), image.Point{})
}

// Crosshair draws a plus sign of the given half-length and line width.
func Crosshair(dst *image.RGBA, cx, cy, halfLength, width float64, c color.NRGBA) {
	if halfLength <= 0 || width <= 0 || c.A == 0 {
		return
	}
	b := dst.Bounds()
	if b.Empty() {
		return
	}

	z := vector.NewRasterizer(b.Dx(), b.Dy())
	x, y := cx-float64(b.Min.X), cy-float64(b.Min.Y)
	hw := width / 2

	addRect(z, x-halfLength, y-hw, x+halfLength, y+hw)
	addRect(z, x-hw, y-halfLength, x+hw, y+halfLength)
	z.Draw(dst, b, image.NewUniform(c), image.Point{})
}

func addCircle(z *vector.Rasterizer, cx, cy, r float32, reverse bool) {
	k := float32(kappa) * r
	z.MoveTo(cx+r, cy)
	if !reverse {
		z.CubeTo(cx+r, cy+k, cx+k, cy+r, cx, cy+r)
		z.CubeTo(cx-k, cy+r, cx-r, cy+k, cx-r, cy)
		z.CubeTo(cx-r, cy-k, cx-k, cy-r, cx, cy-r)
		z.CubeTo(cx+k, cy-r, cx+r, cy-k, cx+r, cy)
	} else {
		z.CubeTo(cx+r, cy-k, cx+k, cy-r, cx, cy-r)
		z.CubeTo(cx-k, cy-r, cx-r, cy-k, cx-r, cy)
		z.CubeTo(cx-r, cy+k, cx-k, cy+r, cx, cy+r)
		z.CubeTo(cx+k, cy+r, cx+r, cy+k, cx+r, cy)
	}
	z.ClosePath()
}

func addRect(z *vector.Rasterizer, x0, y0, x1, y1 float64) {
	z.MoveTo(float32(x0), float32(y0))
	z.LineTo(float32(x1), float32(y0))
	z.LineTo(float32(x1), float32(y1))
	z.LineTo(float32(x0), float32(y1))
	z.ClosePath()
}

// EncodedImage is a PNG ready to be returned over JSON.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG encodes img as base64 PNG. A scale other than 0 or 1 resizes
// the image by that factor first.
func EncodePNG(img image.Image, scale float64) (*EncodedImage, error) {
	img = scaled(img, scale)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	b := img.Bounds()
	return &EncodedImage{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// WritePNG writes img as PNG to w, scaled like EncodePNG.
func WritePNG(w io.Writer, img image.Image, scale float64) error {
	if err := imaging.Encode(w, scaled(img, scale), imaging.PNG); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}

func scaled(img image.Image, scale float64) image.Image {
	if scale <= 0 || scale == 1.0 {
		return img
	}
	b := img.Bounds()
	w := max(1, int(float64(b.Dx())*scale))
	h := max(1, int(float64(b.Dy())*scale))
	return imaging.Resize(img, w, h, imaging.Lanczos)
}
