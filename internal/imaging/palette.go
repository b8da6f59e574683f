package imaging

import (
	"fmt"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Default overlay colours.
const (
	DefaultIrisColor      = "#ff0000"
	DefaultPupilColor     = "#00ff00"
	DefaultCrosshairColor = "#ffffff"
)

// Palette holds the opaque stroke colours of the overlay. Alpha is applied
// per stroke.
type Palette struct {
	Iris      colorful.Color
	Pupil     colorful.Color
	Crosshair colorful.Color
}

// DefaultPalette returns red for the iris, green for the pupil and white
// for the crosshair.
func DefaultPalette() Palette {
	p, _ := ParsePalette(DefaultIrisColor, DefaultPupilColor, DefaultCrosshairColor)
	return p
}

// ParsePalette parses "#rrggbb" colours. Empty strings keep the default.
func ParsePalette(iris, pupil, crosshair string) (Palette, error) {
	var p Palette
	var err error

	if p.Iris, err = parseHexColor(iris, DefaultIrisColor); err != nil {
		return Palette{}, fmt.Errorf("iris color: %w", err)
	}
	if p.Pupil, err = parseHexColor(pupil, DefaultPupilColor); err != nil {
		return Palette{}, fmt.Errorf("pupil color: %w", err)
	}
	if p.Crosshair, err = parseHexColor(crosshair, DefaultCrosshairColor); err != nil {
		return Palette{}, fmt.Errorf("crosshair color: %w", err)
	}
	return p, nil
}

func parseHexColor(hex, fallback string) (colorful.Color, error) {
	if hex == "" {
		hex = fallback
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	return c, nil
}

// WithAlpha converts c to a non-premultiplied colour with the given opacity
// in [0, 1].
func WithAlpha(c colorful.Color, alpha float64) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	a := math.Max(0, math.Min(1, alpha))
	return color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(a * 255))}
}
