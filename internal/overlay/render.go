package overlay

import (
	"image"

	"github.com/ironsheep/iris-tools-mcp/internal/imaging"
)

// Style controls how the overlay is drawn.
type Style struct {
	Palette imaging.Palette

	StrokeWidth   float64
	StrokeAlpha   float64
	SelectedWidth float64
	SelectedAlpha float64

	CrosshairHalfLength float64
	CrosshairWidth      float64
}

// DefaultStyle draws unselected circles 2px wide at 60% opacity, the
// selected one 3px wide and opaque, and a 1px crosshair 10px each way.
func DefaultStyle() Style {
	return Style{
		Palette:             imaging.DefaultPalette(),
		StrokeWidth:         2,
		StrokeAlpha:         0.6,
		SelectedWidth:       3,
		SelectedAlpha:       1.0,
		CrosshairHalfLength: 10,
		CrosshairWidth:      1,
	}
}

// Draw renders s over a copy of img. The pupil is drawn first so the iris
// ends up on top. img is not modified.
func Draw(img image.Image, s State, style Style) *image.RGBA {
	canvas := imaging.Canvas(img)
	g := s.Geometry

	pupilWidth, pupilAlpha := style.stroke(s.Selected == CirclePupil)
	imaging.StrokeCircle(canvas, g.PupilCenterX, g.PupilCenterY, g.PupilRadius,
		pupilWidth, imaging.WithAlpha(style.Palette.Pupil, pupilAlpha))

	irisWidth, irisAlpha := style.stroke(s.Selected == CircleIris)
	imaging.StrokeCircle(canvas, g.IrisCenterX, g.IrisCenterY, g.IrisRadius,
		irisWidth, imaging.WithAlpha(style.Palette.Iris, irisAlpha))

	var cx, cy float64
	switch s.Selected {
	case CircleIris:
		cx, cy = g.IrisCenterX, g.IrisCenterY
	case CirclePupil:
		cx, cy = g.PupilCenterX, g.PupilCenterY
	default:
		return canvas
	}
	imaging.Crosshair(canvas, cx, cy, style.CrosshairHalfLength, style.CrosshairWidth,
		imaging.WithAlpha(style.Palette.Crosshair, 1))
	return canvas
}

func (s Style) stroke(selected bool) (width, alpha float64) {
	if selected {
		return s.SelectedWidth, s.SelectedAlpha
	}
	return s.StrokeWidth, s.StrokeAlpha
}

// Render draws the current state over the loaded image. It never changes
// the editor's state.
func (e *Editor) Render() (*image.RGBA, error) {
	d := e.doc.Load()
	if d == nil {
		return nil, ErrNotLoaded
	}
	if d.image == nil {
		return nil, errNoImage
	}
	return Draw(d.image, *e.state.Load(), e.style), nil
}
