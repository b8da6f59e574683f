package overlay

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/ironsheep/iris-tools-mcp/internal/wire"
)

// ErrNotLoaded is returned by operations that need a loaded result.
var ErrNotLoaded = errors.New("no detection result loaded")

var errNoImage = errors.New("no image loaded")

// State is a snapshot of the editor. Every event replaces the whole State;
// a State handed out is never changed afterwards.
type State struct {
	// Geometry is the working copy of the detection result.
	Geometry wire.DetectionResult `json:"geometry"`

	Selected Circle `json:"selected"`
	Mode     Mode   `json:"mode"`
	Dragging bool   `json:"dragging"`

	// Anchor is the last pointer position of the current drag, in native
	// pixels. Zero when not dragging.
	Anchor Point `json:"anchor"`
}

func (s State) clone() State {
	s.Geometry = s.Geometry.Clone()
	return s
}

// document is what Load installs: the image and the reset baseline. It is
// read-only once stored.
type document struct {
	baseline wire.DetectionResult
	image    image.Image
	native   Size
}

// Editor is the interactive two-circle editor.
//
// Events are expected one at a time; the host serializes them. Readers
// (State, Render) may run concurrently with events and always see a
// complete snapshot.
type Editor struct {
	state    atomic.Pointer[State]
	doc      atomic.Pointer[document]
	rendered atomic.Pointer[Size]

	observer Observer
	style    Style
	logger   *slog.Logger
}

// Option configures an Editor.
type Option func(*Editor)

// WithStyle sets the render style.
func WithStyle(s Style) Option {
	return func(e *Editor) { e.style = s }
}

// WithLogger sets the logger for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) { e.logger = l }
}

// NewEditor creates an empty editor. observer may be nil.
func NewEditor(observer Observer, opts ...Option) *Editor {
	e := &Editor{
		observer: observer,
		style:    DefaultStyle(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.state.Store(&State{})
	return e
}

// Loaded reports whether a result has been loaded.
func (e *Editor) Loaded() bool {
	return e.doc.Load() != nil
}

// State returns a copy of the current state.
func (e *Editor) State() State {
	return e.state.Load().clone()
}

// Baseline returns a copy of the result last passed to Load.
func (e *Editor) Baseline() (wire.DetectionResult, bool) {
	d := e.doc.Load()
	if d == nil {
		return wire.DetectionResult{}, false
	}
	return d.baseline.Clone(), true
}

// Image returns the loaded image, or nil.
func (e *Editor) Image() image.Image {
	if d := e.doc.Load(); d != nil {
		return d.image
	}
	return nil
}

// Load replaces the baseline, the image and the working state. The
// selection is cleared and the mode is kept. The baseline is stored as
// given, even when it violates the radius margin. img may be nil, in which
// case pointer coordinates are taken as native pixels.
func (e *Editor) Load(result wire.DetectionResult, img image.Image) State {
	d := &document{baseline: result.Clone(), image: img}
	if img != nil {
		b := img.Bounds()
		d.native = Size{W: float64(b.Dx()), H: float64(b.Dy())}
	}
	e.doc.Store(d)

	prev := e.state.Load()
	next := &State{Geometry: result.Clone(), Mode: prev.Mode}
	e.state.Store(next)

	e.logger.Debug("overlay loaded",
		"pupil_radius", result.PupilRadius, "iris_radius", result.IrisRadius,
		"width", d.native.W, "height", d.native.H)
	return next.clone()
}

// Resize sets the size the image is displayed at. Pointer events are given
// in that space. Zero for both restores native scaling.
func (e *Editor) Resize(w, h float64) error {
	if w < 0 || h < 0 || math.IsNaN(w) || math.IsNaN(h) || math.IsInf(w, 0) || math.IsInf(h, 0) {
		return fmt.Errorf("invalid rendered size %vx%v", w, h)
	}
	if (w == 0) != (h == 0) {
		return fmt.Errorf("invalid rendered size %vx%v", w, h)
	}
	e.rendered.Store(&Size{W: w, H: h})
	return nil
}

// RenderedSize returns the display size set by Resize, or the native size
// when none was set.
func (e *Editor) RenderedSize() Size {
	if s := e.rendered.Load(); s != nil && s.W > 0 {
		return *s
	}
	if d := e.doc.Load(); d != nil {
		return d.native
	}
	return Size{}
}

func (e *Editor) toNative(p Point) Point {
	d := e.doc.Load()
	if d == nil {
		return p
	}
	return toNative(p, d.native, e.RenderedSize())
}

// PointerDown grabs the circle whose outline is near p, given in rendered
// coordinates. The iris is tested before the pupil. A miss changes nothing.
func (e *Editor) PointerDown(p Point) State {
	cur := e.state.Load()
	if e.doc.Load() == nil {
		return cur.clone()
	}

	np := e.toNative(p)
	g := cur.Geometry

	var hit Circle
	switch {
	case nearOutline(np, g.IrisCenterX, g.IrisCenterY, g.IrisRadius):
		hit = CircleIris
	case nearOutline(np, g.PupilCenterX, g.PupilCenterY, g.PupilRadius):
		hit = CirclePupil
	default:
		return cur.clone()
	}

	next := *cur
	next.Selected = hit
	next.Dragging = true
	next.Anchor = np
	e.state.Store(&next)
	return next.clone()
}

// PointerMove updates the selected circle while dragging. In position mode
// the center follows the pointer; in radius mode the radius becomes the
// pointer's distance from the center, clamped to keep the margin.
func (e *Editor) PointerMove(p Point) State {
	cur := e.state.Load()
	if !cur.Dragging || cur.Selected == CircleNone {
		return cur.clone()
	}

	np := e.toNative(p)
	next := *cur
	g := &next.Geometry

	switch cur.Mode {
	case ModePosition:
		dx, dy := np.X-cur.Anchor.X, np.Y-cur.Anchor.Y
		if cur.Selected == CircleIris {
			g.IrisCenterX = round(g.IrisCenterX + dx)
			g.IrisCenterY = round(g.IrisCenterY + dy)
		} else {
			g.PupilCenterX = round(g.PupilCenterX + dx)
			g.PupilCenterY = round(g.PupilCenterY + dy)
		}
	case ModeRadius:
		if cur.Selected == CircleIris {
			g.IrisRadius = clampIris(round(dist(np, g.IrisCenterX, g.IrisCenterY)), g.PupilRadius)
		} else {
			g.PupilRadius = clampPupil(round(dist(np, g.PupilCenterX, g.PupilCenterY)), g.IrisRadius)
		}
	}
	next.Anchor = np

	e.state.Store(&next)
	return next.clone()
}

// PointerUp ends a drag and commits the geometry. Without a drag in
// progress it does nothing. The selection is kept.
func (e *Editor) PointerUp() State {
	return e.release()
}

// PointerLeave behaves like PointerUp.
func (e *Editor) PointerLeave() State {
	return e.release()
}

func (e *Editor) release() State {
	cur := e.state.Load()
	if !cur.Dragging {
		return cur.clone()
	}

	next := *cur
	next.Dragging = false
	next.Anchor = Point{}
	e.state.Store(&next)

	e.commit(next.Geometry)
	return next.clone()
}

// SetRadius sets a circle's radius directly, clamped to keep the margin,
// and commits immediately.
func (e *Editor) SetRadius(c Circle, r float64) (State, error) {
	cur := e.state.Load()
	if e.doc.Load() == nil {
		return cur.clone(), ErrNotLoaded
	}
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return cur.clone(), fmt.Errorf("invalid radius %v", r)
	}

	next := *cur
	switch c {
	case CircleIris:
		next.Geometry.IrisRadius = clampIris(r, cur.Geometry.PupilRadius)
	case CirclePupil:
		next.Geometry.PupilRadius = clampPupil(r, cur.Geometry.IrisRadius)
	default:
		return cur.clone(), fmt.Errorf("no circle given")
	}
	e.state.Store(&next)

	e.commit(next.Geometry)
	return next.clone(), nil
}

// Select selects a circle without committing.
func (e *Editor) Select(c Circle) State {
	cur := e.state.Load()
	next := *cur
	next.Selected = c
	e.state.Store(&next)
	return next.clone()
}

// SetMode switches between position and radius dragging without
// committing.
func (e *Editor) SetMode(m Mode) State {
	cur := e.state.Load()
	next := *cur
	next.Mode = m
	e.state.Store(&next)
	return next.clone()
}

// Reset restores the geometry loaded last and hands that exact result to
// the observer. Selection and mode are kept; a drag in progress is
// abandoned.
func (e *Editor) Reset() (State, error) {
	d := e.doc.Load()
	cur := e.state.Load()
	if d == nil {
		return cur.clone(), ErrNotLoaded
	}

	next := *cur
	next.Geometry = d.baseline.Clone()
	next.Dragging = false
	next.Anchor = Point{}
	e.state.Store(&next)

	e.commit(d.baseline)
	return next.clone(), nil
}

func (e *Editor) commit(g wire.DetectionResult) {
	e.logger.Debug("overlay commit",
		"pupil_x", g.PupilCenterX, "pupil_y", g.PupilCenterY, "pupil_radius", g.PupilRadius,
		"iris_x", g.IrisCenterX, "iris_y", g.IrisCenterY, "iris_radius", g.IrisRadius)
	if e.observer != nil {
		e.observer.OnCommit(g.Clone())
	}
}
