package overlay

import (
	"fmt"
	"math"
	"strings"
)

// Margin is the minimum gap between the iris and pupil radii.
const Margin = 10.0

// HitTolerance is how close, in native pixels, a pointer must be to a
// circle's outline to grab it.
const HitTolerance = 10.0

// Circle identifies one of the two overlay circles.
type Circle int

const (
	CircleNone Circle = iota
	CircleIris
	CirclePupil
)

func (c Circle) String() string {
	switch c {
	case CircleIris:
		return "iris"
	case CirclePupil:
		return "pupil"
	}
	return "none"
}

// MarshalText encodes the circle by name.
func (c Circle) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a circle name.
func (c *Circle) UnmarshalText(b []byte) error {
	v, err := ParseCircle(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ParseCircle converts "iris", "pupil" or "none" to a Circle.
func ParseCircle(s string) (Circle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "iris":
		return CircleIris, nil
	case "pupil":
		return CirclePupil, nil
	case "none", "":
		return CircleNone, nil
	}
	return CircleNone, fmt.Errorf("unknown circle %q (want iris or pupil)", s)
}

// Mode is what a drag changes.
type Mode int

const (
	// ModePosition drags move the selected circle's center.
	ModePosition Mode = iota

	// ModeRadius drags resize the selected circle.
	ModeRadius
)

func (m Mode) String() string {
	if m == ModeRadius {
		return "radius"
	}
	return "position"
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseMode converts "position" or "radius" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "position", "move":
		return ModePosition, nil
	case "radius", "resize":
		return ModeRadius, nil
	}
	return ModePosition, fmt.Errorf("unknown mode %q (want position or radius)", s)
}

// Point is a 2D position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width and height.
type Size struct {
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// round sends halves up, also for negative values.
func round(x float64) float64 {
	return math.Floor(x + 0.5)
}

func dist(p Point, cx, cy float64) float64 {
	return math.Hypot(p.X-cx, p.Y-cy)
}

// nearOutline reports whether p lies strictly within HitTolerance of the
// circle's outline.
func nearOutline(p Point, cx, cy, r float64) bool {
	return math.Abs(dist(p, cx, cy)-r) < HitTolerance
}

// clampIris floors an iris radius at pupil + Margin.
func clampIris(r, pupil float64) float64 {
	return math.Max(r, pupil+Margin)
}

// clampPupil ceils a pupil radius at iris - Margin.
func clampPupil(r, iris float64) float64 {
	return math.Min(r, iris-Margin)
}

// toNative maps a point in rendered (screen) coordinates to native image
// pixels, scaling each axis by native/rendered. A zero size on either side
// leaves that axis unscaled.
func toNative(p Point, native, rendered Size) Point {
	if native == rendered {
		return p
	}
	out := p
	if native.W > 0 && rendered.W > 0 {
		out.X = p.X * native.W / rendered.W
	}
	if native.H > 0 && rendered.H > 0 {
		out.Y = p.Y * native.H / rendered.H
	}
	return out
}
