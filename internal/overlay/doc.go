// Package overlay implements the interactive iris/pupil overlay editor.
//
// An Editor holds a detection result loaded from the analyzer and lets a
// user correct it by dragging either circle, in position or radius mode, or
// by setting a radius directly. Pointer events arrive in rendered (display)
// coordinates and are mapped to native image pixels using the size given to
// Resize.
//
// The iris radius is kept at least Margin pixels larger than the pupil
// radius for every edit; a loaded result is taken as is. Finished edits are
// published to an Observer, never the intermediate states of a drag.
//
// Render draws the current state over a copy of the loaded image and has no
// side effects.
package overlay
