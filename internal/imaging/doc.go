// Package imaging provides the raster operations behind the overlay editor.
//
// It decodes eye images (PNG, JPEG, GIF and WebP, with EXIF orientation
// applied), caches decoded images by path, draws anti-aliased circle strokes
// and crosshairs onto an RGBA copy of an image, and encodes results as
// base64 PNG.
//
// # Coordinate System
//
// Drawing takes coordinates in native image pixels, the same space the
// detection engine reports in. (0,0) is the top-left corner of the image,
// X increases rightward and Y increases downward. Coordinates are continuous:
// the pixel (x, y) covers the unit square from (x, y) to (x+1, y+1).
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Drawing functions mutate
// only the canvas they are given; the source image passed to Canvas is never
// modified.
package imaging
