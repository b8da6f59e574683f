package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// CircleBounds returns the bounding box of a circle padded by margin pixels
// and clipped to bounds.
func CircleBounds(bounds image.Rectangle, cx, cy, r float64, margin int) image.Rectangle {
	pad := r + float64(margin)
	box := image.Rect(
		int(math.Floor(cx-pad)),
		int(math.Floor(cy-pad)),
		int(math.Ceil(cx+pad)),
		int(math.Ceil(cy+pad)),
	)
	return box.Intersect(bounds)
}

// CropCircle extracts the region around a circle, used to zoom a render onto
// the iris. The result starts at (0,0).
func CropCircle(img image.Image, cx, cy, r float64, margin int) (image.Image, error) {
	if r <= 0 {
		return nil, fmt.Errorf("invalid crop radius %v", r)
	}
	box := CircleBounds(img.Bounds(), cx, cy, r, margin)
	if box.Empty() {
		return nil, fmt.Errorf("circle at (%.1f,%.1f) r=%.1f lies outside the image", cx, cy, r)
	}
	return imaging.Crop(img, box), nil
}
