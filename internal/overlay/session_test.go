package overlay

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/iris-tools-mcp/internal/wire"
)

// TestEditingSession replays a full editing session on a scaled display and
// checks every published commit plus the final state.
func TestEditingSession(t *testing.T) {
	rec := &Recorder{}
	e := NewEditor(rec)
	e.Load(concentric(), blankImage(200, 200))
	require.NoError(t, e.Resize(400, 400))

	// Move the iris 5px down and right.
	e.PointerDown(Point{X: 320, Y: 200})
	e.PointerMove(Point{X: 330, Y: 210})
	e.PointerUp()

	// Grow the pupil past the margin, then drop the pointer off the canvas.
	e.SetMode(ModeRadius)
	e.PointerDown(Point{X: 240, Y: 200})
	e.PointerMove(Point{X: 270, Y: 200})
	e.PointerMove(Point{X: 340, Y: 200})
	e.PointerLeave()

	// Shrink the iris below the margin by value, then set the pupil.
	e.Select(CircleIris)
	_, err := e.SetRadius(CircleIris, 30)
	require.NoError(t, err)
	_, err = e.SetRadius(CirclePupil, 12.5)
	require.NoError(t, err)

	_, err = e.Reset()
	require.NoError(t, err)

	trace := struct {
		Commits []wire.DetectionResult `json:"commits"`
		Final   State                  `json:"final"`
	}{
		Commits: rec.Commits(),
		Final:   e.State(),
	}

	g := goldie.New(t)
	g.AssertJson(t, "editing_session", trace)
}
