package dispatch

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ironsheep/iris-tools-mcp/internal/bridge"
	"github.com/ironsheep/iris-tools-mcp/internal/wire"
)

// HighConfidence is the eye confidence above which a detection is treated
// as reliable.
const HighConfidence = 0.7

// Notice is the user-facing rendering of a failed analysis.
type Notice struct {
	Kind    bridge.Kind `json:"kind"`
	Title   string      `json:"title"`
	Message string      `json:"message"`

	// Guidance lists what the user can change, for rejections only.
	Guidance []string `json:"guidance,omitempty"`

	// Diagnostics carries captured engine output, for system failures only.
	Diagnostics string `json:"diagnostics,omitempty"`
}

// String renders the notice as plain text.
func (n Notice) String() string {
	var b strings.Builder
	b.WriteString(n.Title)
	if n.Message != "" {
		b.WriteString(": ")
		b.WriteString(n.Message)
	}
	for _, g := range n.Guidance {
		b.WriteString("\n  - ")
		b.WriteString(g)
	}
	if n.Diagnostics != "" {
		b.WriteString("\n")
		b.WriteString(n.Diagnostics)
	}
	return b.String()
}

var notAnEyeGuidance = []string{
	"The iris is clearly visible",
	"The pupil is clearly visible",
	"The image has good lighting and focus",
	"The eye is open",
}

// Explain turns any analysis error into a Notice. Domain rejections get
// remediation guidance; everything else gets a generic message plus the
// engine's diagnostics.
func Explain(err error) Notice {
	var be *bridge.Error
	if !errors.As(err, &be) {
		msg := ""
		if err != nil {
			msg = err.Error()
		}
		return Notice{Title: "Error processing image", Message: msg}
	}

	switch be.Kind {
	case bridge.KindRejected:
		n := Notice{
			Kind:    be.Kind,
			Title:   "Not an eye image",
			Message: "The uploaded image does not appear to contain a human eye. Please upload a clear image of an eye.",
		}
		if be.Code == wire.ErrorCodeNotAnEye {
			n.Guidance = append([]string(nil), notAnEyeGuidance...)
		} else {
			n.Title = "Image rejected"
			n.Message = strings.TrimSpace(be.Code + " " + be.Message)
		}
		return n

	case bridge.KindEngineNotFound:
		return Notice{
			Kind:        be.Kind,
			Title:       "Detection engine not found",
			Message:     "The analysis engine is not installed where expected.",
			Diagnostics: "checked:\n  " + strings.Join(be.Checked, "\n  "),
		}

	case bridge.KindTimeout:
		return Notice{
			Kind:    be.Kind,
			Title:   "Analysis timed out",
			Message: fmt.Sprintf("The engine did not respond within %s.", be.Deadline),
		}

	case bridge.KindCanceled:
		return Notice{Kind: be.Kind, Title: "Analysis canceled"}

	case bridge.KindTransport:
		return Notice{Kind: be.Kind, Title: "Error processing image", Message: be.Message}
	}

	diag := strings.TrimSpace(be.Stderr)
	if diag == "" {
		diag = strings.TrimSpace(be.Raw)
	}
	if diag == "" && be.Err != nil {
		diag = be.Err.Error()
	}
	return Notice{
		Kind:        be.Kind,
		Title:       "Error processing image",
		Message:     be.Message,
		Diagnostics: diag,
	}
}

// Band classifies an eye confidence.
type Band string

const (
	BandHigh    Band = "high"
	BandLow     Band = "low"
	BandUnknown Band = "unknown"
)

// ConfidenceBand marks confidence above HighConfidence as high.
func ConfidenceBand(c float64) Band {
	if c > HighConfidence {
		return BandHigh
	}
	return BandLow
}

// BandOf bands the confidence of r. A missing confidence is unknown.
func BandOf(r wire.DetectionResult) Band {
	c, ok := r.Confidence()
	if !ok {
		return BandUnknown
	}
	return ConfidenceBand(c)
}

// ConfidencePercent formats the confidence as a whole percentage.
func ConfidencePercent(r wire.DetectionResult) string {
	c, ok := r.Confidence()
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%d%%", int(math.Round(c*100)))
}
