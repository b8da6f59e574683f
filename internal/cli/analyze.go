package cli

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ironsheep/iris-tools-mcp/internal/bridge"
	"github.com/ironsheep/iris-tools-mcp/internal/dispatch"
	"github.com/ironsheep/iris-tools-mcp/internal/imaging"
	"github.com/ironsheep/iris-tools-mcp/internal/wire"
)

// AnalysisOutput is what analyze prints.
type AnalysisOutput struct {
	Image      string               `json:"image"`
	Result     wire.DetectionResult `json:"result"`
	Confidence string               `json:"confidence"`
	Band       dispatch.Band        `json:"band"`
}

func (o AnalysisOutput) String() string {
	r := o.Result
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", o.Image)
	fmt.Fprintf(&b, "  pupil: center (%g, %g) radius %g\n", r.PupilCenterX, r.PupilCenterY, r.PupilRadius)
	fmt.Fprintf(&b, "  iris:  center (%g, %g) radius %g\n", r.IrisCenterX, r.IrisCenterY, r.IrisRadius)
	fmt.Fprintf(&b, "  confidence: %s (%s)", o.Confidence, o.Band)
	if o.Band == dispatch.BandLow {
		b.WriteString("\n  low confidence: check the circles before relying on them")
	}
	return b.String()
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <image>",
		Short: "Detect the pupil and iris in an image",
		Long: `Detect the pupil and the iris in an eye image and print the circles.

The analysis runs on the local engine or the network service depending on
the configured dispatch mode. A rejected image exits with status 1 and
lists what to check in the photo.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(rootOpts, args[0], cmd)
		},
	}
}

func runAnalyze(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	a, err := newApp(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	result, _, err := analyzeFile(cmd.Context(), a, formatter, path, false)
	if err != nil {
		return err
	}

	return formatter.Success(AnalysisOutput{
		Image:      path,
		Result:     result,
		Confidence: dispatch.ConfidencePercent(result),
		Band:       dispatch.BandOf(result),
	})
}

// analyzeFile reads the image at path and runs one analysis. With decode
// set the image is also decoded for drawing. Analysis failures are printed
// through formatter and returned as an ExitError.
func analyzeFile(ctx context.Context, a *app, formatter *OutputFormatter, path string, decode bool) (wire.DetectionResult, image.Image, error) {
	raw, mimeType, err := imaging.ReadImageFile(path)
	if err != nil {
		formatter.Error("READ_FAILED", err.Error(), nil)
		return wire.DetectionResult{}, nil, WrapExitError(ExitCommandError, "failed to read image", err)
	}

	var img image.Image
	if decode {
		if img, err = imaging.DecodeBytes(raw); err != nil {
			formatter.Error("DECODE_FAILED", err.Error(), nil)
			return wire.DetectionResult{}, nil, WrapExitError(ExitCommandError, "failed to decode image", err)
		}
	}

	formatter.VerboseLog("Analyzing %s (%s, %d bytes)", path, mimeType, len(raw))
	result, err := a.processor.ProcessImage(ctx, wire.NewDataURI(mimeType, raw))
	if err != nil {
		notice := dispatch.Explain(err)
		code := string(notice.Kind)
		if code == "" {
			code = "ANALYSIS_FAILED"
		}
		var details interface{}
		if formatter.Format == "json" {
			details = notice
		}
		formatter.Error(code, notice.String(), details)
		if bridge.IsRejection(err) {
			return wire.DetectionResult{}, nil, WrapExitError(ExitFailure, "image rejected", err)
		}
		return wire.DetectionResult{}, nil, WrapExitError(ExitFailure, "analysis failed", err)
	}
	return result, img, nil
}
