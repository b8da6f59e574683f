package dispatch

import (
	"context"
	"log/slog"
	"reflect"

	"github.com/ironsheep/iris-tools-mcp/internal/bridge"
	"github.com/ironsheep/iris-tools-mcp/internal/wire"
)

// Analyzer turns a payload into a detection result. *bridge.Bridge and
// *Remote both implement it.
type Analyzer interface {
	Analyze(ctx context.Context, payload wire.Payload) (wire.DetectionResult, error)
}

// Processor routes each analysis to the embedded or the detached transport.
type Processor struct {
	probe    Probe
	embedded Analyzer
	detached Analyzer
	logger   *slog.Logger
}

// NewProcessor creates a Processor. A nil transport, typed or not, makes its
// route fail with a KindEngineNotFound or KindTransport error.
func NewProcessor(probe Probe, embedded, detached Analyzer, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		probe:    probe,
		embedded: orNil(embedded),
		detached: orNil(detached),
		logger:   logger,
	}
}

// ProcessImage asks the probe for a route, once per call, and analyses
// payload over that route.
func (p *Processor) ProcessImage(ctx context.Context, payload wire.Payload) (wire.DetectionResult, error) {
	route := p.probe.Route(ctx)
	p.logger.Debug("dispatching analysis", "route", route.String(), "payload_bytes", len(payload))

	switch route {
	case RouteEmbedded:
		if p.embedded == nil {
			return wire.DetectionResult{}, bridge.NewNotFoundError(nil)
		}
		return p.embedded.Analyze(ctx, payload)
	default:
		if p.detached == nil {
			return wire.DetectionResult{}, bridge.NewTransportError(0, "no analysis service configured", nil)
		}
		return p.detached.Analyze(ctx, payload)
	}
}

// Health checks the detached service. It is for diagnostics only and is
// never consulted on the analysis path.
func (p *Processor) Health(ctx context.Context) error {
	hc, ok := p.detached.(interface {
		Health(ctx context.Context) error
	})
	if !ok {
		return bridge.NewTransportError(0, "no analysis service configured", nil)
	}
	return hc.Health(ctx)
}

// orNil turns a nil pointer held in an Analyzer into a nil Analyzer.
func orNil(a Analyzer) Analyzer {
	if a == nil {
		return nil
	}
	if v := reflect.ValueOf(a); v.Kind() == reflect.Pointer && v.IsNil() {
		return nil
	}
	return a
}
