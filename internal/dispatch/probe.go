package dispatch

import (
	"context"
	"fmt"
	"strings"
)

// Route says which transport serves an analysis.
type Route int

const (
	// RouteEmbedded runs the engine as a local child process.
	RouteEmbedded Route = iota

	// RouteDetached posts the image to the network analysis service.
	RouteDetached
)

func (r Route) String() string {
	switch r {
	case RouteEmbedded:
		return "embedded"
	case RouteDetached:
		return "detached"
	}
	return fmt.Sprintf("Route(%d)", int(r))
}

// Mode is the configured routing policy.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeEmbedded Mode = "embedded"
	ModeDetached Mode = "detached"
)

// ParseMode converts a config string to a Mode. Empty means auto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeEmbedded, ModeDetached:
		return m, nil
	}
	return "", fmt.Errorf("unknown dispatch mode %q (want auto, embedded or detached)", s)
}

// Probe picks the route for one analysis.
type Probe interface {
	Route(ctx context.Context) Route
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context) Route

// Route calls f(ctx).
func (f ProbeFunc) Route(ctx context.Context) Route {
	return f(ctx)
}

// Fixed returns a Probe that always picks r.
func Fixed(r Route) Probe {
	return ProbeFunc(func(context.Context) Route { return r })
}

// enginePather is satisfied by *bridge.Bridge.
type enginePather interface {
	EnginePath() (string, error)
}

// DefaultProbe honours an explicit mode. In auto mode it picks the embedded
// route when the local engine can be located and the detached route
// otherwise. The engine is looked up again on every call.
func DefaultProbe(mode Mode, local enginePather) Probe {
	switch mode {
	case ModeEmbedded:
		return Fixed(RouteEmbedded)
	case ModeDetached:
		return Fixed(RouteDetached)
	}
	return ProbeFunc(func(context.Context) Route {
		if local == nil {
			return RouteDetached
		}
		if _, err := local.EnginePath(); err != nil {
			return RouteDetached
		}
		return RouteEmbedded
	})
}
