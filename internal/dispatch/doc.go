// Package dispatch decides, per analysis, whether the detection engine runs
// as a local child process (embedded) or behind the network analysis service
// (detached), and renders failures for the user.
//
// The decision is made by an injected Probe, called exactly once per
// ProcessImage call and never cached, so tests can force either route
// without a real host environment.
package dispatch
