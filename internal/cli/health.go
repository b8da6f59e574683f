package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// HealthOutput reports both detection backends.
type HealthOutput struct {
	Mode         string `json:"mode"`
	EnginePath   string `json:"engine_path,omitempty"`
	EngineError  string `json:"engine_error,omitempty"`
	ServiceURL   string `json:"service_url"`
	ServiceUp    bool   `json:"service_up"`
	ServiceError string `json:"service_error,omitempty"`
}

// Usable reports whether the configured mode has a backend to use.
func (h HealthOutput) Usable() bool {
	switch h.Mode {
	case "embedded":
		return h.EngineError == ""
	case "detached":
		return h.ServiceUp
	}
	return h.EngineError == "" || h.ServiceUp
}

func (h HealthOutput) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "mode: %s\n", h.Mode)
	if h.EngineError == "" {
		fmt.Fprintf(&b, "local engine: %s\n", h.EnginePath)
	} else {
		fmt.Fprintf(&b, "local engine: unavailable (%s)\n", h.EngineError)
	}
	if h.ServiceUp {
		fmt.Fprintf(&b, "service %s: up", h.ServiceURL)
	} else {
		fmt.Fprintf(&b, "service %s: down (%s)", h.ServiceURL, h.ServiceError)
	}
	return b.String()
}

// NewHealthCommand creates the health command.
func NewHealthCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the local engine and the network analysis service",
		Long: `Check both detection backends: whether the local engine can be found
and whether the network analysis service answers its health endpoint.

Exits with status 1 when the configured mode has no usable backend.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealth(rootOpts, cmd)
		},
	}
}

func runHealth(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	a, err := newApp(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	out := HealthOutput{Mode: a.cfg.Dispatch.Mode, ServiceURL: a.remote.BaseURL()}
	if path, err := a.bridge.EnginePath(); err != nil {
		out.EngineError = err.Error()
	} else {
		out.EnginePath = path
	}
	if err := a.remote.Health(cmd.Context()); err != nil {
		out.ServiceError = err.Error()
	} else {
		out.ServiceUp = true
	}

	if err := formatter.Success(out); err != nil {
		return err
	}
	if !out.Usable() {
		return NewExitError(ExitFailure, "no usable detection backend")
	}
	return nil
}
