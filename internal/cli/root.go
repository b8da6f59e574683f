// Package cli implements the iris-mcp command line.
//
// Running iris-mcp with no subcommand starts the MCP server on stdio, which
// is how MCP clients launch it. The other subcommands analyse a single
// image, render its overlay, check the detection backends and serve the
// engine over HTTP.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// BuildInfo describes the running binary. Its values are set by ldflags
// in package main.
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	Build BuildInfo
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command. Its own action is serve.
func NewRootCommand(build BuildInfo) *cobra.Command {
	opts := &RootOptions{Build: build}
	if opts.Build.Version == "" {
		opts.Build.Version = "dev"
	}

	cmd := &cobra.Command{
		Use:   "iris-mcp",
		Short: "Pupil and iris detection over MCP",
		Long: `iris-mcp detects the pupil and the iris in eye images and lets an MCP
client correct the detected circles in an interactive overlay editor.

With no subcommand it serves MCP (JSON-RPC 2.0) on stdin/stdout.
Configure it in your MCP client (e.g., Claude Desktop).

Environment variables (IRIS_MCP_ prefix) override the config file, e.g.
  IRIS_MCP_LOG_LEVEL=debug    Enable debug logging
  IRIS_MCP_MODE=detached      Always use the network analysis service`,
		Version:       opts.Build.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}
	cmd.SetVersionTemplate(versionText(opts.Build) + "\n")

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output and debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML or JSON config file")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewServeHTTPCommand(opts))
	cmd.AddCommand(NewAnalyzeCommand(opts))
	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewHealthCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
