package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ironsheep/iris-tools-mcp/internal/httpapi"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP on stdin/stdout (the default)",
		Long: `Serve the Model Context Protocol over stdin/stdout.

Requests are read one per line and handled in order. Logs go to stderr.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd)
		},
	}
}

func runServe(opts *RootOptions, cmd *cobra.Command) error {
	a, err := newApp(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.logger.Debug("starting MCP server",
		"version", opts.Build.Version, "built", opts.Build.BuildTime, "commit", opts.Build.GitCommit,
		"mode", a.cfg.Dispatch.Mode)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := a.mcpServer(opts.Build.Version)
	if err := srv.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil && ctx.Err() == nil {
		return WrapExitError(ExitFailure, "server error", err)
	}
	return nil
}

type serveHTTPOptions struct {
	addr string
}

// NewServeHTTPCommand creates the serve-http command.
func NewServeHTTPCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &serveHTTPOptions{}

	cmd := &cobra.Command{
		Use:   "serve-http",
		Short: "Serve the local detection engine over HTTP",
		Long: `Serve the local detection engine as the network analysis service.

Endpoints:
  GET  /api/health
  POST /api/process-base64   {"imageData": "data:image/...;base64,..."}
  POST /api/process-file     multipart form, image in field "image"

Other iris-mcp instances reach this service in detached mode.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeHTTP(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config, :8080)")

	return cmd
}

func runServeHTTP(rootOpts *RootOptions, opts *serveHTTPOptions, cmd *cobra.Command) error {
	a, err := newApp(rootOpts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	addr := opts.addr
	if addr == "" {
		addr = a.cfg.HTTP.Addr
	}
	if path, err := a.bridge.EnginePath(); err != nil {
		a.logger.Warn("detection engine not found; analyses will fail until it is installed", "error", err)
	} else {
		a.logger.Info("using detection engine", "path", path)
	}

	api := httpapi.NewServer(a.bridge, httpapi.Config{
		AllowedOrigins: a.cfg.HTTP.AllowedOrigins,
		MaxBodyBytes:   a.cfg.HTTP.MaxBodyBytes,
		Logger:         a.logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := api.ListenAndServe(ctx, addr); err != nil {
		return WrapExitError(ExitFailure, "HTTP server error", err)
	}
	return nil
}
