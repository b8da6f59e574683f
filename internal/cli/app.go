package cli

import (
	"io"
	"log/slog"

	"github.com/ironsheep/iris-tools-mcp/internal/bridge"
	"github.com/ironsheep/iris-tools-mcp/internal/config"
	"github.com/ironsheep/iris-tools-mcp/internal/dispatch"
	"github.com/ironsheep/iris-tools-mcp/internal/overlay"
	"github.com/ironsheep/iris-tools-mcp/internal/server"
)

// app is the wired object graph shared by the subcommands.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	bridge    *bridge.Bridge
	remote    *dispatch.Remote
	processor *dispatch.Processor
	style     overlay.Style
}

// newApp loads the configuration and wires the detection stack. Logs go to
// logOut, never stdout, which belongs to the MCP protocol.
func newApp(opts *RootOptions, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	level, _ := config.ParseLevel(cfg.Log.Level)
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	var locator bridge.EngineLocator
	if cfg.Engine.Path != "" {
		locator = bridge.FixedLocator(cfg.Engine.Path)
	} else {
		profile, _ := bridge.ParseProfile(cfg.Engine.Profile)
		locator = bridge.NewLocator(profile, cfg.Engine.Candidates)
	}

	b := bridge.New(bridge.Options{
		Locator:  locator,
		Launcher: cfg.Engine.Launcher,
		Deadline: cfg.Engine.Deadline,
		Logger:   logger,
	})
	remote := dispatch.NewRemote(cfg.Dispatch.BaseURL, nil, cfg.Dispatch.Timeout)
	mode, _ := dispatch.ParseMode(cfg.Dispatch.Mode)

	palette, _ := cfg.Palette()
	style := overlay.DefaultStyle()
	style.Palette = palette
	style.StrokeWidth = cfg.Overlay.StrokeWidth
	style.SelectedWidth = cfg.Overlay.SelectedWidth

	return &app{
		cfg:       cfg,
		logger:    logger,
		bridge:    b,
		remote:    remote,
		processor: dispatch.NewProcessor(dispatch.DefaultProbe(mode, b), b, remote, logger),
		style:     style,
	}, nil
}

// mcpServer builds the MCP server around the app's processor with a fresh
// editor.
func (a *app) mcpServer(version string) *server.Server {
	commits := &overlay.Recorder{}
	editor := overlay.NewEditor(commits, overlay.WithStyle(a.style), overlay.WithLogger(a.logger))
	return server.New(server.Options{
		Analyzer: a.processor,
		Health:   a.processor,
		Engine:   a.bridge,
		Editor:   editor,
		Commits:  commits,
		Logger:   a.logger,
		Version:  version,
	})
}
