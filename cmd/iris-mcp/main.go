package main

import (
	"fmt"
	"os"

	"github.com/ironsheep/iris-tools-mcp/internal/cli"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cmd := cli.NewRootCommand(cli.BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	})
	if err := cmd.Execute(); err != nil {
		// stdout may be carrying MCP traffic, so errors go to stderr.
		fmt.Fprintf(os.Stderr, "iris-mcp: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
