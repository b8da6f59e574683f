package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Print version information",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rootOpts.Format == "json" {
				return newFormatter(rootOpts, cmd).Success(rootOpts.Build)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), versionText(rootOpts.Build))
			return err
		},
	}
}

func versionText(b BuildInfo) string {
	return fmt.Sprintf("iris-tools-mcp %s\n  Build time: %s\n  Git commit: %s", b.Version, b.BuildTime, b.GitCommit)
}
