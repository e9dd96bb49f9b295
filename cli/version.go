package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// set with -ldflags "-X github.com/maastricht-university/scribe/cli.version=..."
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the scribe version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), version)
		return nil
	},
}
