package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-narrator/internal/output"
	"github.com/mj1618/desktop-narrator/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return output.Fprint(cmd.OutOrStdout(), version.Get())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
