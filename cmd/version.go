package cmd

import (
	"fmt"
	"runtime"

	"github.com/ethpandaops/t8n-repl/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints the version of t8n-repl.",
	Long:  `Prints the version of t8n-repl.`,
	Run: func(cmd *cobra.Command, args []string) {
		initCommon()

		fmt.Fprintln(cmd.OutOrStdout(), version.String())
		fmt.Fprintf(cmd.OutOrStdout(), "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
