package cli

import (
	"fmt"

	"github.com/oscap-tools/hardenplan/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the hardenplan version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		line := "hardenplan " + version.BuildVersion()
		if gov := version.GoVersion(); gov != "" {
			line += " (" + gov + ")"
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	},
}

// GetVersionCmd export
func GetVersionCmd() *cobra.Command {
	return versionCmd
}
