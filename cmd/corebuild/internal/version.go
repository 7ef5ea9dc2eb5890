package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is the orchestrator's own version, overridable at link time.
var version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the corebuild version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("corebuild", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
