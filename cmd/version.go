package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is overridable at link time via -ldflags.
var Version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the sectionforge version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println("sectionforge " + Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
