// cmd/root.go
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wfst-decoder",
	Short: "Batched WFST beam-search decoder",
}

// Execute runs the root command. main.go is a thin shim over this.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}
