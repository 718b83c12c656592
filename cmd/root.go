package cmd

import (
	"fmt"
	"os"

	"chromafm/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chromafm",
	Short: "Chromafm is a track/album metadata and colour palette ingestion service.",
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
