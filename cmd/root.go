package cmd

import (
	"fmt"
	"log"
	"os"

	"ScoreRack/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "scorerack",
	Short: "ScoreRack is a score library service for ensembles.",
	Run: func(cmd *cobra.Command, args []string) {
		log.Println("Starting ScoreRack server...")
		// server.Start handles its own config loading and startup logging.
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
