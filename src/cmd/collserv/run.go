package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gitlab.com/smeitner/collserv/src/internal/server"
)

// runCmd represents the start command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run collserv service",
	Long:  "Run the collserv service on stdio",
	Run: func(cmd *cobra.Command, args []string) {
		if err := server.Run(Version); err != nil {
			fmt.Printf("collserv cannot be run: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
