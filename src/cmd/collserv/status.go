package main

import (
	"fmt"
	"os"

	l "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gitlab.com/smeitner/collserv/src/internal/collection"
	"gitlab.com/smeitner/collserv/src/internal/config"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the collection status",
	Long:  "Print the aggregate statistics of the collection",
	Run: func(cmd *cobra.Command, args []string) {
		if err := status(); err != nil {
			fmt.Printf("%v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func status() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	l.SetOutput(os.Stderr)

	coll, err := collection.New(cfg)
	if err != nil {
		return err
	}
	coll.WriteStatus(os.Stdout)
	return nil
}
