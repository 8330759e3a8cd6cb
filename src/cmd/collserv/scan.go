package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	l "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gitlab.com/smeitner/collserv/src/internal/collection"
	"gitlab.com/smeitner/collserv/src/internal/config"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the music collection once",
	Long:  "Scan the music root once, update the stored metadata, rebuild the collection index and print a summary",
	Run: func(cmd *cobra.Command, args []string) {
		if err := scanOnce(); err != nil {
			fmt.Printf("%v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

// scanOnce runs a single scan interactively. Ctrl-C cancels the scan without
// touching the stored state.
func scanOnce() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := l.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	l.SetLevel(level)
	l.SetOutput(os.Stderr)

	coll, err := collection.New(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		cancel()
	}()

	report, err := coll.Scan(ctx)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	bold.Printf("scanned %s\n", report.MusicRoot)
	fmt.Printf("bands:   %d\n", report.BandsScanned)
	fmt.Printf("albums:  %d\n", report.TotalAlbums)
	if len(report.BandsAdded) > 0 {
		green.Printf("added:   %d\n", len(report.BandsAdded))
	}
	if len(report.BandsChanged) > 0 {
		green.Printf("changed: %d\n", len(report.BandsChanged))
	}
	if len(report.BandsRemoved) > 0 {
		yellow.Printf("removed: %d\n", len(report.BandsRemoved))
	}
	for _, w := range report.Warnings {
		yellow.Printf("warning: %s\n", w)
	}
	for _, e := range report.Errors {
		red.Printf("error:   %s: %s\n", e.Band, e.Message)
	}
	return nil
}
