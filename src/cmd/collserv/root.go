package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var preamble = `collserv ` + Version + `

collserv is a music collection server. It scans a band/album folder tree,
maintains curated metadata alongside the music and exposes the collection
through tools, resources and prompts over stdio.`

var rootCmd = &cobra.Command{
	Use:     "collserv",
	Short:   "collserv music collection server",
	Long:    preamble,
	Version: Version,
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}
}
