package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Pre-populate the tag cache",
	Long:  "Extract tags for every discovered file so later map generations start warm.",
	Run:   runWarm,
}

func init() {
	rootCmd.AddCommand(warmCmd)
}

func runWarm(cmd *cobra.Command, args []string) {
	start := time.Now()

	eng, _, _ := newEngine()
	defer eng.Close()

	files, extracted := eng.Warm(newContext())

	fmt.Printf("Warmed tag cache: %d files, %d extracted, %d already cached (%dms)\n",
		files, extracted, files-extracted, time.Since(start).Milliseconds())
}
