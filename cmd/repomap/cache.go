package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the tag and map caches",
}

var cacheClearCmd = &cobra.Command{
	Use:       "clear [tags|maps]",
	Short:     "Remove cached tags and maps, or one namespace",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"tags", "maps"},
	Run:       runCacheClear,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop cached tags for files no longer in the repository",
	Run:   runCachePrune,
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) {
	eng, _, logger := newEngine()
	defer eng.Close()

	target := ""
	if len(args) == 1 {
		target = args[0]
	}

	if target == "" || target == "tags" {
		if err := eng.TagCache().Clear(); err != nil {
			logger.Error("Failed to clear tag cache", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
	}
	if target == "" || target == "maps" {
		if mc := eng.MapCache(); mc != nil {
			if err := mc.Clear(); err != nil {
				logger.Error("Failed to clear map cache", map[string]interface{}{"error": err.Error()})
				os.Exit(1)
			}
		}
	}

	if target == "" {
		fmt.Println("Cache cleared.")
	} else {
		fmt.Printf("Cleared %s cache.\n", target)
	}
}

func runCachePrune(cmd *cobra.Command, args []string) {
	eng, _, logger := newEngine()
	defer eng.Close()

	removed, err := eng.PruneTags(newContext())
	if err != nil {
		logger.Error("Failed to prune tag cache", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	fmt.Printf("Pruned %d stale cache entries.\n", removed)
}
