package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"repomap/internal/cache"
	"repomap/internal/version"
)

var statsFormat string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Long:  "Display tag and map cache effectiveness counters and storage footprint.",
	Run:   runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsFormat, "format", "human",
		"Output format (human, json, yaml)")
	rootCmd.AddCommand(statsCmd)
}

// statsResponse is the stats command payload.
type statsResponse struct {
	Version string      `json:"version" yaml:"version"`
	Cache   cache.Stats `json:"cache" yaml:"cache"`
}

func runStats(cmd *cobra.Command, args []string) {
	eng, _, _ := newEngine()
	defer eng.Close()

	resp := statsResponse{Version: version.Version}
	resp.Cache.Tags = eng.TagCache().Stats()
	if mc := eng.MapCache(); mc != nil {
		resp.Cache.Maps = mc.Stats()
	}

	switch statsFormat {
	case "json":
		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
	case "yaml":
		out, err := yaml.Marshal(resp)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(string(out))
	default:
		printHumanStats(resp)
	}
}

func printHumanStats(resp statsResponse) {
	fmt.Printf("repomap %s\n\n", resp.Version)

	t := resp.Cache.Tags
	fmt.Println("Tag cache:")
	fmt.Printf("  rows:         %d (%d in memory)\n", t.Rows, t.MemoryEntries)
	fmt.Printf("  hits/misses:  %d/%d\n", t.Hits, t.Misses)
	fmt.Printf("  extractions:  %d\n", t.Extractions)
	fmt.Printf("  corruptions:  %d\n", t.Corruptions)
	fmt.Printf("  bytes:        %d\n", t.Bytes)

	m := resp.Cache.Maps
	fmt.Println("\nMap cache:")
	fmt.Printf("  rows:         %d\n", m.Rows)
	fmt.Printf("  hits/misses:  %d/%d\n", m.Hits, m.Misses)
	fmt.Printf("  corruptions:  %d\n", m.Corruptions)
	fmt.Printf("  bytes:        %d\n", m.Bytes)
}
