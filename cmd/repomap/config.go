package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"repomap/internal/config"
)

var configShowFormat string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage repository configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .repomap/config.json",
	Run:   runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long:  "Print the configuration after defaults, config.json and REPOMAP_* environment overrides are applied.",
	Run:   runConfigShow,
}

func init() {
	configShowCmd.Flags().StringVar(&configShowFormat, "format", "json",
		"Output format (json, yaml)")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	root := mustRepoRoot()
	path := filepath.Join(root, config.DirName, "config.json")

	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Configuration already exists at %s\n", path)
		return
	}

	if err := config.DefaultConfig().Save(root); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing configuration: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Initialized %s\n", path)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	root := mustRepoRoot()
	cfg := loadConfigOrDefaults(root, bootstrapLogger())

	switch configShowFormat {
	case "yaml":
		out, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(string(out))
	default:
		out, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
	}
}
