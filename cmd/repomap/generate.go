package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"repomap/internal/engine"
)

var (
	generateChat            []string
	generateOther           []string
	generateTokens          int
	generateMentionedFiles  []string
	generateMentionedIdents []string
	generateFormat          string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a repository map",
	Long: `Rank the repository's definitions for the given chat context and print a
token-budgeted map of the most relevant symbols.`,
	Run: runGenerate,
}

func init() {
	generateCmd.Flags().StringSliceVar(&generateChat, "chat", nil,
		"Files already in the chat context")
	generateCmd.Flags().StringSliceVar(&generateOther, "other", nil,
		"Restrict ranking to these files")
	generateCmd.Flags().IntVar(&generateTokens, "tokens", 0,
		"Token budget for the map (default: from config)")
	generateCmd.Flags().StringSliceVar(&generateMentionedFiles, "mentioned-file", nil,
		"Files mentioned in the conversation")
	generateCmd.Flags().StringSliceVar(&generateMentionedIdents, "mentioned-ident", nil,
		"Identifiers mentioned in the conversation")
	generateCmd.Flags().StringVar(&generateFormat, "format", "text",
		"Output format (text, json)")
	rootCmd.AddCommand(generateCmd)
}

// generateResponse is the JSON shape of a generate run.
type generateResponse struct {
	Map        string `json:"map"`
	TokenCount int    `json:"tokenCount"`
	TagCount   int    `json:"tagCount"`
	CacheHit   bool   `json:"cacheHit"`
}

func runGenerate(cmd *cobra.Command, args []string) {
	eng, _, _ := newEngine()
	defer eng.Close()

	res := eng.Generate(newContext(), engine.Request{
		ChatFiles:       generateChat,
		OtherFiles:      generateOther,
		MaxTokens:       generateTokens,
		MentionedFiles:  generateMentionedFiles,
		MentionedIdents: generateMentionedIdents,
	})

	if generateFormat == "json" {
		out, err := json.MarshalIndent(generateResponse{
			Map:        res.Text,
			TokenCount: res.TokenCount,
			TagCount:   res.TagCount,
			CacheHit:   res.CacheHit,
		}, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}

	fmt.Print(res.Text)
}
