package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"repomap/internal/hook"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Run as a prompt-submit hook",
	Long: `Read a prompt event from stdin and print additional-context JSON for the
calling agent. The command always exits 0: a failed map must never block
the prompt it decorates.`,
	Run: runHook,
}

func init() {
	rootCmd.AddCommand(hookCmd)
}

func runHook(cmd *cobra.Command, args []string) {
	defer func() {
		if r := recover(); r != nil {
			// Emit a valid empty response so the caller can proceed.
			fmt.Println(`{"hookSpecificOutput":{"hookEventName":"UserPromptSubmit","additionalContext":""}}`)
		}
	}()

	eng, _, logger := newEngine()
	defer eng.Close()

	if err := hook.Run(newContext(), os.Stdin, os.Stdout, eng, logger); err != nil {
		logger.Error("Failed to write hook response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
