// Package hook implements the UserPromptSubmit hook: it reads a prompt
// event from stdin, generates a repository map and answers with the
// additional-context JSON the calling agent expects.
package hook

import (
	"context"
	"encoding/json"
	"io"

	"repomap/internal/engine"
	"repomap/internal/logging"
)

// eventName is the hook event this handler answers.
const eventName = "UserPromptSubmit"

// contextPreamble introduces the map inside the injected context.
const contextPreamble = "For your project context, this is the current map of the codebase:"

// Input is the event payload read from stdin. Explicit file and
// identifier lists win over anything mined from the prompt text.
// map_tokens is an accepted alias for max_tokens.
type Input struct {
	Prompt          string   `json:"prompt"`
	SessionID       string   `json:"session_id"`
	ChatFiles       []string `json:"chat_files"`
	MentionedFiles  []string `json:"mentioned_files"`
	MentionedIdents []string `json:"mentioned_idents"`
	MaxTokens       int      `json:"max_tokens"`
	MapTokens       int      `json:"map_tokens"`
}

// Output is the hook response envelope.
type Output struct {
	HookSpecificOutput EventOutput `json:"hookSpecificOutput"`
}

// EventOutput carries the context injected into the conversation.
type EventOutput struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext"`
}

// Generator produces repository maps. *engine.Engine satisfies it.
type Generator interface {
	Generate(ctx context.Context, req engine.Request) engine.Result
}

// Run handles one hook invocation: decode the event, generate a map and
// write the response. Malformed input and generation problems degrade to
// an empty context; the returned error is non-nil only when the response
// itself cannot be written.
func Run(ctx context.Context, r io.Reader, w io.Writer, gen Generator, logger *logging.Logger) error {
	var in Input
	if err := json.NewDecoder(r).Decode(&in); err != nil && err != io.EOF {
		logger.Warn("Malformed hook input, proceeding without prompt", map[string]interface{}{
			"error": err.Error(),
		})
		in = Input{}
	}

	if len(in.MentionedFiles) == 0 {
		in.MentionedFiles = minePaths(in.Prompt)
	}
	if len(in.MentionedIdents) == 0 {
		in.MentionedIdents = mineIdents(in.Prompt)
	}

	budget := in.MaxTokens
	if budget == 0 {
		budget = in.MapTokens
	}

	res := gen.Generate(ctx, engine.Request{
		ChatFiles:       in.ChatFiles,
		MaxTokens:       budget,
		MentionedFiles:  in.MentionedFiles,
		MentionedIdents: in.MentionedIdents,
	})

	logger.Debug("Hook generated map", map[string]interface{}{
		"session_id": in.SessionID,
		"tokens":     res.TokenCount,
		"tags":       res.TagCount,
		"cache_hit":  res.CacheHit,
	})

	var additional string
	if res.Text != "" {
		additional = contextPreamble + "\n\n" + res.Text
	}

	return json.NewEncoder(w).Encode(Output{
		HookSpecificOutput: EventOutput{
			HookEventName:     eventName,
			AdditionalContext: additional,
		},
	})
}
