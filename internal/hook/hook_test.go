package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"repomap/internal/engine"
	"repomap/internal/logging"
)

// stubGenerator records the request and answers with a fixed result.
type stubGenerator struct {
	req engine.Request
	res engine.Result
}

func (s *stubGenerator) Generate(_ context.Context, req engine.Request) engine.Result {
	s.req = req
	return s.res
}

func runHook(t *testing.T, input string, gen Generator) Output {
	t.Helper()

	var buf bytes.Buffer
	logger := logging.NewLogger(logging.Config{Level: logging.ErrorLevel})
	if err := Run(context.Background(), strings.NewReader(input), &buf, gen, logger); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var out Output
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("hook output is not valid JSON: %v\n%s", err, buf.String())
	}
	return out
}

func TestRunEmitsHookOutput(t *testing.T) {
	gen := &stubGenerator{res: engine.Result{Text: "MAP BODY", TokenCount: 2}}

	out := runHook(t, `{
		"prompt": "refactor the scheduler",
		"session_id": "s-1",
		"chat_files": ["sched.py"],
		"max_tokens": 2048
	}`, gen)

	if out.HookSpecificOutput.HookEventName != "UserPromptSubmit" {
		t.Errorf("event name = %q", out.HookSpecificOutput.HookEventName)
	}
	want := "For your project context, this is the current map of the codebase:\n\nMAP BODY"
	if out.HookSpecificOutput.AdditionalContext != want {
		t.Errorf("additionalContext = %q, want %q", out.HookSpecificOutput.AdditionalContext, want)
	}

	if len(gen.req.ChatFiles) != 1 || gen.req.ChatFiles[0] != "sched.py" {
		t.Errorf("chat files not forwarded: %+v", gen.req)
	}
	if gen.req.MaxTokens != 2048 {
		t.Errorf("MaxTokens = %d, want 2048", gen.req.MaxTokens)
	}
}

func TestRunBudgetAlias(t *testing.T) {
	gen := &stubGenerator{}

	runHook(t, `{"prompt": "x", "map_tokens": 512}`, gen)
	if gen.req.MaxTokens != 512 {
		t.Errorf("MaxTokens = %d, want 512 via map_tokens alias", gen.req.MaxTokens)
	}

	runHook(t, `{"prompt": "x", "max_tokens": 256, "map_tokens": 512}`, gen)
	if gen.req.MaxTokens != 256 {
		t.Errorf("MaxTokens = %d, want max_tokens to win over the alias", gen.req.MaxTokens)
	}
}

func TestRunDerivesMentionsFromPrompt(t *testing.T) {
	gen := &stubGenerator{}

	runHook(t, `{"prompt": "Please fix src/billing.py so charge_customer retries"}`, gen)

	foundFile := false
	for _, f := range gen.req.MentionedFiles {
		if f == "src/billing.py" {
			foundFile = true
		}
	}
	if !foundFile {
		t.Errorf("mentioned files = %v, want src/billing.py mined", gen.req.MentionedFiles)
	}

	foundIdent := false
	for _, id := range gen.req.MentionedIdents {
		if id == "charge_customer" {
			foundIdent = true
		}
	}
	if !foundIdent {
		t.Errorf("mentioned idents = %v, want charge_customer mined", gen.req.MentionedIdents)
	}
}

func TestRunExplicitMentionsWin(t *testing.T) {
	gen := &stubGenerator{}

	runHook(t, `{
		"prompt": "look at src/other.py and helper_func",
		"mentioned_files": ["exact.py"],
		"mentioned_idents": ["exact_ident"]
	}`, gen)

	if len(gen.req.MentionedFiles) != 1 || gen.req.MentionedFiles[0] != "exact.py" {
		t.Errorf("explicit mentioned files overridden: %v", gen.req.MentionedFiles)
	}
	if len(gen.req.MentionedIdents) != 1 || gen.req.MentionedIdents[0] != "exact_ident" {
		t.Errorf("explicit mentioned idents overridden: %v", gen.req.MentionedIdents)
	}
}

func TestRunMalformedInput(t *testing.T) {
	gen := &stubGenerator{res: engine.Result{Text: "STILL A MAP"}}

	out := runHook(t, "this is not json {{{", gen)

	if out.HookSpecificOutput.HookEventName != "UserPromptSubmit" {
		t.Error("malformed input should still produce a well-formed response")
	}
	if !strings.Contains(out.HookSpecificOutput.AdditionalContext, "STILL A MAP") {
		t.Error("map should still be generated for malformed input")
	}
}

func TestRunEmptyMapOmitsPreamble(t *testing.T) {
	gen := &stubGenerator{}

	out := runHook(t, `{"prompt": "anything"}`, gen)

	if out.HookSpecificOutput.AdditionalContext != "" {
		t.Errorf("empty map should yield empty context, got %q",
			out.HookSpecificOutput.AdditionalContext)
	}
}

func TestMinePaths(t *testing.T) {
	prompt := "See src/app.py and README.md, also scripts/run.sh plus src/app.py again and util.rb."

	got := minePaths(prompt)

	want := []string{"src/app.py", "util.rb"}
	if len(got) != len(want) {
		t.Fatalf("minePaths = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("minePaths[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMineIdents(t *testing.T) {
	prompt := "Fix the parse_config path; cap at ten and keep parse_config stable"

	got := mineIdents(prompt)

	for _, id := range got {
		if len(id) <= 3 {
			t.Errorf("short word %q should be filtered", id)
		}
	}

	count := 0
	for _, id := range got {
		if id == "parse_config" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("parse_config should appear exactly once, got %v", got)
	}

	for _, id := range got {
		if id == "Fix" {
			t.Error("capitalized words should be filtered")
		}
	}
}
