package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"repomap/internal/config"
	"repomap/internal/logging"
	"repomap/internal/testutil"
)

func newTestEngine(t *testing.T, root string, mutate func(*config.Config)) *Engine {
	t.Helper()

	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	logger := logging.NewLogger(logging.Config{Level: logging.ErrorLevel})
	e := New(root, cfg, logger)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestGenerateEmptyRepository(t *testing.T) {
	repo := testutil.NewRepo(t)
	e := newTestEngine(t, repo.Root, nil)

	res := e.Generate(context.Background(), Request{MaxTokens: 1024})

	if res.Text != "" {
		t.Errorf("Text = %q, want empty", res.Text)
	}
	if res.TokenCount != 0 || res.TagCount != 0 || res.CacheHit {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestGenerateSingleDefinition(t *testing.T) {
	repo := testutil.NewRepo(t)
	repo.WriteFile("app.py", "def process_order(order):\n    return order\n")
	e := newTestEngine(t, repo.Root, nil)

	res := e.Generate(context.Background(), Request{MaxTokens: 1024})

	if !strings.Contains(res.Text, "Repository Structure and Code Map:") {
		t.Error("map header missing")
	}
	if !strings.Contains(res.Text, "app.py") {
		t.Error("file path missing from map")
	}
	if !strings.Contains(res.Text, "process_order") {
		t.Error("definition name missing from map")
	}
	if res.TagCount != 1 {
		t.Errorf("TagCount = %d, want 1", res.TagCount)
	}
	if res.TokenCount <= 0 {
		t.Errorf("TokenCount = %d, want positive", res.TokenCount)
	}
	if res.CacheHit {
		t.Error("first generation should not be a cache hit")
	}
}

func TestGenerateChatFileBoost(t *testing.T) {
	repo := testutil.NewRepo(t)
	repo.WriteFile("a.py", "session(1)\n")
	repo.WriteFile("b.py", "def session(value):\n    return value\n")
	repo.WriteFile("c.py", "widget(1)\n")
	repo.WriteFile("d.py", "def widget(value):\n    return value\n")
	e := newTestEngine(t, repo.Root, nil)

	// d.py sorts after b.py, so only the chat boost can put it first.
	res := e.Generate(context.Background(), Request{
		ChatFiles: []string{"d.py"},
		MaxTokens: 1024,
	})

	dIdx := strings.Index(res.Text, "### d.py")
	bIdx := strings.Index(res.Text, "### b.py")
	if dIdx < 0 || bIdx < 0 {
		t.Fatalf("expected sections for b.py and d.py, got:\n%s", res.Text)
	}
	if dIdx > bIdx {
		t.Errorf("chat file section should come first, got:\n%s", res.Text)
	}
}

func TestGenerateTinyBudget(t *testing.T) {
	repo := testutil.NewRepo(t)
	for i := 0; i < 12; i++ {
		repo.WriteFile(
			fmt.Sprintf("pkg/mod%02d.py", i),
			fmt.Sprintf("def handler%02d(value):\n    return value\n", i),
		)
	}
	e := newTestEngine(t, repo.Root, nil)

	res := e.Generate(context.Background(), Request{
		ChatFiles: []string{"pkg/mod00.py"},
		MaxTokens: 10,
	})

	if res.TokenCount > 11 {
		t.Errorf("TokenCount = %d, want <= 11 for a 10 token budget", res.TokenCount)
	}
	if res.TagCount >= 12 {
		t.Errorf("TagCount = %d, want far below the full 12", res.TagCount)
	}
}

func TestGenerateMapCacheHit(t *testing.T) {
	repo := testutil.NewRepo(t)
	repo.WriteFile("core.py", "def dispatch(event):\n    return event\n")
	e := newTestEngine(t, repo.Root, nil)

	req := Request{ChatFiles: []string{"core.py"}, MaxTokens: 256}
	ctx := context.Background()

	first := e.Generate(ctx, req)
	if first.CacheHit {
		t.Fatal("first call should generate")
	}
	second := e.Generate(ctx, req)
	if !second.CacheHit {
		t.Fatal("second identical call should hit the map cache")
	}

	if second.Text != first.Text {
		t.Error("cached text differs from generated text")
	}
	if second.TokenCount != first.TokenCount || second.TagCount != first.TagCount {
		t.Errorf("cached counts %+v differ from generated %+v", second, first)
	}
}

func TestGenerateMtimeBumpReextracts(t *testing.T) {
	repo := testutil.NewRepo(t)
	repo.WriteFile("x.py", "def alpha(value):\n    return value\n")
	repo.WriteFile("y.py", "def bravo(value):\n    return value\n")
	repo.WriteFile("z.py", "def charlie(value):\n    return value\n")
	e := newTestEngine(t, repo.Root, func(c *config.Config) {
		c.Map.RefreshMode = config.RefreshAlways
	})

	ctx := context.Background()
	req := Request{MaxTokens: 1024}

	e.Generate(ctx, req)
	if got := e.TagCache().Stats().Extractions; got != 3 {
		t.Fatalf("extractions after first call = %d, want 3", got)
	}

	repo.Touch("y.py", 2*time.Second)
	e.Generate(ctx, req)

	stats := e.TagCache().Stats()
	if stats.Extractions != 4 {
		t.Errorf("extractions after mtime bump = %d, want exactly 4", stats.Extractions)
	}
	if stats.Hits < 2 {
		t.Errorf("hits = %d, want the two untouched files served from cache", stats.Hits)
	}
}

func TestGenerateFilesChangedMode(t *testing.T) {
	repo := testutil.NewRepo(t)
	repo.WriteFile("m.py", "def morning(value):\n    return value\n")
	repo.WriteFile("n.py", "def night(value):\n    return value\n")
	e := newTestEngine(t, repo.Root, func(c *config.Config) {
		c.Map.RefreshMode = config.RefreshFilesChanged
	})

	ctx := context.Background()
	req := Request{MaxTokens: 512}

	first := e.Generate(ctx, req)
	if first.CacheHit {
		t.Fatal("first call should generate")
	}

	second := e.Generate(ctx, req)
	if !second.CacheHit {
		t.Error("unchanged files should serve the stored map")
	}

	repo.Touch("n.py", 2*time.Second)
	third := e.Generate(ctx, req)
	if third.CacheHit {
		t.Error("a newer mtime should force regeneration")
	}
}

func TestGenerateManualMode(t *testing.T) {
	repo := testutil.NewRepo(t)
	repo.WriteFile("core.py", "def dispatch(event):\n    return event\n")
	e := newTestEngine(t, repo.Root, func(c *config.Config) {
		c.Map.RefreshMode = config.RefreshManual
	})

	ctx := context.Background()

	first := e.Generate(ctx, Request{ChatFiles: []string{"core.py"}, MaxTokens: 256})
	if first.CacheHit {
		t.Fatal("empty cache should generate")
	}

	// A different request still serves the stored map in manual mode.
	second := e.Generate(ctx, Request{MaxTokens: 512})
	if !second.CacheHit {
		t.Fatal("manual mode should serve the latest stored map")
	}
	if second.Text != first.Text {
		t.Error("manual mode should return the stored text unchanged")
	}
}

func TestGenerateAlwaysModeStillStores(t *testing.T) {
	repo := testutil.NewRepo(t)
	repo.WriteFile("core.py", "def dispatch(event):\n    return event\n")
	e := newTestEngine(t, repo.Root, func(c *config.Config) {
		c.Map.RefreshMode = config.RefreshAlways
	})

	ctx := context.Background()
	req := Request{ChatFiles: []string{"core.py"}, MaxTokens: 256}

	first := e.Generate(ctx, req)
	second := e.Generate(ctx, req)
	if first.CacheHit || second.CacheHit {
		t.Error("always mode should never serve from cache")
	}

	entry, ok := e.MapCache().Latest()
	if !ok {
		t.Fatal("always mode should still store generated maps")
	}
	if entry.Text != second.Text {
		t.Error("stored map differs from the last generated text")
	}
}

func TestGenerateDegradedWithoutCache(t *testing.T) {
	repo := testutil.NewRepo(t)
	repo.WriteFile("blocker", "plain file where the cache dir should be\n")
	repo.WriteFile("core.py", "def dispatch(event):\n    return event\n")
	e := newTestEngine(t, repo.Root, func(c *config.Config) {
		c.Cache.Dir = "blocker/nested"
	})

	ctx := context.Background()
	req := Request{ChatFiles: []string{"core.py"}, MaxTokens: 256}

	first := e.Generate(ctx, req)
	if !strings.Contains(first.Text, "dispatch") {
		t.Errorf("degraded mode should still generate a map, got:\n%s", first.Text)
	}
	second := e.Generate(ctx, req)
	if first.CacheHit || second.CacheHit {
		t.Error("no-cache mode should never report a cache hit")
	}
	if second.Text != first.Text {
		t.Error("generation should stay deterministic without a cache")
	}
}

func TestGenerateOtherFilesFilter(t *testing.T) {
	repo := testutil.NewRepo(t)
	repo.WriteFile("a.py", "def apple(value):\n    return value\n")
	repo.WriteFile("b.py", "def banana(value):\n    return value\n")
	repo.WriteFile("c.py", "def cherry(value):\n    return value\n")
	e := newTestEngine(t, repo.Root, nil)

	res := e.Generate(context.Background(), Request{
		OtherFiles: []string{"a.py", "b.py"},
		MaxTokens:  1024,
	})

	if !strings.Contains(res.Text, "### a.py") || !strings.Contains(res.Text, "### b.py") {
		t.Errorf("requested files missing from map:\n%s", res.Text)
	}
	if strings.Contains(res.Text, "### c.py") {
		t.Errorf("unrequested file leaked into the map:\n%s", res.Text)
	}
}

func TestGenerateRequestedFileUsesLexicalExtractor(t *testing.T) {
	repo := testutil.NewRepo(t)
	repo.WriteFile("handlers.py", "def alpha_handler(value):\n    return value\n")
	repo.WriteFile("notes.conf", "alpha_handler alpha_handler alpha_handler\n")
	e := newTestEngine(t, repo.Root, nil)

	// notes.conf has no grammar; requesting it as a chat file routes it
	// through the lexical extractor, and its references boost handlers.py.
	res := e.Generate(context.Background(), Request{
		ChatFiles: []string{"notes.conf"},
		MaxTokens: 1024,
	})

	if !strings.Contains(res.Text, "### handlers.py") {
		t.Errorf("referenced definition file missing:\n%s", res.Text)
	}
	if !strings.Contains(res.Text, "alpha_handler") {
		t.Errorf("definition line missing:\n%s", res.Text)
	}
	if res.TagCount != 1 {
		t.Errorf("TagCount = %d, want 1", res.TagCount)
	}
}

func TestGenerateFallbackListing(t *testing.T) {
	repo := testutil.NewRepo(t)
	repo.WriteFile("data.conf", "alpha beta gamma\n")
	e := newTestEngine(t, repo.Root, nil)

	res := e.Generate(context.Background(), Request{
		ChatFiles: []string{"data.conf"},
		MaxTokens: 512,
	})

	if !strings.HasPrefix(res.Text, "Repository Map (Fallback Mode):") {
		t.Errorf("expected the fallback map, got:\n%s", res.Text)
	}
	if !strings.Contains(res.Text, "- data.conf") {
		t.Error("chat file missing from fallback map")
	}
	if res.TagCount != 0 {
		t.Errorf("TagCount = %d, want 0 for the fallback", res.TagCount)
	}
	if res.TokenCount <= 0 {
		t.Errorf("TokenCount = %d, want positive", res.TokenCount)
	}
}

func TestGenerateDefaultBudgetFromConfig(t *testing.T) {
	repo := testutil.NewRepo(t)
	repo.WriteFile("core.py", "def dispatch(event):\n    return event\n")
	e := newTestEngine(t, repo.Root, func(c *config.Config) {
		c.Map.MaxTokens = 512
	})

	res := e.Generate(context.Background(), Request{
		ChatFiles: []string{"core.py"},
	})

	if res.Text == "" {
		t.Error("zero MaxTokens should fall back to the configured budget")
	}
}

func TestGenerateLanguageOverride(t *testing.T) {
	repo := testutil.NewRepo(t)
	repo.WriteFile(".repomap/languages.toml", "[extensions]\n\".pyx\" = \"python\"\n")
	repo.WriteFile("fast.pyx", "def turbo_loop(data):\n    return data\n")
	e := newTestEngine(t, repo.Root, nil)

	res := e.Generate(context.Background(), Request{MaxTokens: 1024})

	if !strings.Contains(res.Text, "### fast.pyx") {
		t.Errorf("override extension missing from map:\n%s", res.Text)
	}
	if !strings.Contains(res.Text, "turbo_loop") {
		t.Errorf("definition from override language missing:\n%s", res.Text)
	}
}
