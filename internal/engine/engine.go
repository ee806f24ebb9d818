// Package engine coordinates map generation: discovery, extraction,
// ranking, budget optimization, rendering and the surrounding caches.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/google/uuid"

	"repomap/internal/cache"
	"repomap/internal/config"
	"repomap/internal/discover"
	"repomap/internal/extract"
	"repomap/internal/graph"
	"repomap/internal/lang"
	"repomap/internal/logging"
	"repomap/internal/render"
	"repomap/internal/tag"
	"repomap/internal/tokens"
)

// Request describes one map generation call. File paths are relative to
// the repository root and slash-separated.
type Request struct {
	ChatFiles       []string
	OtherFiles      []string
	MaxTokens       int
	MentionedFiles  []string
	MentionedIdents []string
}

// Result is what every Generate call returns. Text may be empty for a
// degenerate repository or a budget too small for a single tag; Generate
// never returns an error.
type Result struct {
	Text       string
	TokenCount int
	TagCount   int
	CacheHit   bool
}

// Engine generates repository maps for a single repository root.
type Engine struct {
	root   string
	cfg    *config.Config
	logger *logging.Logger

	db   *cache.DB
	tags *cache.TagCache
	maps *cache.MapCache

	scip      *extract.SCIPIndex
	counter   tokens.Counter
	overrides map[string]string
}

// New builds an engine for the repository at root. Cache failures are not
// fatal: the engine runs in a no-cache mode and regenerates from scratch
// on every call.
func New(root string, cfg *config.Config, logger *logging.Logger) *Engine {
	e := &Engine{
		root:    root,
		cfg:     cfg,
		logger:  logger,
		counter: tokens.NewEstimator(),
	}

	db, err := cache.Open(cfg.CacheDir(root), logger)
	if err != nil {
		logger.Warn("Cache unavailable, running without persistence", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		e.db = db
	}

	e.tags = cache.NewTagCache(e.db, cfg.Cache.MemoryEntries, logger)
	maps, err := cache.NewMapCache(e.db, cfg.Cache.Compression, logger)
	if err != nil {
		logger.Warn("Map cache unavailable", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		e.maps = maps
	}

	overrides, err := cfg.LoadLanguageOverrides(root)
	if err != nil {
		logger.Warn("Ignoring language overrides", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		e.overrides = overrides
	}

	if cfg.Scip.Enabled {
		idx, err := extract.LoadSCIPIndex(extract.IndexPath(root, cfg.Scip.IndexPath))
		if err != nil {
			logger.Warn("SCIP index unavailable, using tree-sitter only", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			e.scip = idx
			logger.Info("SCIP index loaded", map[string]interface{}{
				"documents": idx.Len(),
			})
		}
	}

	return e
}

// Close releases the cache database.
func (e *Engine) Close() error {
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}

// TagCache exposes the tag cache for warmup and stats commands.
func (e *Engine) TagCache() *cache.TagCache {
	return e.tags
}

// MapCache exposes the map cache for stats and clear commands. It is nil
// when the cache layer failed to initialize.
func (e *Engine) MapCache() *cache.MapCache {
	return e.maps
}

// Generate produces a repository map for the request. Every failing stage
// degrades instead of erroring; at worst the result is a plain file
// listing or an empty string.
func (e *Engine) Generate(ctx context.Context, req Request) Result {
	fields := map[string]interface{}{
		"request_id": uuid.New().String(),
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = e.cfg.Map.MaxTokens
	}
	if len(req.ChatFiles) == 0 && e.cfg.Map.MapMulNoFiles > 1 {
		// Without chat files there is no focus; a larger map compensates.
		maxTokens = int(float64(maxTokens) * e.cfg.Map.MapMulNoFiles)
	}
	fields["max_tokens"] = maxTokens

	candidates := e.candidateFiles(ctx, req)
	fields["files"] = len(candidates)

	sig := requestSignature(req, maxTokens)
	if entry, ok := e.lookupCached(sig, candidates); ok {
		fields["signature"] = sig
		e.logger.Debug("Serving cached map", fields)
		return Result{
			Text:       entry.Text,
			TokenCount: entry.TokenCount,
			TagCount:   entry.TagCount,
			CacheHit:   true,
		}
	}

	if len(candidates) == 0 {
		e.logger.Debug("No rankable files", fields)
		return Result{}
	}

	fileTags := e.extractAll(ctx, candidates)

	opts := graph.Options{
		ChatFiles:       req.ChatFiles,
		MentionedFiles:  req.MentionedFiles,
		MentionedIdents: req.MentionedIdents,
	}
	g := graph.Build(fileTags, opts)
	pers := graph.NewPersonalization(g.Nodes, opts)
	scores := graph.Rank(ctx, g, pers, graph.RankOptions{})
	ranked := graph.DistributeToTags(g, scores, fileTags)

	if len(ranked) == 0 {
		// Nothing parseable defined a symbol; serve the minimal map.
		text := fallbackMap(req, candidates)
		fields["fallback"] = true
		e.logger.Warn("No ranked definitions, serving fallback map", fields)
		return Result{Text: text, TokenCount: e.counter.Count(text)}
	}

	renderer := render.NewRenderer(render.NewFileSource(e.root))
	prefix := renderer.Optimize(ctx, ranked, maxTokens, e.counter)
	text := renderer.Render(ranked[:prefix])
	tokenCount := e.counter.Count(text)

	if err := e.storeMap(sig, text, tokenCount, prefix, candidates); err != nil {
		e.logger.Warn("Failed to store map", map[string]interface{}{
			"error": err.Error(),
		})
	}

	fields["tags"] = prefix
	fields["tokens"] = tokenCount
	e.logger.Info("Generated repository map", fields)

	return Result{Text: text, TokenCount: tokenCount, TagCount: prefix}
}

// Warm extracts tags for every discovered file so later Generate calls
// start from a hot cache. It returns the number of files visited and how
// many needed a fresh extraction.
func (e *Engine) Warm(ctx context.Context) (files int, extracted int) {
	candidates := e.candidateFiles(ctx, Request{})
	before := e.tags.Stats().Extractions
	e.extractAll(ctx, candidates)
	return len(candidates), int(e.tags.Stats().Extractions - before)
}

// PruneTags drops tag cache rows for files no longer in the repository.
func (e *Engine) PruneTags(ctx context.Context) (int64, error) {
	candidates := e.candidateFiles(ctx, Request{})
	keep := make(map[string]struct{}, len(candidates))
	for _, f := range candidates {
		keep[f.Path] = struct{}{}
	}
	return e.tags.Prune(keep)
}

// lookupCached applies the configured refresh mode to the map cache.
func (e *Engine) lookupCached(sig string, candidates []discover.FileEntry) (cache.MapEntry, bool) {
	if e.maps == nil {
		return cache.MapEntry{}, false
	}

	switch e.cfg.Map.RefreshMode {
	case config.RefreshAlways:
		return cache.MapEntry{}, false
	case config.RefreshManual:
		return e.maps.Latest()
	case config.RefreshFilesChanged:
		entry, ok := e.maps.Get(sig)
		if !ok {
			return cache.MapEntry{}, false
		}
		for _, f := range candidates {
			if f.Mtime > entry.CreatedAt {
				return cache.MapEntry{}, false
			}
		}
		return entry, true
	default:
		return e.maps.Get(sig)
	}
}

func (e *Engine) storeMap(sig, text string, tokenCount, tagCount int, candidates []discover.FileEntry) error {
	if e.maps == nil {
		return nil
	}
	return e.maps.Put(sig, text, tokenCount, tagCount, len(candidates))
}

// candidateFiles discovers rankable files and adds explicitly requested
// paths that discovery missed, so chat files with unregistered extensions
// still participate via the lexical extractor.
func (e *Engine) candidateFiles(ctx context.Context, req Request) []discover.FileEntry {
	discovered, err := discover.Files(ctx, e.root, discover.Options{
		Excludes:     e.cfg.Scan.Excludes,
		MaxFileSize:  e.cfg.Scan.MaxFileSizeBytes,
		IncludeTests: e.cfg.Scan.IncludeTests,
		Overrides:    e.overrides,
	})
	if err != nil {
		e.logger.Warn("File discovery failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if len(req.OtherFiles) > 0 {
		wanted := make(map[string]bool, len(req.OtherFiles)+len(req.ChatFiles))
		for _, p := range req.OtherFiles {
			wanted[p] = true
		}
		for _, p := range req.ChatFiles {
			wanted[p] = true
		}
		kept := discovered[:0]
		for _, f := range discovered {
			if wanted[f.Path] {
				kept = append(kept, f)
			}
		}
		discovered = kept
	}

	present := make(map[string]bool, len(discovered))
	for _, f := range discovered {
		present[f.Path] = true
	}
	for _, p := range append(append([]string(nil), req.ChatFiles...), req.OtherFiles...) {
		if p == "" || present[p] {
			continue
		}
		abs := filepath.Join(e.root, filepath.FromSlash(p))
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			continue
		}
		entry := discover.FileEntry{
			Path:    p,
			AbsPath: abs,
			Size:    info.Size(),
			Mtime:   info.ModTime().UnixNano(),
		}
		if l := lang.ForExtension(filepath.Ext(p), e.overrides); l != nil {
			entry.Language = l.Name
		}
		discovered = append(discovered, entry)
		present[p] = true
	}

	sort.Slice(discovered, func(i, j int) bool {
		return discovered[i].Path < discovered[j].Path
	})
	return discovered
}

// extractAll runs cached tag extraction over the candidates. A file that
// fails still contributes a tagless entry so it remains a graph node.
func (e *Engine) extractAll(ctx context.Context, files []discover.FileEntry) []tag.FileTags {
	results := extract.Parallel(ctx, files, runtime.GOMAXPROCS(0),
		func(ctx context.Context, f discover.FileEntry) (tag.FileTags, error) {
			return e.tags.GetOrExtract(ctx, f.Path, f.Mtime, func(ctx context.Context) (tag.FileTags, error) {
				return e.extractFile(ctx, f)
			})
		})

	out := make([]tag.FileTags, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			e.logger.Warn("Extraction failed, keeping file without tags", map[string]interface{}{
				"path":  r.Entry.Path,
				"error": r.Err.Error(),
			})
			out = append(out, tag.FileTags{
				Path:     r.Entry.Path,
				Mtime:    r.Entry.Mtime,
				Language: r.Entry.Language,
			})
			continue
		}
		out = append(out, r.Tags)
	}
	return out
}

// extractFile produces tags for one file: SCIP index first when loaded,
// then the tree-sitter grammar for the file's language, then the lexical
// scanner for everything else.
func (e *Engine) extractFile(ctx context.Context, f discover.FileEntry) (tag.FileTags, error) {
	ft := tag.FileTags{
		Path:     f.Path,
		Mtime:    f.Mtime,
		Language: f.Language,
	}

	if e.scip != nil {
		if tags, ok := e.scip.TagsFor(f.Path); ok {
			ft.Tags = tags
			return ft, nil
		}
	}

	source, err := os.ReadFile(f.AbsPath)
	if err != nil {
		return ft, err
	}
	sum := sha256.Sum256(source)
	ft.ContentHash = hex.EncodeToString(sum[:])[:16]

	if language, ok := lang.Languages[f.Language]; ok {
		tags, err := extract.File(ctx, f.Path, source, language)
		if err != nil {
			return ft, err
		}
		ft.Tags = tags
		return ft, nil
	}

	ft.Tags = extract.Lexical(f.Path, source)
	return ft, nil
}
