package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"repomap/internal/logging"
	"repomap/internal/tag"
)

// ExtractFunc produces fresh tags for a file on cache miss.
type ExtractFunc func(ctx context.Context) (tag.FileTags, error)

// TagCache layers an in-memory LRU over the tag_cache table. Entries are
// valid only while the file's mtime matches; concurrent misses for the
// same file share one extraction.
type TagCache struct {
	db     *DB // nil in degraded no-cache mode
	mem    *lru.Cache[string, tag.FileTags]
	group  singleflight.Group
	logger *logging.Logger

	hits        atomic.Int64
	misses      atomic.Int64
	extractions atomic.Int64
	corruptions atomic.Int64
}

// NewTagCache creates a TagCache. db may be nil, which disables the
// persistent layer but keeps the in-memory one.
func NewTagCache(db *DB, memoryEntries int, logger *logging.Logger) *TagCache {
	if memoryEntries <= 0 {
		memoryEntries = 1024
	}
	mem, err := lru.New[string, tag.FileTags](memoryEntries)
	if err != nil {
		panic(err)
	}
	return &TagCache{
		db:     db,
		mem:    mem,
		logger: logger,
	}
}

// GetOrExtract returns the tags for path, reusing any cache entry whose
// recorded mtime matches. On miss the extract function runs once per
// (path, mtime) pair regardless of concurrent callers.
func (c *TagCache) GetOrExtract(ctx context.Context, path string, mtime int64, extract ExtractFunc) (tag.FileTags, error) {
	if ft, ok := c.mem.Get(path); ok && ft.Mtime == mtime {
		c.hits.Add(1)
		return ft, nil
	}

	key := fmt.Sprintf("%s|%d", path, mtime)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Recheck under the flight: another caller may have filled it.
		if ft, ok := c.mem.Get(path); ok && ft.Mtime == mtime {
			c.hits.Add(1)
			return ft, nil
		}

		if ft, ok := c.lookup(path, mtime); ok {
			c.hits.Add(1)
			c.mem.Add(path, ft)
			return ft, nil
		}
		c.misses.Add(1)

		ft, err := extract(ctx)
		if err != nil {
			return tag.FileTags{}, err
		}
		c.extractions.Add(1)

		c.store(ft)
		c.mem.Add(path, ft)
		return ft, nil
	})
	if err != nil {
		return tag.FileTags{}, err
	}
	return v.(tag.FileTags), nil
}

// lookup reads the persistent layer. A row that fails to decode is
// deleted so the next extraction rebuilds it.
func (c *TagCache) lookup(path string, mtime int64) (tag.FileTags, bool) {
	if c.db == nil {
		return tag.FileTags{}, false
	}

	var (
		storedMtime int64
		contentHash sql.NullString
		language    string
		tagsJSON    string
	)
	err := c.db.QueryRow(
		"SELECT mtime_ns, content_hash, language, tags_json FROM tag_cache WHERE file_path = ?",
		path,
	).Scan(&storedMtime, &contentHash, &language, &tagsJSON)
	if err == sql.ErrNoRows {
		return tag.FileTags{}, false
	}
	if err != nil {
		c.logger.Warn("tag cache read failed", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return tag.FileTags{}, false
	}

	if storedMtime != mtime {
		return tag.FileTags{}, false
	}

	var tags []tag.Tag
	if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
		c.corruptions.Add(1)
		c.logger.Warn("discarding corrupt tag cache entry", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		c.Invalidate(path)
		return tag.FileTags{}, false
	}

	return tag.FileTags{
		Path:        path,
		Mtime:       storedMtime,
		ContentHash: contentHash.String,
		Language:    language,
		Tags:        tags,
	}, true
}

func (c *TagCache) store(ft tag.FileTags) {
	if c.db == nil {
		return
	}

	tagsJSON, err := json.Marshal(ft.Tags)
	if err != nil {
		c.logger.Warn("tag cache encode failed", map[string]interface{}{
			"path":  ft.Path,
			"error": err.Error(),
		})
		return
	}

	_, err = c.db.Exec(`
		INSERT OR REPLACE INTO tag_cache (file_path, mtime_ns, content_hash, language, tags_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ft.Path, ft.Mtime, ft.ContentHash, ft.Language, string(tagsJSON), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		c.logger.Warn("tag cache write failed", map[string]interface{}{
			"path":  ft.Path,
			"error": err.Error(),
		})
	}
}

// Invalidate drops both layers' entries for path.
func (c *TagCache) Invalidate(path string) {
	c.mem.Remove(path)
	if c.db == nil {
		return
	}
	if _, err := c.db.Exec("DELETE FROM tag_cache WHERE file_path = ?", path); err != nil {
		c.logger.Warn("tag cache invalidate failed", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
}

// Clear empties both layers.
func (c *TagCache) Clear() error {
	c.mem.Purge()
	if c.db == nil {
		return nil
	}
	_, err := c.db.Exec("DELETE FROM tag_cache")
	return err
}

// Prune removes rows for files no longer present in the repository.
func (c *TagCache) Prune(keep map[string]struct{}) (int64, error) {
	if c.db == nil {
		return 0, nil
	}

	rows, err := c.db.Query("SELECT file_path FROM tag_cache")
	if err != nil {
		return 0, err
	}
	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return 0, err
		}
		if _, ok := keep[path]; !ok {
			stale = append(stale, path)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	var removed int64
	err = c.db.WithTx(func(tx *sql.Tx) error {
		for _, path := range stale {
			res, err := tx.Exec("DELETE FROM tag_cache WHERE file_path = ?", path)
			if err != nil {
				return err
			}
			n, _ := res.RowsAffected()
			removed += n
		}
		return nil
	})
	if err != nil {
		return removed, err
	}

	for _, path := range stale {
		c.mem.Remove(path)
	}
	return removed, nil
}

// Stats reports cache effectiveness counters and storage footprint.
func (c *TagCache) Stats() TagCacheStats {
	s := TagCacheStats{
		MemoryEntries: c.mem.Len(),
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Extractions:   c.extractions.Load(),
		Corruptions:   c.corruptions.Load(),
	}
	if c.db != nil {
		_ = c.db.QueryRow("SELECT COUNT(*), COALESCE(SUM(LENGTH(tags_json)), 0) FROM tag_cache").
			Scan(&s.Rows, &s.Bytes)
	}
	return s
}
