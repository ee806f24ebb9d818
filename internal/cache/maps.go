package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"

	"repomap/internal/logging"
)

const metaLatestKey = "latest_map_signature"

// Signature derives the map cache key from a canonical request string:
// the first 16 hex characters of its SHA-256.
func Signature(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])[:16]
}

// MapEntry is a stored rendered map.
type MapEntry struct {
	Signature  string
	Text       string
	TokenCount int
	TagCount   int
	FileCount  int
	CreatedAt  int64 // unix nanoseconds
}

// MapCache stores rendered maps keyed by request signature, optionally
// zstd-compressed. The meta table tracks the most recently stored map so
// manual refresh mode can serve it without regenerating.
type MapCache struct {
	db       *DB // nil in degraded no-cache mode
	compress bool
	enc      *zstd.Encoder
	dec      *zstd.Decoder
	logger   *logging.Logger

	hits        atomic.Int64
	misses      atomic.Int64
	corruptions atomic.Int64
}

// NewMapCache creates a MapCache. db may be nil, which turns every
// operation into a no-op miss.
func NewMapCache(db *DB, compress bool, logger *logging.Logger) (*MapCache, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &MapCache{
		db:       db,
		compress: compress,
		enc:      enc,
		dec:      dec,
		logger:   logger,
	}, nil
}

// Get returns the stored map for a signature. Undecodable rows are
// dropped so a later Put rebuilds them.
func (c *MapCache) Get(signature string) (MapEntry, bool) {
	if c.db == nil {
		return MapEntry{}, false
	}

	var (
		blob       []byte
		compressed int
		entry      MapEntry
	)
	err := c.db.QueryRow(
		"SELECT map_blob, compressed, token_count, tag_count, file_count, created_at_ns FROM map_cache WHERE signature = ?",
		signature,
	).Scan(&blob, &compressed, &entry.TokenCount, &entry.TagCount, &entry.FileCount, &entry.CreatedAt)
	if err == sql.ErrNoRows {
		c.misses.Add(1)
		return MapEntry{}, false
	}
	if err != nil {
		c.logger.Warn("map cache read failed", map[string]interface{}{
			"signature": signature,
			"error":     err.Error(),
		})
		c.misses.Add(1)
		return MapEntry{}, false
	}

	text := blob
	if compressed != 0 {
		text, err = c.dec.DecodeAll(blob, nil)
		if err != nil {
			c.corruptions.Add(1)
			c.logger.Warn("discarding corrupt map cache entry", map[string]interface{}{
				"signature": signature,
				"error":     err.Error(),
			})
			c.delete(signature)
			c.misses.Add(1)
			return MapEntry{}, false
		}
	}

	c.hits.Add(1)
	entry.Signature = signature
	entry.Text = string(text)
	return entry, true
}

// Put stores a rendered map and marks it as the latest.
func (c *MapCache) Put(signature, text string, tokenCount, tagCount, fileCount int) error {
	if c.db == nil {
		return nil
	}

	blob := []byte(text)
	compressed := 0
	if c.compress {
		blob = c.enc.EncodeAll([]byte(text), nil)
		compressed = 1
	}

	return c.db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO map_cache (signature, map_blob, compressed, token_count, tag_count, file_count, created_at_ns)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			signature, blob, compressed, tokenCount, tagCount, fileCount, time.Now().UnixNano(),
		); err != nil {
			return err
		}
		_, err := tx.Exec(
			"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
			metaLatestKey, signature,
		)
		return err
	})
}

// Latest returns the most recently stored map, if any.
func (c *MapCache) Latest() (MapEntry, bool) {
	if c.db == nil {
		return MapEntry{}, false
	}

	var signature string
	err := c.db.QueryRow("SELECT value FROM meta WHERE key = ?", metaLatestKey).Scan(&signature)
	if err != nil {
		if err != sql.ErrNoRows {
			c.logger.Warn("map cache meta read failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return MapEntry{}, false
	}

	return c.Get(signature)
}

func (c *MapCache) delete(signature string) {
	if _, err := c.db.Exec("DELETE FROM map_cache WHERE signature = ?", signature); err != nil {
		c.logger.Warn("map cache delete failed", map[string]interface{}{
			"signature": signature,
			"error":     err.Error(),
		})
	}
}

// Clear empties the map cache and the latest pointer.
func (c *MapCache) Clear() error {
	if c.db == nil {
		return nil
	}
	return c.db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM map_cache"); err != nil {
			return err
		}
		_, err := tx.Exec("DELETE FROM meta WHERE key = ?", metaLatestKey)
		return err
	})
}

// Stats reports cache effectiveness counters and storage footprint.
func (c *MapCache) Stats() MapCacheStats {
	s := MapCacheStats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Corruptions: c.corruptions.Load(),
	}
	if c.db != nil {
		_ = c.db.QueryRow("SELECT COUNT(*), COALESCE(SUM(LENGTH(map_blob)), 0) FROM map_cache").
			Scan(&s.Rows, &s.Bytes)
	}
	return s
}
