package cache

import (
	"strings"
	"testing"

	"repomap/internal/logging"
)

func newTestMapCache(t *testing.T, compress bool) (*MapCache, *DB) {
	t.Helper()

	db := newTestDB(t)
	logger := logging.NewLogger(logging.Config{Level: logging.ErrorLevel})
	mc, err := NewMapCache(db, compress, logger)
	if err != nil {
		t.Fatalf("NewMapCache: %v", err)
	}
	return mc, db
}

func TestSignature(t *testing.T) {
	sig := Signature("root=/repo|maxTokens=1024|chat=a.py")

	if len(sig) != 16 {
		t.Errorf("signature length = %d, want 16", len(sig))
	}
	for _, c := range sig {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Errorf("signature %q contains non-hex rune %q", sig, c)
		}
	}

	if sig != Signature("root=/repo|maxTokens=1024|chat=a.py") {
		t.Error("signature should be deterministic")
	}
	if sig == Signature("root=/repo|maxTokens=2048|chat=a.py") {
		t.Error("different requests should produce different signatures")
	}
}

func TestMapCacheRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "compressed"
		}
		t.Run(name, func(t *testing.T) {
			mc, _ := newTestMapCache(t, compress)

			text := strings.Repeat("### src/app.py (score: 0.42)\n", 40)
			sig := Signature("req-1")

			if err := mc.Put(sig, text, 512, 40, 7); err != nil {
				t.Fatalf("Put: %v", err)
			}

			entry, ok := mc.Get(sig)
			if !ok {
				t.Fatal("Get should hit after Put")
			}
			if entry.Text != text {
				t.Error("round-tripped text differs")
			}
			if entry.TokenCount != 512 || entry.TagCount != 40 || entry.FileCount != 7 {
				t.Errorf("entry = %+v, want tokens 512 tags 40 files 7", entry)
			}
			if entry.CreatedAt == 0 {
				t.Error("CreatedAt not recorded")
			}
		})
	}
}

func TestMapCacheMiss(t *testing.T) {
	mc, _ := newTestMapCache(t, true)

	if _, ok := mc.Get(Signature("never-stored")); ok {
		t.Error("Get should miss for unknown signature")
	}
	if mc.Stats().Misses != 1 {
		t.Errorf("misses = %d, want 1", mc.Stats().Misses)
	}
}

func TestMapCacheLatest(t *testing.T) {
	mc, _ := newTestMapCache(t, true)

	if _, ok := mc.Latest(); ok {
		t.Error("Latest should miss on empty cache")
	}

	if err := mc.Put(Signature("req-1"), "first map", 10, 2, 1); err != nil {
		t.Fatal(err)
	}
	if err := mc.Put(Signature("req-2"), "second map", 20, 4, 2); err != nil {
		t.Fatal(err)
	}

	entry, ok := mc.Latest()
	if !ok {
		t.Fatal("Latest should hit after Put")
	}
	if entry.Text != "second map" {
		t.Errorf("Latest text = %q, want second map", entry.Text)
	}
}

func TestMapCacheCorruptBlob(t *testing.T) {
	mc, db := newTestMapCache(t, true)

	sig := Signature("req-1")
	if err := mc.Put(sig, "map body", 10, 2, 1); err != nil {
		t.Fatal(err)
	}

	if _, err := db.Exec("UPDATE map_cache SET map_blob = ? WHERE signature = ?", []byte("junk"), sig); err != nil {
		t.Fatal(err)
	}

	if _, ok := mc.Get(sig); ok {
		t.Error("Get should miss on corrupt blob")
	}
	if mc.Stats().Corruptions != 1 {
		t.Errorf("corruptions = %d, want 1", mc.Stats().Corruptions)
	}

	// Corrupt row was dropped.
	var rows int64
	if err := db.QueryRow("SELECT COUNT(*) FROM map_cache WHERE signature = ?", sig).Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if rows != 0 {
		t.Errorf("corrupt row still present")
	}
}

func TestMapCacheClear(t *testing.T) {
	mc, db := newTestMapCache(t, false)

	if err := mc.Put(Signature("req-1"), "map body", 10, 2, 1); err != nil {
		t.Fatal(err)
	}
	if err := mc.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if _, ok := mc.Get(Signature("req-1")); ok {
		t.Error("Get should miss after Clear")
	}
	if _, ok := mc.Latest(); ok {
		t.Error("Latest should miss after Clear")
	}

	var rows int64
	if err := db.QueryRow("SELECT COUNT(*) FROM map_cache").Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if rows != 0 {
		t.Errorf("rows after Clear = %d, want 0", rows)
	}
}

func TestMapCacheDegradedMode(t *testing.T) {
	logger := logging.NewLogger(logging.Config{Level: logging.ErrorLevel})
	mc, err := NewMapCache(nil, true, logger)
	if err != nil {
		t.Fatalf("NewMapCache: %v", err)
	}

	if err := mc.Put(Signature("req-1"), "map body", 10, 2, 1); err != nil {
		t.Errorf("Put in degraded mode: %v", err)
	}
	if _, ok := mc.Get(Signature("req-1")); ok {
		t.Error("degraded mode should always miss")
	}
	if _, ok := mc.Latest(); ok {
		t.Error("degraded Latest should miss")
	}
	if err := mc.Clear(); err != nil {
		t.Errorf("Clear in degraded mode: %v", err)
	}
}

func TestMapCacheStats(t *testing.T) {
	mc, _ := newTestMapCache(t, false)

	if err := mc.Put(Signature("req-1"), "some map text", 10, 3, 1); err != nil {
		t.Fatal(err)
	}
	if _, ok := mc.Get(Signature("req-1")); !ok {
		t.Fatal("expected hit")
	}

	stats := mc.Stats()
	if stats.Rows != 1 {
		t.Errorf("rows = %d, want 1", stats.Rows)
	}
	if stats.Bytes <= 0 {
		t.Errorf("bytes = %d, want positive", stats.Bytes)
	}
	if stats.Hits != 1 {
		t.Errorf("hits = %d, want 1", stats.Hits)
	}
}
