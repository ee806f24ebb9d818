package cache

// TagCacheStats summarizes tag cache state for the stats command.
type TagCacheStats struct {
	MemoryEntries int   `json:"memoryEntries" yaml:"memoryEntries"`
	Rows          int64 `json:"rows" yaml:"rows"`
	Bytes         int64 `json:"bytes" yaml:"bytes"`
	Hits          int64 `json:"hits" yaml:"hits"`
	Misses        int64 `json:"misses" yaml:"misses"`
	Extractions   int64 `json:"extractions" yaml:"extractions"`
	Corruptions   int64 `json:"corruptions" yaml:"corruptions"`
}

// MapCacheStats summarizes map cache state for the stats command.
type MapCacheStats struct {
	Rows        int64 `json:"rows" yaml:"rows"`
	Bytes       int64 `json:"bytes" yaml:"bytes"`
	Hits        int64 `json:"hits" yaml:"hits"`
	Misses      int64 `json:"misses" yaml:"misses"`
	Corruptions int64 `json:"corruptions" yaml:"corruptions"`
}

// Stats bundles both cache layers.
type Stats struct {
	Tags TagCacheStats `json:"tags" yaml:"tags"`
	Maps MapCacheStats `json:"maps" yaml:"maps"`
}
