package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DirName is the per-repository state directory holding config.json,
// languages.toml and cache.db.
const DirName = ".repomap"

// Refresh modes control when a stored map may be served instead of
// generating a fresh one.
const (
	RefreshAuto         = "auto"
	RefreshAlways       = "always"
	RefreshFilesChanged = "files-changed"
	RefreshManual       = "manual"
)

// Config represents the complete repomap configuration (v1 schema)
type Config struct {
	Version  int    `json:"version" yaml:"version" mapstructure:"version"`
	RepoRoot string `json:"repoRoot" yaml:"repoRoot" mapstructure:"repoRoot"`

	Map       MapConfig       `json:"map" yaml:"map" mapstructure:"map"`
	Cache     CacheConfig     `json:"cache" yaml:"cache" mapstructure:"cache"`
	Scan      ScanConfig      `json:"scan" yaml:"scan" mapstructure:"scan"`
	Languages LanguagesConfig `json:"languages" yaml:"languages" mapstructure:"languages"`
	Scip      ScipConfig      `json:"scip" yaml:"scip" mapstructure:"scip"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging" mapstructure:"logging"`
}

// MapConfig controls map generation
type MapConfig struct {
	MaxTokens     int     `json:"maxTokens" yaml:"maxTokens" mapstructure:"maxTokens"`
	RefreshMode   string  `json:"refreshMode" yaml:"refreshMode" mapstructure:"refreshMode"`
	MapMulNoFiles float64 `json:"mapMulNoFiles" yaml:"mapMulNoFiles" mapstructure:"mapMulNoFiles"`
}

// CacheConfig controls the persistent tag and map caches
type CacheConfig struct {
	Dir           string `json:"dir" yaml:"dir" mapstructure:"dir"`
	MemoryEntries int    `json:"memoryEntries" yaml:"memoryEntries" mapstructure:"memoryEntries"`
	Compression   bool   `json:"compression" yaml:"compression" mapstructure:"compression"`
}

// ScanConfig controls repository file discovery
type ScanConfig struct {
	Excludes         []string `json:"excludes" yaml:"excludes" mapstructure:"excludes"`
	MaxFileSizeBytes int64    `json:"maxFileSizeBytes" yaml:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
	IncludeTests     bool     `json:"includeTests" yaml:"includeTests" mapstructure:"includeTests"`
}

// LanguagesConfig controls extension-to-language resolution
type LanguagesConfig struct {
	OverridesFile string `json:"overridesFile" yaml:"overridesFile" mapstructure:"overridesFile"`
}

// ScipConfig controls the optional SCIP index fast path
type ScipConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	IndexPath string `json:"indexPath" yaml:"indexPath" mapstructure:"indexPath"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" yaml:"format" mapstructure:"format"`
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:  1,
		RepoRoot: ".",
		Map: MapConfig{
			MaxTokens:     1024,
			RefreshMode:   RefreshAuto,
			MapMulNoFiles: 2.0,
		},
		Cache: CacheConfig{
			Dir:           DirName,
			MemoryEntries: 1024,
			Compression:   true,
		},
		Scan: ScanConfig{
			Excludes:         []string{},
			MaxFileSizeBytes: 1000000,
			IncludeTests:     true,
		},
		Languages: LanguagesConfig{
			OverridesFile: "languages.toml",
		},
		Scip: ScipConfig{
			Enabled:   false,
			IndexPath: ".scip/index.scip",
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .repomap/config.json, layered as
// defaults, then the file, then REPOMAP_* environment variables.
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()

	setDefaults(v, DefaultConfig())

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, DirName))

	v.SetEnvPrefix("REPOMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("repoRoot", d.RepoRoot)
	v.SetDefault("map.maxTokens", d.Map.MaxTokens)
	v.SetDefault("map.refreshMode", d.Map.RefreshMode)
	v.SetDefault("map.mapMulNoFiles", d.Map.MapMulNoFiles)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.memoryEntries", d.Cache.MemoryEntries)
	v.SetDefault("cache.compression", d.Cache.Compression)
	v.SetDefault("scan.excludes", d.Scan.Excludes)
	v.SetDefault("scan.maxFileSizeBytes", d.Scan.MaxFileSizeBytes)
	v.SetDefault("scan.includeTests", d.Scan.IncludeTests)
	v.SetDefault("languages.overridesFile", d.Languages.OverridesFile)
	v.SetDefault("scip.enabled", d.Scip.Enabled)
	v.SetDefault("scip.indexPath", d.Scip.IndexPath)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
}

// Save writes the configuration to .repomap/config.json
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, DirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// CacheDir resolves the cache directory relative to the repository root.
func (c *Config) CacheDir(repoRoot string) string {
	if filepath.IsAbs(c.Cache.Dir) {
		return c.Cache.Dir
	}
	return filepath.Join(repoRoot, c.Cache.Dir)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Map.MaxTokens <= 0 {
		return &ConfigError{Field: "map.maxTokens", Message: "must be positive"}
	}
	if c.Map.MapMulNoFiles < 1 {
		return &ConfigError{Field: "map.mapMulNoFiles", Message: "must be at least 1"}
	}
	switch c.Map.RefreshMode {
	case RefreshAuto, RefreshAlways, RefreshFilesChanged, RefreshManual:
	default:
		return &ConfigError{Field: "map.refreshMode", Message: "unknown refresh mode '" + c.Map.RefreshMode + "'"}
	}
	if c.Cache.MemoryEntries <= 0 {
		return &ConfigError{Field: "cache.memoryEntries", Message: "must be positive"}
	}
	switch c.Logging.Format {
	case "json", "human":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be 'json' or 'human'"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
