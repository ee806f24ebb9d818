package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// languageOverrides is the languages.toml schema: an [extensions] table
// mapping file extensions to registered language names.
type languageOverrides struct {
	Extensions map[string]string `toml:"extensions"`
}

// LoadLanguageOverrides reads the extension override table named by
// c.Languages.OverridesFile from the state directory. A missing file is
// not an error; an empty map is returned.
func (c *Config) LoadLanguageOverrides(repoRoot string) (map[string]string, error) {
	name := c.Languages.OverridesFile
	if name == "" {
		return map[string]string{}, nil
	}

	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(repoRoot, DirName, name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}

	var parsed languageOverrides
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, &ConfigError{Field: "languages.overridesFile", Message: err.Error()}
	}

	overrides := make(map[string]string, len(parsed.Extensions))
	for ext, lang := range parsed.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		overrides[ext] = strings.ToLower(strings.TrimSpace(lang))
	}
	return overrides, nil
}
