package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// decoders maps manifest file extensions to their unmarshaler
var decoders = map[string]func([]byte, any) error{
	".yaml": yaml.Unmarshal,
	".yml":  yaml.Unmarshal,
	".json": json.Unmarshal,
}

// Load reads the manifest at path. ${VAR} references are expanded from the
// environment before decoding, so CI can inject CMS URLs.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	case err != nil:
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}
	return Parse([]byte(os.ExpandEnv(string(data))), filepath.Ext(path))
}

// Parse decodes a manifest in the format named by ext (".yaml", ".yml" or
// ".json"), fills in defaults and validates it.
func Parse(data []byte, ext string) (*Config, error) {
	decode, ok := decoders[strings.ToLower(ext)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExt, ext)
	}

	cfg := &Config{}
	if err := decode(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	defaults := DefaultOptions()
	if c.Options.Concurrency <= 0 {
		c.Options.Concurrency = defaults.Concurrency
	}
	if c.Options.StateDir == "" {
		c.Options.StateDir = defaults.StateDir
	}
	for i := range c.Sites {
		c.Sites[i].URL = strings.TrimRight(strings.TrimSpace(c.Sites[i].URL), "/")
	}
}
