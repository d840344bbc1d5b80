package manifest

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Config represents the complete manifest configuration
type Config struct {
	Sites   []Site  `yaml:"sites" json:"sites"`
	Options Options `yaml:"options" json:"options"`
}

// Site is one CMS installation mirrored into its own content directory
type Site struct {
	Name          string `yaml:"name,omitempty" json:"name,omitempty"`
	URL           string `yaml:"url" json:"url"`
	ContentDir    string `yaml:"content_dir" json:"content_dir"`
	ForceFullSync *bool  `yaml:"force_full_sync,omitempty" json:"force_full_sync,omitempty"`
	CanonicalHash *bool  `yaml:"canonical_hash,omitempty" json:"canonical_hash,omitempty"`
	DedupeDefault *bool  `yaml:"dedupe_default,omitempty" json:"dedupe_default,omitempty"`
}

// Options represents global manifest options
type Options struct {
	ContinueOnError bool   `yaml:"continue_on_error" json:"continue_on_error"`
	Concurrency     int    `yaml:"concurrency,omitempty" json:"concurrency,omitempty"`
	StateDir        string `yaml:"state_dir,omitempty" json:"state_dir,omitempty"`
}

// Label returns the site name, falling back to the API host
func (s Site) Label() string {
	if s.Name != "" {
		return s.Name
	}
	if u, err := url.Parse(s.URL); err == nil && u.Host != "" {
		return u.Host
	}
	return s.URL
}

// StateDir returns the per-site state directory below base
func (s Site) StateDir(base string) string {
	name := strings.NewReplacer("/", "_", ":", "_", "\\", "_").Replace(s.Label())
	return filepath.Join(base, name)
}

// Validate validates the manifest configuration
func (c *Config) Validate() error {
	if len(c.Sites) == 0 {
		return ErrNoSites
	}
	dirs := make(map[string]int, len(c.Sites))
	labels := make(map[string]int, len(c.Sites))
	for i, site := range c.Sites {
		if site.URL == "" {
			return fmt.Errorf("site %d: %w", i, ErrEmptyURL)
		}
		if site.ContentDir == "" {
			return fmt.Errorf("site %d: %w", i, ErrEmptyContentDir)
		}
		dir := filepath.Clean(site.ContentDir)
		if j, ok := dirs[dir]; ok {
			return fmt.Errorf("sites %d and %d: %w: %s", j, i, ErrDuplicateContentDir, dir)
		}
		dirs[dir] = i
		if j, ok := labels[site.Label()]; ok {
			return fmt.Errorf("sites %d and %d: %w: %s", j, i, ErrDuplicateName, site.Label())
		}
		labels[site.Label()] = i
	}
	return nil
}

// DefaultOptions returns options with sensible defaults
func DefaultOptions() Options {
	return Options{
		ContinueOnError: false,
		Concurrency:     2,
		StateDir:        "./.kirbysync",
	}
}
