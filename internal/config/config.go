package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Content ContentConfig `mapstructure:"content" yaml:"content"`
	Sync    SyncConfig    `mapstructure:"sync" yaml:"sync"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Build   BuildConfig   `mapstructure:"build" yaml:"build"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// APIConfig contains CMS API settings
type APIConfig struct {
	BaseURL       string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Retries       int           `mapstructure:"retries" yaml:"retries"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	MaxRetryDelay time.Duration `mapstructure:"max_retry_delay" yaml:"max_retry_delay"`
	Backoff       string        `mapstructure:"backoff" yaml:"backoff"`
	UserAgent     string        `mapstructure:"user_agent" yaml:"user_agent"`
}

// ContentConfig contains content tree settings
type ContentConfig struct {
	Directory    string   `mapstructure:"directory" yaml:"directory"`
	CleanExclude []string `mapstructure:"clean_exclude" yaml:"clean_exclude"`
}

// SyncConfig contains sync behaviour settings
type SyncConfig struct {
	ForceFull        bool `mapstructure:"force_full" yaml:"force_full"`
	CanonicalHash    bool `mapstructure:"canonical_hash" yaml:"canonical_hash"`
	SkipMissingPages bool `mapstructure:"skip_missing_pages" yaml:"skip_missing_pages"`
	StrictWrites     bool `mapstructure:"strict_writes" yaml:"strict_writes"`
	Concurrency      int  `mapstructure:"concurrency" yaml:"concurrency"`
	DedupeDefault    bool `mapstructure:"dedupe_default" yaml:"dedupe_default"`
	Lock             bool `mapstructure:"lock" yaml:"lock"`
	Progress         bool `mapstructure:"progress" yaml:"progress"`
}

// CacheConfig contains build cache settings
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	Directory string        `mapstructure:"directory" yaml:"directory"`
	StateDir  string        `mapstructure:"state_dir" yaml:"state_dir"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// BuildConfig contains build lifecycle settings
type BuildConfig struct {
	Mode        string `mapstructure:"mode" yaml:"mode"`
	TolerantEnv string `mapstructure:"tolerant_env" yaml:"tolerant_env"`

	// Tolerant is resolved from the environment variable named by TolerantEnv
	Tolerant bool `mapstructure:"-" yaml:"-"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// IsDevelopment reports whether the build runs in development mode
func (b BuildConfig) IsDevelopment() bool {
	return strings.EqualFold(b.Mode, ModeDevelopment)
}

// StateFile returns the path of the sync state file
func (c *Config) StateFile() string {
	return filepath.Join(c.Cache.StateDir, StateFileName)
}

// LockFile returns the path of the cross-process sync lock
func (c *Config) LockFile() string {
	return filepath.Join(c.Cache.StateDir, LockFileName)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid api.base_url %q: must be an http(s) URL", c.API.BaseURL)
		}
	}
	if c.API.Timeout < time.Second {
		c.API.Timeout = DefaultTimeout
	}
	if c.API.Retries < 1 {
		c.API.Retries = DefaultRetries
	}
	if c.API.RetryDelay < 0 {
		c.API.RetryDelay = DefaultRetryDelay
	}
	if c.API.MaxRetryDelay < c.API.RetryDelay {
		c.API.MaxRetryDelay = max(c.API.RetryDelay, DefaultMaxRetryDelay)
	}
	switch strings.ToLower(c.API.Backoff) {
	case "":
		c.API.Backoff = DefaultBackoff
	case "fixed", "exponential":
		c.API.Backoff = strings.ToLower(c.API.Backoff)
	default:
		return fmt.Errorf("invalid api.backoff %q: use fixed or exponential", c.API.Backoff)
	}

	if strings.TrimSpace(c.Content.Directory) == "" {
		c.Content.Directory = DefaultContentDir
	}
	if c.Sync.Concurrency < 1 {
		c.Sync.Concurrency = DefaultConcurrency
	}

	if c.Cache.TTL < time.Minute {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Cache.StateDir == "" {
		c.Cache.StateDir = DefaultStateDir
	}
	if c.Cache.Directory == "" {
		c.Cache.Directory = CacheDir()
	}

	if c.Build.Mode == "" {
		c.Build.Mode = ModeProduction
	}
	if c.Build.TolerantEnv == "" {
		c.Build.TolerantEnv = DefaultTolerantEnv
	}

	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format != "json" && c.Logging.Format != "pretty" {
		c.Logging.Format = DefaultLogFormat
	}
	return nil
}
