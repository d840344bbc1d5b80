package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default values
const (
	// API defaults
	DefaultTimeout       = 30 * time.Second
	DefaultRetries       = 3
	DefaultRetryDelay    = 1 * time.Second
	DefaultMaxRetryDelay = 30 * time.Second
	DefaultBackoff       = "fixed"

	// Content defaults
	DefaultContentDir = "./public/content"

	// Sync defaults
	DefaultConcurrency      = 1
	DefaultSkipMissingPages = true
	DefaultStrictWrites     = true
	DefaultLock             = true

	// Cache defaults
	DefaultCacheEnabled = true
	DefaultCacheTTL     = 30 * 24 * time.Hour
	DefaultStateDir     = "./.kirbysync"

	// Build defaults
	ModeProduction     = "production"
	ModeDevelopment    = "development"
	DefaultTolerantEnv = "NETLIFY"

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "pretty"

	StateFileName = "kirby-sync-state.json"
	LockFileName  = ".kirbysync.lock"
)

// ConfigDir returns the config directory path
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kirbysync"
	}
	return filepath.Join(home, ".kirbysync")
}

// CacheDir returns the cache directory path
func CacheDir() string {
	return filepath.Join(ConfigDir(), "cache")
}

// ConfigFilePath returns the config file path
func ConfigFilePath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		API: APIConfig{
			Timeout:       DefaultTimeout,
			Retries:       DefaultRetries,
			RetryDelay:    DefaultRetryDelay,
			MaxRetryDelay: DefaultMaxRetryDelay,
			Backoff:       DefaultBackoff,
		},
		Content: ContentConfig{
			Directory: DefaultContentDir,
		},
		Sync: SyncConfig{
			SkipMissingPages: DefaultSkipMissingPages,
			StrictWrites:     DefaultStrictWrites,
			Concurrency:      DefaultConcurrency,
			Lock:             DefaultLock,
		},
		Cache: CacheConfig{
			Enabled:   DefaultCacheEnabled,
			Directory: CacheDir(),
			StateDir:  DefaultStateDir,
			TTL:       DefaultCacheTTL,
		},
		Build: BuildConfig{
			Mode:        ModeProduction,
			TolerantEnv: DefaultTolerantEnv,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
