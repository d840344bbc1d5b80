package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadOptions controls where configuration is read from
type LoadOptions struct {
	// ConfigFile is an explicit config file; empty searches ./ and ConfigDir()
	ConfigFile string
	// EnvFile is loaded into the process environment before reading it
	EnvFile string
}

// legacyEnv maps config keys to the environment names the build plugins
// have always used. KIRBYSYNC_* names take precedence.
var legacyEnv = map[string]string{
	"api.base_url":    "KIRBY_URL",
	"sync.force_full": "FORCE_FULL_SYNC",
	"build.mode":      "NODE_ENV",
}

// LoadWithOptions loads configuration into v using opts
func LoadWithOptions(v *viper.Viper, opts LoadOptions) (*Config, error) {
	if opts.EnvFile != "" {
		// godotenv never overrides variables that are already set
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	setDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(ConfigDir())
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	// Environment variables (KIRBYSYNC_*)
	v.SetEnvPrefix("KIRBYSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := "KIRBYSYNC_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate and apply defaults for invalid values
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Build.Tolerant = EnvFlag(cfg.Build.TolerantEnv)

	return &cfg, nil
}

// EnvFlag reports whether the environment variable name is set to a truthy
// value. Hosting platforms set flags like NETLIFY=true, so any non-empty
// value other than an explicit false counts.
func EnvFlag(name string) bool {
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return false
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return true
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.base_url", "")
	v.SetDefault("api.timeout", DefaultTimeout)
	v.SetDefault("api.retries", DefaultRetries)
	v.SetDefault("api.retry_delay", DefaultRetryDelay)
	v.SetDefault("api.max_retry_delay", DefaultMaxRetryDelay)
	v.SetDefault("api.backoff", DefaultBackoff)
	v.SetDefault("api.user_agent", "")

	// Content defaults
	v.SetDefault("content.directory", DefaultContentDir)
	v.SetDefault("content.clean_exclude", []string{})

	// Sync defaults
	v.SetDefault("sync.force_full", false)
	v.SetDefault("sync.canonical_hash", false)
	v.SetDefault("sync.skip_missing_pages", DefaultSkipMissingPages)
	v.SetDefault("sync.strict_writes", DefaultStrictWrites)
	v.SetDefault("sync.concurrency", DefaultConcurrency)
	v.SetDefault("sync.dedupe_default", false)
	v.SetDefault("sync.lock", DefaultLock)
	v.SetDefault("sync.progress", false)

	// Cache defaults
	v.SetDefault("cache.enabled", DefaultCacheEnabled)
	v.SetDefault("cache.directory", CacheDir())
	v.SetDefault("cache.state_dir", DefaultStateDir)
	v.SetDefault("cache.ttl", DefaultCacheTTL)

	// Build defaults
	v.SetDefault("build.mode", ModeProduction)
	v.SetDefault("build.tolerant_env", DefaultTolerantEnv)

	// Logging defaults
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
}
