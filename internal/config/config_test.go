package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv neutralizes variables the loader reads so the host environment
// cannot leak into a test
func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	for _, name := range []string{
		"KIRBY_URL", "FORCE_FULL_SYNC", "NODE_ENV", "NETLIFY",
		"KIRBYSYNC_API_BASE_URL", "KIRBYSYNC_SYNC_FORCE_FULL", "KIRBYSYNC_BUILD_MODE",
		"KIRBYSYNC_SYNC_CONCURRENCY", "KIRBYSYNC_API_BACKOFF", "KIRBYSYNC_BUILD_TOLERANT_ENV",
	} {
		t.Setenv(name, "")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		check   func(*testing.T, *Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			modify: func(c *Config) {},
		},
		{
			name:   "base url trailing slash is trimmed",
			modify: func(c *Config) { c.API.BaseURL = "https://cms.example.com/ " },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "https://cms.example.com", c.API.BaseURL)
			},
		},
		{
			name:    "base url without scheme is rejected",
			modify:  func(c *Config) { c.API.BaseURL = "cms.example.com" },
			wantErr: true,
		},
		{
			name:   "empty base url is allowed",
			modify: func(c *Config) { c.API.BaseURL = "" },
		},
		{
			name:   "retries below minimum defaults to 3",
			modify: func(c *Config) { c.API.Retries = 0 },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, DefaultRetries, c.API.Retries)
			},
		},
		{
			name:   "timeout below minimum defaults to 30s",
			modify: func(c *Config) { c.API.Timeout = 100 * time.Millisecond },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, DefaultTimeout, c.API.Timeout)
			},
		},
		{
			name: "max retry delay never below retry delay",
			modify: func(c *Config) {
				c.API.RetryDelay = time.Minute
				c.API.MaxRetryDelay = time.Second
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, time.Minute, c.API.MaxRetryDelay)
			},
		},
		{
			name:   "backoff is case insensitive",
			modify: func(c *Config) { c.API.Backoff = "Exponential" },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "exponential", c.API.Backoff)
			},
		},
		{
			name:    "unknown backoff is rejected",
			modify:  func(c *Config) { c.API.Backoff = "linear" },
			wantErr: true,
		},
		{
			name: "empty content dir and zero concurrency fall back",
			modify: func(c *Config) {
				c.Content.Directory = "  "
				c.Sync.Concurrency = 0
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, DefaultContentDir, c.Content.Directory)
				assert.Equal(t, 1, c.Sync.Concurrency)
			},
		},
		{
			name: "cache settings fall back",
			modify: func(c *Config) {
				c.Cache.TTL = time.Second
				c.Cache.StateDir = ""
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, DefaultCacheTTL, c.Cache.TTL)
				assert.Equal(t, DefaultStateDir, c.Cache.StateDir)
			},
		},
		{
			name:   "unknown log format falls back to pretty",
			modify: func(c *Config) { c.Logging.Format = "xml" },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "pretty", c.Logging.Format)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 3, cfg.API.Retries)
	assert.Equal(t, time.Second, cfg.API.RetryDelay)
	assert.Equal(t, "fixed", cfg.API.Backoff)
	assert.Equal(t, "./public/content", cfg.Content.Directory)
	assert.True(t, cfg.Sync.SkipMissingPages)
	assert.True(t, cfg.Sync.StrictWrites)
	assert.True(t, cfg.Sync.Lock)
	assert.False(t, cfg.Sync.DedupeDefault)
	assert.False(t, cfg.Sync.CanonicalHash)
	assert.Equal(t, "NETLIFY", cfg.Build.TolerantEnv)
	assert.False(t, cfg.Build.IsDevelopment())
}

func TestConfig_Paths(t *testing.T) {
	cfg := Default()
	cfg.Cache.StateDir = "/var/cache/site"

	assert.Equal(t, "/var/cache/site/kirby-sync-state.json", cfg.StateFile())
	assert.Equal(t, "/var/cache/site/.kirbysync.lock", cfg.LockFile())
}

func TestBuildConfig_IsDevelopment(t *testing.T) {
	assert.True(t, BuildConfig{Mode: "development"}.IsDevelopment())
	assert.True(t, BuildConfig{Mode: "Development"}.IsDevelopment())
	assert.False(t, BuildConfig{Mode: "production"}.IsDevelopment())
	assert.False(t, BuildConfig{}.IsDevelopment())
}

func TestLoadWithOptions_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadWithOptions(viper.New(), LoadOptions{})
	require.NoError(t, err)

	assert.Empty(t, cfg.API.BaseURL)
	assert.Equal(t, DefaultContentDir, cfg.Content.Directory)
	assert.Equal(t, DefaultTimeout, cfg.API.Timeout)
	assert.False(t, cfg.Build.Tolerant)
}

func TestLoadWithOptions_ConfigFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "kirbysync.yaml")
	content := `api:
  base_url: https://cms.example.com/
  retries: 5
  backoff: exponential
content:
  directory: ./site/content
  clean_exclude: [".gitkeep"]
sync:
  concurrency: 4
  canonical_hash: true
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadWithOptions(viper.New(), LoadOptions{ConfigFile: path})
	require.NoError(t, err)

	assert.Equal(t, "https://cms.example.com", cfg.API.BaseURL)
	assert.Equal(t, 5, cfg.API.Retries)
	assert.Equal(t, "exponential", cfg.API.Backoff)
	assert.Equal(t, "./site/content", cfg.Content.Directory)
	assert.Equal(t, []string{".gitkeep"}, cfg.Content.CleanExclude)
	assert.Equal(t, 4, cfg.Sync.Concurrency)
	assert.True(t, cfg.Sync.CanonicalHash)
	assert.True(t, cfg.Sync.SkipMissingPages)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadWithOptions_InvalidConfigFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unclosed"), 0644))

	_, err := LoadWithOptions(viper.New(), LoadOptions{ConfigFile: path})
	assert.Error(t, err)
}

func TestLoadWithOptions_LegacyEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("KIRBY_URL", "https://legacy.example.com/")
	t.Setenv("FORCE_FULL_SYNC", "true")
	t.Setenv("NODE_ENV", "development")
	t.Setenv("NETLIFY", "true")

	cfg, err := LoadWithOptions(viper.New(), LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "https://legacy.example.com", cfg.API.BaseURL)
	assert.True(t, cfg.Sync.ForceFull)
	assert.True(t, cfg.Build.IsDevelopment())
	assert.True(t, cfg.Build.Tolerant)
}

func TestLoadWithOptions_PrefixedEnvironmentWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("KIRBY_URL", "https://legacy.example.com")
	t.Setenv("KIRBYSYNC_API_BASE_URL", "https://new.example.com")
	t.Setenv("KIRBYSYNC_SYNC_CONCURRENCY", "3")

	cfg, err := LoadWithOptions(viper.New(), LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "https://new.example.com", cfg.API.BaseURL)
	assert.Equal(t, 3, cfg.Sync.Concurrency)
}

func TestLoadWithOptions_TolerantEnvIsConfigurable(t *testing.T) {
	clearEnv(t)
	t.Setenv("KIRBYSYNC_BUILD_TOLERANT_ENV", "VERCEL")
	t.Setenv("VERCEL", "1")
	t.Setenv("NETLIFY", "true")

	cfg, err := LoadWithOptions(viper.New(), LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "VERCEL", cfg.Build.TolerantEnv)
	assert.True(t, cfg.Build.Tolerant)
}

func TestLoadWithOptions_EnvFile(t *testing.T) {
	clearEnv(t)
	// registered for cleanup, then removed so the .env file can set it
	require.NoError(t, os.Unsetenv("KIRBY_URL"))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("KIRBY_URL=https://dotenv.example.com\n"), 0644))

	cfg, err := LoadWithOptions(viper.New(), LoadOptions{EnvFile: path})
	require.NoError(t, err)
	assert.Equal(t, "https://dotenv.example.com", cfg.API.BaseURL)
}

func TestLoadWithOptions_MissingEnvFileIsIgnored(t *testing.T) {
	clearEnv(t)

	_, err := LoadWithOptions(viper.New(), LoadOptions{EnvFile: filepath.Join(t.TempDir(), ".env")})
	assert.NoError(t, err)
}

func TestLoadWithOptions_InvalidBackoffFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("KIRBYSYNC_API_BACKOFF", "random")

	_, err := LoadWithOptions(viper.New(), LoadOptions{})
	assert.Error(t, err)
}

func TestEnvFlag(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"", false},
		{"true", true},
		{"1", true},
		{"false", false},
		{"0", false},
		{"yes", true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("KIRBYSYNC_TEST_FLAG", tt.value)
			assert.Equal(t, tt.want, EnvFlag("KIRBYSYNC_TEST_FLAG"))
		})
	}

	assert.False(t, EnvFlag("KIRBYSYNC_TEST_FLAG_NEVER_SET"))
}

func TestConfigDirs(t *testing.T) {
	t.Setenv("HOME", "/home/builder")

	assert.Equal(t, "/home/builder/.kirbysync", ConfigDir())
	assert.Equal(t, "/home/builder/.kirbysync/cache", CacheDir())
	assert.Equal(t, "/home/builder/.kirbysync/config.yaml", ConfigFilePath())
}
