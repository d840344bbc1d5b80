package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/matthacksteiner/kinderlosfrei/internal/config"
	"github.com/matthacksteiner/kinderlosfrei/internal/fetcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.API.BaseURL = "https://cms.example.com"
	cfg.API.Backoff = "exponential"
	cfg.API.Retries = 5
	cfg.Content.Directory = "public/content"
	cfg.Content.CleanExclude = []string{".gitkeep"}
	cfg.Cache.StateDir = "state"
	cfg.Sync.Concurrency = 2
	cfg.Sync.CanonicalHash = true
	require.NoError(t, cfg.Validate())

	opts := OptionsFromConfig(cfg, nil)

	assert.Equal(t, "https://cms.example.com", opts.APIBaseURL)
	assert.Equal(t, "public/content", opts.ContentDir)
	assert.Equal(t, filepath.Join("state", "kirby-sync-state.json"), opts.StateFile)
	assert.Equal(t, filepath.Join("state", ".kirbysync.lock"), opts.LockPath)
	assert.Equal(t, fetcher.BackoffExponential, opts.FetchOptions.Backoff)
	assert.Equal(t, 5, opts.FetchOptions.Retries)
	assert.Equal(t, 30*time.Second, opts.FetchOptions.Timeout)
	assert.Equal(t, 2, opts.Concurrency)
	assert.Equal(t, []string{".gitkeep"}, opts.CleanExclude)
	assert.True(t, opts.CanonicalHash)
	assert.True(t, opts.SkipMissingPages)
	assert.True(t, opts.StrictWrites)
	assert.True(t, opts.Lock)
	assert.False(t, opts.DedupeDefault)
}

func TestOptionsFromConfig_BuildsOrchestrator(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.API.BaseURL = "https://cms.example.com/"
	cfg.Content.Directory = filepath.Join(dir, "content")
	cfg.Cache.StateDir = filepath.Join(dir, "state")
	require.NoError(t, cfg.Validate())

	o, err := NewOrchestrator(OptionsFromConfig(cfg, NewLogger(cfg, false)))
	require.NoError(t, err)
	defer o.Close()

	assert.Equal(t, "https://cms.example.com", o.BaseURL())
	assert.Equal(t, filepath.Join(dir, "state", "kirby-sync-state.json"), o.State().Path())
}
