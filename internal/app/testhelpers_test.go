package app

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matthacksteiner/kinderlosfrei/internal/fetcher"
	"github.com/matthacksteiner/kinderlosfrei/internal/testutil"
	"github.com/stretchr/testify/require"
)

var sitePages = []testutil.Page{
	{URI: "home", Template: "home"},
	{URI: "about", Template: "default"},
	{URI: "blog", Template: "section", Items: []string{"post-1", "post-2"}},
}

type fixture struct {
	cms     *testutil.FakeCMS
	dir     string
	content string
	opts    OrchestratorOptions
}

func newFixture(t *testing.T, translations ...string) *fixture {
	t.Helper()

	cms := testutil.NewFakeCMS(t)
	cms.SeedSite("en", translations, sitePages)

	dir := t.TempDir()
	f := &fixture{
		cms:     cms,
		dir:     dir,
		content: filepath.Join(dir, "content"),
	}
	f.opts = OrchestratorOptions{
		APIBaseURL: cms.URL + "/",
		ContentDir: f.content,
		StateFile:  filepath.Join(dir, "state", "kirby-sync-state.json"),
		FetchOptions: fetcher.ClientOptions{
			Retries:    2,
			RetryDelay: time.Millisecond,
		},
		SkipMissingPages: true,
		StrictWrites:     true,
		Lock:             true,
	}
	return f
}

func (f *fixture) orchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(f.opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = o.Close() })
	return o
}

// readTree returns every file below dir keyed by slash separated path
func readTree(t *testing.T, dir string) map[string]string {
	t.Helper()
	tree := make(map[string]string)
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		tree[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return tree
}

// ageTree sets every file's mtime to stamp
func ageTree(t *testing.T, dir string, stamp time.Time) {
	t.Helper()
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		return os.Chtimes(p, stamp, stamp)
	})
	require.NoError(t, err)
}

func mtimes(t *testing.T, dir string) map[string]time.Time {
	t.Helper()
	out := make(map[string]time.Time)
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out[p] = info.ModTime()
		return nil
	})
	require.NoError(t, err)
	return out
}
