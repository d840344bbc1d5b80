package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/matthacksteiner/kinderlosfrei/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pages = []testutil.Page{
	{URI: "home", Template: "home"},
	{URI: "blog", Template: "section", Items: []string{"first-post"}},
}

// isolate runs the command in an empty working directory and home with the
// legacy environment variables cleared.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(dir)
	for _, name := range []string{"KIRBY_URL", "FORCE_FULL_SYNC", "NETLIFY", "NODE_ENV", "KIRBYSYNC_API_BASE_URL"} {
		t.Setenv(name, "")
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSyncCommand(t *testing.T) {
	dir := isolate(t)
	cms := testutil.NewFakeCMS(t)
	cms.SeedSite("en", []string{"de"}, pages)

	out, err := execute(t, "sync", "--url", cms.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Synced 15 of 15 files (full mode)")

	assert.FileExists(t, filepath.Join(dir, "public", "content", "home.json"))
	assert.FileExists(t, filepath.Join(dir, "public", "content", "de", "blog.json"))
	assert.FileExists(t, filepath.Join(dir, ".kirbysync", "kirby-sync-state.json"))

	out, err = execute(t, "sync", "--url", cms.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Content is up to date")

	out, err = execute(t, "sync", "--url", cms.URL, "--full", "-o", "site/content")
	require.NoError(t, err)
	assert.Contains(t, out, "full mode")
	assert.FileExists(t, filepath.Join(dir, "site", "content", "en", "home.json"))
}

func TestSyncCommand_LegacyEnvironment(t *testing.T) {
	dir := isolate(t)
	cms := testutil.NewFakeCMS(t)
	cms.SeedSite("en", nil, pages)
	t.Setenv("KIRBY_URL", cms.URL)

	_, err := execute(t, "sync")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "public", "content", "blog.json"))

	t.Setenv("FORCE_FULL_SYNC", "true")
	out, err := execute(t, "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "full mode")
}

func TestSyncCommand_Errors(t *testing.T) {
	isolate(t)

	_, err := execute(t, "sync")
	assert.Error(t, err)

	_, err = execute(t, "sync", "--url", "ftp://cms.example.com")
	assert.Error(t, err)

	_, err = execute(t, "sync", "--url", "https://cms.example.com", "--backoff", "random")
	assert.Error(t, err)
}

func TestPrebuildCommand(t *testing.T) {
	t.Run("development mode skips", func(t *testing.T) {
		dir := isolate(t)
		cms := testutil.NewFakeCMS(t)
		cms.SeedSite("en", nil, pages)
		t.Setenv("NODE_ENV", "development")

		_, err := execute(t, "prebuild", "--url", cms.URL)
		require.NoError(t, err)
		assert.Zero(t, cms.TotalHits())
		assert.NoDirExists(t, filepath.Join(dir, "public", "content"))
	})

	t.Run("tolerant host keeps building", func(t *testing.T) {
		isolate(t)
		cms := testutil.NewFakeCMS(t)
		cms.SetStatus("/global.json", 500)
		t.Setenv("NETLIFY", "true")

		_, err := execute(t, "prebuild", "--url", cms.URL, "--retries", "1")
		assert.NoError(t, err)
	})

	t.Run("strict host fails", func(t *testing.T) {
		isolate(t)
		cms := testutil.NewFakeCMS(t)
		cms.SetStatus("/global.json", 500)

		_, err := execute(t, "prebuild", "--url", cms.URL, "--retries", "1")
		assert.Error(t, err)
	})
}

func TestPrebuildPostbuildRoundTrip(t *testing.T) {
	dir := isolate(t)
	cms := testutil.NewFakeCMS(t)
	cms.SeedSite("en", []string{"de"}, pages)

	_, err := execute(t, "prebuild", "--url", cms.URL)
	require.NoError(t, err)
	_, err = execute(t, "postbuild", "--url", cms.URL)
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(filepath.Join(dir, ".kirbysync")))

	out, err := execute(t, "prebuild", "--url", cms.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Content is up to date")

	out, err = execute(t, "doctor", "--url", cms.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "1 cached sync states")

	out, err = execute(t, "state", "clear", "--url", cms.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed cached sync state")

	out, err = execute(t, "prebuild", "--url", cms.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "full mode")
}

func TestManifestCommand(t *testing.T) {
	dir := isolate(t)
	first := testutil.NewFakeCMS(t)
	first.SeedSite("en", nil, pages)
	second := testutil.NewFakeCMS(t)
	second.SeedSite("de", []string{"en"}, pages)

	manifestPath := filepath.Join(dir, "sites.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte(`sites:
  - name: first
    url: `+first.URL+`
    content_dir: first/content
  - name: second
    url: `+second.URL+`
    content_dir: second/content
options:
  concurrency: 2
`), 0644))

	out, err := execute(t, "manifest", manifestPath)
	require.NoError(t, err)
	assert.Contains(t, out, "SITE")
	assert.Contains(t, out, "first")
	assert.Contains(t, out, "second")

	assert.FileExists(t, filepath.Join(dir, "first", "content", "en", "home.json"))
	assert.FileExists(t, filepath.Join(dir, "second", "content", "de", "home.json"))
	assert.FileExists(t, filepath.Join(dir, "second", "content", "en", "blog.json"))

	_, err = execute(t, "manifest", filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestStateCommand(t *testing.T) {
	isolate(t)
	cms := testutil.NewFakeCMS(t)
	cms.SeedSite("en", nil, pages)

	out, err := execute(t, "state")
	require.NoError(t, err)
	assert.Contains(t, out, "No sync state")

	_, err = execute(t, "sync", "--url", cms.URL)
	require.NoError(t, err)

	out, err = execute(t, "state")
	require.NoError(t, err)
	assert.Contains(t, out, "Resources:   8")
	assert.Regexp(t, `Content: +[1-9][0-9]* files`, out)

	out, err = execute(t, "state", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "1.0.0"`)

	_, err = execute(t, "state", "clear")
	require.NoError(t, err)
	out, err = execute(t, "state")
	require.NoError(t, err)
	assert.Contains(t, out, "No sync state")
}

func TestDoctorCommand(t *testing.T) {
	isolate(t)
	cms := testutil.NewFakeCMS(t)
	cms.SeedSite("en", []string{"de", "fr"}, pages)

	out, err := execute(t, "doctor", "--url", cms.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "languages en, de, fr")
	assert.Contains(t, out, "All checks passed!")

	out, err = execute(t, "doctor")
	assert.Error(t, err)
	assert.Contains(t, out, "api.base_url is not set")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "kirbysync")
}
