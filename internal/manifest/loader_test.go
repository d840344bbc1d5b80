package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load("/nonexistent/path/sites.yaml")

	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeManifest(t, "sites.yaml", `
sites:
  - name: main
    url: https://cms.example.com/
    content_dir: ./main/public/content
  - url: https://cms.other.example.com
    content_dir: ./other/public/content
    force_full_sync: true
    canonical_hash: false
options:
  continue_on_error: true
  concurrency: 4
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Sites, 2)
	assert.Equal(t, "main", cfg.Sites[0].Label())
	assert.Equal(t, "https://cms.example.com", cfg.Sites[0].URL)
	assert.Nil(t, cfg.Sites[0].ForceFullSync)

	require.NotNil(t, cfg.Sites[1].ForceFullSync)
	assert.True(t, *cfg.Sites[1].ForceFullSync)
	require.NotNil(t, cfg.Sites[1].CanonicalHash)
	assert.False(t, *cfg.Sites[1].CanonicalHash)
	assert.Equal(t, "cms.other.example.com", cfg.Sites[1].Label())

	assert.True(t, cfg.Options.ContinueOnError)
	assert.Equal(t, 4, cfg.Options.Concurrency)
	assert.Equal(t, "./.kirbysync", cfg.Options.StateDir)
}

func TestLoad_ValidJSON(t *testing.T) {
	path := writeManifest(t, "sites.JSON", `{
  "sites": [{"url": "https://cms.example.com", "content_dir": "content", "dedupe_default": true}],
  "options": {"state_dir": "/tmp/state"}
}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Sites, 1)
	require.NotNil(t, cfg.Sites[0].DedupeDefault)
	assert.True(t, *cfg.Sites[0].DedupeDefault)
	assert.Equal(t, "/tmp/state", cfg.Options.StateDir)
	assert.Equal(t, 2, cfg.Options.Concurrency)
	assert.False(t, cfg.Options.ContinueOnError)
}

func TestLoad_InvalidFormat(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"yaml", "sites.yml", "sites: [unclosed"},
		{"json", "sites.json", `{"sites": [}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeManifest(t, tt.file, tt.content))
			assert.ErrorIs(t, err, ErrInvalidFormat)
		})
	}
}

func TestLoad_ReadError(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrFileNotFound)
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("BLOG_CMS_URL", "https://blog-cms.example.com/")
	path := writeManifest(t, "sites.yaml", `
sites:
  - name: blog
    url: ${BLOG_CMS_URL}
    content_dir: ./blog/public/content
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://blog-cms.example.com", cfg.Sites[0].URL)
}

func TestLoad_UnsetVariableLeavesURLEmpty(t *testing.T) {
	t.Setenv("KIRBYSYNC_TEST_UNSET_URL", "")
	path := writeManifest(t, "sites.yaml", "sites:\n  - url: ${KIRBYSYNC_TEST_UNSET_URL}\n    content_dir: c\n")

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrEmptyURL)
}

func TestParse_UnsupportedExtension(t *testing.T) {
	_, err := Parse([]byte("sites = []"), ".toml")
	assert.ErrorIs(t, err, ErrUnsupportedExt)
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "no sites",
			content: "options:\n  continue_on_error: true\n",
			wantErr: ErrNoSites,
		},
		{
			name:    "missing url",
			content: "sites:\n  - content_dir: a\n",
			wantErr: ErrEmptyURL,
		},
		{
			name:    "missing content dir",
			content: "sites:\n  - url: https://cms.example.com\n",
			wantErr: ErrEmptyContentDir,
		},
		{
			name: "same content dir twice",
			content: `sites:
  - {name: a, url: https://a.example.com, content_dir: ./content}
  - {name: b, url: https://b.example.com, content_dir: content/}
`,
			wantErr: ErrDuplicateContentDir,
		},
		{
			name: "same host without names",
			content: `sites:
  - {url: https://cms.example.com, content_dir: one}
  - {url: https://cms.example.com/, content_dir: two}
`,
			wantErr: ErrDuplicateName,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content), ".yaml")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSite_StateDir(t *testing.T) {
	site := Site{URL: "https://cms.example.com:8443/api", ContentDir: "c"}

	assert.Equal(t, "cms.example.com:8443", site.Label())
	assert.Equal(t, filepath.Join("state", "cms.example.com_8443"), site.StateDir("state"))

	named := Site{Name: "blog/en", URL: "https://cms.example.com"}
	assert.Equal(t, filepath.Join("state", "blog_en"), named.StateDir("state"))
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.False(t, opts.ContinueOnError)
	assert.Equal(t, 2, opts.Concurrency)
	assert.Equal(t, "./.kirbysync", opts.StateDir)
}
