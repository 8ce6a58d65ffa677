package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
openrouter:
  model_job_links: google/gemini-2.5-flash
runtime:
  concurrency: 4
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.firecrawl.dev", cfg.Firecrawl.BaseURL)
	assert.Equal(t, 30, cfg.Firecrawl.RequestTimeout)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.OpenRouter.BaseURL)
	assert.Equal(t, "google/gemini-2.5-flash", cfg.OpenRouter.ModelJobLinks)
	assert.Equal(t, 4, cfg.OpenRouter.MaxRetries)
	assert.Equal(t, "Jobs", cfg.GoogleSheets.WorksheetName)
	assert.Equal(t, "data/cache.sqlite", cfg.Runtime.CachePath)
	assert.Equal(t, 4, cfg.Runtime.Concurrency)
	assert.Equal(t, 20.0, cfg.Runtime.BambooHRTimeout)
}

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	_, res := NormalizeAndValidate(cfg)
	assert.True(t, res.OK(), "errors: %v", res.Errors)
}

func TestNormalizeAndValidate(t *testing.T) {
	cfg := Default()
	cfg.App.Port = 0
	cfg.Runtime.Concurrency = -1
	cfg.OpenRouter.Temperature = 3

	_, res := NormalizeAndValidate(cfg)
	assert.False(t, res.OK())
	assert.Contains(t, res.Errors, "app.port must be 1..65535")
	assert.Contains(t, res.Errors, "runtime.concurrency must be > 0")
	assert.Contains(t, res.Errors, "openrouter.temperature must be 0..2")
}

func TestNormalizeTrimsCareersURLs(t *testing.T) {
	cfg := Default()
	cfg.Runtime.CareersURLs = []string{
		" https://acme.io/careers ",
		"https://acme.io/careers",
		"",
		"https://other.io/jobs",
	}
	out, res := NormalizeAndValidate(cfg)
	require.True(t, res.OK(), "errors: %v", res.Errors)
	assert.Equal(t, []string{"https://acme.io/careers", "https://other.io/jobs"}, out.Runtime.CareersURLs)
}

func TestOverlaySources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yml")
	require.NoError(t, os.WriteFile(path, []byte("careers_urls:\n  - https://acme.io/careers\n"), 0o644))

	cfg := Default()
	require.NoError(t, OverlaySources(&cfg, path))
	assert.Equal(t, []string{"https://acme.io/careers"}, cfg.Runtime.CareersURLs)

	// missing file is not an error and leaves the config untouched
	cfg2 := Default()
	require.NoError(t, OverlaySources(&cfg2, filepath.Join(dir, "nope.yml")))
	assert.Empty(t, cfg2.Runtime.CareersURLs)
}

func TestSaveAtomicRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")

	cfg := Default()
	cfg.GoogleSheets.SpreadsheetID = "sheet-123"
	require.NoError(t, SaveAtomic(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sheet-123", loaded.GoogleSheets.SpreadsheetID)

	// rejects invalid configs before touching disk
	cfg.Runtime.Concurrency = -1
	err = SaveAtomic(path, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "runtime.concurrency")
}

func TestEnsureUserConfig(t *testing.T) {
	dir := t.TempDir()
	defaultPath := filepath.Join(dir, "default.yml")
	require.NoError(t, os.WriteFile(defaultPath, []byte("app:\n  port: 38080\n"), 0o644))

	dataDir := filepath.Join(dir, "data")
	userPath, err := EnsureUserConfig(dataDir, defaultPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataDir, "config.yml"), userPath)

	b, err := os.ReadFile(userPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), "38080")

	// second call returns the existing file without recopying
	require.NoError(t, os.WriteFile(userPath, []byte("app:\n  port: 9999\n"), 0o644))
	userPath2, err := EnsureUserConfig(dataDir, defaultPath)
	require.NoError(t, err)
	b, _ = os.ReadFile(userPath2)
	assert.Contains(t, string(b), "9999")
}
