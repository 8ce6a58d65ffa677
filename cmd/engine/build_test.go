package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobharvest-engine/internal/config"
)

func TestResolveInputMergesAndDedupes(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "urls.txt")
	require.NoError(t, os.WriteFile(inputPath, []byte(`
# tracked companies
https://acme.io/careers
https://other.io/jobs

https://acme.io/careers
`), 0o644))

	cfg := config.Default()
	cfg.Runtime.CareersURLs = []string{"https://third.io/careers", "https://other.io/jobs"}

	urls, err := resolveInput("https://first.io/careers", inputPath, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://first.io/careers",
		"https://acme.io/careers",
		"https://other.io/jobs",
		"https://third.io/careers",
	}, urls)
}

func TestResolveInputFallsBackToConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Runtime.SingleURL = "https://acme.io/careers"

	urls, err := resolveInput("", "", cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://acme.io/careers"}, urls)
}

func TestResolveInputMissingFile(t *testing.T) {
	cfg := config.Default()
	_, err := resolveInput("", filepath.Join(t.TempDir(), "nope.txt"), cfg)
	require.Error(t, err)
}

func TestResolveInputEmpty(t *testing.T) {
	urls, err := resolveInput("", "", config.Default())
	require.NoError(t, err)
	assert.Empty(t, urls)
}
