package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestMarkSeenAndLookups(t *testing.T) {
	c := openTemp(t)
	ctx := context.Background()

	seen, err := c.SeenURL(ctx, "https://acme.io/jobs/1")
	require.NoError(t, err)
	assert.False(t, seen)

	err = c.MarkSeen(ctx, SeenJob{
		URL:         "https://acme.io/jobs/1",
		Canonical:   "https://acme.io/jobs/1",
		Title:       "Engineer",
		Company:     "Acme",
		Fingerprint: "abc123",
	})
	require.NoError(t, err)

	seen, err = c.SeenURL(ctx, "https://acme.io/jobs/1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = c.SeenFingerprint(ctx, "abc123")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = c.SeenFingerprint(ctx, "other")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestMarkSeenSupersedesChangedPosting(t *testing.T) {
	c := openTemp(t)
	ctx := context.Background()

	j := SeenJob{URL: "https://acme.io/jobs/2", Title: "Ops", Company: "Acme", Fingerprint: "fp2"}
	require.NoError(t, c.MarkSeen(ctx, j))

	// same URL re-extracted under a new title carries a new fingerprint
	j.Title = "Ops (updated)"
	j.Fingerprint = "fp2-updated"
	require.NoError(t, c.MarkSeen(ctx, j))

	seen, err := c.SeenFingerprint(ctx, "fp2-updated")
	require.NoError(t, err)
	assert.True(t, seen, "new fingerprint must be seen after re-mark")

	seen, err = c.SeenFingerprint(ctx, "fp2")
	require.NoError(t, err)
	assert.False(t, seen, "superseded fingerprint must no longer match")

	var title string
	require.NoError(t, c.Pool.QueryRowContext(ctx, `SELECT title FROM jobs WHERE url = ?;`, j.URL).Scan(&title))
	assert.Equal(t, "Ops (updated)", title)

	var count int
	require.NoError(t, c.Pool.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE url = ?;`, j.URL).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestMarkSeenIsIdempotent(t *testing.T) {
	c := openTemp(t)
	ctx := context.Background()

	j := SeenJob{URL: "https://acme.io/jobs/5", Title: "Ops", Company: "Acme", Fingerprint: "fp5"}
	require.NoError(t, c.MarkSeen(ctx, j))
	require.NoError(t, c.MarkSeen(ctx, j))

	seen, err := c.SeenFingerprint(ctx, "fp5")
	require.NoError(t, err)
	assert.True(t, seen)

	var count int
	require.NoError(t, c.Pool.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs;`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestEmptyFingerprintNeverMatches(t *testing.T) {
	c := openTemp(t)
	ctx := context.Background()

	require.NoError(t, c.MarkSeen(ctx, SeenJob{URL: "https://acme.io/jobs/3"}))
	seen, err := c.SeenFingerprint(ctx, "")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestReopenKeepsRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.db")
	ctx := context.Background()

	c, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, c.MarkSeen(ctx, SeenJob{URL: "https://acme.io/jobs/4", Fingerprint: "fp4"}))
	require.NoError(t, c.Close())

	c, err = Open(path)
	require.NoError(t, err)
	defer c.Close()

	seen, err := c.SeenURL(ctx, "https://acme.io/jobs/4")
	require.NoError(t, err)
	assert.True(t, seen)
}
