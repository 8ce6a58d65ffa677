// Package cache persists previously extracted postings so reruns skip
// work already appended to the sheet. Dedup keys are the job URL and a
// content fingerprint, so the same role reposted under a new URL is
// still caught.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type Cache struct {
	Pool *sql.DB
}

func Open(path string) (*Cache, error) {
	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)

	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	pool.SetMaxOpenConns(1) // sqlite typically wants 1 writer
	pool.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}

	if err := migrate(pool); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return &Cache{Pool: pool}, nil
}

func (c *Cache) Close() error {
	if c == nil || c.Pool == nil {
		return nil
	}
	return c.Pool.Close()
}

func migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= 1 {
		return tx.Commit()
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS jobs (
  url TEXT PRIMARY KEY,
  canonical_url TEXT NOT NULL DEFAULT '',
  title TEXT NOT NULL DEFAULT '',
  company TEXT NOT NULL DEFAULT '',
  fingerprint TEXT NOT NULL DEFAULT '',
  first_seen TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_jobs_fp
ON jobs(fingerprint);
`); err != nil {
		return err
	}

	// Reserved for incremental careers-page refresh; created now so old
	// cache files stay compatible when that lands.
	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS careers_pages (
  url TEXT PRIMARY KEY,
  last_fetched_at TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT ''
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}
	return tx.Commit()
}

// SeenURL reports whether this exact job URL was already extracted.
func (c *Cache) SeenURL(ctx context.Context, jobURL string) (bool, error) {
	var one int
	err := c.Pool.QueryRowContext(ctx, `SELECT 1 FROM jobs WHERE url = ? LIMIT 1;`, jobURL).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("seen url: %w", err)
	}
	return true, nil
}

// SeenFingerprint reports whether an equivalent posting was already
// extracted under any URL.
func (c *Cache) SeenFingerprint(ctx context.Context, fp string) (bool, error) {
	if fp == "" {
		return false, nil
	}
	var one int
	err := c.Pool.QueryRowContext(ctx, `SELECT 1 FROM jobs WHERE fingerprint = ? LIMIT 1;`, fp).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("seen fingerprint: %w", err)
	}
	return true, nil
}

type SeenJob struct {
	URL         string
	Canonical   string
	Title       string
	Company     string
	Fingerprint string
}

// MarkSeen records an extracted posting. Re-marking a cached URL
// replaces the record, so a posting whose title or canonical URL changed
// carries its new fingerprint and stops re-appending on later runs.
func (c *Cache) MarkSeen(ctx context.Context, j SeenJob) error {
	_, err := c.Pool.ExecContext(ctx, `
INSERT OR REPLACE INTO jobs (url, canonical_url, title, company, fingerprint)
VALUES (?, ?, ?, ?, ?);`,
		j.URL, j.Canonical, j.Title, j.Company, j.Fingerprint,
	)
	if err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	return nil
}
