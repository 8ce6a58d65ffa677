package sink

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

// CSV appends rows to a local file, taking a sibling lock so parallel
// dry runs against the same path don't interleave writes.
type CSV struct {
	Path string
	lock *flock.Flock
}

func NewCSV(path string) *CSV {
	return &CSV{Path: path, lock: flock.New(path + ".lock")}
}

func (c *CSV) EnsureHeader() error {
	if err := c.lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", c.Path, err)
	}
	defer c.lock.Unlock()

	info, err := os.Stat(c.Path)
	if err == nil && info.Size() > 0 {
		return nil
	}
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", c.Path, err)
	}
	return c.write([][]string{Header})
}

func (c *CSV) Append(rows [][]string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := c.lock.Lock(); err != nil {
		return 0, fmt.Errorf("lock %s: %w", c.Path, err)
	}
	defer c.lock.Unlock()

	if err := c.write(rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (c *CSV) write(rows [][]string) error {
	f, err := os.OpenFile(c.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", c.Path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", c.Path, err)
	}
	return nil
}
