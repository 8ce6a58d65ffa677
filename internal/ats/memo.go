package ats

import "sync"

// Memo caches successful lookups per process, keyed by request identity, so
// repeated postings from the same board don't refetch shared metadata.
// Size-capped with FIFO eviction; failures are never cached.
type Memo struct {
	mu    sync.Mutex
	cap   int
	m     map[string]any
	order []string
}

func NewMemo(capacity int) *Memo {
	if capacity <= 0 {
		capacity = 64
	}
	return &Memo{cap: capacity, m: make(map[string]any, capacity)}
}

func (c *Memo) Do(key string, fn func() (any, error)) (any, error) {
	c.mu.Lock()
	if v, ok := c.m[key]; ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err := fn()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if _, ok := c.m[key]; !ok {
		if len(c.order) >= c.cap {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.m, oldest)
		}
		c.m[key] = v
		c.order = append(c.order, key)
	}
	c.mu.Unlock()
	return v, nil
}
