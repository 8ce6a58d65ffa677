package pipeline

import "sync"

// Totals are the run counters reported to the caller.
type Totals struct {
	CareersProcessed int `json:"careers_processed"`
	JobURLsFound     int `json:"job_urls_found"`
	RowsAppended     int `json:"rows_appended"`
	Duplicates       int `json:"duplicates"`
	Errors           int `json:"errors"`
}

// ErrorEntry records one failure with enough context to retry by hand.
// Scope is "careers" for source-page failures and "job" for per-posting
// failures.
type ErrorEntry struct {
	Scope   string `json:"scope"`
	URL     string `json:"url"`
	Message string `json:"message"`
}

// Result is the full run report.
type Result struct {
	Totals Totals       `json:"totals"`
	Errors []ErrorEntry `json:"errors"`
}

// tally accumulates counters from concurrent job workers.
type tally struct {
	mu     sync.Mutex
	totals Totals
	errors []ErrorEntry
}

func (t *tally) addDuplicate() {
	t.mu.Lock()
	t.totals.Duplicates++
	t.mu.Unlock()
}

func (t *tally) addError(scope, url string, err error) {
	t.mu.Lock()
	t.totals.Errors++
	t.errors = append(t.errors, ErrorEntry{Scope: scope, URL: url, Message: err.Error()})
	t.mu.Unlock()
}

func (t *tally) result() Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Result{Totals: t.totals, Errors: t.errors}
}
