// Package pipeline orchestrates the careers-page run: select candidate
// posting URLs, extract fields per posting with bounded concurrency,
// deduplicate against the cache, and append surviving rows to the sink.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"jobharvest-engine/internal/ats"
	"jobharvest-engine/internal/cache"
	"jobharvest-engine/internal/events"
	"jobharvest-engine/internal/sink"
)

// SeenStore is the dedup cache surface the run needs.
type SeenStore interface {
	SeenURL(ctx context.Context, jobURL string) (bool, error)
	SeenFingerprint(ctx context.Context, fp string) (bool, error)
	MarkSeen(ctx context.Context, j cache.SeenJob) error
}

// Options tune one run.
type Options struct {
	Concurrency     int    // parallel posting extractions per source, min 1
	MaxJobs         int    // per-source cap after discovery counting; 0 means unlimited
	Resume          bool   // skip URLs the cache already holds
	CompanyOverride string // forces company_name on every row
	SelectModel     string // oracle model for candidate selection
	FieldsModel     string // oracle model for field extraction
}

// Pipeline wires the run dependencies. Sources are processed one at a
// time; postings within a source run in parallel.
type Pipeline struct {
	Fetcher  Fetcher
	Oracle   Oracle
	Registry *ats.Registry
	Cache    SeenStore
	Sink     sink.Sink
	Opts     Options

	// Notify, when set, receives run progress events for the SSE hub.
	Notify func(event string, data map[string]any)
}

// Run processes every source. Source failures are recorded and do not
// stop later sources; Run returns an error only when every source failed
// and nothing was appended.
func (p *Pipeline) Run(ctx context.Context, careersURLs []string) (Result, error) {
	t := &tally{}
	sel := &Selector{Fetcher: p.Fetcher, Oracle: p.Oracle, Model: p.Opts.SelectModel}

	if err := p.Sink.EnsureHeader(); err != nil {
		return t.result(), fmt.Errorf("prepare sink: %w", err)
	}
	p.notify(events.TypeRunStarted, map[string]any{"sources": len(careersURLs)})

	for _, careersURL := range careersURLs {
		if err := p.runSource(ctx, sel, t, careersURL); err != nil {
			log.Printf("[pipeline] careers error url=%s err=%v", careersURL, err)
			t.addError("careers", careersURL, err)
			continue
		}
		t.mu.Lock()
		t.totals.CareersProcessed++
		t.mu.Unlock()
	}

	res := t.result()
	p.notify(events.TypeRunFinished, map[string]any{
		"careers_processed": res.Totals.CareersProcessed,
		"rows_appended":     res.Totals.RowsAppended,
		"duplicates":        res.Totals.Duplicates,
		"errors":            res.Totals.Errors,
	})

	if res.Totals.CareersProcessed == 0 && len(res.Errors) > 0 {
		return res, fmt.Errorf("all sources failed: %s", res.Errors[0].Message)
	}
	return res, nil
}

func (p *Pipeline) runSource(ctx context.Context, sel *Selector, t *tally, careersURL string) error {
	page, err := p.Fetcher.Fetch(ctx, careersURL)
	if err != nil {
		return err
	}

	jobURLs, err := sel.Select(ctx, careersURL, page.Anchors)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.totals.JobURLsFound += len(jobURLs)
	t.mu.Unlock()

	if len(jobURLs) > 0 {
		sample := jobURLs
		if len(sample) > 3 {
			sample = sample[:3]
		}
		log.Printf("[pipeline] job urls selected count=%d sample=%q url=%s", len(jobURLs), sample, careersURL)
	}
	if p.Opts.MaxJobs > 0 && len(jobURLs) > p.Opts.MaxJobs {
		jobURLs = jobURLs[:p.Opts.MaxJobs]
	}

	concurrency := p.Opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	// results keeps anchor order regardless of which worker finishes first
	results := make([][]string, len(jobURLs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, jobURL := range jobURLs {
		g.Go(func() error {
			row, err := p.processJob(gctx, t, jobURL)
			if err != nil {
				log.Printf("[pipeline] job error url=%s err=%v", jobURL, err)
				t.addError("job", jobURL, err)
				return nil
			}
			results[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var rows [][]string
	for _, r := range results {
		if r != nil {
			rows = append(rows, r)
		}
	}
	if len(rows) > 0 {
		appended, err := p.Sink.Append(rows)
		if err != nil {
			return fmt.Errorf("append rows: %w", err)
		}
		t.mu.Lock()
		t.totals.RowsAppended += appended
		t.mu.Unlock()
	}
	return nil
}

func (p *Pipeline) notify(event string, data map[string]any) {
	if p.Notify != nil {
		p.Notify(event, data)
	}
}
