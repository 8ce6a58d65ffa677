package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"jobharvest-engine/internal/ats"
	"jobharvest-engine/internal/ats/bamboohr"
	"jobharvest-engine/internal/ats/greenhouse"
	"jobharvest-engine/internal/ats/lever"
	"jobharvest-engine/internal/ats/smartrecruiters"
	"jobharvest-engine/internal/cache"
	"jobharvest-engine/internal/config"
	"jobharvest-engine/internal/fetch"
	"jobharvest-engine/internal/oracle"
	"jobharvest-engine/internal/pipeline"
	"jobharvest-engine/internal/secrets"
	"jobharvest-engine/internal/sink"
)

type buildOpts struct {
	SheetID         string
	Worksheet       string
	CompanyOverride string
	DryRun          bool
	Resume          bool
	Concurrency     int
	MaxJobs         int
}

// buildPipeline assembles one run's dependencies from config and secrets.
// The returned func closes the cache.
func buildPipeline(ctx context.Context, cfg config.Config, opts buildOpts) (*pipeline.Pipeline, func(), error) {
	firecrawlKey, err := secrets.FirecrawlAPIKey()
	if err != nil {
		return nil, nil, err
	}
	openRouterKey, err := secrets.OpenRouterAPIKey()
	if err != nil {
		return nil, nil, err
	}

	fetcher := fetch.New(fetch.Config{
		BaseURL:         cfg.Firecrawl.BaseURL,
		APIKey:          firecrawlKey,
		RequestTimeout:  time.Duration(cfg.Firecrawl.RequestTimeout) * time.Second,
		MinInterval:     time.Duration(cfg.Firecrawl.RateLimitDelay * float64(time.Second)),
		MaxAgeMS:        cfg.Firecrawl.MaxAgeMS,
		OnlyMainContent: cfg.Firecrawl.OnlyMainContent,
		WaitMS:          cfg.Firecrawl.WaitMS,
	})

	llm := oracle.New(oracle.Config{
		BaseURL:     cfg.OpenRouter.BaseURL,
		APIKey:      openRouterKey,
		MaxTokens:   cfg.OpenRouter.MaxTokens,
		Temperature: cfg.OpenRouter.Temperature,
		Timeout:     time.Duration(cfg.OpenRouter.TimeoutSeconds) * time.Second,
		MinInterval: time.Duration(cfg.OpenRouter.RateLimitDelay * float64(time.Second)),
		MaxRetries:  cfg.OpenRouter.MaxRetries,
		SiteURL:     cfg.OpenRouter.SiteURL,
		SiteTitle:   cfg.OpenRouter.SiteTitle,
	})

	atsTimeout := time.Duration(cfg.Runtime.BambooHRTimeout * float64(time.Second))
	registry := ats.NewRegistry(
		bamboohr.New(atsTimeout),
		lever.New(atsTimeout),
		greenhouse.New(atsTimeout),
		smartrecruiters.New(atsTimeout),
	)

	if err := os.MkdirAll(filepath.Dir(cfg.Runtime.CachePath), 0o755); err != nil {
		return nil, nil, err
	}
	store, err := cache.Open(cfg.Runtime.CachePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open cache %s: %w", cfg.Runtime.CachePath, err)
	}

	var out sink.Sink
	if opts.DryRun {
		if err := os.MkdirAll(filepath.Dir(cfg.Runtime.DryRunPath), 0o755); err != nil {
			store.Close()
			return nil, nil, err
		}
		out = sink.NewCSV(cfg.Runtime.DryRunPath)
	} else {
		credFile := os.Getenv(cfg.GoogleSheets.ServiceAccountJSONEnv)
		if credFile == "" {
			store.Close()
			return nil, nil, fmt.Errorf("service account credentials not set (%s)", cfg.GoogleSheets.ServiceAccountJSONEnv)
		}
		sheets, err := sink.NewSheets(ctx, credFile, opts.SheetID, opts.Worksheet)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		out = sheets
	}

	p := &pipeline.Pipeline{
		Fetcher:  fetcher,
		Oracle:   llm,
		Registry: registry,
		Cache:    store,
		Sink:     out,
		Opts: pipeline.Options{
			Concurrency:     opts.Concurrency,
			MaxJobs:         opts.MaxJobs,
			Resume:          opts.Resume,
			CompanyOverride: opts.CompanyOverride,
			SelectModel:     cfg.OpenRouter.ModelJobLinks,
			FieldsModel:     cfg.OpenRouter.ModelJobFields,
		},
	}
	return p, func() { _ = store.Close() }, nil
}

// resolveInput merges the -url flag, the -input file, and configured
// sources, keeping first-seen order and dropping duplicates.
func resolveInput(singleURL, inputFile string, cfg config.Config) ([]string, error) {
	var urls []string

	if singleURL == "" {
		singleURL = cfg.Runtime.SingleURL
	}
	if singleURL != "" {
		urls = append(urls, singleURL)
	}

	if inputFile == "" {
		inputFile = cfg.Runtime.InputFile
	}
	if inputFile != "" {
		fromFile, err := readURLFile(inputFile)
		if err != nil {
			return nil, err
		}
		urls = append(urls, fromFile...)
	}

	urls = append(urls, cfg.Runtime.CareersURLs...)

	seen := map[string]bool{}
	var out []string
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out, nil
}

func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, sc.Err()
}
