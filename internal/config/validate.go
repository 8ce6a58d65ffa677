package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate trims and dedupes list fields, then checks every
// setting a run depends on. Warnings flag settings that work but probably
// aren't what the operator wanted.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Runtime.CareersURLs = trimList(out.Runtime.CareersURLs)

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}

	if out.Firecrawl.RequestTimeout <= 0 {
		res.addErr("firecrawl.request_timeout must be > 0")
	}
	if out.Firecrawl.RateLimitDelay < 0 {
		res.addErr("firecrawl.rate_limit_delay must be >= 0")
	} else if out.Firecrawl.RateLimitDelay < 0.5 {
		res.addWarn("firecrawl.rate_limit_delay is very low (%.2fs) and may cause rate limits.", out.Firecrawl.RateLimitDelay)
	}

	if out.OpenRouter.TimeoutSeconds <= 0 {
		res.addErr("openrouter.timeout_seconds must be > 0")
	}
	if out.OpenRouter.MaxRetries < 0 {
		res.addErr("openrouter.max_retries must be >= 0")
	}
	if out.OpenRouter.Temperature < 0 || out.OpenRouter.Temperature > 2 {
		res.addErr("openrouter.temperature must be 0..2")
	}
	if out.OpenRouter.ModelJobLinks == "" {
		res.addWarn("openrouter.model_job_links is empty; the client default model will be used.")
	}
	if out.OpenRouter.ModelJobFields == "" {
		res.addWarn("openrouter.model_job_fields is empty; the client default model will be used.")
	}

	if out.Runtime.Concurrency <= 0 {
		res.addErr("runtime.concurrency must be > 0")
	} else if out.Runtime.Concurrency > 32 {
		res.addWarn("runtime.concurrency is high (%d); external APIs may throttle.", out.Runtime.Concurrency)
	}
	if out.Runtime.CachePath == "" {
		res.addErr("runtime.cache_path is required")
	}
	if out.Runtime.BambooHRTimeout <= 0 {
		res.addErr("runtime.bamboohr_timeout must be > 0")
	}
	if out.Runtime.RefreshSeconds < 0 {
		res.addErr("runtime.refresh_seconds must be >= 0")
	} else if out.Runtime.RefreshSeconds > 0 && out.Runtime.RefreshSeconds < 60 {
		res.addWarn("runtime.refresh_seconds is very low (%d); external APIs may throttle.", out.Runtime.RefreshSeconds)
	}

	if out.Runtime.SingleURL == "" && out.Runtime.InputFile == "" && len(out.Runtime.CareersURLs) == 0 {
		res.addWarn("no careers sources configured; runs will need --url or --input.")
	}
	if out.GoogleSheets.SpreadsheetID == "" {
		res.addWarn("google_sheets.spreadsheet_id is empty; only dry runs will work without --sheet-id.")
	}

	return out, res
}
