package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"jobharvest-engine/internal/ats"
	"jobharvest-engine/internal/cache"
	"jobharvest-engine/internal/domain"
	"jobharvest-engine/internal/events"
	"jobharvest-engine/internal/oracle"
	"jobharvest-engine/internal/schema"
)

// processJob extracts one posting. A nil row with nil error means the
// posting was skipped (resume hit or duplicate).
func (p *Pipeline) processJob(ctx context.Context, t *tally, jobURL string) ([]string, error) {
	if p.Opts.Resume {
		seen, err := p.Cache.SeenURL(ctx, jobURL)
		if err != nil {
			return nil, err
		}
		if seen {
			return nil, nil
		}
	}

	canonical := jobURL
	pageHTML := ""
	var fields *domain.JobFields

	if parser := p.registryFind(jobURL); parser != nil {
		parsed, err := parser.Parse(ctx, jobURL)
		if err != nil {
			// deterministic tier is best-effort, the oracle tier takes over
			log.Printf("[pipeline] ats parser error parser=%s url=%s err=%v", parser.Name(), jobURL, err)
		} else {
			f := parsed.Fields
			fields = &f
			if parsed.Canonical != "" {
				canonical = parsed.Canonical
			}
			pageHTML = parsed.PageHTML
			log.Printf("[pipeline] ats parser used parser=%s url=%s", parser.Name(), jobURL)
		}
	}

	if fields == nil {
		var err error
		fields, canonical, pageHTML, err = p.oracleExtract(ctx, jobURL)
		if err != nil {
			return nil, err
		}
	}

	Postprocess(fields, p.Opts.CompanyOverride, pageHTML, jobURL, canonical)
	row := ToRow(fields)
	fp := Fingerprint(canonical, fields.Title, fields.CompanyName)

	dup, err := p.Cache.SeenFingerprint(ctx, fp)
	if err != nil {
		return nil, err
	}
	if dup {
		t.addDuplicate()
		return nil, nil
	}

	if err := p.Cache.MarkSeen(ctx, cache.SeenJob{
		URL:         jobURL,
		Canonical:   canonical,
		Title:       fields.Title,
		Company:     fields.CompanyName,
		Fingerprint: fp,
	}); err != nil {
		return nil, err
	}

	p.notify(events.TypeJobAdded, map[string]any{"url": jobURL, "title": fields.Title, "company": fields.CompanyName})
	return row, nil
}

func (p *Pipeline) oracleExtract(ctx context.Context, jobURL string) (*domain.JobFields, string, string, error) {
	page, err := p.Fetcher.Fetch(ctx, jobURL)
	if err != nil {
		return nil, "", "", err
	}
	canonical := jobURL
	if page.Canonical != "" {
		canonical = page.Canonical
	}

	html := page.HTML
	if len(html) > 250000 {
		html = html[:250000] // truncate large pages
	}

	payload := map[string]any{
		"Job URL":       jobURL,
		"Canonical URL": canonical,
		"HTML":          html,
		"Notes": "Common signals: 'Apply', 'Responsibilities', 'Qualifications'. " +
			"Words like 'Remote'/'Hybrid' may influence remote_ok.",
	}

	out, err := p.Oracle.CompleteJSON(ctx, oracle.Request{
		SystemPrompt: "You are an expert ATS parser. Return ONLY a JSON object that conforms to this JSON Schema (Draft 2020-12):\n" +
			schema.JobFields.Text + "\n" +
			"Rules: Prefer exact strings from the page for title and location. " +
			"remote_ok must be boolean; infer only if clearly stated. " +
			"job_type must be one of: Full Time, Part Time, Internship. " +
			"description_html must be HTML of the job description (not full page). " +
			"If salary not present, set both salaries to null. " +
			"application_link should be the primary apply URL; fall back to the job page URL if none. " +
			"Do not include markdown, code fences, or explanations.",
		UserPayload: payload,
		Schema:      schema.JobFields,
		Model:       p.Opts.FieldsModel,
	})
	if err != nil {
		return nil, "", "", fmt.Errorf("extract job fields: %w", err)
	}

	var fields domain.JobFields
	if err := json.Unmarshal(out, &fields); err != nil {
		return nil, "", "", fmt.Errorf("extract job fields: decode: %w", err)
	}
	return &fields, canonical, page.HTML, nil
}

func (p *Pipeline) registryFind(jobURL string) ats.Parser {
	if p.Registry == nil {
		return nil
	}
	return p.Registry.Find(jobURL)
}
