// Package lever parses Lever-hosted postings via the public postings API
// (api.lever.co/v0/postings/<slug>/<id>).
package lever

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"jobharvest-engine/internal/ats"
	"jobharvest-engine/internal/domain"
	"jobharvest-engine/internal/fetch"
)

var idRe = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// SplitJobURL matches jobs.lever.co/<slug>/<posting-uuid>.
func SplitJobURL(jobURL string) (slug, id string, ok bool) {
	u, err := url.Parse(jobURL)
	if err != nil {
		return "", "", false
	}
	if !strings.EqualFold(u.Host, "jobs.lever.co") {
		return "", "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || !idRe.MatchString(parts[1]) {
		return "", "", false
	}
	return parts[0], parts[1], true
}

type Parser struct {
	hc      *http.Client
	memo    *ats.Memo
	apiBase string
}

func New(timeout time.Duration) *Parser {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Parser{
		hc:      &http.Client{Timeout: timeout},
		memo:    ats.NewMemo(256),
		apiBase: "https://api.lever.co",
	}
}

func (p *Parser) Name() string { return "lever" }

func (p *Parser) Match(jobURL string) bool {
	_, _, ok := SplitJobURL(jobURL)
	return ok
}

type posting struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	HostedURL     string `json:"hostedUrl"`
	ApplyURL      string `json:"applyUrl"`
	Description   string `json:"description"`
	Country       string `json:"country"`
	WorkplaceType string `json:"workplaceType"`
	Categories    struct {
		Location   string `json:"location"`
		Commitment string `json:"commitment"`
	} `json:"categories"`
	SalaryRange struct {
		Min any `json:"min"`
		Max any `json:"max"`
	} `json:"salaryRange"`
}

func (p *Parser) Parse(ctx context.Context, jobURL string) (*ats.Parsed, error) {
	slug, id, ok := SplitJobURL(jobURL)
	if !ok {
		return nil, fmt.Errorf("lever: not a job URL: %s", jobURL)
	}

	v, err := p.memo.Do(slug+"|"+id, func() (any, error) {
		apiURL := fmt.Sprintf("%s/v0/postings/%s/%s", p.apiBase, slug, id)
		var post posting
		if err := ats.FetchJSON(ctx, p.hc, apiURL, &post); err != nil {
			return nil, err
		}
		if post.ID == "" {
			return nil, &fetch.Error{URL: apiURL, Message: "posting payload missing 'id'"}
		}
		return &post, nil
	})
	if err != nil {
		return nil, err
	}
	post := v.(*posting)

	location := strings.TrimSpace(post.Categories.Location)
	if location == "" {
		location = strings.TrimSpace(post.Country)
	}

	canonical := post.HostedURL
	if canonical == "" {
		canonical = jobURL
	}
	apply := post.ApplyURL
	if apply == "" {
		apply = canonical
	}

	return &ats.Parsed{
		Fields: domain.JobFields{
			Title:           strings.TrimSpace(post.Text),
			CompanyName:     slug,
			Location:        location,
			RemoteOK:        remoteFromWorkplaceType(post.WorkplaceType),
			JobType:         strings.TrimSpace(post.Categories.Commitment),
			DescriptionHTML: post.Description,
			MinSalary:       ats.CoerceNumber(post.SalaryRange.Min),
			MaxSalary:       ats.CoerceNumber(post.SalaryRange.Max),
			ApplicationLink: apply,
		},
		Canonical: canonical,
		PageHTML:  post.Description,
	}, nil
}

func remoteFromWorkplaceType(wt string) *bool {
	switch strings.ToLower(strings.TrimSpace(wt)) {
	case "remote", "hybrid":
		t := true
		return &t
	case "on-site", "onsite":
		f := false
		return &f
	default:
		return nil
	}
}
