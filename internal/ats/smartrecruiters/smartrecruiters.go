// Package smartrecruiters parses SmartRecruiters-hosted postings via the
// public postings API (api.smartrecruiters.com/v1/companies/<slug>/postings/<id>).
package smartrecruiters

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
	"jobharvest-engine/internal/pipeline/util"
)

// Posting pages look like jobs.smartrecruiters.com/<slug>/<id>-<title-slug>
// where the id is a long numeric token.
var jobPathRe = regexp.MustCompile(`^/([^/]+)/(\d+)(?:-[^/]*)?$`)

func SplitJobURL(jobURL string) (slug, id string, ok bool) {
	u, err := url.Parse(jobURL)
	if err != nil {
		return "", "", false
	}
	if !strings.EqualFold(u.Host, "jobs.smartrecruiters.com") {
		return "", "", false
	}
	m := jobPathRe.FindStringSubmatch(u.Path)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
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
		apiBase: "https://api.smartrecruiters.com",
	}
}

func (p *Parser) Name() string { return "smartrecruiters" }

func (p *Parser) Match(jobURL string) bool {
	_, _, ok := SplitJobURL(jobURL)
	return ok
}

// Response schema (public API); we defensively parse only what we need.
type posting struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Company struct {
		Name string `json:"name"`
	} `json:"company"`
	Location struct {
		City    string `json:"city"`
		Region  string `json:"region"`
		Country string `json:"country"`
		Remote  bool   `json:"remote"`
	} `json:"location"`
	TypeOfEmployment struct {
		Label string `json:"label"`
	} `json:"typeOfEmployment"`
	ApplyURL string `json:"applyUrl"`
	JobAd    struct {
		Sections struct {
			JobDescription struct {
				Text string `json:"text"`
			} `json:"jobDescription"`
			Qualifications struct {
				Text string `json:"text"`
			} `json:"qualifications"`
		} `json:"sections"`
	} `json:"jobAd"`
}

func (p *Parser) Parse(ctx context.Context, jobURL string) (*ats.Parsed, error) {
	slug, id, ok := SplitJobURL(jobURL)
	if !ok {
		return nil, fmt.Errorf("smartrecruiters: not a job URL: %s", jobURL)
	}

	v, err := p.memo.Do(slug+"|"+id, func() (any, error) {
		apiURL := fmt.Sprintf("%s/v1/companies/%s/postings/%s", p.apiBase, url.PathEscape(slug), id)
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

	company := util.CleanText(post.Company.Name)
	if company == "" {
		company = slug
	}

	loc := composeLocation(post.Location.City, post.Location.Region, post.Location.Country)
	remote := post.Location.Remote

	desc := post.JobAd.Sections.JobDescription.Text
	if q := post.JobAd.Sections.Qualifications.Text; q != "" {
		desc += q
	}

	apply := post.ApplyURL
	if apply == "" {
		apply = jobURL
	}

	return &ats.Parsed{
		Fields: domain.JobFields{
			Title:           util.CleanText(post.Name),
			CompanyName:     company,
			Location:        loc,
			RemoteOK:        &remote,
			JobType:         strings.TrimSpace(post.TypeOfEmployment.Label),
			DescriptionHTML: desc,
			ApplicationLink: apply,
		},
		Canonical: jobURL,
		PageHTML:  desc,
	}, nil
}

func composeLocation(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = util.CleanText(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
