// Package greenhouse parses Greenhouse board postings via the public
// job-board API (boards-api.greenhouse.io).
package greenhouse

import (
	"context"
	"fmt"
	"html"
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

var jobPathRe = regexp.MustCompile(`^/([^/]+)/jobs/(\d+)(?:/.*)?$`)

// SplitJobURL matches boards.greenhouse.io/<slug>/jobs/<id> and the
// job-boards.greenhouse.io variant.
func SplitJobURL(jobURL string) (slug, id string, ok bool) {
	u, err := url.Parse(jobURL)
	if err != nil {
		return "", "", false
	}
	host := strings.ToLower(u.Host)
	if host != "boards.greenhouse.io" && host != "job-boards.greenhouse.io" {
		return "", "", false
	}
	m := jobPathRe.FindStringSubmatch(u.Path)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

type Parser struct {
	hc        *http.Client
	jobMemo   *ats.Memo
	boardMemo *ats.Memo
	apiBase   string
}

func New(timeout time.Duration) *Parser {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Parser{
		hc:        &http.Client{Timeout: timeout},
		jobMemo:   ats.NewMemo(256),
		boardMemo: ats.NewMemo(64),
		apiBase:   "https://boards-api.greenhouse.io",
	}
}

func (p *Parser) Name() string { return "greenhouse" }

func (p *Parser) Match(jobURL string) bool {
	_, _, ok := SplitJobURL(jobURL)
	return ok
}

type boardJob struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"` // HTML-escaped description
	AbsoluteURL string `json:"absolute_url"`
	Location    struct {
		Name string `json:"name"`
	} `json:"location"`
	Metadata []struct {
		Name  string `json:"name"`
		Value any    `json:"value"`
	} `json:"metadata"`
}

func (p *Parser) Parse(ctx context.Context, jobURL string) (*ats.Parsed, error) {
	slug, id, ok := SplitJobURL(jobURL)
	if !ok {
		return nil, fmt.Errorf("greenhouse: not a job URL: %s", jobURL)
	}

	job, err := p.fetchJob(ctx, slug, id)
	if err != nil {
		return nil, err
	}
	company, err := p.fetchBoardName(ctx, slug)
	if err != nil {
		return nil, err
	}

	desc := html.UnescapeString(job.Content)
	canonical := job.AbsoluteURL
	if canonical == "" {
		canonical = jobURL
	}

	var remote *bool
	loc := util.CleanText(job.Location.Name)
	if util.DetectRemote(loc) {
		t := true
		remote = &t
	}

	return &ats.Parsed{
		Fields: domain.JobFields{
			Title:           util.CleanText(job.Title),
			CompanyName:     util.CleanText(company),
			Location:        loc,
			RemoteOK:        remote,
			JobType:         jobTypeFromMetadata(job),
			DescriptionHTML: desc,
			ApplicationLink: canonical,
		},
		Canonical: canonical,
		PageHTML:  desc,
	}, nil
}

func (p *Parser) fetchJob(ctx context.Context, slug, id string) (*boardJob, error) {
	v, err := p.jobMemo.Do(slug+"|"+id, func() (any, error) {
		apiURL := fmt.Sprintf("%s/v1/boards/%s/jobs/%s", p.apiBase, slug, id)
		var job boardJob
		if err := ats.FetchJSON(ctx, p.hc, apiURL, &job); err != nil {
			return nil, err
		}
		if job.ID == 0 {
			return nil, &fetch.Error{URL: apiURL, Message: "job payload missing 'id'"}
		}
		return &job, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*boardJob), nil
}

func (p *Parser) fetchBoardName(ctx context.Context, slug string) (string, error) {
	v, err := p.boardMemo.Do(slug, func() (any, error) {
		apiURL := fmt.Sprintf("%s/v1/boards/%s", p.apiBase, slug)
		var board struct {
			Name string `json:"name"`
		}
		if err := ats.FetchJSON(ctx, p.hc, apiURL, &board); err != nil {
			return nil, err
		}
		if board.Name == "" {
			return nil, &fetch.Error{URL: apiURL, Message: "board payload missing 'name'"}
		}
		return board.Name, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Greenhouse boards expose employment type only through free-form metadata.
func jobTypeFromMetadata(job *boardJob) string {
	for _, m := range job.Metadata {
		name := strings.ToLower(m.Name)
		if !strings.Contains(name, "employment") && !strings.Contains(name, "job type") {
			continue
		}
		if s, ok := m.Value.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
