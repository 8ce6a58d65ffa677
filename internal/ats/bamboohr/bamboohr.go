// Package bamboohr parses BambooHR-hosted postings deterministically via
// the board's public detail and company-info JSON endpoints.
package bamboohr

import (
	"context"
	"encoding/json"
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

var jobPathRe = regexp.MustCompile(`^/careers/(\d+)(?:/.*)?$`)

// SplitJobURL returns (baseURL, jobID) when the URL points at a BambooHR
// job posting, e.g. https://acme.bamboohr.com/careers/42.
func SplitJobURL(jobURL string) (string, string, bool) {
	u, err := url.Parse(jobURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", "", false
	}
	if !strings.HasSuffix(strings.ToLower(u.Host), ".bamboohr.com") {
		return "", "", false
	}
	m := jobPathRe.FindStringSubmatch(u.Path)
	if m == nil {
		return "", "", false
	}
	return u.Scheme + "://" + u.Host, m[1], true
}

type Parser struct {
	hc          *http.Client
	detailMemo  *ats.Memo
	companyMemo *ats.Memo

	baseOverride string // test hook; routes endpoint fetches elsewhere
}

func New(timeout time.Duration) *Parser {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Parser{
		hc:          &http.Client{Timeout: timeout},
		detailMemo:  ats.NewMemo(256),
		companyMemo: ats.NewMemo(64),
	}
}

func (p *Parser) Name() string { return "bamboohr" }

func (p *Parser) Match(jobURL string) bool {
	_, _, ok := SplitJobURL(jobURL)
	return ok
}

type jobOpening struct {
	Name                  string          `json:"jobOpeningName"`
	Description           string          `json:"description"`
	LocationType          any             `json:"locationType"`
	EmploymentStatusLabel string          `json:"employmentStatusLabel"`
	ShareURL              string          `json:"jobOpeningShareUrl"`
	Compensation          json.RawMessage `json:"compensation"`
	Location              struct {
		City           string `json:"city"`
		State          string `json:"state"`
		AddressCountry string `json:"addressCountry"`
	} `json:"location"`
	ATSLocation struct {
		City      string `json:"city"`
		State     string `json:"state"`
		Province  string `json:"province"`
		Country   string `json:"country"`
		CountryID any    `json:"countryId"`
	} `json:"atsLocation"`
}

func (p *Parser) Parse(ctx context.Context, jobURL string) (*ats.Parsed, error) {
	base, jobID, ok := SplitJobURL(jobURL)
	if !ok {
		return nil, fmt.Errorf("bamboohr: not a job URL: %s", jobURL)
	}
	if p.baseOverride != "" {
		base = p.baseOverride
	}

	opening, err := p.fetchDetail(ctx, base, jobID)
	if err != nil {
		return nil, err
	}
	company, err := p.fetchCompanyName(ctx, base)
	if err != nil {
		return nil, err
	}

	fields := mapFields(opening, company)
	canonical := opening.ShareURL
	if canonical == "" {
		canonical = jobURL
	}
	return &ats.Parsed{Fields: fields, Canonical: canonical}, nil
}

func (p *Parser) fetchDetail(ctx context.Context, base, jobID string) (*jobOpening, error) {
	v, err := p.detailMemo.Do(base+"|"+jobID, func() (any, error) {
		detailURL := fmt.Sprintf("%s/careers/%s/detail", base, jobID)
		var payload struct {
			Result struct {
				JobOpening *jobOpening `json:"jobOpening"`
			} `json:"result"`
		}
		if err := ats.FetchJSON(ctx, p.hc, detailURL, &payload); err != nil {
			return nil, err
		}
		if payload.Result.JobOpening == nil {
			return nil, &fetch.Error{URL: detailURL, Message: "detail payload missing 'jobOpening'"}
		}
		return payload.Result.JobOpening, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*jobOpening), nil
}

func (p *Parser) fetchCompanyName(ctx context.Context, base string) (string, error) {
	v, err := p.companyMemo.Do(base, func() (any, error) {
		infoURL := base + "/careers/company-info"
		var payload struct {
			Result *struct {
				Name string `json:"name"`
			} `json:"result"`
		}
		if err := ats.FetchJSON(ctx, p.hc, infoURL, &payload); err != nil {
			return nil, err
		}
		if payload.Result == nil {
			return nil, &fetch.Error{URL: infoURL, Message: "company info missing 'result'"}
		}
		return payload.Result.Name, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func mapFields(o *jobOpening, company string) domain.JobFields {
	minSal, maxSal := compensation(o.Compensation)
	return domain.JobFields{
		Title:           strings.TrimSpace(o.Name),
		CompanyName:     strings.TrimSpace(company),
		Location:        composeLocation(o),
		RemoteOK:        remoteFromLocationType(o.LocationType),
		JobType:         strings.TrimSpace(o.EmploymentStatusLabel),
		DescriptionHTML: o.Description,
		MinSalary:       minSal,
		MaxSalary:       maxSal,
		ApplicationLink: o.ShareURL,
	}
}

// composeLocation joins city and state, falling back to country alone when
// both are absent; a country already present in the parts is not appended
// twice.
func composeLocation(o *jobOpening) string {
	city := firstNonEmpty(o.Location.City, o.ATSLocation.City)
	state := firstNonEmpty(o.Location.State, o.ATSLocation.State, o.ATSLocation.Province)
	country := firstNonEmpty(o.Location.AddressCountry, o.ATSLocation.Country, stringOf(o.ATSLocation.CountryID))

	var parts []string
	for _, p := range []string{city, state} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 && country != "" {
		parts = append(parts, country)
	} else if country != "" && !contains(parts, country) {
		parts = append(parts, country)
	}
	return strings.Join(parts, ", ")
}

// locationType is a tri-state code: 1 remote, 0 in-office, 2/other unknown.
func remoteFromLocationType(v any) *bool {
	switch code := stringOf(v); code {
	case "1":
		t := true
		return &t
	case "0":
		f := false
		return &f
	default:
		return nil
	}
}

func compensation(raw json.RawMessage) (*float64, *float64) {
	if len(raw) == 0 {
		return nil, nil
	}
	var comp map[string]any
	if err := json.Unmarshal(raw, &comp); err != nil {
		return nil, nil
	}

	source := comp
	if r, ok := comp["range"].(map[string]any); ok {
		source = r
	}
	minRaw := firstSet(source["min"], source["minimum"])
	maxRaw := firstSet(source["max"], source["maximum"])
	return ats.CoerceNumber(minRaw), ats.CoerceNumber(maxRaw)
}

func firstSet(vals ...any) any {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := util.CleanText(v); s != "" {
			return s
		}
	}
	return ""
}

func stringOf(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strings.TrimSuffix(strings.TrimSuffix(fmt.Sprintf("%v", s), ".0"), ".00")
	case json.Number:
		return s.String()
	default:
		return ""
	}
}

func contains(parts []string, s string) bool {
	for _, p := range parts {
		if p == s {
			return true
		}
	}
	return false
}
