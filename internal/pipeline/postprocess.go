package pipeline

import (
	"net/url"
	"strconv"
	"strings"

	"jobharvest-engine/internal/domain"
	"jobharvest-engine/internal/pipeline/util"
)

// Postprocess fills gaps the extraction tier left open: remote detection
// from the page body, company override, job-type canonicalization, and an
// application link that is always absolute and usable.
func Postprocess(f *domain.JobFields, companyOverride, pageHTML, jobURL, canonicalURL string) {
	if f.RemoteOK == nil {
		v := util.DetectRemote(pageHTML)
		f.RemoteOK = &v
	}
	if companyOverride != "" {
		f.CompanyName = companyOverride
	}
	if jt := util.NormalizeJobType(f.JobType); jt != "" {
		f.JobType = jt
	}
	f.ApplicationLink = sanitizeApplicationLink(f.ApplicationLink, jobURL, canonicalURL)
}

// sanitizeApplicationLink keeps absolute http(s) and mailto links as-is,
// resolves schemeless paths against the canonical URL (falling back to the
// job URL), and otherwise falls back to the page itself.
func sanitizeApplicationLink(link, jobURL, canonicalURL string) string {
	candidate := strings.TrimSpace(link)
	if candidate != "" {
		u, err := url.Parse(candidate)
		if err == nil {
			switch {
			case (u.Scheme == "http" || u.Scheme == "https") && u.Host != "":
				return candidate
			case u.Scheme == "mailto":
				return candidate
			case u.Scheme == "":
				base := canonicalURL
				if base == "" {
					base = jobURL
				}
				if base != "" {
					return util.ResolveAgainst(base, candidate)
				}
				return candidate
			}
		}
	}
	if canonicalURL != "" {
		return canonicalURL
	}
	return jobURL
}

// ToRow flattens fields into the sheet layout. Absent salaries become
// empty cells, remote becomes the TRUE/FALSE strings Sheets treats as
// booleans.
func ToRow(f *domain.JobFields) []string {
	remote := "FALSE"
	if f.RemoteOK != nil && *f.RemoteOK {
		remote = "TRUE"
	}
	return []string{
		f.Title,
		f.CompanyName,
		f.Location,
		remote,
		f.JobType,
		f.DescriptionHTML,
		formatSalary(f.MinSalary),
		formatSalary(f.MaxSalary),
		f.ApplicationLink,
	}
}

func formatSalary(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
