package util

import (
	"net/url"
	"strings"
)

// AbsolutizeAndDedupe resolves raw hrefs against base, drops anything that
// is not http(s), and collapses duplicates preserving first-seen order.
// Fragment-only hrefs ("#section") never reference a distinct page and are
// skipped before resolution.
func AbsolutizeAndDedupe(base string, raw []string) []string {
	b, berr := url.Parse(strings.TrimSpace(base))

	seen := map[string]bool{}
	var out []string
	for _, r := range raw {
		if r == "" {
			continue
		}
		if strings.HasPrefix(strings.TrimLeft(r, " \t"), "#") {
			continue
		}

		u, err := url.Parse(r)
		if err != nil {
			continue
		}
		if berr == nil {
			u = b.ResolveReference(u)
		}

		scheme := strings.ToLower(u.Scheme)
		if scheme != "http" && scheme != "https" {
			continue
		}

		abs := u.String()
		if seen[abs] {
			continue
		}
		seen[abs] = true
		out = append(out, abs)
	}
	return out
}

// ResolveAgainst resolves ref against base, returning ref unchanged when
// either side fails to parse.
func ResolveAgainst(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(u).String()
}
