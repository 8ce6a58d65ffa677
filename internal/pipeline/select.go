package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"jobharvest-engine/internal/fetch"
	"jobharvest-engine/internal/oracle"
	"jobharvest-engine/internal/pipeline/util"
	"jobharvest-engine/internal/schema"
)

// Fetcher renders a page and returns its HTML plus anchors.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*fetch.Page, error)
}

// Oracle produces schema-validated JSON completions.
type Oracle interface {
	CompleteJSON(ctx context.Context, req oracle.Request) (json.RawMessage, error)
}

const (
	// anchors beyond this bound are never considered
	maxAnchors      = 150
	maxBoardAnchors = 200
)

var jobPathKeywords = []string{
	"/careers/",
	"/career/",
	"/jobs/",
	"/job/",
	"/positions/",
	"/position/",
	"/opportunities/",
	"/opportunity/",
	"/opening/",
	"/openings/",
	"greenhouse.io",
	"lever.co",
	"ashbyhq.com",
	"workable.com",
}

var navExcludes = []string{
	"?",
	"#",
	"/teams",
	"/departments",
	"/locations",
	"/search",
	"/filters",
	"/pages/",
	"/page/",
	"/category/",
	"/categories/",
}

var applyPhrases = []string{"apply", "view role", "view job", "see role", "see job"}

var boardHosts = []string{"greenhouse.io", "lever.co", "ashbyhq.com", "workable.com", "jobs.ashbyhq.com"}

// Selector narrows a careers page's anchors to likely job-posting URLs
// using an ordered fallback chain: oracle index selection, then a path
// heuristic, then a one-hop re-scrape of a linked ATS board.
type Selector struct {
	Fetcher Fetcher
	Oracle  Oracle
	Model   string // oracle model for index selection; empty uses the client default
}

// Select returns absolute, deduplicated candidate URLs for one careers
// page. An oracle transport failure is fatal for the page; an empty oracle
// answer falls through to the next tier.
func (s *Selector) Select(ctx context.Context, origin string, anchors []fetch.Anchor) ([]string, error) {
	limited := anchors
	if len(limited) > maxAnchors {
		limited = limited[:maxAnchors]
	}

	raw, err := s.oracleIndices(ctx, origin, limited)
	if err != nil {
		return nil, err
	}
	log.Printf("[select] anchors total=%d limited=%d selected=%d url=%s", len(anchors), len(limited), len(raw), origin)

	if len(raw) == 0 {
		raw = heuristicMatches(limited)
		if len(raw) > 0 {
			log.Printf("[select] heuristic fallback matches=%d url=%s", len(raw), origin)
		}
	}

	jobURLs := util.AbsolutizeAndDedupe(origin, raw)
	if len(jobURLs) == 0 {
		jobURLs = s.boardFallback(ctx, origin, limited)
	}
	return jobURLs, nil
}

func (s *Selector) oracleIndices(ctx context.Context, origin string, anchors []fetch.Anchor) ([]string, error) {
	payload := map[string]any{
		"Origin":  origin,
		"Anchors": anchors,
		"Instruction": "Select ONLY the indices of anchors that are individual job postings. " +
			"Be VERY selective - choose maximum 30 indices. " +
			"Exclude category, team, filter, search, pagination, and general navigation links. " +
			"Focus on links that clearly lead to specific job descriptions.",
	}

	out, err := s.Oracle.CompleteJSON(ctx, oracle.Request{
		SystemPrompt: "You are a precise job posting selector. Given a list of anchors with href and text, " +
			"return ONLY a JSON object that conforms to this JSON Schema (Draft 2020-12):\n" +
			schema.JobURLIndices.Text + "\n" +
			"CRITICAL RULES:\n" +
			"- Select MAXIMUM 30 indices (preferably 10-20)\n" +
			"- Only choose anchors that are clearly individual job postings\n" +
			"- Exclude category/team/filter/search/pagination links\n" +
			"- Be conservative - when in doubt, exclude it\n" +
			"- Output must be valid JSON with 'indices' array containing integers only",
		UserPayload: payload,
		Schema:      schema.JobURLIndices,
		Model:       s.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("select job links: %w", err)
	}

	var sel struct {
		Indices []int `json:"indices"`
	}
	if err := json.Unmarshal(out, &sel); err != nil {
		return nil, fmt.Errorf("select job links: decode: %w", err)
	}
	// the 30-index cap is a prompt-level preference, oversized answers
	// pass through with a log line
	if len(sel.Indices) > 30 {
		log.Printf("[select] oversized selection indices=%d url=%s", len(sel.Indices), origin)
	}

	var hrefs []string
	for _, idx := range sel.Indices {
		if idx >= 0 && idx < len(anchors) {
			hrefs = append(hrefs, anchors[idx].Href)
		}
	}
	return hrefs, nil
}

func heuristicMatches(anchors []fetch.Anchor) []string {
	var matches []string
	for _, a := range anchors {
		if a.Href == "" {
			continue
		}
		href := strings.ToLower(a.Href)
		text := strings.ToLower(a.Text)
		switch {
		case containsAny(href, jobPathKeywords) && !containsAny(href, navExcludes):
			matches = append(matches, a.Href)
		case containsAny(text, applyPhrases):
			matches = append(matches, a.Href)
		}
	}
	return matches
}

// boardFallback follows the first anchor pointing at a known ATS board and
// runs a board-shaped heuristic on that page. Board fetch failures leave
// the candidate set empty rather than failing the careers page.
func (s *Selector) boardFallback(ctx context.Context, origin string, anchors []fetch.Anchor) []string {
	var links []string
	for _, a := range anchors {
		if a.Href != "" && containsAny(strings.ToLower(a.Href), boardHosts) {
			links = append(links, a.Href)
		}
	}
	links = util.AbsolutizeAndDedupe(origin, links)
	if len(links) == 0 {
		return nil
	}

	board := links[0]
	log.Printf("[select] ats board fallback url=%s", board)

	page, err := s.Fetcher.Fetch(ctx, board)
	if err != nil {
		log.Printf("[select] ats board error url=%s err=%v", board, err)
		return nil
	}

	boardAnchors := page.Anchors
	if len(boardAnchors) > maxBoardAnchors {
		boardAnchors = boardAnchors[:maxBoardAnchors]
	}

	var raw []string
	for _, a := range boardAnchors {
		if a.Href == "" {
			continue
		}
		href := strings.ToLower(a.Href)
		text := strings.ToLower(a.Text)
		switch {
		case containsAny(text, []string{"apply", "view job", "view role", "see job", "job details"}) && strings.Contains(href, "/job"):
			raw = append(raw, a.Href)
		case containsAny(href, []string{"/job/", "/jobs/", "/positions/", "/careers/"}):
			raw = append(raw, a.Href)
		}
	}
	return util.AbsolutizeAndDedupe(board, raw)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
