package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jobharvest-engine/internal/pipeline/util"
)

// Anchor is an outbound link extracted from a fetched page.
type Anchor struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// Page is the normalized result of one render-service fetch.
type Page struct {
	HTML      string
	Anchors   []Anchor
	Canonical string
}

// Error reports a failed page fetch, carrying whatever message the service
// returned upstream.
type Error struct {
	URL     string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %s", e.URL, e.Status, e.Message)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Message)
}

type Config struct {
	BaseURL         string
	APIKey          string
	RequestTimeout  time.Duration
	MinInterval     time.Duration
	MaxAgeMS        *int  // 0 forces a fresh render
	OnlyMainContent *bool
	WaitMS          int // post-render settle time for JS-heavy pages

	// Cooldowns before the single retry on 429 / 5xx. Zero values take the
	// defaults; tests shrink them.
	RateLimitCooldown   time.Duration
	ServerErrorCooldown time.Duration
}

type Client struct {
	cfg  Config
	hc   *http.Client
	gate *util.Gate
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.firecrawl.dev"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = time.Second
	}
	if cfg.RateLimitCooldown <= 0 {
		cfg.RateLimitCooldown = 5 * time.Second
	}
	if cfg.ServerErrorCooldown <= 0 {
		cfg.ServerErrorCooldown = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		hc:   &http.Client{Timeout: cfg.RequestTimeout},
		gate: util.NewGate(cfg.MinInterval),
	}
}

type scrapeResponse struct {
	Success *bool           `json:"success"`
	Err     string          `json:"error"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type scrapeData struct {
	HTML     string          `json:"html"`
	Links    json.RawMessage `json:"links"`
	Metadata struct {
		SourceURL string `json:"sourceURL"`
		Canonical string `json:"canonical"`
	} `json:"metadata"`
}

// Fetch retrieves the rendered HTML and outbound links for url. Callers
// sharing the client queue on its gate, so successive calls are spaced by
// at least the configured minimum interval.
func (c *Client) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	if err := c.gate.Acquire(ctx); err != nil {
		return nil, err
	}

	body, status, err := c.post(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusTooManyRequests:
		if err := sleepCtx(ctx, c.cfg.RateLimitCooldown); err != nil {
			return nil, err
		}
		body, status, err = c.post(ctx, pageURL)
		if err != nil {
			return nil, err
		}
	case status >= 500:
		if err := sleepCtx(ctx, c.cfg.ServerErrorCooldown); err != nil {
			return nil, err
		}
		body, status, err = c.post(ctx, pageURL)
		if err != nil {
			return nil, err
		}
	}

	if status < 200 || status > 299 {
		return nil, &Error{URL: pageURL, Status: status, Message: snippet(body)}
	}

	var resp scrapeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Error{URL: pageURL, Status: status, Message: "malformed response body: " + snippet(body)}
	}
	if resp.Success != nil && !*resp.Success {
		msg := resp.Err
		if msg == "" {
			msg = resp.Message
		}
		if msg == "" {
			msg = "service reported success=false"
		}
		return nil, &Error{URL: pageURL, Message: msg}
	}

	var data scrapeData
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return nil, &Error{URL: pageURL, Message: "malformed data payload: " + snippet(resp.Data)}
		}
	} else if err := json.Unmarshal(body, &data); err != nil {
		// some deployments return the content at the root
		return nil, &Error{URL: pageURL, Message: "malformed response body: " + snippet(body)}
	}

	page := &Page{
		HTML:      data.HTML,
		Anchors:   normalizeLinks(data.Links),
		Canonical: firstNonEmpty(data.Metadata.SourceURL, data.Metadata.Canonical),
	}
	if len(page.Anchors) == 0 && page.HTML != "" {
		page.Anchors = AnchorsFromHTML(page.HTML)
	}
	return page, nil
}

func (c *Client) post(ctx context.Context, pageURL string) ([]byte, int, error) {
	payload := map[string]any{
		"url":     pageURL,
		"formats": []string{"html", "links"},
	}
	if c.cfg.MaxAgeMS != nil {
		payload["maxAge"] = *c.cfg.MaxAgeMS
	}
	if c.cfg.OnlyMainContent != nil {
		payload["onlyMainContent"] = *c.cfg.OnlyMainContent
	}
	if c.cfg.WaitMS > 0 {
		payload["actions"] = []map[string]any{{"type": "wait", "milliseconds": c.cfg.WaitMS}}
	}

	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v2/scrape", bytes.NewReader(b))
	if err != nil {
		return nil, 0, &Error{URL: pageURL, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "jobharvest/1.0 (+local)")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, 0, &Error{URL: pageURL, Message: err.Error()}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, 0, &Error{URL: pageURL, Status: res.StatusCode, Message: err.Error()}
	}
	return body, res.StatusCode, nil
}

// normalizeLinks accepts both wire forms: a bare list of href strings, or a
// list of objects with href/url/link and text/label/title keys.
func normalizeLinks(raw json.RawMessage) []Anchor {
	if len(raw) == 0 {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		var single string
		if json.Unmarshal(raw, &single) == nil && single != "" {
			return []Anchor{{Href: single}}
		}
		return nil
	}

	var out []Anchor
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) == nil {
			if s != "" {
				out = append(out, Anchor{Href: s})
			}
			continue
		}
		var obj map[string]string
		if json.Unmarshal(item, &obj) != nil {
			continue
		}
		href := firstNonEmpty(obj["href"], obj["url"], obj["link"])
		if href == "" {
			continue
		}
		out = append(out, Anchor{
			Href: href,
			Text: firstNonEmpty(obj["text"], obj["label"], obj["title"]),
		})
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 500 {
		s = s[:500]
	}
	if s == "" {
		return "empty response body"
	}
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
