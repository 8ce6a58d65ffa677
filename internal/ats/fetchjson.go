package ats

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"jobharvest-engine/internal/fetch"
)

// FetchJSON retrieves a plain structured-data endpoint. ATS detail and
// company endpoints are ordinary JSON APIs, not rendered pages, so this
// bypasses the render service.
func FetchJSON(ctx context.Context, hc *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &fetch.Error{URL: url, Message: err.Error()}
	}
	req.Header.Set("User-Agent", "jobharvest/1.0 (+local)")
	req.Header.Set("Accept", "application/json")

	res, err := hc.Do(req)
	if err != nil {
		return &fetch.Error{URL: url, Message: err.Error()}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return &fetch.Error{URL: url, Status: res.StatusCode, Message: err.Error()}
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &fetch.Error{URL: url, Status: res.StatusCode, Message: clip(strings.TrimSpace(string(body)), 200)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &fetch.Error{URL: url, Message: "invalid JSON: " + err.Error() + "; snippet=" + clip(string(body), 200)}
	}
	return nil
}

// CoerceNumber accepts numeric or thousands-separated string salary forms.
// Anything else maps to absent.
func CoerceNumber(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return &f
		}
		return nil
	case string:
		cleaned := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		if cleaned == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return &f
		}
		return nil
	default:
		return nil
	}
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
