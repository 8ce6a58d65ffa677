// Package oracle talks to the schema-constrained extraction service: an
// OpenRouter-style chat-completions endpoint asked to emit JSON matching an
// embedded schema, with parse/validate/retry handling around it.
package oracle

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
	"jobharvest-engine/internal/schema"
)

// ExtractionError reports an exhausted retry budget. Snippet holds the
// start of the last raw model output for diagnosis.
type ExtractionError struct {
	Attempts int
	LastErr  string
	Snippet  string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("oracle produced no schema-valid JSON after %d attempts: %s | snippet=%q",
		e.Attempts, e.LastErr, e.Snippet)
}

type Config struct {
	BaseURL      string
	APIKey       string
	DefaultModel string
	MaxTokens    int
	Temperature  float64
	Timeout      time.Duration
	MinInterval  time.Duration
	MaxRetries   int // default per-call retry budget

	// Optional routing hints.
	SiteURL   string
	SiteTitle string

	RateLimitCooldown time.Duration
	BackoffStep       time.Duration
}

type Client struct {
	cfg  Config
	hc   *http.Client
	gate *util.Gate
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "google/gemini-2.5-pro"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 500 * time.Millisecond
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 4
	}
	if cfg.RateLimitCooldown <= 0 {
		cfg.RateLimitCooldown = 10 * time.Second
	}
	if cfg.BackoffStep <= 0 {
		cfg.BackoffStep = 750 * time.Millisecond
	}
	return &Client{
		cfg:  cfg,
		hc:   &http.Client{Timeout: cfg.Timeout},
		gate: util.NewGate(cfg.MinInterval),
	}
}

// Request is one schema-constrained completion.
type Request struct {
	SystemPrompt string
	UserPayload  any // marshaled to JSON as the user message
	Schema       *schema.Schema
	Model        string // override; empty uses the client default
	MaxRetries   *int   // override; nil uses the client default
}

// CompleteJSON asks the model for a schema-valid object, retrying parse and
// validation failures up to the budget. Each retry tightens the prompt with
// an explicit JSON-only directive and backs off a little longer.
func (c *Client) CompleteJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	userJSON, err := json.Marshal(req.UserPayload)
	if err != nil {
		return nil, fmt.Errorf("oracle: marshal user payload: %w", err)
	}
	userPrompt := string(userJSON)

	budget := c.cfg.MaxRetries
	if req.MaxRetries != nil {
		budget = *req.MaxRetries
	}

	var lastErr, lastRaw string
	attempts := 0
	for attempts <= budget {
		attempts++

		content, err := c.postChat(ctx, req.Model, req.SystemPrompt, userPrompt)
		if err != nil {
			return nil, err
		}
		lastRaw = content

		cleaned := ExtractJSONText(content)
		decoded, derr := schema.Decode(cleaned)
		switch {
		case derr != nil:
			lastErr = "JSON parsing failed: " + derr.Error()
		default:
			verr := req.Schema.Validate(decoded)
			if verr == nil {
				return json.RawMessage(cleaned), nil
			}
			lastErr = verr.Error()
		}

		userPrompt += "\n\nReturn ONLY a valid JSON object that conforms to the schema. " +
			"Do not include markdown, code fences, or any explanation."
		if err := sleepCtx(ctx, time.Duration(attempts)*c.cfg.BackoffStep); err != nil {
			return nil, err
		}
	}

	return nil, &ExtractionError{
		Attempts: attempts,
		LastErr:  lastErr,
		Snippet:  clip(lastRaw, 500),
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) postChat(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	if err := c.gate.Acquire(ctx); err != nil {
		return "", err
	}

	if model == "" {
		model = c.cfg.DefaultModel
	}
	payload := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"temperature":     c.cfg.Temperature,
		"max_tokens":      c.cfg.MaxTokens,
		"response_format": map[string]string{"type": "json_object"},
	}

	body, status, err := c.post(ctx, payload)
	if err != nil {
		return "", err
	}
	if status == http.StatusTooManyRequests {
		if err := sleepCtx(ctx, c.cfg.RateLimitCooldown); err != nil {
			return "", err
		}
		body, status, err = c.post(ctx, payload)
		if err != nil {
			return "", err
		}
	}
	if status < 200 || status > 299 {
		return "", fmt.Errorf("oracle: chat completion failed: status %d: %s", status, clip(strings.TrimSpace(string(body)), 500))
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("oracle: decode response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("oracle: response had no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) post(ctx context.Context, payload any) ([]byte, int, error) {
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return nil, 0, fmt.Errorf("oracle: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.SiteURL != "" {
		req.Header.Set("HTTP-Referer", c.cfg.SiteURL)
	}
	if c.cfg.SiteTitle != "" {
		req.Header.Set("X-Title", c.cfg.SiteTitle)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("oracle: post: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, res.StatusCode, fmt.Errorf("oracle: read response: %w", err)
	}
	return body, res.StatusCode, nil
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
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
