package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL:             srv.URL,
		APIKey:              "test-key",
		MinInterval:         time.Millisecond,
		RateLimitCooldown:   5 * time.Millisecond,
		ServerErrorCooldown: 5 * time.Millisecond,
	})
}

func TestFetchNormalizesObjectLinks(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://acme.io/careers", req["url"])
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"html": "<html></html>",
				"links": []any{
					map[string]string{"href": "/jobs/1", "text": "Engineer"},
					map[string]string{"url": "/jobs/2", "label": "Designer"},
					"/jobs/3",
				},
				"metadata": map[string]string{"sourceURL": "https://acme.io/careers/"},
			},
		})
	})

	page, err := c.Fetch(context.Background(), "https://acme.io/careers")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.io/careers/", page.Canonical)
	assert.Equal(t, []Anchor{
		{Href: "/jobs/1", Text: "Engineer"},
		{Href: "/jobs/2", Text: "Designer"},
		{Href: "/jobs/3"},
	}, page.Anchors)
}

func TestFetchFallsBackToHTMLAnchors(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"html": `<ul><li><a href="/jobs/9">View role</a></li></ul>`,
			},
		})
	})

	page, err := c.Fetch(context.Background(), "https://acme.io/careers")
	require.NoError(t, err)
	require.Len(t, page.Anchors, 1)
	assert.Equal(t, Anchor{Href: "/jobs/9", Text: "View role"}, page.Anchors[0])
}

func TestFetchRetriesOnceOn429(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"html": "<html></html>"},
		})
	})

	_, err := c.Fetch(context.Background(), "https://acme.io/careers")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchRetriesOnceOn5xx(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Fetch(context.Background(), "https://acme.io/careers")
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())

	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusBadGateway, fe.Status)
}

func TestFetchSurfacesServiceError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   "render timed out",
		})
	})

	_, err := c.Fetch(context.Background(), "https://acme.io/careers")
	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe.Message, "render timed out")
}

func TestFetchRejectsMalformedBody(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	})

	_, err := c.Fetch(context.Background(), "https://acme.io/careers")
	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe.Message, "malformed")
}

func TestFetchNonRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"invalid key"}`))
	})

	_, err := c.Fetch(context.Background(), "https://acme.io/careers")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusForbidden, fe.Status)
	assert.Contains(t, fe.Message, "invalid key")
}
