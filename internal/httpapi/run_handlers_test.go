package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobharvest-engine/internal/config"
	"jobharvest-engine/internal/events"
	"jobharvest-engine/internal/pipeline"
)

func testDeps(t *testing.T, run func(ctx context.Context, cfg config.Config, params RunParams) (pipeline.Result, error)) Deps {
	t.Helper()
	cfgVal := &atomic.Value{}
	cfgVal.Store(config.Default())
	statusVal := &atomic.Value{}
	statusVal.Store(RunStatus{})
	return Deps{
		Hub:         events.NewHub(),
		CfgVal:      cfgVal,
		RunStatus:   statusVal,
		RunPipeline: run,
	}
}

func postRun(t *testing.T, d Deps, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := NewMux(d)
	req := httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(body))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestRunValidation(t *testing.T) {
	d := testDeps(t, nil)

	cases := []struct {
		name string
		body string
		code int
		msg  string
	}{
		{"missing url", `{}`, http.StatusBadRequest, "url"},
		{"invalid url", `{"url": "ftp://acme.io"}`, http.StatusBadRequest, "invalid URL"},
		{"bad json", `{`, http.StatusBadRequest, "invalid JSON"},
		{"zero concurrency", `{"url": "https://acme.io/careers", "concurrency": 0}`, http.StatusBadRequest, "concurrency"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := postRun(t, d, tc.body)
			assert.Equal(t, tc.code, rr.Code)
			assert.Contains(t, rr.Body.String(), tc.msg)
		})
	}
}

func TestRunClampsAndDefaults(t *testing.T) {
	var got RunParams
	d := testDeps(t, func(_ context.Context, _ config.Config, params RunParams) (pipeline.Result, error) {
		got = params
		return pipeline.Result{Totals: pipeline.Totals{RowsAppended: 3}}, nil
	})

	rr := postRun(t, d, `{"url": "https://acme.io/careers", "maxJobs": 500, "concurrency": 16}`)
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, "https://acme.io/careers", got.CareersURL)
	assert.Equal(t, 50, got.MaxJobs)
	assert.Equal(t, 4, got.Concurrency)
	// no sheet named means dry run
	assert.True(t, got.DryRun)
	assert.Contains(t, rr.Body.String(), `"rows_appended":3`)

	st := d.RunStatus.Load().(RunStatus)
	assert.False(t, st.Running)
	assert.Equal(t, 3, st.LastRowsAppended)
	assert.NotEmpty(t, st.LastOkAt)
}

func TestRunSheetDisablesDryRun(t *testing.T) {
	var got RunParams
	d := testDeps(t, func(_ context.Context, _ config.Config, params RunParams) (pipeline.Result, error) {
		got = params
		return pipeline.Result{}, nil
	})

	rr := postRun(t, d, `{"url": "https://acme.io/careers", "sheetId": "sheet-1", "worksheet": "Jobs"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, got.DryRun)
	assert.Equal(t, "sheet-1", got.SheetID)
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	d := testDeps(t, nil)
	d.RunStatus.Store(RunStatus{Running: true})

	rr := postRun(t, d, `{"url": "https://acme.io/careers"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "already in progress")
}

func TestRunSurfacesPipelineFailure(t *testing.T) {
	d := testDeps(t, func(context.Context, config.Config, RunParams) (pipeline.Result, error) {
		return pipeline.Result{
			Totals: pipeline.Totals{Errors: 1},
			Errors: []pipeline.ErrorEntry{{Scope: "careers", URL: "https://acme.io/careers", Message: "render timeout"}},
		}, assert.AnError
	})

	rr := postRun(t, d, `{"url": "https://acme.io/careers"}`)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), "render timeout")

	st := d.RunStatus.Load().(RunStatus)
	assert.False(t, st.Running)
	assert.NotEmpty(t, st.LastError)
}

func TestRunPanicDoesNotWedgeStatus(t *testing.T) {
	calls := 0
	d := testDeps(t, func(context.Context, config.Config, RunParams) (pipeline.Result, error) {
		calls++
		if calls == 1 {
			panic("oracle client blew up")
		}
		return pipeline.Result{}, nil
	})
	handler := Chain(NewMux(d), Recover)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(`{"url": "https://acme.io/careers"}`)))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	st := d.RunStatus.Load().(RunStatus)
	assert.False(t, st.Running, "a panicking run must release the run lock")
	assert.Contains(t, st.LastError, "panic")

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(`{"url": "https://acme.io/careers"}`)))
	assert.Equal(t, http.StatusOK, rr.Code, "next run must not be rejected as already running")
}

func TestHealth(t *testing.T) {
	d := testDeps(t, nil)
	mux := NewMux(d)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"ok":true`)
}

func TestMethodNotAllowed(t *testing.T) {
	d := testDeps(t, nil)
	mux := NewMux(d)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/run", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestSecretsUnknownAccount(t *testing.T) {
	d := testDeps(t, nil)
	mux := NewMux(d)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/secrets/nope", strings.NewReader(`{"value":"x"}`)))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
