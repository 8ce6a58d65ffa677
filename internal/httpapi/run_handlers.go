package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"jobharvest-engine/internal/config"
	"jobharvest-engine/internal/events"
	"jobharvest-engine/internal/pipeline"
)

// maxConcurrency and maxJobsCap keep HTTP-triggered runs from hammering
// the render and oracle APIs harder than an operator at the CLI would.
const (
	maxConcurrency = 4
	maxJobsCap     = 50
)

type RunHandler struct {
	CfgVal      *atomic.Value // config.Config
	RunStatus   *atomic.Value // httpapi.RunStatus
	Hub         *events.Hub
	RunPipeline func(ctx context.Context, cfg config.Config, params RunParams) (pipeline.Result, error)
}

type runRequest struct {
	URL         string `json:"url"`
	SheetID     string `json:"sheetId"`
	Worksheet   string `json:"worksheet"`
	Company     string `json:"company"`
	DryRun      *bool  `json:"dryRun"`
	Resume      bool   `json:"resume"`
	MaxJobs     *int   `json:"maxJobs"`
	Concurrency *int   `json:"concurrency"`
}

func (h RunHandler) Status(w http.ResponseWriter, r *http.Request) {
	st := h.RunStatus.Load().(RunStatus)
	writeJSON(w, st)
}

// Run executes the pipeline synchronously and returns its totals. Only
// one run at a time is allowed.
func (h RunHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}

	params, code, msg := h.buildParams(req)
	if msg != "" {
		WriteError(w, r, http.StatusBadRequest, code, msg)
		return
	}

	st := h.RunStatus.Load().(RunStatus)
	if st.Running {
		WriteError(w, r, http.StatusConflict, "already_running", "a run is already in progress")
		return
	}
	h.RunStatus.Store(RunStatus{
		LastRunAt: time.Now().Format(time.RFC3339),
		Running:   true,
		LastOkAt:  st.LastOkAt,
	})

	var (
		res pipeline.Result
		err error
	)
	// finalize in a defer so a panicking run still clears Running;
	// otherwise every later POST /run gets 409 until restart
	defer func() {
		now := time.Now().Format(time.RFC3339)
		next := h.RunStatus.Load().(RunStatus)
		next.Running = false
		next.LastRunAt = now
		if rec := recover(); rec != nil {
			next.LastError = fmt.Sprintf("panic: %v", rec)
			h.RunStatus.Store(next)
			panic(rec)
		}
		next.LastRowsAppended = res.Totals.RowsAppended
		if err != nil {
			next.LastError = err.Error()
		} else {
			next.LastError = ""
			next.LastOkAt = now
		}
		h.RunStatus.Store(next)
	}()

	cfg := h.CfgVal.Load().(config.Config)
	res, err = h.RunPipeline(r.Context(), cfg, params)

	if err != nil {
		WriteJSON(w, http.StatusBadGateway, map[string]any{
			"error":  err.Error(),
			"totals": res.Totals,
			"errors": res.Errors,
		})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"totals": res.Totals,
		"errors": res.Errors,
	})
}

func (h RunHandler) buildParams(req runRequest) (RunParams, string, string) {
	var p RunParams

	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		if req.URL == "" {
			return p, "missing_url", "field 'url' is required"
		}
		return p, "invalid_url", "invalid URL supplied"
	}
	p.CareersURL = req.URL
	p.SheetID = req.SheetID
	p.Worksheet = req.Worksheet
	p.CompanyOverride = req.Company
	p.Resume = req.Resume

	// dry run unless a sheet was named
	if req.DryRun != nil {
		p.DryRun = *req.DryRun
	} else {
		p.DryRun = req.SheetID == ""
	}

	if req.MaxJobs != nil {
		if *req.MaxJobs > 0 {
			p.MaxJobs = min(*req.MaxJobs, maxJobsCap)
		}
	}

	cfg := h.CfgVal.Load().(config.Config)
	concurrency := cfg.Runtime.Concurrency
	if req.Concurrency != nil {
		if *req.Concurrency <= 0 {
			return p, "invalid_concurrency", "concurrency must be greater than zero"
		}
		concurrency = *req.Concurrency
	}
	p.Concurrency = min(concurrency, maxConcurrency)
	if p.Concurrency < 1 {
		p.Concurrency = 1
	}
	return p, "", ""
}
