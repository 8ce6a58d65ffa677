package httpapi

import (
	"context"
	"sync/atomic"

	"jobharvest-engine/internal/config"
	"jobharvest-engine/internal/events"
	"jobharvest-engine/internal/pipeline"
)

// RunParams is one pipeline invocation as requested over HTTP.
type RunParams struct {
	CareersURL      string
	SheetID         string
	Worksheet       string
	CompanyOverride string
	DryRun          bool
	Resume          bool
	MaxJobs         int
	Concurrency     int
}

type Deps struct {
	Hub *events.Hub

	// Atomic stores
	CfgVal    *atomic.Value // stores config.Config
	RunStatus *atomic.Value // stores httpapi.RunStatus

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// Pipeline entrypoint (inject for testability)
	RunPipeline func(ctx context.Context, cfg config.Config, params RunParams) (pipeline.Result, error)
}
