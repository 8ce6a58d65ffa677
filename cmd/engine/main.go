package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"jobharvest-engine/internal/config"
	"jobharvest-engine/internal/events"
	"jobharvest-engine/internal/httpapi"
	"jobharvest-engine/internal/pipeline"
	"jobharvest-engine/internal/scheduler"
)

func main() {
	var (
		flagURL         = flag.String("url", "", "single careers page URL")
		flagInput       = flag.String("input", "", "file with one careers URL per line")
		flagSheetID     = flag.String("sheet-id", "", "target spreadsheet ID or URL")
		flagWorksheet   = flag.String("worksheet", "", "target worksheet name")
		flagCompany     = flag.String("company", "", "override company_name on every row")
		flagConfig      = flag.String("config", "", "path to config.yml")
		flagDryRun      = flag.Bool("dry-run", false, "write rows to a local CSV instead of the sheet")
		flagResume      = flag.Bool("resume", false, "skip job URLs already in the cache")
		flagConcurrency = flag.Int("concurrency", 0, "parallel extractions per source")
		flagMaxJobs     = flag.Int("max-jobs", 0, "cap candidates per source")
		flagServe       = flag.Bool("serve", false, "run the HTTP API instead of a one-shot pipeline")
	)
	flag.Parse()

	dataDir := os.Getenv("JOBHARVEST_DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	userCfgPath, cfg := loadConfig(dataDir, *flagConfig)
	_ = config.OverlaySources(&cfg, filepath.Join(dataDir, "sources.yml"))

	normalized, vr := config.NormalizeAndValidate(cfg)
	if !vr.OK() {
		for _, e := range vr.Errors {
			log.Printf("[config] error: %s", e)
		}
		os.Exit(1)
	}
	for _, w := range vr.Warnings {
		log.Printf("[config] warning: %s", w)
	}
	cfg = normalized

	if *flagServe {
		serve(cfg, userCfgPath)
		return
	}

	careersURLs, err := resolveInput(*flagURL, *flagInput, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if len(careersURLs) == 0 {
		fmt.Fprintln(os.Stderr, "provide -url or -input with at least one careers URL")
		os.Exit(2)
	}

	sheetID := *flagSheetID
	if sheetID == "" {
		sheetID = cfg.GoogleSheets.SpreadsheetID
	}
	if !*flagDryRun && sheetID == "" {
		fmt.Fprintln(os.Stderr, "provide -sheet-id or run with -dry-run")
		os.Exit(2)
	}

	worksheet := *flagWorksheet
	if worksheet == "" {
		worksheet = cfg.GoogleSheets.WorksheetName
	}
	company := *flagCompany
	if company == "" {
		company = cfg.Runtime.CompanyOverride
	}
	concurrency := *flagConcurrency
	if concurrency <= 0 {
		concurrency = cfg.Runtime.Concurrency
	}

	ctx := context.Background()
	p, closeFn, err := buildPipeline(ctx, cfg, buildOpts{
		SheetID:         sheetID,
		Worksheet:       worksheet,
		CompanyOverride: company,
		DryRun:          *flagDryRun,
		Resume:          *flagResume,
		Concurrency:     concurrency,
		MaxJobs:         *flagMaxJobs,
	})
	if err != nil {
		log.Fatalf("pipeline setup failed: %v", err)
	}
	defer closeFn()

	res, runErr := p.Run(ctx, careersURLs)

	out, _ := json.Marshal(res)
	fmt.Println(string(out))

	if runErr != nil {
		log.Printf("[engine] run failed: %v", runErr)
		os.Exit(1)
	}
}

func loadConfig(dataDir, explicitPath string) (string, config.Config) {
	if explicitPath != "" {
		cfg, err := config.Load(explicitPath)
		if err != nil {
			log.Fatalf("config load failed (%s): %v", explicitPath, err)
		}
		return explicitPath, cfg
	}

	defaultCfgPath := filepath.Join("config", "config.yml")
	if _, err := os.Stat(defaultCfgPath); err == nil {
		userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
		if err != nil {
			log.Fatalf("config bootstrap failed: %v", err)
		}
		cfg, err := config.Load(userCfgPath)
		if err != nil {
			log.Fatalf("config load failed (%s): %v", userCfgPath, err)
		}
		return userCfgPath, cfg
	}

	return filepath.Join(dataDir, "config.yml"), config.Default()
}

func serve(cfg config.Config, userCfgPath string) {
	hub := events.NewHub()

	var cfgVal atomic.Value
	cfgVal.Store(cfg)
	var runStatus atomic.Value
	runStatus.Store(httpapi.RunStatus{})

	deps := httpapi.Deps{
		Hub:         hub,
		CfgVal:      &cfgVal,
		RunStatus:   &runStatus,
		UserCfgPath: userCfgPath,
		LoadCfg: func() (config.Config, error) {
			return config.Load(userCfgPath)
		},
		RunPipeline: func(ctx context.Context, cfg config.Config, params httpapi.RunParams) (pipeline.Result, error) {
			p, closeFn, err := buildPipeline(ctx, cfg, buildOpts{
				SheetID:         params.SheetID,
				Worksheet:       params.Worksheet,
				CompanyOverride: params.CompanyOverride,
				DryRun:          params.DryRun,
				Resume:          params.Resume,
				Concurrency:     params.Concurrency,
				MaxJobs:         params.MaxJobs,
			})
			if err != nil {
				return pipeline.Result{}, err
			}
			defer closeFn()
			p.Notify = func(event string, data map[string]any) {
				hub.Publish(events.MakeEvent("", event, 1, data))
			}
			return p.Run(ctx, []string{params.CareersURL})
		},
	}

	mux := httpapi.NewMux(deps)

	// background refresh re-walks configured sources, resumed so only new
	// postings land in the dry-run CSV
	if cfg.Runtime.RefreshSeconds > 0 {
		sources, err := resolveInput("", "", cfg)
		if err != nil {
			log.Fatalf("refresh sources: %v", err)
		}
		if len(sources) > 0 {
			interval := time.Duration(cfg.Runtime.RefreshSeconds) * time.Second
			go scheduler.Every(context.Background(), interval, "refresh", func(ctx context.Context) error {
				cur := cfgVal.Load().(config.Config)
				p, closeFn, err := buildPipeline(ctx, cur, buildOpts{
					DryRun:      true,
					Resume:      true,
					Concurrency: cur.Runtime.Concurrency,
				})
				if err != nil {
					return err
				}
				defer closeFn()
				p.Notify = func(event string, data map[string]any) {
					hub.Publish(events.MakeEvent("", event, 1, data))
				}
				_, err = p.Run(ctx, sources)
				return err
			})
		}
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}

	srv := &http.Server{
		Handler:           httpapi.Chain(mux, httpapi.RequestID, httpapi.AccessLog, httpapi.Recover, httpapi.Cors),
		ReadHeaderTimeout: 5 * time.Second,
	}

	token, err := randomToken(16)
	if err != nil {
		log.Fatal(err)
	}
	mux.HandleFunc("/shutdown", shutdownHandler(&token, srv))

	log.Printf("engine listening on http://%s shutdown_token=%s", addr, token)
	log.Fatal(srv.Serve(ln))
}
