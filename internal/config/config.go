package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Firecrawl struct {
		BaseURL         string  `yaml:"base_url"`
		RequestTimeout  int     `yaml:"request_timeout"`
		RateLimitDelay  float64 `yaml:"rate_limit_delay"`
		MaxAgeMS        *int    `yaml:"max_age_ms"` // 0 forces fresh
		OnlyMainContent *bool   `yaml:"only_main_content"`
		WaitMS          int     `yaml:"wait_ms"`
	} `yaml:"firecrawl"`

	OpenRouter struct {
		BaseURL        string  `yaml:"base_url"`
		ModelJobLinks  string  `yaml:"model_job_links"`
		ModelJobFields string  `yaml:"model_job_fields"`
		MaxTokens      int     `yaml:"max_tokens"`
		Temperature    float64 `yaml:"temperature"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
		MaxRetries     int     `yaml:"max_retries"`
		RateLimitDelay float64 `yaml:"rate_limit_delay"`
		SiteURL        string  `yaml:"site_url"`
		SiteTitle      string  `yaml:"site_title"`
	} `yaml:"openrouter"`

	GoogleSheets struct {
		SpreadsheetID         string `yaml:"spreadsheet_id"`
		WorksheetName         string `yaml:"worksheet_name"`
		ServiceAccountJSONEnv string `yaml:"service_account_json_env"`
	} `yaml:"google_sheets"`

	Runtime struct {
		CachePath       string   `yaml:"cache_path"`
		Concurrency     int      `yaml:"concurrency"`
		CompanyOverride string   `yaml:"company_override"`
		SingleURL       string   `yaml:"single_url"`
		InputFile       string   `yaml:"input_file"`
		CareersURLs     []string `yaml:"careers_urls"`
		RefreshSeconds  int      `yaml:"refresh_seconds"` // 0 disables the background refresh
		DryRunPath      string   `yaml:"dry_run_path"`
		BambooHRTimeout float64  `yaml:"bamboohr_timeout"`
	} `yaml:"runtime"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// Default returns a usable config without any file on disk.
func Default() Config {
	var cfg Config
	applyDefaults(&cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.App.Port == 0 {
		cfg.App.Port = 38080
	}
	if cfg.App.DataDir == "" {
		cfg.App.DataDir = "data"
	}
	if cfg.Firecrawl.BaseURL == "" {
		cfg.Firecrawl.BaseURL = "https://api.firecrawl.dev"
	}
	if cfg.Firecrawl.RequestTimeout == 0 {
		cfg.Firecrawl.RequestTimeout = 30
	}
	if cfg.Firecrawl.RateLimitDelay == 0 {
		cfg.Firecrawl.RateLimitDelay = 1.0
	}
	if cfg.OpenRouter.BaseURL == "" {
		cfg.OpenRouter.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.OpenRouter.MaxTokens == 0 {
		cfg.OpenRouter.MaxTokens = 2000
	}
	if cfg.OpenRouter.Temperature == 0 {
		cfg.OpenRouter.Temperature = 0.2
	}
	if cfg.OpenRouter.TimeoutSeconds == 0 {
		cfg.OpenRouter.TimeoutSeconds = 60
	}
	if cfg.OpenRouter.MaxRetries == 0 {
		cfg.OpenRouter.MaxRetries = 4
	}
	if cfg.OpenRouter.RateLimitDelay == 0 {
		cfg.OpenRouter.RateLimitDelay = 0.5
	}
	if cfg.GoogleSheets.WorksheetName == "" {
		cfg.GoogleSheets.WorksheetName = "Jobs"
	}
	if cfg.GoogleSheets.ServiceAccountJSONEnv == "" {
		cfg.GoogleSheets.ServiceAccountJSONEnv = "GOOGLE_APPLICATION_CREDENTIALS"
	}
	if cfg.Runtime.CachePath == "" {
		cfg.Runtime.CachePath = "data/cache.sqlite"
	}
	if cfg.Runtime.Concurrency == 0 {
		cfg.Runtime.Concurrency = 8
	}
	if cfg.Runtime.DryRunPath == "" {
		cfg.Runtime.DryRunPath = "data/dry_run.csv"
	}
	if cfg.Runtime.BambooHRTimeout == 0 {
		cfg.Runtime.BambooHRTimeout = 20.0
	}
}
