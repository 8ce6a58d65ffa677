package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type SourcesFile struct {
	CareersURLs []string `yaml:"careers_urls"`
}

// OverlaySources merges an optional standalone sources file into the
// config so the tracked careers list can live outside the main config.
func OverlaySources(cfg *Config, sourcesPath string) error {
	b, err := os.ReadFile(sourcesPath)
	if err != nil {
		// Missing sources file should not kill startup
		return nil
	}

	var sf SourcesFile
	if err := yaml.Unmarshal(b, &sf); err != nil {
		return err
	}

	if len(sf.CareersURLs) > 0 {
		cfg.Runtime.CareersURLs = sf.CareersURLs
	}
	return nil
}
