// Package config loads .xcfill.yaml and resolves the settings every xcfill
// stage runs with.
//
// The file is optional. Without it xcfill uses the built-in language list,
// token budget and regional rule table.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/xcfill/regional"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// XcfillFile is the top-level .xcfill.yaml structure.
type XcfillFile struct {
	// SourceLang is the base locale. Empty means "use each catalog's
	// sourceLanguage".
	SourceLang string `yaml:"source_lang,omitempty"`
	// Languages is the required target locale list.
	Languages []string `yaml:"languages,omitempty"`
	// MaxTokens is the token ceiling of a translation task.
	MaxTokens int `yaml:"max_tokens,omitempty"`
	// Strict turns unknown task keys and failed batches into errors.
	Strict bool `yaml:"strict,omitempty"`
	// TasksDir is where task files are written, relative to the file.
	TasksDir string `yaml:"tasks_dir,omitempty"`
	// Lock enables xcfill.lock stale-source tracking.
	Lock bool `yaml:"lock,omitempty"`
	// Instructions replaces the prompt preamble stored in each task.
	Instructions string `yaml:"instructions,omitempty"`
	// Prompt replaces the translation guidance sent to the provider.
	Prompt string `yaml:"prompt,omitempty"`
	// RegionalVariants replaces the built-in regional rule table.
	RegionalVariants []regional.Rule `yaml:"regional_variants,omitempty"`
	// Provider holds provider defaults; flags and environment win over it.
	Provider ProviderSection `yaml:"provider,omitempty"`
}

// ProviderSection configures the translation provider.
type ProviderSection struct {
	ID          string  `yaml:"id,omitempty"`
	Model       string  `yaml:"model,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
	Timeout     string  `yaml:"timeout,omitempty"`
	Parallel    bool    `yaml:"parallel,omitempty"`
	Concurrency int     `yaml:"concurrency,omitempty"`
	Retries     int     `yaml:"retries,omitempty"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// XcfillFileName is the default config file name.
const XcfillFileName = ".xcfill.yaml"

// LoadXcfillFile loads and validates .xcfill.yaml from the given directory.
// Returns nil if no .xcfill.yaml exists.
func LoadXcfillFile(rootDir string) (*XcfillFile, error) {
	path := filepath.Join(rootDir, XcfillFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var xf XcfillFile
	if err := yaml.Unmarshal(data, &xf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := xf.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &xf, nil
}

func (xf *XcfillFile) validate() error {
	if xf.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", xf.MaxTokens)
	}
	if xf.SourceLang != "" {
		if err := ValidateLocale(xf.SourceLang); err != nil {
			return fmt.Errorf("source_lang: %w", err)
		}
	}
	for _, l := range xf.Languages {
		if err := ValidateLocale(l); err != nil {
			return fmt.Errorf("languages: %w", err)
		}
	}
	for i, rule := range xf.RegionalVariants {
		if rule.Base == "" {
			return fmt.Errorf("regional_variants #%d has no base", i+1)
		}
		if err := ValidateLocale(rule.Base); err != nil {
			return fmt.Errorf("regional_variants #%d: %w", i+1, err)
		}
		if len(rule.Variants) == 0 {
			return fmt.Errorf("regional_variants %q has no variants", rule.Base)
		}
		for _, v := range rule.Variants {
			if err := ValidateLocale(v.Code); err != nil {
				return fmt.Errorf("regional_variants %q: %w", rule.Base, err)
			}
		}
	}
	if xf.Provider.Concurrency < 0 || xf.Provider.Retries < 0 {
		return fmt.Errorf("provider concurrency and retries must not be negative")
	}
	if xf.Provider.Timeout != "" {
		if _, err := time.ParseDuration(xf.Provider.Timeout); err != nil {
			return fmt.Errorf("provider timeout: %w", err)
		}
	}
	return nil
}

// TimeoutDuration returns the parsed timeout, or 0 when unset or invalid.
func (p ProviderSection) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(p.Timeout)
	if err != nil {
		return 0
	}
	return d
}
