package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/language"

	"github.com/minios-linux/xcfill/batch"
	"github.com/minios-linux/xcfill/regional"
	"github.com/minios-linux/xcfill/xcstrings"
)

// DefaultLanguages is the target list used when .xcfill.yaml names none.
var DefaultLanguages = []string{
	"ar", "de", "es", "fr", "ja", "nl", "pt", "zh-Hans", "zh-Hant",
	"it", "ko", "sv", "hi", "pl", "tr",
}

// Config holds resolved settings. It is passed by value into each stage
// and never modified after Resolve.
type Config struct {
	// Root is the directory holding .xcfill.yaml and xcfill.lock.
	Root string
	// HasFile reports whether .xcfill.yaml was found.
	HasFile bool

	SourceLang   string
	Languages    []string
	MaxTokens    int
	Strict       bool
	TasksDir     string
	UseLock      bool
	Instructions string
	Prompt       string
	Regional     []regional.Rule
	Provider     ProviderSection
}

// Defaults returns the built-in configuration rooted at root.
func Defaults(root string) Config {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = root
	}
	return Config{
		Root:         absRoot,
		Languages:    append([]string(nil), DefaultLanguages...),
		MaxTokens:    batch.DefaultMaxTokens,
		TasksDir:     absRoot,
		Instructions: batch.DefaultInstructions,
		Regional:     regional.DefaultRules(),
	}
}

// Load reads .xcfill.yaml from root, if present, and resolves it over the
// defaults.
func Load(root string) (Config, error) {
	xf, err := LoadXcfillFile(root)
	if err != nil {
		return Config{}, err
	}
	return Resolve(root, xf), nil
}

// Resolve applies a parsed file over the defaults. A nil file yields the
// defaults.
func Resolve(root string, xf *XcfillFile) Config {
	c := Defaults(root)
	if xf == nil {
		return c
	}
	c.HasFile = true

	c.SourceLang = xf.SourceLang
	if len(xf.Languages) > 0 {
		c.Languages = dedupe(xf.Languages)
	}
	if xf.MaxTokens > 0 {
		c.MaxTokens = xf.MaxTokens
	}
	c.Strict = xf.Strict
	if xf.TasksDir != "" {
		if filepath.IsAbs(xf.TasksDir) {
			c.TasksDir = xf.TasksDir
		} else {
			c.TasksDir = filepath.Join(c.Root, xf.TasksDir)
		}
	}
	c.UseLock = xf.Lock
	if xf.Instructions != "" {
		c.Instructions = xf.Instructions
	}
	c.Prompt = xf.Prompt
	if len(xf.RegionalVariants) > 0 {
		c.Regional = xf.RegionalVariants
	}
	c.Provider = xf.Provider
	return c
}

// ---------------------------------------------------------------------------
// Locale helpers
// ---------------------------------------------------------------------------

// ValidateLocale checks that code is a well-formed BCP 47 tag.
func ValidateLocale(code string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("empty locale code")
	}
	if _, err := language.Parse(code); err != nil {
		return fmt.Errorf("invalid locale code %q: %w", code, err)
	}
	return nil
}

// ParseLanguages splits a comma-separated list and validates every code.
func ParseLanguages(list string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(list, ",") {
		code := strings.TrimSpace(part)
		if code == "" {
			continue
		}
		if err := ValidateLocale(code); err != nil {
			return nil, err
		}
		out = append(out, code)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no languages given")
	}
	return dedupe(out), nil
}

// DetectLanguages returns the sorted union of locales localized in any of
// the catalogs, without their source languages.
func DetectLanguages(catalogs []*xcstrings.Catalog) []string {
	seen := make(map[string]bool)
	var langs []string
	for _, c := range catalogs {
		src := c.SourceLanguage()
		for _, key := range c.Keys() {
			e, _ := c.Entry(key)
			for _, l := range e.Locales() {
				if l == src || seen[l] {
					continue
				}
				seen[l] = true
				langs = append(langs, l)
			}
		}
	}
	sort.Strings(langs)
	return langs
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
