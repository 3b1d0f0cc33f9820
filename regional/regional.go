// Package regional copies base-language localizations into their regional
// variants (en → en-GB, pt → pt-BR, ...).
//
// Derivation is destructive: every variant slot is overwritten with a copy
// of the base unit, whatever it held before. Running it twice gives the
// same catalogs.
package regional

import (
	"bytes"

	"github.com/minios-linux/xcfill/xcstrings"
)

// Variant is one derived locale. Name is informational only.
type Variant struct {
	Code string `yaml:"code"`
	Name string `yaml:"name,omitempty"`
}

// Rule maps a base locale to its derived locales.
type Rule struct {
	Base     string    `yaml:"base"`
	Variants []Variant `yaml:"variants"`
}

// DefaultRules returns the built-in rule table.
func DefaultRules() []Rule {
	return []Rule{
		{Base: "en", Variants: []Variant{
			{"en-AU", "English (Australia)"},
			{"en-IN", "English (India)"},
			{"en-GB", "English (United Kingdom)"},
		}},
		{Base: "es", Variants: []Variant{
			{"es-419", "Spanish (Latin America)"},
		}},
		{Base: "pt", Variants: []Variant{
			{"pt-BR", "Portuguese (Brazil)"},
			{"pt-PT", "Portuguese (Portugal)"},
		}},
		{Base: "fr", Variants: []Variant{
			{"fr-CA", "French (Canada)"},
		}},
	}
}

// Locales returns every derived locale code in rule order.
func Locales(rules []Rule) []string {
	var out []string
	for _, r := range rules {
		for _, v := range r.Variants {
			out = append(out, v.Code)
		}
	}
	return out
}

// Options controls derivation over a set of catalogs.
type Options struct {
	Rules  []Rule
	DryRun bool
}

// CatalogResult counts the slots derived in one catalog.
type CatalogResult struct {
	Name string
	// Written counts variant slots set from a base unit.
	Written int
	// Changed counts the written slots whose content actually changed.
	Changed int
	// Skipped counts base units with an unsupported structure.
	Skipped int
}

// Report summarises a derivation run.
type Report struct {
	Catalogs []CatalogResult
	Saved    []string
}

// Written sums the written slots of every catalog.
func (r *Report) Written() int {
	n := 0
	for _, c := range r.Catalogs {
		n += c.Written
	}
	return n
}

// Derive applies rules to one catalog in memory.
func Derive(c *xcstrings.Catalog, rules []Rule) CatalogResult {
	res := CatalogResult{Name: c.Name}
	for _, key := range c.Keys() {
		e, _ := c.Entry(key)
		for _, rule := range rules {
			base, ok := e.Unit(rule.Base)
			if !ok {
				continue
			}
			if _, opaque := base.(*xcstrings.OpaqueUnit); opaque {
				res.Skipped++
				continue
			}
			for _, v := range rule.Variants {
				if v.Code == rule.Base {
					continue
				}
				if prev, ok := e.Unit(v.Code); !ok || !sameUnit(prev, base) {
					res.Changed++
				}
				e.SetUnit(v.Code, base.Clone())
				res.Written++
			}
		}
	}
	return res
}

func sameUnit(a, b xcstrings.Unit) bool {
	aj, err := xcstrings.MarshalUnit(a)
	if err != nil {
		return false
	}
	bj, err := xcstrings.MarshalUnit(b)
	if err != nil {
		return false
	}
	return bytes.Equal(aj, bj)
}

// Apply derives variants in every catalog and saves those that changed.
func Apply(catalogs []*xcstrings.Catalog, opts Options) (*Report, error) {
	rules := opts.Rules
	if rules == nil {
		rules = DefaultRules()
	}

	r := &Report{}
	for _, c := range catalogs {
		res := Derive(c, rules)
		r.Catalogs = append(r.Catalogs, res)
		if res.Changed == 0 || opts.DryRun {
			continue
		}
		if err := c.Save(); err != nil {
			return r, err
		}
		r.Saved = append(r.Saved, c.Name)
	}
	return r, nil
}
