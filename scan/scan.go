// Package scan finds the missing translations of a set of catalogs.
//
// A locale is missing for a string when the catalog has no localization for
// it, or when the localization is empty (see xcstrings.Unit.IsEmpty). With a
// lock file, a string whose base value changed since it was last completed
// is missing in every required locale.
package scan

import (
	"github.com/minios-linux/xcfill/lockfile"
	"github.com/minios-linux/xcfill/xcstrings"
)

// Options controls a scan.
type Options struct {
	// BaseLocale is the source language. When empty, each catalog's
	// sourceLanguage is used.
	BaseLocale string
	// Locales are the required target locales, in report order.
	Locales []string
	// Lock, when set, enables stale-source detection.
	Lock *lockfile.LockFile
}

// Pair is a single missing (catalog, key, locale) triple.
type Pair struct {
	File   string
	Key    string
	Locale string
}

// Key is one string that needs work.
type Key struct {
	Key       string
	BaseValue xcstrings.Value
	Missing   []string
	// Stale is true when the lock file marked the base value as changed.
	Stale bool
}

// File lists the keys of one catalog that need work, in document order.
type File struct {
	Name       string
	BaseLocale string
	Keys       []Key
	// Unsupported lists keys whose base localization has a structure that
	// cannot be translated automatically (device variations, substitutions).
	Unsupported []string
}

// Report is the scan result. Files are in catalog load order (sorted by
// name when the catalogs come from xcstrings.LoadDir).
type Report struct {
	Files []File
}

// Scan checks every catalog against opts. It never modifies the catalogs.
func Scan(catalogs []*xcstrings.Catalog, opts Options) *Report {
	r := &Report{}
	for _, c := range catalogs {
		f := scanCatalog(c, opts)
		if len(f.Keys) > 0 || len(f.Unsupported) > 0 {
			r.Files = append(r.Files, f)
		}
	}
	return r
}

// BaseLocaleOf returns the base locale used for a catalog.
func BaseLocaleOf(c *xcstrings.Catalog, configured string) string {
	if configured != "" {
		return configured
	}
	if src := c.SourceLanguage(); src != "" {
		return src
	}
	return "en"
}

func scanCatalog(c *xcstrings.Catalog, opts Options) File {
	base := BaseLocaleOf(c, opts.BaseLocale)
	f := File{Name: c.Name, BaseLocale: base}

	for _, key := range c.Keys() {
		e, _ := c.Entry(key)
		if !e.ShouldTranslate() {
			continue
		}

		if u, ok := e.Unit(base); ok {
			if _, opaque := u.(*xcstrings.OpaqueUnit); opaque {
				f.Unsupported = append(f.Unsupported, key)
				continue
			}
		}

		value := xcstrings.BaseValue(key, e, base)
		stale := opts.Lock != nil && opts.Lock.IsStale(c.Name, key, value.String())

		var missing []string
		for _, locale := range opts.Locales {
			if locale == base {
				continue
			}
			if isOpaque(e, locale) {
				continue
			}
			if stale || IsMissing(e, locale) {
				missing = append(missing, locale)
			}
		}
		if len(missing) > 0 {
			f.Keys = append(f.Keys, Key{Key: key, BaseValue: value, Missing: missing, Stale: stale})
		}
	}
	return f
}

// isOpaque reports whether the locale holds a unit xcfill cannot rewrite.
func isOpaque(e *xcstrings.Entry, locale string) bool {
	u, ok := e.Unit(locale)
	if !ok {
		return false
	}
	_, opaque := u.(*xcstrings.OpaqueUnit)
	return opaque
}

// IsMissing reports whether an entry lacks a usable localization.
func IsMissing(e *xcstrings.Entry, locale string) bool {
	u, ok := e.Unit(locale)
	return !ok || u.IsEmpty()
}

// Pairs flattens the report into missing pairs, preserving report order.
func (r *Report) Pairs() []Pair {
	var out []Pair
	for _, f := range r.Files {
		for _, k := range f.Keys {
			for _, l := range k.Missing {
				out = append(out, Pair{File: f.Name, Key: k.Key, Locale: l})
			}
		}
	}
	return out
}

// Count returns the number of missing pairs.
func (r *Report) Count() int {
	n := 0
	for _, f := range r.Files {
		for _, k := range f.Keys {
			n += len(k.Missing)
		}
	}
	return n
}

// Keys returns the number of keys with at least one missing locale.
func (r *Report) Keys() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Keys)
	}
	return n
}

// ByLocale counts missing pairs per locale.
func (r *Report) ByLocale() map[string]int {
	out := make(map[string]int)
	for _, f := range r.Files {
		for _, k := range f.Keys {
			for _, l := range k.Missing {
				out[l]++
			}
		}
	}
	return out
}

// Unsupported counts keys skipped because of their base structure.
func (r *Report) Unsupported() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Unsupported)
	}
	return n
}

// Empty reports whether nothing is missing.
func (r *Report) Empty() bool { return r.Count() == 0 }
