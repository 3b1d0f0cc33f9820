// Package merge writes filled translation tasks back into catalogs.
//
// The shape of every written localization follows the target entry's base
// unit: a pluralized base gets a pluralized translation with exactly the
// base's categories, anything else gets a plain string unit. Blank values
// mean "not supplied" and leave the catalog untouched, so merging the same
// tasks twice changes nothing.
package merge

import (
	"errors"
	"fmt"

	"github.com/minios-linux/xcfill/batch"
	"github.com/minios-linux/xcfill/lockfile"
	"github.com/minios-linux/xcfill/scan"
	"github.com/minios-linux/xcfill/xcstrings"
)

var (
	// ErrUnknownKey is reported for a task entry whose catalog or string key
	// does not exist.
	ErrUnknownKey = errors.New("unknown key")
	// ErrShapeMismatch is reported when a returned value does not fit the
	// shape of the entry's base unit.
	ErrShapeMismatch = errors.New("shape mismatch")
)

// Options controls a merge.
type Options struct {
	// BaseLocale overrides each catalog's sourceLanguage.
	BaseLocale string
	// Strict aborts on the first unknown key, before anything is saved.
	Strict bool
	// Lock, when set, receives the base checksum of every completed key and
	// is saved along with the catalogs.
	Lock *lockfile.LockFile
	// DryRun applies changes in memory only.
	DryRun bool
}

// Issue is a per-entry problem. The affected locales stay missing.
type Issue struct {
	ID     string
	Locale string
	Err    error
}

func (i Issue) Error() string {
	if i.Locale == "" {
		return fmt.Sprintf("%s: %v", i.ID, i.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", i.ID, i.Locale, i.Err)
}

func (i Issue) Unwrap() error { return i.Err }

// Report summarises a merge.
type Report struct {
	// Applied counts written locale slots.
	Applied int
	// Skipped counts blank values that were left alone.
	Skipped int
	// Completed lists the IDs whose every requested locale was written.
	Completed []string
	Issues    []Issue
	// Saved lists the catalog files that were written.
	Saved []string
}

// UnknownKeys returns the issues caused by unknown keys.
func (r *Report) UnknownKeys() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if errors.Is(i.Err, ErrUnknownKey) {
			out = append(out, i)
		}
	}
	return out
}

// Mismatches returns the issues caused by shape mismatches.
func (r *Report) Mismatches() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if errors.Is(i.Err, ErrShapeMismatch) {
			out = append(out, i)
		}
	}
	return out
}

// Apply merges every task into the catalogs and saves the catalogs that
// changed. In strict mode an unknown key returns an error wrapping
// ErrUnknownKey and nothing is saved.
func Apply(catalogs []*xcstrings.Catalog, tasks []*batch.Task, opts Options) (*Report, error) {
	byName := make(map[string]*xcstrings.Catalog, len(catalogs))
	for _, c := range catalogs {
		byName[c.Name] = c
	}

	r := &Report{}
	changed := make(map[string]bool)
	completed := false

	for _, task := range tasks {
		for _, entry := range task.Entries {
			c, e, key, err := resolve(byName, entry.ID)
			if err != nil {
				issue := Issue{ID: entry.ID, Err: err}
				r.Issues = append(r.Issues, issue)
				if opts.Strict {
					return r, issue
				}
				continue
			}

			base := scan.BaseLocaleOf(c, opts.BaseLocale)
			applied := applyEntry(r, entry, e, base)
			if applied > 0 {
				changed[c.Name] = true
			}
			if applied > 0 && applied == len(entry.Locales) {
				r.Completed = append(r.Completed, entry.ID)
				if opts.Lock != nil {
					opts.Lock.Update(c.Name, key, xcstrings.BaseValue(key, e, base).String())
					completed = true
				}
			}
		}
	}

	if opts.DryRun {
		return r, nil
	}
	for _, c := range catalogs {
		if !changed[c.Name] {
			continue
		}
		if err := c.Save(); err != nil {
			return r, err
		}
		r.Saved = append(r.Saved, c.Name)
	}
	if completed {
		if err := opts.Lock.Save(); err != nil {
			return r, err
		}
	}
	return r, nil
}

func resolve(byName map[string]*xcstrings.Catalog, id string) (*xcstrings.Catalog, *xcstrings.Entry, string, error) {
	file, key, ok := batch.SplitID(id)
	if !ok {
		return nil, nil, "", fmt.Errorf("%w: malformed id", ErrUnknownKey)
	}
	c, ok := byName[file]
	if !ok {
		return nil, nil, "", fmt.Errorf("%w: no catalog %s", ErrUnknownKey, file)
	}
	e, ok := c.Entry(key)
	if !ok {
		return nil, nil, "", fmt.Errorf("%w: %s has no key %q", ErrUnknownKey, file, key)
	}
	return c, e, key, nil
}

// applyEntry writes the non-blank values of one task entry and returns how
// many locales were written.
func applyEntry(r *Report, entry *batch.Entry, e *xcstrings.Entry, base string) int {
	baseUnit, hasBase := e.Unit(base)
	if _, opaque := baseUnit.(*xcstrings.OpaqueUnit); hasBase && opaque {
		r.Issues = append(r.Issues, Issue{
			ID:  entry.ID,
			Err: fmt.Errorf("%w: base localization has an unsupported structure", ErrShapeMismatch),
		})
		return 0
	}
	plural, _ := baseUnit.(*xcstrings.PluralUnit)

	applied := 0
	for _, locale := range entry.Locales {
		v := entry.Translations[locale]
		if v.IsBlank() {
			r.Skipped++
			continue
		}
		if locale == base {
			r.Issues = append(r.Issues, Issue{ID: entry.ID, Locale: locale,
				Err: fmt.Errorf("%w: the base locale is not a translation target", ErrShapeMismatch)})
			continue
		}

		if cur, ok := e.Unit(locale); ok {
			if _, opaque := cur.(*xcstrings.OpaqueUnit); opaque {
				r.Issues = append(r.Issues, Issue{ID: entry.ID, Locale: locale,
					Err: fmt.Errorf("%w: existing localization has an unsupported structure", ErrShapeMismatch)})
				continue
			}
		}

		u, err := buildUnit(v, plural)
		if err != nil {
			r.Issues = append(r.Issues, Issue{ID: entry.ID, Locale: locale, Err: err})
			continue
		}
		e.SetUnit(locale, u)
		r.Applied++
		applied++
	}
	return applied
}

// buildUnit turns a returned value into a unit shaped like the base. A nil
// base means the simple shape.
func buildUnit(v xcstrings.Value, base *xcstrings.PluralUnit) (xcstrings.Unit, error) {
	if base == nil {
		if v.IsPlural() {
			return nil, fmt.Errorf("%w: got plural forms for a plain string", ErrShapeMismatch)
		}
		return xcstrings.Translated(v.Text), nil
	}

	if !v.IsPlural() {
		return nil, fmt.Errorf("%w: got a plain string for a plural string", ErrShapeMismatch)
	}
	p := xcstrings.NewPluralUnit()
	for _, category := range base.Categories() {
		text, ok := v.Form(category)
		if !ok || text == "" {
			return nil, fmt.Errorf("%w: plural category %q missing", ErrShapeMismatch, category)
		}
		p.SetForm(category, xcstrings.Translated(text))
	}
	return p, nil
}
