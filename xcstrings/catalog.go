// Package xcstrings implements reading and writing of Xcode String Catalog
// (.xcstrings) files.
//
// A catalog is a JSON document:
//
//   - "sourceLanguage" holds the development language (e.g. "en").
//   - "strings" maps each string key to an entry; the entry's
//     "localizations" map locale codes to a unit.
//   - A unit is either {"stringUnit": {"state", "value"}} or
//     {"variations": {"plural": {"one": {"stringUnit": ...}, ...}}}.
//
// Round-trip fidelity: key order is preserved everywhere and fields xcfill
// does not understand are written back verbatim.
package xcstrings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Ext is the catalog file extension.
const Ext = ".xcstrings"

// ErrMalformed is returned for catalog files that are not valid catalogs.
var ErrMalformed = errors.New("malformed catalog")

// ---------------------------------------------------------------------------
// File model
// ---------------------------------------------------------------------------

// Catalog represents a parsed .xcstrings file.
type Catalog struct {
	// Name is the file name, used as the catalog's identity in batch keys.
	Name string
	// Path is where the catalog was loaded from.
	Path string

	top     *object
	keys    []string
	entries map[string]*Entry
}

// Entry is one string key of a catalog.
type Entry struct {
	fields *object // everything except localizations, in order

	// raw holds the original value when the entry was not a JSON object.
	raw json.RawMessage

	locales []string
	units   map[string]Unit
	hasLocs bool
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses a catalog from disk.
func ParseFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.Name = filepath.Base(path)
	c.Path = path
	return c, nil
}

// Parse parses catalog content from a byte slice.
func Parse(data []byte) (*Catalog, error) {
	top, err := parseObject(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	c := &Catalog{top: top, entries: make(map[string]*Entry)}

	raw, ok := top.get("strings")
	if !ok {
		return c, nil
	}
	strs, err := parseObject(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: \"strings\": %v", ErrMalformed, err)
	}

	for _, key := range strs.keys {
		e, err := parseEntry(strs.values[key])
		if err != nil {
			return nil, fmt.Errorf("%w: entry %q: %v", ErrMalformed, key, err)
		}
		c.keys = append(c.keys, key)
		c.entries[key] = e
	}
	return c, nil
}

func parseEntry(raw json.RawMessage) (*Entry, error) {
	e := &Entry{fields: newObject(), units: make(map[string]Unit)}
	if !isObject(raw) {
		// Not an object: keep it as-is, it simply has no localizations.
		e.raw = raw
		return e, nil
	}

	obj, err := parseObject(raw)
	if err != nil {
		return nil, err
	}
	for _, k := range obj.keys {
		e.fields.set(k, obj.values[k])
	}

	locRaw, ok := obj.get("localizations")
	if !ok || !isObject(locRaw) {
		return e, nil
	}
	locs, err := parseObject(locRaw)
	if err != nil {
		return nil, fmt.Errorf("localizations: %w", err)
	}
	e.hasLocs = true
	for _, locale := range locs.keys {
		e.locales = append(e.locales, locale)
		e.units[locale] = decodeUnit(locs.values[locale])
	}
	return e, nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// SourceLanguage returns the "sourceLanguage" value, or "" if absent.
func (c *Catalog) SourceLanguage() string {
	raw, ok := c.top.get("sourceLanguage")
	if !ok {
		return ""
	}
	var s string
	_ = json.Unmarshal(raw, &s)
	return s
}

// Keys returns all string keys in document order.
func (c *Catalog) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Entry returns the entry for a string key.
func (c *Catalog) Entry(key string) (*Entry, bool) {
	e, ok := c.entries[key]
	return e, ok
}

// Len returns the number of string keys.
func (c *Catalog) Len() int { return len(c.keys) }

// Unit returns the localization of a locale.
func (e *Entry) Unit(locale string) (Unit, bool) {
	u, ok := e.units[locale]
	return u, ok
}

// Locales returns the localized locales in document order.
func (e *Entry) Locales() []string {
	out := make([]string, len(e.locales))
	copy(out, e.locales)
	return out
}

// HasLocalizations reports whether the entry has a "localizations" object.
func (e *Entry) HasLocalizations() bool { return e.hasLocs }

// SetUnit stores the localization of a locale, replacing any previous one.
// New locales are appended after the existing ones.
func (e *Entry) SetUnit(locale string, u Unit) {
	if _, ok := e.units[locale]; !ok {
		e.locales = append(e.locales, locale)
	}
	e.units[locale] = u
	e.hasLocs = true
	e.raw = nil
}

// ShouldTranslate returns the entry's "shouldTranslate" flag (default true).
func (e *Entry) ShouldTranslate() bool {
	raw, ok := e.fields.get("shouldTranslate")
	if !ok {
		return true
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return true
	}
	return b
}

// Comment returns the developer comment, if any.
func (e *Entry) Comment() string {
	raw, ok := e.fields.get("comment")
	if !ok {
		return ""
	}
	var s string
	_ = json.Unmarshal(raw, &s)
	return s
}

// Stats returns, per locale, how many translatable keys have a non-empty
// unit, along with the number of translatable keys.
func (c *Catalog) Stats(locales []string) (total int, translated map[string]int) {
	translated = make(map[string]int, len(locales))
	for _, key := range c.keys {
		e := c.entries[key]
		if !e.ShouldTranslate() {
			continue
		}
		total++
		for _, l := range locales {
			if u, ok := e.units[l]; ok && !u.IsEmpty() {
				translated[l]++
			}
		}
	}
	return total, translated
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// Marshal serialises the catalog to JSON with 2-space indentation.
func (c *Catalog) Marshal() ([]byte, error) {
	var w writer
	w.beginObject()
	first := true
	wroteStrings := false
	for _, k := range c.top.keys {
		w.key(k, first)
		first = false
		if k == "strings" {
			c.encodeStrings(&w)
			wroteStrings = true
			continue
		}
		w.raw(c.top.values[k])
	}
	if !wroteStrings && len(c.keys) > 0 {
		w.key("strings", first)
		c.encodeStrings(&w)
	}
	w.endObject()

	out, err := indent(w.buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", c.Name, err)
	}
	return out, nil
}

func (c *Catalog) encodeStrings(w *writer) {
	w.beginObject()
	for i, key := range c.keys {
		w.key(key, i == 0)
		c.entries[key].encode(w)
	}
	w.endObject()
}

func (e *Entry) encode(w *writer) {
	if e.raw != nil {
		w.raw(e.raw)
		return
	}
	w.beginObject()
	first := true
	wroteLocs := false
	for _, k := range e.fields.keys {
		if k == "localizations" {
			if !e.hasLocs {
				// Present but not an object: keep whatever was there.
				w.key(k, first)
				w.raw(e.fields.values[k])
				first = false
				continue
			}
			w.key(k, first)
			e.encodeLocalizations(w)
			wroteLocs = true
			first = false
			continue
		}
		w.key(k, first)
		w.raw(e.fields.values[k])
		first = false
	}
	if !wroteLocs && e.hasLocs {
		w.key("localizations", first)
		e.encodeLocalizations(w)
	}
	w.endObject()
}

func (e *Entry) encodeLocalizations(w *writer) {
	w.beginObject()
	for i, locale := range e.locales {
		w.key(locale, i == 0)
		e.units[locale].encode(w)
	}
	w.endObject()
}

// WriteFile serialises and writes to path.
func (c *Catalog) WriteFile(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Save writes the catalog back to the file it was loaded from.
func (c *Catalog) Save() error {
	if c.Path == "" {
		return fmt.Errorf("catalog %q has no path", c.Name)
	}
	return c.WriteFile(c.Path)
}

// ---------------------------------------------------------------------------
// Directory loading
// ---------------------------------------------------------------------------

// LoadDir parses every .xcstrings file directly inside dir, sorted by file
// name. The first unreadable or malformed file aborts the load.
func LoadDir(dir string) ([]*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Ext) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	catalogs := make([]*Catalog, 0, len(names))
	for _, name := range names {
		c, err := ParseFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		catalogs = append(catalogs, c)
	}
	return catalogs, nil
}
