// Package batch splits scan results into translation tasks that fit a
// provider's token budget, and reads and writes the task files exchanged
// with the provider step.
//
// A task file looks like:
//
//	{
//	  "instructions": "...",
//	  "translations": {
//	    "Localizable.xcstrings:Hello": {
//	      "en": "Hello",
//	      "missing_translations": { "de": "", "fr": "" }
//	    }
//	  }
//	}
//
// Plural strings carry a category map instead of a plain string, both as
// source ("en") and as translation values.
package batch

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/minios-linux/xcfill/scan"
	"github.com/minios-linux/xcfill/xcstrings"
)

const (
	// DefaultMaxTokens is the default token ceiling per task.
	DefaultMaxTokens = 6000

	// DefaultInstructions is the prompt preamble stored in every task.
	DefaultInstructions = "Please provide translations for the missing languages. Use the English version as a reference."

	// SourceField is the member holding the source text of an entry.
	SourceField = "en"
	// MissingField is the member holding the per-locale translations.
	MissingField = "missing_translations"
)

// Entry is one string of a task: its source value and a translation slot
// per missing locale.
type Entry struct {
	// ID is "<catalog file>:<string key>".
	ID     string
	Source xcstrings.Value
	// Locales lists the requested locales in order.
	Locales      []string
	Translations map[string]xcstrings.Value
}

// Task is one batch of entries.
type Task struct {
	Instructions string
	Entries      []*Entry
	// Path is the file the task was loaded from or written to.
	Path string
}

// Options controls partitioning.
type Options struct {
	MaxTokens    int
	Instructions string
	// Languages is the size of the required locale list; it scales every
	// entry's estimated cost. Zero means "use the entry's own locale count".
	Languages int
}

func (o Options) maxTokens() int {
	if o.MaxTokens > 0 {
		return o.MaxTokens
	}
	return DefaultMaxTokens
}

func (o Options) instructions() string {
	if o.Instructions != "" {
		return o.Instructions
	}
	return DefaultInstructions
}

// ---------------------------------------------------------------------------
// IDs
// ---------------------------------------------------------------------------

// ID joins a catalog file name and a string key.
func ID(file, key string) string { return file + ":" + key }

// SplitID splits an entry ID on its first colon. String keys may contain
// colons, file names may not.
func SplitID(id string) (file, key string, ok bool) {
	return strings.Cut(id, ":")
}

// ---------------------------------------------------------------------------
// Entries
// ---------------------------------------------------------------------------

// NewEntry returns an entry with an empty placeholder for every locale.
func NewEntry(id string, source xcstrings.Value, locales []string) *Entry {
	e := &Entry{
		ID:           id,
		Source:       source,
		Locales:      append([]string(nil), locales...),
		Translations: make(map[string]xcstrings.Value, len(locales)),
	}
	for _, l := range locales {
		e.Translations[l] = xcstrings.Value{}
	}
	return e
}

// Set stores the translation of a locale, appending the locale when it was
// not requested before.
func (e *Entry) Set(locale string, v xcstrings.Value) {
	if _, ok := e.Translations[locale]; !ok {
		e.Locales = append(e.Locales, locale)
	}
	e.Translations[locale] = v
}

// Pending returns the locales that still have a blank translation.
func (e *Entry) Pending() []string {
	var out []string
	for _, l := range e.Locales {
		if e.Translations[l].IsBlank() {
			out = append(out, l)
		}
	}
	return out
}

// encode writes the entry as compact JSON.
func (e *Entry) encode(buf *bytes.Buffer) error {
	src, err := e.Source.MarshalJSON()
	if err != nil {
		return err
	}
	buf.WriteByte('{')
	buf.Write(xcstrings.Quote(SourceField))
	buf.WriteByte(':')
	buf.Write(src)
	buf.WriteByte(',')
	buf.Write(xcstrings.Quote(MissingField))
	buf.WriteString(":{")
	for i, l := range e.Locales {
		if i > 0 {
			buf.WriteByte(',')
		}
		v, err := e.Translations[l].MarshalJSON()
		if err != nil {
			return err
		}
		buf.Write(xcstrings.Quote(l))
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteString("}}")
	return nil
}

// Compact returns the compact JSON form of the entry.
func (e *Entry) Compact() string {
	var buf bytes.Buffer
	_ = e.encode(&buf)
	return buf.String()
}

// ---------------------------------------------------------------------------
// Token estimation and partitioning
// ---------------------------------------------------------------------------

// EstimateTokens approximates the token count of text at one token per four
// characters, rounded up, plus one.
func EstimateTokens(text string) int {
	return (utf8.RuneCountInString(text)+3)/4 + 1
}

// EntryCost is the conservative budget charge of an entry: its own
// estimate multiplied by languages+1.
func EntryCost(e *Entry, languages int) int {
	if languages <= 0 {
		languages = len(e.Locales)
	}
	return EstimateTokens(e.Compact()) * (languages + 1)
}

// baseCost is the budget consumed by the instructions alone.
func baseCost(instructions string) int {
	return EstimateTokens(string(xcstrings.Quote(instructions)))
}

// Estimate returns the budget a task consumes under the partitioner's cost
// model.
func (t *Task) Estimate(languages int) int {
	n := baseCost(t.Instructions)
	for _, e := range t.Entries {
		n += EntryCost(e, languages)
	}
	return n
}

// Partition turns a scan report into tasks. Entries are taken in report
// order; a task is sealed when the next entry would push it over the
// budget. An entry that alone exceeds the budget gets a task of its own.
// An entry is never split across tasks.
func Partition(r *scan.Report, opts Options) []*Task {
	limit := opts.maxTokens()
	instructions := opts.instructions()
	start := baseCost(instructions)

	var tasks []*Task
	cur := &Task{Instructions: instructions}
	used := start

	for _, f := range r.Files {
		for _, k := range f.Keys {
			e := NewEntry(ID(f.Name, k.Key), k.BaseValue, k.Missing)
			cost := EntryCost(e, opts.Languages)

			if len(cur.Entries) > 0 && used+cost > limit {
				tasks = append(tasks, cur)
				cur = &Task{Instructions: instructions}
				used = start
			}
			cur.Entries = append(cur.Entries, e)
			used += cost
		}
	}
	if len(cur.Entries) > 0 {
		tasks = append(tasks, cur)
	}
	return tasks
}

// ---------------------------------------------------------------------------
// Task helpers
// ---------------------------------------------------------------------------

// Entry returns the entry with the given ID.
func (t *Task) Entry(id string) (*Entry, bool) {
	for _, e := range t.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

// Pending counts blank translation slots.
func (t *Task) Pending() int {
	n := 0
	for _, e := range t.Entries {
		n += len(e.Pending())
	}
	return n
}

// Slots counts all translation slots.
func (t *Task) Slots() int {
	n := 0
	for _, e := range t.Entries {
		n += len(e.Locales)
	}
	return n
}

// TranslationsJSON returns the indented "translations" object, the part of
// a task a provider has to fill.
func (t *Task) TranslationsJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.encodeTranslations(&buf); err != nil {
		return nil, err
	}
	return xcstrings.Indent(buf.Bytes())
}

func (t *Task) encodeTranslations(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for i, e := range t.Entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(xcstrings.Quote(e.ID))
		buf.WriteByte(':')
		if err := e.encode(buf); err != nil {
			return fmt.Errorf("entry %q: %w", e.ID, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// MarshalJSON encodes the task with ordered members.
func (t *Task) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	buf.Write(xcstrings.Quote("instructions"))
	buf.WriteByte(':')
	buf.Write(xcstrings.Quote(t.Instructions))
	buf.WriteByte(',')
	buf.Write(xcstrings.Quote("translations"))
	buf.WriteByte(':')
	if err := t.encodeTranslations(&buf); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
