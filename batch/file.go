package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/minios-linux/xcfill/xcstrings"
)

const (
	// FilePrefix and FileSuffix frame the task number in task file names.
	FilePrefix = "llm_translation_task_"
	FileSuffix = ".json"
)

// FileName returns the name of the n-th task file (1-based).
func FileName(n int) string {
	return fmt.Sprintf("%s%d%s", FilePrefix, n, FileSuffix)
}

// taskNumber extracts N from a task file name.
func taskNumber(name string) (int, bool) {
	if !strings.HasPrefix(name, FilePrefix) || !strings.HasSuffix(name, FileSuffix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, FilePrefix), FileSuffix))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// ---------------------------------------------------------------------------
// Listing
// ---------------------------------------------------------------------------

// List returns the task files in dir sorted by task number.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	type numbered struct {
		n    int
		path string
	}
	var found []numbered
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if n, ok := taskNumber(entry.Name()); ok {
			found = append(found, numbered{n, filepath.Join(dir, entry.Name())})
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })

	paths := make([]string, len(found))
	for i, f := range found {
		paths[i] = f.path
	}
	return paths, nil
}

// RemoveTasks deletes every task file in dir and returns how many were
// removed.
func RemoveTasks(dir string) (int, error) {
	paths, err := List(dir)
	if err != nil {
		return 0, err
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			return 0, fmt.Errorf("removing %s: %w", p, err)
		}
	}
	return len(paths), nil
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// WriteFile writes the task to path with two-space indentation.
func (t *Task) WriteFile(path string) error {
	compact, err := t.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	data, err := xcstrings.Indent(compact)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	t.Path = path
	return nil
}

// Save writes the task back to the file it came from.
func (t *Task) Save() error {
	if t.Path == "" {
		return fmt.Errorf("task has no path")
	}
	return t.WriteFile(t.Path)
}

// WriteTasks replaces the task files in dir with tasks, numbered from 1.
// Leftover files of an earlier run are removed first so that a later
// apply does not pick them up.
func WriteTasks(dir string, tasks []*Task) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	if _, err := RemoveTasks(dir); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(tasks))
	for i, t := range tasks {
		path := filepath.Join(dir, FileName(i+1))
		if err := t.WriteFile(path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// ---------------------------------------------------------------------------
// Reading
// ---------------------------------------------------------------------------

// LoadFile reads one task file.
func LoadFile(path string) (*Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t.Path = path
	return t, nil
}

// LoadTasks reads every task file in dir in task-number order.
func LoadTasks(dir string) ([]*Task, error) {
	paths, err := List(dir)
	if err != nil {
		return nil, err
	}
	tasks := make([]*Task, 0, len(paths))
	for _, p := range paths {
		t, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Parse decodes a task document. Besides the current shape it accepts two
// older ones: a document that is only the translations object, and entries
// that list translations next to "en" instead of under
// "missing_translations".
func Parse(data []byte) (*Task, error) {
	keys, values, err := xcstrings.Members(data)
	if err != nil {
		return nil, fmt.Errorf("invalid task: %w", err)
	}

	t := &Task{}
	translations, ok := values["translations"]
	if !ok {
		return parseTranslations(t, data)
	}
	for _, k := range keys {
		if k == "instructions" {
			if err := json.Unmarshal(values[k], &t.Instructions); err != nil {
				return nil, fmt.Errorf("instructions: %w", err)
			}
		}
	}
	return parseTranslations(t, translations)
}

func parseTranslations(t *Task, data []byte) (*Task, error) {
	ids, values, err := xcstrings.Members(data)
	if err != nil {
		return nil, fmt.Errorf("translations: %w", err)
	}
	for _, id := range ids {
		e, err := parseEntry(id, values[id])
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", id, err)
		}
		t.Entries = append(t.Entries, e)
	}
	return t, nil
}

func parseEntry(id string, raw json.RawMessage) (*Entry, error) {
	if !xcstrings.IsObject(raw) {
		return nil, fmt.Errorf("entry must be an object")
	}
	fields, values, err := xcstrings.Members(raw)
	if err != nil {
		return nil, err
	}

	e := NewEntry(id, xcstrings.Value{}, nil)
	if src, ok := values[SourceField]; ok {
		if err := json.Unmarshal(src, &e.Source); err != nil {
			return nil, fmt.Errorf("%s: %w", SourceField, err)
		}
	}

	if missing, ok := values[MissingField]; ok {
		locales, slots, err := xcstrings.Members(missing)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", MissingField, err)
		}
		for _, l := range locales {
			var v xcstrings.Value
			if err := json.Unmarshal(slots[l], &v); err != nil {
				return nil, fmt.Errorf("%s.%s: %w", MissingField, l, err)
			}
			e.Set(l, v)
		}
		return e, nil
	}

	// Legacy entry: every member except the source is a translation.
	for _, l := range fields {
		if l == SourceField {
			continue
		}
		var v xcstrings.Value
		if err := json.Unmarshal(values[l], &v); err != nil {
			return nil, fmt.Errorf("%s: %w", l, err)
		}
		e.Set(l, v)
	}
	return e, nil
}
