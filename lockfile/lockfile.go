// Package lockfile implements xcfill.lock, which records an MD5 checksum of
// every string's base-language value at the time its translations were last
// completed. A later change to the base value makes the existing
// translations stale, so the scanner reports them missing again.
//
// The lock file lives next to .xcfill.yaml.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// LockFileName is the default lock file name.
const LockFileName = "xcfill.lock"

// Version is the lock file format version.
const Version = 1

// LockFile represents the xcfill.lock file structure.
type LockFile struct {
	Version   int                          `yaml:"version"`
	Checksums map[string]map[string]string `yaml:"checksums"` // catalog -> key -> md5

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// New returns an empty lock file that will be saved into dir.
func New(dir string) *LockFile {
	return &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
		path:      filepath.Join(dir, LockFileName),
	}
}

// Load reads a lock file from the given directory.
// Returns an empty lock file if the file doesn't exist.
func Load(dir string) (*LockFile, error) {
	lf := New(dir)

	data, err := os.ReadFile(lf.path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", lf.path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", lf.path, err)
	}
	if lf.Version > Version {
		return nil, fmt.Errorf("%s: unsupported lock file version %d", lf.path, lf.Version)
	}
	if lf.Checksums == nil {
		lf.Checksums = make(map[string]map[string]string)
	}
	return lf, nil
}

// Save writes the lock file to disk.
func (lf *LockFile) Save() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}
	if err := os.WriteFile(lf.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", lf.path, err)
	}
	return nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// ---------------------------------------------------------------------------
// Checksum operations
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of a string.
func Hash(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}

// Recorded returns the checksum stored for a catalog key.
func (lf *LockFile) Recorded(catalog, key string) (string, bool) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	sum, ok := lf.Checksums[catalog][key]
	return sum, ok
}

// IsStale reports whether a checksum was recorded for the key and the base
// content no longer matches it. Keys that were never recorded are not stale.
func (lf *LockFile) IsStale(catalog, key, baseContent string) bool {
	sum, ok := lf.Recorded(catalog, key)
	return ok && sum != Hash(baseContent)
}

// Update records the checksum of a key's base content.
func (lf *LockFile) Update(catalog, key, baseContent string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.Checksums[catalog] == nil {
		lf.Checksums[catalog] = make(map[string]string)
	}
	lf.Checksums[catalog][key] = Hash(baseContent)
}

// Clean drops the checksums of keys that no longer exist in a catalog.
func (lf *LockFile) Clean(catalog string, currentKeys []string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	existing := lf.Checksums[catalog]
	if existing == nil {
		return
	}

	valid := make(map[string]bool, len(currentKeys))
	for _, k := range currentKeys {
		valid[k] = true
	}
	for k := range existing {
		if !valid[k] {
			delete(existing, k)
		}
	}
	if len(existing) == 0 {
		delete(lf.Checksums, catalog)
	}
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats returns the number of catalogs and total keys in the lock file.
func (lf *LockFile) Stats() (catalogs, keys int) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	catalogs = len(lf.Checksums)
	for _, m := range lf.Checksums {
		keys += len(m)
	}
	return
}

// Catalogs returns the sorted catalog names with recorded checksums.
func (lf *LockFile) Catalogs() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	names := make([]string, 0, len(lf.Checksums))
	for name := range lf.Checksums {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	catalogs, keys := lf.Stats()
	if catalogs == 0 {
		return "empty"
	}

	var parts []string
	for _, name := range lf.Catalogs() {
		parts = append(parts, fmt.Sprintf("%s: %d keys", name, len(lf.Checksums[name])))
	}
	return fmt.Sprintf("%d catalogs, %d keys (%s)", catalogs, keys, strings.Join(parts, ", "))
}
