// Package lockfile implements transunit.lock, a lock file that keeps, per
// translation unit, a snapshot of the base-locale table as it was at the
// last successful sync. Comparing a unit's current base table against its
// snapshot tells which ids were edited, renamed or deleted since, so the
// changes can be propagated into the other locales.
//
// The lock file is stored alongside .transunit.yaml as transunit.lock.
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

	"github.com/minios-linux/transunit/catalog"
)

// LockFileName is the default lock file name.
const LockFileName = "transunit.lock"

// Version is the lock file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Entry is one base-locale row of a snapshot.
type Entry struct {
	ID     string  `yaml:"id"`
	Text   string  `yaml:"text,omitempty"`
	Plural *Plural `yaml:"plural,omitempty"`
}

// Plural mirrors catalog.Plural with YAML tags.
type Plural struct {
	Zero  string `yaml:"zero"`
	One   string `yaml:"one"`
	Other string `yaml:"other"`
}

// Snapshot is the recorded base table of one unit.
type Snapshot struct {
	Hash    string  `yaml:"hash"`
	Entries []Entry `yaml:"entries"`
}

// LockFile represents the transunit.lock file structure.
type LockFile struct {
	Version int                 `yaml:"version"`
	Units   map[string]Snapshot `yaml:"units"` // unit key -> snapshot

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// New returns an empty lock file that will be saved in dir.
func New(dir string) *LockFile {
	return &LockFile{
		Version: Version,
		Units:   make(map[string]Snapshot),
		path:    filepath.Join(dir, LockFileName),
	}
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads a lock file from the given directory.
// Returns an empty lock file if the file doesn't exist.
func Load(dir string) (*LockFile, error) {
	lf := New(dir)
	path := lf.path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	lf.path = path

	if lf.Version > Version {
		return nil, fmt.Errorf("%s: unsupported lock file version %d (max %d)", path, lf.Version, Version)
	}
	if lf.Units == nil {
		lf.Units = make(map[string]Snapshot)
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
// Snapshot operations
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of a base table. Ids, values and their
// order all contribute.
func Hash(pairs []catalog.Pair) string {
	var b strings.Builder
	for _, p := range pairs {
		b.WriteString(p.ID)
		b.WriteByte(0)
		b.WriteString(p.Value.IndexKey())
		b.WriteByte(0)
	}
	return fmt.Sprintf("%x", md5.Sum([]byte(b.String())))
}

// UnitKey builds the lock key of a unit: its slash-separated path relative
// to the project root.
func UnitKey(root, unitPath string) string {
	rel, err := filepath.Rel(root, unitPath)
	if err != nil {
		return filepath.ToSlash(unitPath)
	}
	return filepath.ToSlash(rel)
}

// Has reports whether unit has a snapshot.
func (lf *LockFile) Has(unit string) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	_, ok := lf.Units[unit]
	return ok
}

// IsChanged reports whether the base table of unit differs from its
// snapshot. Units without a snapshot are changed.
func (lf *LockFile) IsChanged(unit string, pairs []catalog.Pair) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	snap, ok := lf.Units[unit]
	if !ok {
		return true
	}
	return snap.Hash != Hash(pairs)
}

// Snapshot returns the recorded base table of unit.
func (lf *LockFile) Snapshot(unit string) ([]catalog.Pair, bool) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	snap, ok := lf.Units[unit]
	if !ok {
		return nil, false
	}
	pairs := make([]catalog.Pair, len(snap.Entries))
	for i, e := range snap.Entries {
		v := catalog.Singular(e.Text)
		if e.Plural != nil {
			v = catalog.PluralValue(e.Plural.Zero, e.Plural.One, e.Plural.Other)
		}
		pairs[i] = catalog.Pair{ID: e.ID, Value: v}
	}
	return pairs, true
}

// Update records pairs as the snapshot of unit.
func (lf *LockFile) Update(unit string, pairs []catalog.Pair) {
	entries := make([]Entry, len(pairs))
	for i, p := range pairs {
		e := Entry{ID: p.ID}
		if p.Value.IsPlural() {
			pl := p.Value.Plural
			e.Plural = &Plural{Zero: pl.Zero, One: pl.One, Other: pl.Other}
		} else {
			e.Text = p.Value.Text
		}
		entries[i] = e
	}

	lf.mu.Lock()
	defer lf.mu.Unlock()
	lf.Units[unit] = Snapshot{Hash: Hash(pairs), Entries: entries}
}

// Clean removes snapshots of units that are no longer present. This
// prevents stale entries from accumulating.
func (lf *LockFile) Clean(currentUnits []string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	valid := make(map[string]bool, len(currentUnits))
	for _, u := range currentUnits {
		valid[u] = true
	}

	for u := range lf.Units {
		if !valid[u] {
			delete(lf.Units, u)
		}
	}
}

// RemoveUnit removes the snapshot of a unit.
func (lf *LockFile) RemoveUnit(unit string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	delete(lf.Units, unit)
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats returns the number of units and total entries in the lock file.
func (lf *LockFile) Stats() (units, entries int) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	units = len(lf.Units)
	for _, s := range lf.Units {
		entries += len(s.Entries)
	}
	return
}

// UnitKeys returns the sorted list of unit keys.
func (lf *LockFile) UnitKeys() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	keys := make([]string, 0, len(lf.Units))
	for u := range lf.Units {
		keys = append(keys, u)
	}
	sort.Strings(keys)
	return keys
}

// ---------------------------------------------------------------------------
// Human-readable summary
// ---------------------------------------------------------------------------

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	units, entries := lf.Stats()
	if units == 0 {
		return "empty"
	}

	var parts []string
	for _, u := range lf.UnitKeys() {
		lf.mu.Lock()
		n := len(lf.Units[u].Entries)
		lf.mu.Unlock()
		parts = append(parts, fmt.Sprintf("%s: %d ids", u, n))
	}
	return fmt.Sprintf("%d units, %d ids (%s)", units, entries, strings.Join(parts, ", "))
}
