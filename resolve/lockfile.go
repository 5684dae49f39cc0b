package resolve

import (
	"fmt"
	"os"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/pelletier/go-toml/v2"
)

// lockFormatVersion is bumped when the lock layout changes incompatibly.
const lockFormatVersion = 1

// LockEntry pins one registry-resolved package: identity, exact version and
// the digest of the fetched content.
type LockEntry struct {
	ID      string `toml:"id"`
	Version string `toml:"version"`
	Digest  string `toml:"digest"`
}

// LockFile holds the pinned registry dependencies of one workspace member.
// A lock artifact exists iff at least one registry dependency was resolved.
type LockFile struct {
	Format   int         `toml:"version"`
	Packages []LockEntry `toml:"package,omitempty"`
}

// ReadLockFile loads a lock file. A missing file yields an empty lock, not
// an error.
func ReadLockFile(path string) (*LockFile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &LockFile{Format: lockFormatVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock file %q: %w", path, err)
	}

	var lf LockFile
	if err := toml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("lock file %q: %w", path, err)
	}
	if lf.Format != lockFormatVersion {
		return nil, fmt.Errorf("lock file %q: unsupported format version %d", path, lf.Format)
	}
	return &lf, nil
}

// Entry returns the pinned entry for the given base identity, or nil.
func (lf *LockFile) Entry(baseID string) *LockEntry {
	for i := range lf.Packages {
		if lf.Packages[i].ID == baseID {
			return &lf.Packages[i]
		}
	}
	return nil
}

// Pin records a resolved registry package, replacing any previous pin for
// the same identity.
func (lf *LockFile) Pin(baseID string, version *semver.Version, digest string) {
	entry := LockEntry{ID: baseID, Version: version.String(), Digest: digest}
	for i := range lf.Packages {
		if lf.Packages[i].ID == baseID {
			lf.Packages[i] = entry
			return
		}
	}
	lf.Packages = append(lf.Packages, entry)
}

// Write persists the lock file with entries in identity order. An empty lock
// is never written.
func (lf *LockFile) Write(path string) error {
	if len(lf.Packages) == 0 {
		return nil
	}
	lf.Format = lockFormatVersion
	sort.Slice(lf.Packages, func(a, b int) bool {
		return lf.Packages[a].ID < lf.Packages[b].ID
	})

	data, err := toml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("lock file %q: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("lock file %q: %w", path, err)
	}
	return nil
}
