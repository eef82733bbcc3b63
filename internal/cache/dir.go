// Package cache manages the on-disk scheme cache: one FASTA file of allele
// variants per locus plus the scheme's profile table.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
)

// ProfilesFile is the name of the cached profile table.
const ProfilesFile = "profiles.csv"

// Dir is a cache location. A Dir created without a path is a temporary
// directory owned by the Dir and removed by Close; a caller-supplied path is
// never removed.
type Dir struct {
	path  string
	owned bool
}

// OpenDir opens path, creating it if needed. An empty path creates a
// temporary directory.
func OpenDir(path string) (*Dir, error) {
	if path == "" {
		tmp, err := os.MkdirTemp("", "mlst-cache-*")
		if err != nil {
			return nil, fmt.Errorf("cache: create temp dir: %w", err)
		}
		return &Dir{path: tmp, owned: true}, nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return &Dir{path: path}, nil
}

// Path returns the directory.
func (d *Dir) Path() string { return d.path }

// Owned reports whether Close removes the directory.
func (d *Dir) Owned() bool { return d.owned }

// LocusPath is where the variants of locus are cached.
func (d *Dir) LocusPath(locus string) string {
	return filepath.Join(d.path, locus+".fasta")
}

// ProfilesPath is where the profile table is cached.
func (d *Dir) ProfilesPath() string { return filepath.Join(d.path, ProfilesFile) }

// Close removes an owned directory. It is safe to call more than once.
func (d *Dir) Close() error {
	if d == nil || !d.owned || d.path == "" {
		return nil
	}
	p := d.path
	d.path = ""
	if err := os.RemoveAll(p); err != nil {
		return fmt.Errorf("cache: remove %s: %w", p, err)
	}
	return nil
}
