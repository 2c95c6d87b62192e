// Package engram holds the on-disk layout and error envelope shared by the
// ingest controller, the lineage index, and the CLI.
package engram

import (
	"os"
	"path/filepath"
)

// Paths resolves the on-disk layout rooted either at a repository directory
// or, in global mode, the user's home directory.
type Paths struct {
	Root      string
	EngramDir string
	CacheDir  string
}

// Resolve computes the layout rooted at root (a repo path or the home
// directory in global mode).
func Resolve(root string) Paths {
	return Paths{
		Root:      root,
		EngramDir: filepath.Join(root, ".engram"),
		CacheDir:  filepath.Join(root, ".engram-cache"),
	}
}

// IndexPath is the lineage database file.
func (p Paths) IndexPath() string { return filepath.Join(p.EngramDir, "index.sqlite") }

// TapesDir is the content-addressed tape archive directory.
func (p Paths) TapesDir() string { return filepath.Join(p.EngramDir, "tapes") }

// ObjectsDir is reserved per §6.1.
func (p Paths) ObjectsDir() string { return filepath.Join(p.EngramDir, "objects") }

// ConfigPath is this root's own config.yml (repo or global, depending on
// which root Resolve was called with).
func (p Paths) ConfigPath() string { return filepath.Join(p.EngramDir, "config.yml") }

// CursorDir is the directory holding per-input ingest cursor state.
func (p Paths) CursorDir() string { return filepath.Join(p.CacheDir, "cursors") }

// CursorStatePath is the single JSON document recording ingest progress.
func (p Paths) CursorStatePath() string { return filepath.Join(p.CursorDir(), "ingest-state.json") }

// Initialized reports whether `engram init` has already run at this root.
func (p Paths) Initialized() bool {
	for _, path := range []string{p.EngramDir, p.IndexPath(), p.TapesDir()} {
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	return true
}

// EnsureDirs creates every directory this layout needs, idempotently.
func (p Paths) EnsureDirs() error {
	for _, dir := range []string{p.EngramDir, p.TapesDir(), p.ObjectsDir(), p.CursorDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
