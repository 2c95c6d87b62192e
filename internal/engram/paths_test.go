package engram

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveLayout(t *testing.T) {
	root := "/repo"
	p := Resolve(root)

	checks := map[string]string{
		"index":  p.IndexPath(),
		"tapes":  p.TapesDir(),
		"config": p.ConfigPath(),
	}
	for name, got := range checks {
		if !filepath.IsAbs(got) {
			t.Errorf("%s path %q is not absolute", name, got)
		}
	}
	if p.IndexPath() != filepath.Join(root, ".engram", "index.sqlite") {
		t.Errorf("unexpected index path %q", p.IndexPath())
	}
}

func TestInitializedFalseBeforeEnsureDirs(t *testing.T) {
	root := t.TempDir()
	p := Resolve(root)
	if p.Initialized() {
		t.Fatal("expected Initialized() to be false before EnsureDirs/index creation")
	}
}

func TestEnsureDirsCreatesLayout(t *testing.T) {
	root := t.TempDir()
	p := Resolve(root)
	if err := p.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	for _, dir := range []string{p.EngramDir, p.TapesDir(), p.ObjectsDir(), p.CursorDir()} {
		if stat, err := os.Stat(dir); err != nil || !stat.IsDir() {
			t.Errorf("expected directory %q to exist", dir)
		}
	}
}
