package ingest

import (
	"path/filepath"
	"testing"
)

func TestLoadCursorStateMissingFileIsEmpty(t *testing.T) {
	state, err := LoadCursorState(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(state.Files) != 0 {
		t.Fatalf("expected empty state, got %+v", state.Files)
	}
}

func TestSaveAndLoadCursorStateRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	state := &CursorState{Files: map[string]FileState{
		cursorKey("codex", "/sessions/a.jsonl"): {InputHash: "abc", Adapter: "codex", TapeID: "deadbeef"},
	}}

	if err := SaveCursorState(path, state); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadCursorState(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got, ok := loaded.Files["codex:/sessions/a.jsonl"]
	if !ok {
		t.Fatal("expected key codex:/sessions/a.jsonl to survive round trip")
	}
	if got.InputHash != "abc" || got.TapeID != "deadbeef" {
		t.Errorf("unexpected state: %+v", got)
	}
}
