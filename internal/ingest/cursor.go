package ingest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/vinayprograms/engram/internal/store"
)

// FileState is what the cursor remembers about one previously-ingested
// input: the hash of the bytes it last saw and the tape that ingest
// produced, so a later run can skip unchanged inputs without re-deriving
// anything.
type FileState struct {
	InputHash string `json:"input_hash"`
	Adapter   string `json:"adapter"`
	TapeID    string `json:"tape_id"`
}

// CursorState is the whole per-repository ingest progress document,
// keyed by "<adapter>:<path>".
type CursorState struct {
	Files map[string]FileState `json:"files"`
}

func cursorKey(adapter, path string) string {
	return fmt.Sprintf("%s:%s", adapter, path)
}

// LoadCursorState reads the cursor document at path. A missing file yields
// an empty state rather than an error: its loss causes re-work, not
// corruption, since every step it guards is independently idempotent.
func LoadCursorState(path string) (*CursorState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &CursorState{Files: map[string]FileState{}}, nil
		}
		return nil, fmt.Errorf("read cursor state: %w", err)
	}

	var state CursorState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse cursor state: %w", err)
	}
	if state.Files == nil {
		state.Files = map[string]FileState{}
	}
	return &state, nil
}

// SaveCursorState replaces the cursor document atomically: write-temp,
// fsync, rename, so the last writer wins and a partial document is never
// observable.
func SaveCursorState(path string, state *CursorState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cursor state: %w", err)
	}
	if err := store.AtomicWrite(path, data); err != nil {
		return fmt.Errorf("write cursor state: %w", err)
	}
	return nil
}
