package explain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/vinayprograms/engram/internal/index"
	"github.com/vinayprograms/engram/internal/store"
)

// TranscriptWindowRadius is how many rows of raw tape context surround each
// touched event offset in a session window.
const TranscriptWindowRadius = 2

// Row is one raw JSONL line from a tape, kept as a generic value so windows
// can surface fields the typed Event model doesn't carry.
type Row struct {
	Offset uint64
	Value  map[string]any
}

// Window is the transcript context around one touched offset.
type Window struct {
	TouchOffset uint64           `json:"touch_offset"`
	Events      []map[string]any `json:"events"`
}

// Touch is one piece of evidence rendered for session-window output.
type Touch struct {
	EventOffset uint64 `json:"event_offset"`
	Kind        string `json:"kind"`
	FilePath    string `json:"file_path"`
	Timestamp   string `json:"timestamp"`
}

// Session groups every touch found in one tape, with transcript windows
// around each, for presenting "where in the conversation did this happen".
type Session struct {
	TapeID                string   `json:"tape_id"`
	TouchCount            int      `json:"touch_count"`
	LatestTouchTimestamp  string   `json:"latest_touch_timestamp"`
	Touches               []Touch  `json:"touches"`
	Windows               []Window `json:"windows"`
}

// CollectTouchEvidence merges direct evidence with evidence for every
// touched anchor, deduplicating by (tape, offset, kind, file, timestamp).
func CollectTouchEvidence(idx *index.Index, direct []index.EvidenceFragmentRef, touchedAnchors []string) ([]index.EvidenceFragmentRef, error) {
	dedup := map[string]bool{}
	var out []index.EvidenceFragmentRef

	add := func(f index.EvidenceFragmentRef) {
		key := touchKey(f)
		if !dedup[key] {
			dedup[key] = true
			out = append(out, f)
		}
	}
	for _, f := range direct {
		add(f)
	}
	for _, anchor := range touchedAnchors {
		refs, err := idx.EvidenceForAnchor(anchor)
		if err != nil {
			return nil, err
		}
		for _, f := range refs {
			add(f)
		}
	}
	return out, nil
}

func touchKey(f index.EvidenceFragmentRef) string {
	return fmt.Sprintf("%s:%d:%s:%s:%s", f.TapeID, f.EventOffset, f.Kind, f.FilePath, f.Timestamp)
}

// BuildSessionWindows groups touches by tape, reads each tape's raw JSONL
// body, and assembles a session (with transcript windows) for every tape
// that still exists on disk.
func BuildSessionWindows(tapes *store.TapeStore, touches []index.EvidenceFragmentRef) ([]Session, error) {
	byTape := map[string][]index.EvidenceFragmentRef{}
	for _, t := range touches {
		byTape[t.TapeID] = append(byTape[t.TapeID], t)
	}

	var sessions []Session
	for tapeID, tapeTouches := range byTape {
		if !tapes.Has(tapeID) {
			continue
		}
		sort.Slice(tapeTouches, func(i, j int) bool {
			return tapeTouches[i].EventOffset < tapeTouches[j].EventOffset
		})

		body, err := tapes.Read(tapeID)
		if err != nil {
			return nil, err
		}
		rows, err := parseRows(body)
		if err != nil {
			return nil, err
		}

		var windows []Window
		var touchJSON []Touch
		latest := ""
		for _, touch := range tapeTouches {
			if w := eventWindow(rows, touch.EventOffset, TranscriptWindowRadius); w != nil {
				windows = append(windows, *w)
			}
			touchJSON = append(touchJSON, Touch{
				EventOffset: touch.EventOffset,
				Kind:        string(touch.Kind),
				FilePath:    touch.FilePath,
				Timestamp:   touch.Timestamp,
			})
			if touch.Timestamp > latest {
				latest = touch.Timestamp
			}
		}

		sessions = append(sessions, Session{
			TapeID:               tapeID,
			TouchCount:           len(tapeTouches),
			LatestTouchTimestamp: latest,
			Touches:              touchJSON,
			Windows:              windows,
		})
	}

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].TouchCount != sessions[j].TouchCount {
			return sessions[i].TouchCount > sessions[j].TouchCount
		}
		return sessions[i].LatestTouchTimestamp > sessions[j].LatestTouchTimestamp
	})

	return sessions, nil
}

func parseRows(body []byte) ([]Row, error) {
	var rows []Row
	for idx, line := range strings.Split(string(body), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var value map[string]any
		if err := json.Unmarshal([]byte(line), &value); err != nil {
			return nil, fmt.Errorf("decode tape row: %w", err)
		}
		rows = append(rows, Row{Offset: uint64(idx), Value: value})
	}
	return rows, nil
}

func eventWindow(rows []Row, targetOffset uint64, radius int) *Window {
	pos := -1
	for i, r := range rows {
		if r.Offset == targetOffset {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil
	}

	start := pos - radius
	if start < 0 {
		start = 0
	}
	end := pos + radius
	if end > len(rows)-1 {
		end = len(rows) - 1
	}

	events := make([]map[string]any, 0, end-start+1)
	for _, r := range rows[start : end+1] {
		events = append(events, map[string]any{
			"offset": r.Offset,
			"event":  r.Value,
		})
	}

	return &Window{TouchOffset: targetOffset, Events: events}
}
