package explain

import (
	"testing"

	"github.com/vinayprograms/engram/internal/index"
	"github.com/vinayprograms/engram/internal/store"
)

func TestCollectTouchEvidenceDedupesDirectAndAnchorEvidence(t *testing.T) {
	idx, err := index.OpenInMemory()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()

	direct := []index.EvidenceFragmentRef{
		{TapeID: "tape-1", EventOffset: 1, Kind: index.EvidenceEdit, FilePath: "src/lib.rs", Timestamp: "2026-02-22T00:00:00Z"},
	}

	// Same fragment reachable both directly and via a touched anchor must
	// collapse to one entry.
	if err := idx.InsertEvidence("anchor-1", direct[0]); err != nil {
		t.Fatalf("insert evidence: %v", err)
	}
	merged, err := CollectTouchEvidence(idx, direct, []string{"anchor-1"})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(merged) != 1 {
		t.Fatalf("merged = %+v, want 1", merged)
	}

	mergedAgain, err := CollectTouchEvidence(idx, append(direct, direct[0]), nil)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(mergedAgain) != 1 {
		t.Fatalf("merged with a direct duplicate = %+v, want still 1", mergedAgain)
	}
}

func TestBuildSessionWindowsSkipsTapesMissingFromStore(t *testing.T) {
	tapes := store.NewTapeStore(t.TempDir())

	touches := []index.EvidenceFragmentRef{
		{TapeID: "does-not-exist", EventOffset: 0, Kind: index.EvidenceRead, FilePath: "src/lib.rs", Timestamp: "2026-02-22T00:00:00Z"},
	}

	sessions, err := BuildSessionWindows(tapes, touches)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("sessions = %+v, want 0 when the tape is absent from the store", sessions)
	}
}

func TestBuildSessionWindowsAssemblesWindowAroundTouch(t *testing.T) {
	tapes := store.NewTapeStore(t.TempDir())
	tapeJSONL := []byte(`{"t":"2026-02-22T00:00:00Z","k":"meta"}
{"t":"2026-02-22T00:00:01Z","k":"msg.in"}
{"t":"2026-02-22T00:00:02Z","k":"code.edit","file":"src/lib.rs"}
{"t":"2026-02-22T00:00:03Z","k":"msg.out"}
{"t":"2026-02-22T00:00:04Z","k":"tool.call"}
`)
	tapeID := store.TapeID(tapeJSONL)
	if err := tapes.Write(tapeID, tapeJSONL); err != nil {
		t.Fatalf("write tape: %v", err)
	}

	touches := []index.EvidenceFragmentRef{
		{TapeID: tapeID, EventOffset: 2, Kind: index.EvidenceEdit, FilePath: "src/lib.rs", Timestamp: "2026-02-22T00:00:02Z"},
	}

	sessions, err := BuildSessionWindows(tapes, touches)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions = %+v, want 1", sessions)
	}
	session := sessions[0]
	if session.TapeID != tapeID {
		t.Errorf("tape id = %q", session.TapeID)
	}
	if session.TouchCount != 1 {
		t.Errorf("touch count = %d, want 1", session.TouchCount)
	}
	if len(session.Windows) != 1 {
		t.Fatalf("windows = %+v, want 1", session.Windows)
	}
	// Radius 2 around offset 2 in a 5-row tape covers every row.
	if len(session.Windows[0].Events) != 5 {
		t.Errorf("window events = %d, want all 5 rows within radius", len(session.Windows[0].Events))
	}
}

func TestBuildSessionWindowsOrdersByTouchCountThenRecency(t *testing.T) {
	tapes := store.NewTapeStore(t.TempDir())

	busyJSONL := []byte(`{"t":"2026-02-22T00:00:00Z","k":"meta"}
{"t":"2026-02-22T00:00:01Z","k":"code.edit","file":"a.rs"}
{"t":"2026-02-22T00:00:02Z","k":"code.edit","file":"a.rs"}
`)
	quietJSONL := []byte(`{"t":"2026-02-22T00:00:00Z","k":"meta"}
{"t":"2026-02-22T00:00:01Z","k":"code.edit","file":"b.rs"}
`)
	busyID := store.TapeID(busyJSONL)
	quietID := store.TapeID(quietJSONL)
	if err := tapes.Write(busyID, busyJSONL); err != nil {
		t.Fatalf("write busy: %v", err)
	}
	if err := tapes.Write(quietID, quietJSONL); err != nil {
		t.Fatalf("write quiet: %v", err)
	}

	touches := []index.EvidenceFragmentRef{
		{TapeID: quietID, EventOffset: 1, Kind: index.EvidenceEdit, FilePath: "b.rs", Timestamp: "2026-02-22T00:00:01Z"},
		{TapeID: busyID, EventOffset: 1, Kind: index.EvidenceEdit, FilePath: "a.rs", Timestamp: "2026-02-22T00:00:01Z"},
		{TapeID: busyID, EventOffset: 2, Kind: index.EvidenceEdit, FilePath: "a.rs", Timestamp: "2026-02-22T00:00:02Z"},
	}

	sessions, err := BuildSessionWindows(tapes, touches)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("sessions = %+v, want 2", sessions)
	}
	if sessions[0].TapeID != busyID {
		t.Errorf("first session = %q, want the busier tape (2 touches) first", sessions[0].TapeID)
	}
}
