// Package e2e exercises the ingest → index → explain pipeline end to end,
// the way the CLI commands wire the same packages together. It ingests
// pre-normalized tapes directly (the same entry point `record` uses) rather
// than through a harness adapter, since adapter fidelity is already covered
// by internal/adapter's own tests.
package e2e

import (
	"testing"

	"github.com/vinayprograms/engram/internal/engram"
	"github.com/vinayprograms/engram/internal/explain"
	"github.com/vinayprograms/engram/internal/index"
	"github.com/vinayprograms/engram/internal/ingest"
	"github.com/vinayprograms/engram/internal/store"
)

const editTapeJSONL = `{"t":"2026-02-22T00:00:00Z","k":"meta","source":{"harness":"codex"},"coverage.read":"partial","coverage.edit":"partial","coverage.tool":"full"}
{"t":"2026-02-22T00:00:01Z","k":"code.edit","source":{"harness":"codex"},"file":"src/lib.rs","before_range":[10,12],"after_range":[10,13],"before_hash":"beforehash1","after_hash":"afterhash1","similarity":0.80}
`

func newController(t *testing.T, root string) (*ingest.Controller, engram.Paths) {
	t.Helper()
	paths := engram.Resolve(root)
	if err := paths.EnsureDirs(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}
	idx, err := index.Open(paths.IndexPath())
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { idx.Close() })

	return &ingest.Controller{
		Tapes:         store.NewTapeStore(paths.TapesDir()),
		Index:         idx,
		LinkThreshold: index.LinkThresholdDefault,
	}, paths
}

// TestIngestThenExplainFindsDirectEvidence covers S2 (edit creates a lineage
// edge at default threshold) wired through explain's session assembly.
func TestIngestThenExplainFindsDirectEvidence(t *testing.T) {
	root := t.TempDir()
	controller, _ := newController(t, root)

	tapeID, events, alreadyIndexed, err := controller.IngestNormalizedTape([]byte(editTapeJSONL))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if alreadyIndexed {
		t.Fatal("expected first ingest to report alreadyIndexed=false")
	}
	if len(events) != 2 {
		t.Fatalf("event count = %d, want 2", len(events))
	}

	// S5: re-ingesting the identical bytes is a no-op on the index.
	_, _, alreadyIndexed2, err := controller.IngestNormalizedTape([]byte(editTapeJSONL))
	if err != nil {
		t.Fatalf("re-ingest: %v", err)
	}
	if !alreadyIndexed2 {
		t.Fatal("expected re-ingest of identical bytes to report alreadyIndexed=true")
	}

	// Seed at the edit's after_hash: explain walks backward from "now" to
	// find the predecessor span, mirroring outbound_edges(before) in S2.
	result, err := explain.ExplainByAnchor(controller.Index, []string{"afterhash1"}, explain.DefaultTraversal(), false)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if len(result.Direct) == 0 {
		t.Fatal("expected direct evidence for the after_hash anchor")
	}
	if len(result.Lineage) != 1 {
		t.Fatalf("expected exactly one lineage edge, got %d", len(result.Lineage))
	}
	if diff := result.Lineage[0].Confidence - 0.80; diff > 0.001 || diff < -0.001 {
		t.Fatalf("edge confidence = %v, want ~0.80", result.Lineage[0].Confidence)
	}

	touches, err := explain.CollectTouchEvidence(controller.Index, result.Direct, result.TouchedAnchors)
	if err != nil {
		t.Fatalf("collect touches: %v", err)
	}
	sessions, err := explain.BuildSessionWindows(controller.Tapes, touches)
	if err != nil {
		t.Fatalf("build session windows: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected exactly one session, got %d", len(sessions))
	}
	if sessions[0].TapeID != tapeID {
		t.Fatalf("session tape id = %q, want %q", sessions[0].TapeID, tapeID)
	}
	if len(sessions[0].Windows) == 0 {
		t.Fatal("expected at least one transcript window around the touch")
	}
}

// TestGCPreservesReferencedTapes covers GC safety: a tape with evidence
// rows survives, an orphan tape with none does not.
func TestGCPreservesReferencedTapes(t *testing.T) {
	root := t.TempDir()
	controller, _ := newController(t, root)

	if _, _, _, err := controller.IngestNormalizedTape([]byte(editTapeJSONL)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	orphan := "orphan00orphan00orphan00orphan00orphan00orphan00orphan00orphan0"
	if err := controller.Tapes.Write(orphan, []byte(`{"t":"2026-01-01T00:00:00Z","k":"msg.in","source":{"harness":"record"}}
`)); err != nil {
		t.Fatalf("write orphan tape: %v", err)
	}

	referenced, err := controller.Index.ReferencedTapeIDs()
	if err != nil {
		t.Fatalf("referenced tape ids: %v", err)
	}
	if len(referenced) != 1 {
		t.Fatalf("expected exactly one referenced tape, got %d", len(referenced))
	}

	removed, err := controller.Tapes.GC(referenced)
	if err != nil {
		t.Fatalf("gc: %v", err)
	}
	if len(removed) != 1 || removed[0] != orphan {
		t.Fatalf("expected gc to remove exactly the orphan tape, removed=%v", removed)
	}

	remaining, err := controller.Tapes.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected one tape to remain after gc, got %d", len(remaining))
	}
}
