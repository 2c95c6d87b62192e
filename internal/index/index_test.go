package index

import (
	"testing"

	"github.com/vinayprograms/engram/internal/tape"
)

func strPtr(s string) *string { return &s }
func f32Ptr(f float32) *float32 { return &f }

func readEvent(anchor, file string, offset uint64) tape.EventAt {
	return tape.EventAt{
		Offset: offset,
		Event: tape.Event{
			Timestamp: "2026-02-22T00:00:00Z",
			Kind:      tape.KindCodeRead,
			CodeRead: &tape.CodeReadEvent{
				File:         file,
				Range:        tape.FileRange{Start: 1, End: 1},
				AnchorHashes: []string{anchor},
			},
		},
	}
}

func editEventWithSimilarity(before, after *string, similarity *float32, file string, offset uint64) tape.EventAt {
	return tape.EventAt{
		Offset: offset,
		Event: tape.Event{
			Timestamp: "2026-02-22T00:00:01Z",
			Kind:      tape.KindCodeEdit,
			CodeEdit: &tape.CodeEditEvent{
				File:        file,
				BeforeRange: &tape.FileRange{Start: 10, End: 12},
				AfterRange:  &tape.FileRange{Start: 10, End: 13},
				BeforeHash:  before,
				AfterHash:   after,
				Similarity:  similarity,
			},
		},
	}
}

func editEvent(before, after *string, file string, offset uint64) tape.EventAt {
	return editEventWithSimilarity(before, after, f32Ptr(0.80), file, offset)
}

func TestIngestsReadsEditsEdgesAndTombstones(t *testing.T) {
	idx, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()

	events := []tape.EventAt{
		readEvent("read-anchor", "src/lib.rs", 0),
		editEvent(strPtr("before"), strPtr("after"), "src/lib.rs", 1),
		editEvent(strPtr("deleted"), nil, "src/lib.rs", 2),
	}

	if err := idx.IngestTapeEvents("tape-1", events, LinkThresholdDefault); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	readRefs, err := idx.EvidenceForAnchor("read-anchor")
	if err != nil {
		t.Fatalf("read evidence: %v", err)
	}
	if len(readRefs) != 1 || readRefs[0].Kind != EvidenceRead {
		t.Fatalf("unexpected read evidence: %+v", readRefs)
	}

	editRefs, err := idx.EvidenceForAnchor("after")
	if err != nil {
		t.Fatalf("edit evidence: %v", err)
	}
	if len(editRefs) != 1 || editRefs[0].Kind != EvidenceEdit {
		t.Fatalf("unexpected edit evidence: %+v", editRefs)
	}

	beforeRefs, err := idx.EvidenceForAnchor("before")
	if err != nil {
		t.Fatalf("before evidence: %v", err)
	}
	if len(beforeRefs) != 1 {
		t.Fatalf("unexpected before evidence: %+v", beforeRefs)
	}

	edges, err := idx.OutboundEdges("before", 0.50, false)
	if err != nil {
		t.Fatalf("edges: %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(edges))
	}

	edgesForensics, err := idx.OutboundEdges("before", 0.50, true)
	if err != nil {
		t.Fatalf("edges forensics: %v", err)
	}
	if len(edgesForensics) != 1 {
		t.Fatalf("expected 1 forensics edge, got %d", len(edgesForensics))
	}

	tombstones, err := idx.TombstonesForAnchor("deleted")
	if err != nil {
		t.Fatalf("tombstones: %v", err)
	}
	if len(tombstones) != 1 || tombstones[0].FilePath != "src/lib.rs" {
		t.Fatalf("unexpected tombstones: %+v", tombstones)
	}
}

func TestSpanLinkIsAgentEdgeAndSurvivesMinConfidence(t *testing.T) {
	idx, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()

	events := []tape.EventAt{{
		Offset: 5,
		Event: tape.Event{
			Timestamp: "2026-02-22T00:00:03Z",
			Kind:      tape.KindSpanLink,
			SpanLink: &tape.SpanLinkEvent{
				FromFile:  "src/a.rs",
				FromRange: tape.FileRange{Start: 1, End: 2},
				ToFile:    "src/b.rs",
				ToRange:   tape.FileRange{Start: 10, End: 20},
				Note:      strPtr("extract"),
			},
		},
	}}

	if err := idx.IngestTapeEvents("tape-2", events, LinkThresholdDefault); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	edges, err := idx.OutboundEdges("span:src/a.rs:1-2", 0.99, false)
	if err != nil {
		t.Fatalf("edges: %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(edges))
	}
	if !edges[0].AgentLink {
		t.Fatal("expected agent_link edge")
	}
	if edges[0].Note != "extract" {
		t.Fatalf("expected note 'extract', got %q", edges[0].Note)
	}
}

func TestIngestIsIdempotentForSameTapeEvents(t *testing.T) {
	idx, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()

	events := []tape.EventAt{
		readEvent("read-anchor", "src/lib.rs", 0),
		editEvent(strPtr("before"), strPtr("after"), "src/lib.rs", 1),
	}

	if err := idx.IngestTapeEvents("tape-1", events, LinkThresholdDefault); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if err := idx.IngestTapeEvents("tape-1", events, LinkThresholdDefault); err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	readRefs, _ := idx.EvidenceForAnchor("read-anchor")
	if len(readRefs) != 1 {
		t.Fatalf("expected idempotent read evidence, got %d", len(readRefs))
	}
	editRefs, _ := idx.EvidenceForAnchor("after")
	if len(editRefs) != 1 {
		t.Fatalf("expected idempotent edit evidence, got %d", len(editRefs))
	}
	edges, _ := idx.OutboundEdges("before", 0.0, true)
	if len(edges) != 1 {
		t.Fatalf("expected idempotent edge, got %d", len(edges))
	}
}

func TestIngestRollsBackWhenEventContainsInvalidAnchor(t *testing.T) {
	idx, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()

	events := []tape.EventAt{
		readEvent("anchor-1", "src/lib.rs", 0),
		readEvent("", "src/lib.rs", 1),
	}

	if err := idx.IngestTapeEvents("tape-1", events, LinkThresholdDefault); err == nil {
		t.Fatal("expected ingest to fail on invalid anchor")
	}

	refs, err := idx.EvidenceForAnchor("anchor-1")
	if err != nil {
		t.Fatalf("query after rollback: %v", err)
	}
	if len(refs) != 0 {
		t.Fatalf("expected rollback to discard all evidence, got %d", len(refs))
	}
}

func TestLocationOnlyEdgesAreHiddenWithoutForensicsEvenWithLowMinConfidence(t *testing.T) {
	idx, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()

	events := []tape.EventAt{
		editEventWithSimilarity(strPtr("before"), strPtr("after"), f32Ptr(0.20), "src/lib.rs", 1),
	}
	if err := idx.IngestTapeEvents("tape-1", events, LinkThresholdDefault); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	withoutForensics, err := idx.OutboundEdges("before", 0.10, false)
	if err != nil {
		t.Fatalf("non-forensics query: %v", err)
	}
	if len(withoutForensics) != 0 {
		t.Fatalf("expected 0 visible edges, got %d", len(withoutForensics))
	}

	withForensics, err := idx.OutboundEdges("before", 0.10, true)
	if err != nil {
		t.Fatalf("forensics query: %v", err)
	}
	if len(withForensics) != 1 || withForensics[0].StoredClass != LocationOnly {
		t.Fatalf("unexpected forensics edges: %+v", withForensics)
	}
}

func TestReferencedTapeIDsIncludesTombstoneOnlyTapes(t *testing.T) {
	idx, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()

	// A deletion recorded through the standalone InsertTombstone operation,
	// with no evidence row for this tape at all.
	tombstone := Tombstone{
		AnchorHashes:    []string{"deleted-only"},
		TapeID:          "tape-tombstone-only",
		EventOffset:     0,
		FilePath:        "src/lib.rs",
		RangeAtDeletion: FileRange{Start: 1, End: 1},
		Timestamp:       "2026-02-22T00:00:00Z",
	}
	if err := idx.InsertTombstone(tombstone); err != nil {
		t.Fatalf("insert tombstone: %v", err)
	}

	referenced, err := idx.ReferencedTapeIDs()
	if err != nil {
		t.Fatalf("referenced tape ids: %v", err)
	}
	if _, ok := referenced["tape-tombstone-only"]; !ok {
		t.Fatalf("referenced = %+v, want tombstone-only tape id present", referenced)
	}

	has, err := idx.HasTape("tape-tombstone-only")
	if err != nil {
		t.Fatalf("has tape: %v", err)
	}
	if !has {
		t.Fatal("expected HasTape to report true for a tombstone-only tape")
	}
}

func TestInvalidSimilarityRejectsIngestAndRollsBack(t *testing.T) {
	idx, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()

	events := []tape.EventAt{
		readEvent("anchor-1", "src/lib.rs", 0),
		editEventWithSimilarity(strPtr("a"), strPtr("b"), f32Ptr(1.2), "src/lib.rs", 1),
	}

	if err := idx.IngestTapeEvents("tape-1", events, LinkThresholdDefault); err == nil {
		t.Fatal("expected ingest to fail on invalid similarity")
	}

	refs, err := idx.EvidenceForAnchor("anchor-1")
	if err != nil {
		t.Fatalf("query after rollback: %v", err)
	}
	if len(refs) != 0 {
		t.Fatalf("expected rollback to discard all evidence, got %d", len(refs))
	}
}
