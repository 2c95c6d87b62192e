package main

import "testing"

func TestParseRawRowsSkipsBlankLinesButKeepsOffsets(t *testing.T) {
	content := []byte("{\"t\":\"x\",\"k\":\"meta\"}\n\n{\"t\":\"y\",\"k\":\"msg.in\"}\n")
	rows, err := parseRawRows(content)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].offset != 0 {
		t.Errorf("first row offset = %d, want 0", rows[0].offset)
	}
	if rows[1].offset != 2 {
		t.Errorf("second row offset = %d, want 2 (blank line counted)", rows[1].offset)
	}
}

func TestCompactEventKeepsOnlyWhitelistedFields(t *testing.T) {
	row := rawRow{offset: 3, value: map[string]any{
		"t": "2026-01-01T00:00:00Z", "k": "code.edit", "file": "a.rs",
		"source": map[string]any{"harness": "codex"},
	}}
	compacted := compactEvent(row)
	if compacted["offset"] != uint64(3) {
		t.Errorf("offset = %v", compacted["offset"])
	}
	if compacted["file"] != "a.rs" {
		t.Errorf("file = %v", compacted["file"])
	}
	if _, ok := compacted["source"]; ok {
		t.Error("expected source field to be dropped by compaction")
	}
}
