package main

import "testing"

func TestParseFileRangeTarget(t *testing.T) {
	file, start, end, err := parseFileRangeTarget("src/lib.rs:10-20")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if file != "src/lib.rs" || start != 10 || end != 20 {
		t.Fatalf("got file=%q start=%d end=%d", file, start, end)
	}
}

func TestParseFileRangeTargetRejectsMissingDash(t *testing.T) {
	if _, _, _, err := parseFileRangeTarget("src/lib.rs:10"); err == nil {
		t.Fatal("expected error for missing dash in range")
	}
}

func TestParseFileRangeTargetRejectsInvertedRange(t *testing.T) {
	if _, _, _, err := parseFileRangeTarget("src/lib.rs:20-10"); err == nil {
		t.Fatal("expected error when end < start")
	}
}

func TestParseFileRangeTargetRejectsZeroStart(t *testing.T) {
	if _, _, _, err := parseFileRangeTarget("src/lib.rs:0-5"); err == nil {
		t.Fatal("expected error for zero-based start")
	}
}
