package engram

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewErrorFormatsMessage(t *testing.T) {
	err := NewError("not_initialized", "repository %q is not initialized", "/repo")
	if err.Code != "not_initialized" {
		t.Errorf("code = %q, want not_initialized", err.Code)
	}
	want := `repository "/repo" is not initialized`
	if err.Message != want {
		t.Errorf("message = %q, want %q", err.Message, want)
	}
}

func TestWrapErrorPreservesText(t *testing.T) {
	inner := errors.New("disk full")
	wrapped := WrapError("io_error", inner)
	if wrapped.Message != inner.Error() {
		t.Errorf("message = %q, want %q", wrapped.Message, inner.Error())
	}
}

func TestErrorUnwrapsThroughFmt(t *testing.T) {
	base := NewError("parse_error", "bad json")
	wrapped := fmt.Errorf("ingest file: %w", base)

	var target *Error
	if !errors.As(wrapped, &target) {
		t.Fatal("expected errors.As to recover *Error through fmt.Errorf wrapping")
	}
	if target.Code != "parse_error" {
		t.Errorf("code = %q, want parse_error", target.Code)
	}
}
