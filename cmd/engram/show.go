package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vinayprograms/engram/internal/engram"
	"github.com/vinayprograms/engram/internal/tape"
)

// ShowCmd prints one tape's events, either as compacted JSON rows or, with
// --raw, the tape's decompressed JSONL body verbatim.
type ShowCmd struct {
	TapeID string `arg:"" name:"tape-id" help:"The tape to show."`
	Raw    bool   `help:"Print the raw decompressed JSONL instead of a JSON summary."`
}

var compactFields = []string{
	"t", "k", "role", "tool", "file", "range", "before_range", "after_range",
	"before_hash", "after_hash", "from_file", "from_range", "to_file", "to_range",
	"note", "exit",
}

func (c *ShowCmd) Run(ctx *context) error {
	if err := ctx.requireInitialized(); err != nil {
		return err
	}

	tapes := ctx.tapeStore()
	if !tapes.Has(c.TapeID) {
		return engram.NewError("tape_not_found", "tape `%s` not found", c.TapeID)
	}

	content, err := tapes.Read(c.TapeID)
	if err != nil {
		return engram.WrapError("decompress_error", err)
	}

	if c.Raw {
		fmt.Print(string(content))
		return nil
	}

	events, err := tape.ParseStrict(string(content))
	if err != nil {
		return engram.WrapError("parse_error", err)
	}
	rows, err := parseRawRows(content)
	if err != nil {
		return err
	}

	compacted := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		compacted = append(compacted, compactEvent(row))
	}

	return printJSON(map[string]any{
		"tape_id":     c.TapeID,
		"event_count": len(events),
		"meta":        extractMeta(events),
		"events":      compacted,
	})
}

type rawRow struct {
	offset uint64
	value  map[string]any
}

func parseRawRows(content []byte) ([]rawRow, error) {
	var rows []rawRow
	for i, line := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var value map[string]any
		if err := json.Unmarshal([]byte(line), &value); err != nil {
			return nil, engram.NewError("parse_error", "tape row %d is not valid JSON", i)
		}
		rows = append(rows, rawRow{offset: uint64(i), value: value})
	}
	return rows, nil
}

func compactEvent(row rawRow) map[string]any {
	out := map[string]any{"offset": row.offset}
	for _, key := range compactFields {
		if v, ok := row.value[key]; ok {
			out[key] = v
		}
	}
	return out
}
