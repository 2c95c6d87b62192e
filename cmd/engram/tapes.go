package main

import (
	"sort"

	"github.com/vinayprograms/engram/internal/engram"
	"github.com/vinayprograms/engram/internal/tape"
)

// TapesCmd lists every tape in the archive with its size, event count, and
// meta event, newest first.
type TapesCmd struct{}

func (c *TapesCmd) Run(ctx *context) error {
	if err := ctx.requireInitialized(); err != nil {
		return err
	}

	tapes := ctx.tapeStore()
	ids, err := tapes.List()
	if err != nil {
		return engram.WrapError("read_dir_error", err)
	}

	type row struct {
		TapeID     string         `json:"tape_id"`
		SizeBytes  int64          `json:"compressed_bytes"`
		EventCount int            `json:"event_count"`
		Timestamp  string         `json:"timestamp"`
		Meta       map[string]any `json:"meta"`
	}

	rows := make([]row, 0, len(ids))
	for _, id := range ids {
		size, err := tapes.RawSize(id)
		if err != nil {
			return engram.WrapError("metadata_error", err)
		}
		content, err := tapes.Read(id)
		if err != nil {
			return engram.WrapError("decompress_error", err)
		}
		events, err := tape.ParseStrict(string(content))
		if err != nil {
			return engram.WrapError("parse_error", err)
		}

		meta := extractMeta(events)
		timestamp := ""
		if meta != nil {
			if ts, ok := meta["timestamp"].(string); ok {
				timestamp = ts
			}
		}

		rows = append(rows, row{
			TapeID:     id,
			SizeBytes:  size,
			EventCount: len(events),
			Timestamp:  timestamp,
			Meta:       meta,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Timestamp != rows[j].Timestamp {
			return rows[i].Timestamp > rows[j].Timestamp
		}
		return rows[i].EventCount > rows[j].EventCount
	})

	return printJSON(map[string]any{"tapes": rows})
}
