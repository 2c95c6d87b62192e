package main

import (
	"sort"

	"github.com/vinayprograms/engram/internal/engram"
)

// GcCmd removes tape files the index no longer references.
type GcCmd struct{}

func (c *GcCmd) Run(ctx *context) error {
	if err := ctx.requireInitialized(); err != nil {
		return err
	}

	idx, err := ctx.openIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	referenced, err := idx.ReferencedTapeIDs()
	if err != nil {
		return engram.WrapError("gc_error", err)
	}

	removed, err := ctx.tapeStore().GC(referenced)
	if err != nil {
		return engram.WrapError("gc_error", err)
	}
	for _, id := range removed {
		ctx.log.GCRemoved(id)
	}

	remaining, err := ctx.tapeStore().List()
	if err != nil {
		return engram.WrapError("read_dir_error", err)
	}

	sort.Strings(removed)
	return printJSON(map[string]any{
		"status":        "ok",
		"removed":       removed,
		"removed_count": len(removed),
		"kept_count":    len(remaining),
	})
}
