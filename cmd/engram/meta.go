package main

import "github.com/vinayprograms/engram/internal/tape"

// extractMeta finds the first meta event in a tape's events and renders it
// for JSON output, or nil if the tape carries no meta event.
func extractMeta(events []tape.EventAt) map[string]any {
	for _, e := range events {
		if e.Event.Meta == nil {
			continue
		}
		m := e.Event.Meta
		return map[string]any{
			"timestamp": e.Event.Timestamp,
			"model":     m.Model,
			"repo_head": m.RepoHead,
			"label":     m.Label,
		}
	}
	return nil
}
