package adapter

import (
	"encoding/json"
	"fmt"
	"strings"
)

// discoveryToTape is the body shared by every adapter still awaiting a
// schema sample. It degrades cleanly: one meta event, all-none coverage,
// timestamp lifted from whatever the input's first row happens to carry.
func discoveryToTape(id ID, input string) (string, error) {
	timestamp := "1970-01-01T00:00:00Z"
	for _, line := range strings.Split(input, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var row map[string]any
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return "", fmt.Errorf("decode discovery row: %w", err)
		}
		if ts, ok := row["timestamp"].(string); ok && ts != "" {
			timestamp = ts
			break
		}
		if ts, ok := row["t"].(string); ok && ts != "" {
			timestamp = ts
			break
		}
	}

	event := map[string]any{
		"t":             timestamp,
		"k":             "meta",
		"source":        map[string]any{"harness": string(id)},
		"coverage.read": "none",
		"coverage.edit": "none",
		"coverage.tool": "none",
	}
	encoded, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("encode discovery meta: %w", err)
	}
	return string(encoded) + "\n", nil
}
