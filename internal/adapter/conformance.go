package adapter

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Issue is one contract violation found in a normalized tape line.
type Issue struct {
	Line   int
	Detail string
}

// Report summarizes a single harness-native input's conversion: how many
// rows it produced, the coverage grade parsed from the first emitted `meta`
// row (falling back to the registry's declared grade if absent), and any
// contract violations found in the output.
type Report struct {
	Adapter    ID
	EventCount int
	Coverage   Coverage
	Issues     []Issue
}

// RunConformance converts input with the given adapter and validates every
// emitted row against the tape event envelope and per-kind field contract.
func RunConformance(id ID, input string) (Report, error) {
	normalized, err := ConvertToTape(id, input)
	if err != nil {
		return Report{}, err
	}

	d, ok := DescriptorFor(id)
	if !ok {
		return Report{}, fmt.Errorf("unknown adapter %q", id)
	}

	var issues []Issue
	eventCount := 0
	coverage := d.Coverage
	sawMeta := false
	for i, line := range strings.Split(normalized, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		eventCount++
		var row map[string]any
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			issues = append(issues, Issue{Line: i + 1, Detail: "row is not valid JSON"})
			continue
		}
		if !sawMeta {
			if parsed, ok := metaCoverage(row); ok {
				coverage = parsed
				sawMeta = true
			}
		}
		issues = append(issues, validateContractRow(i+1, row)...)
	}

	return Report{
		Adapter:    id,
		EventCount: eventCount,
		Coverage:   coverage,
		Issues:     issues,
	}, nil
}

// metaCoverage parses the coverage grades off a row's `meta` fields, when
// row is a `meta` event carrying all three. It reports false when row is not
// a meta row or is missing a grade; RunConformance then keeps the registry's
// declared grade.
func metaCoverage(row map[string]any) (Coverage, bool) {
	if kind, _ := row["k"].(string); kind != "meta" {
		return Coverage{}, false
	}
	read, ok1 := row["coverage.read"].(string)
	edit, ok2 := row["coverage.edit"].(string)
	tool, ok3 := row["coverage.tool"].(string)
	if !ok1 || !ok2 || !ok3 {
		return Coverage{}, false
	}
	return Coverage{
		Read: CoverageGrade(read),
		Edit: CoverageGrade(edit),
		Tool: CoverageGrade(tool),
	}, true
}

func validateContractRow(line int, row map[string]any) []Issue {
	var issues []Issue

	if _, ok := row["t"].(string); !ok {
		issues = append(issues, Issue{Line: line, Detail: "missing string field `t`"})
	}

	source, ok := row["source"].(map[string]any)
	if !ok {
		issues = append(issues, Issue{Line: line, Detail: "missing object field `source`"})
	} else {
		if _, ok := source["harness"].(string); !ok {
			issues = append(issues, Issue{Line: line, Detail: "missing string field `source.harness`"})
		}
		if sessionID, present := source["session_id"]; present {
			if _, ok := sessionID.(string); !ok {
				issues = append(issues, Issue{Line: line, Detail: "field `source.session_id` must be a string"})
			}
		}
	}

	kind, _ := row["k"].(string)
	if kind == "" {
		issues = append(issues, Issue{Line: line, Detail: "missing string field `k`"})
		return issues
	}

	switch kind {
	case "meta":
		for _, field := range []string{"coverage.read", "coverage.edit", "coverage.tool"} {
			if _, ok := row[field].(string); !ok {
				issues = append(issues, Issue{Line: line, Detail: fmt.Sprintf("meta missing string field `%s`", field)})
			}
		}
	case "msg.in", "msg.out":
	case "span.link":
		if _, ok := row["from_file"].(string); !ok {
			issues = append(issues, Issue{Line: line, Detail: "span.link missing string field `from_file`"})
		}
		if _, ok := row["from_range"]; !ok {
			issues = append(issues, Issue{Line: line, Detail: "span.link missing field `from_range`"})
		}
		if _, ok := row["to_file"].(string); !ok {
			issues = append(issues, Issue{Line: line, Detail: "span.link missing string field `to_file`"})
		}
		if _, ok := row["to_range"]; !ok {
			issues = append(issues, Issue{Line: line, Detail: "span.link missing field `to_range`"})
		}
	case "tool.call":
		if _, ok := row["tool"].(string); !ok {
			issues = append(issues, Issue{Line: line, Detail: "tool.call missing string field `tool`"})
		}
		if _, ok := row["args"]; !ok {
			issues = append(issues, Issue{Line: line, Detail: "tool.call missing field `args`"})
		}
	case "tool.result":
		if _, ok := row["tool"].(string); !ok {
			issues = append(issues, Issue{Line: line, Detail: "tool.result missing string field `tool`"})
		}
	case "code.read":
		if _, ok := row["file"].(string); !ok {
			issues = append(issues, Issue{Line: line, Detail: "code.read missing string field `file`"})
		}
		if _, ok := row["range"]; !ok {
			issues = append(issues, Issue{Line: line, Detail: "code.read missing field `range`"})
		}
	case "code.edit":
		if _, ok := row["file"].(string); !ok {
			issues = append(issues, Issue{Line: line, Detail: "code.edit missing string field `file`"})
		}
	default:
		issues = append(issues, Issue{Line: line, Detail: fmt.Sprintf("unknown event kind `%s`", kind)})
	}

	return issues
}
