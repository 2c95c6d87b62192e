package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/vinayprograms/engram/internal/anchor"
	"github.com/vinayprograms/engram/internal/engram"
	"github.com/vinayprograms/engram/internal/explain"
	"github.com/vinayprograms/engram/internal/index"
)

// ExplainCmd answers "how did this code get here" for a file:start-end span
// or, with --anchor, for an anchor hash directly.
type ExplainCmd struct {
	Target         string  `arg:"" help:"A <file>:<start>-<end> span, or an anchor hash with --anchor."`
	Anchor         bool    `help:"Treat target as an anchor hash instead of a file span."`
	MinConfidence  float64 `default:"0.50" help:"Minimum edge confidence to traverse."`
	MaxFanout      int     `default:"50" help:"Maximum inbound edges followed per anchor."`
	MaxEdges       int     `default:"500" help:"Maximum total edges returned."`
	Depth          int     `name:"depth" default:"10" help:"Maximum traversal depth."`
	Forensics      bool    `help:"Include location-only edges below the link threshold."`
	IncludeDeleted bool    `help:"Include tombstones recorded for touched anchors."`
	Pretty         bool    `help:"Print a human-readable summary instead of JSON."`
}

func (c *ExplainCmd) Run(ctx *context) error {
	if err := ctx.requireInitialized(); err != nil {
		return err
	}

	anchors, err := c.resolveAnchors(ctx)
	if err != nil {
		return err
	}

	idx, err := ctx.openIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	traversal := explain.Traversal{
		MinConfidence: float32(c.MinConfidence),
		MaxFanout:     c.MaxFanout,
		MaxEdges:      c.MaxEdges,
		MaxDepth:      c.Depth,
	}
	result, err := explain.ExplainByAnchor(idx, anchors, traversal, c.Forensics)
	if err != nil {
		return engram.WrapError("explain_error", err)
	}

	touches, err := explain.CollectTouchEvidence(idx, result.Direct, result.TouchedAnchors)
	if err != nil {
		return engram.WrapError("explain_error", err)
	}
	sessions, err := explain.BuildSessionWindows(ctx.tapeStore(), touches)
	if err != nil {
		return engram.WrapError("explain_error", err)
	}

	var tombstones []map[string]any
	if c.IncludeDeleted {
		for _, a := range result.TouchedAnchors {
			rows, err := idx.TombstonesForAnchor(a)
			if err != nil {
				return engram.WrapError("explain_error", err)
			}
			for _, t := range rows {
				tombstones = append(tombstones, map[string]any{
					"anchor":      a,
					"tape_id":     t.TapeID,
					"event_offset": t.EventOffset,
					"file_path":   t.FilePath,
					"range": map[string]any{
						"start": t.RangeAtDeletion.Start,
						"end":   t.RangeAtDeletion.End,
					},
					"timestamp": t.Timestamp,
				})
			}
		}
	}

	if c.Pretty {
		printPrettyExplain(c.Target, result.Lineage, sessions, tombstones)
		return nil
	}

	lineage := make([]map[string]any, 0, len(result.Lineage))
	for _, edge := range result.Lineage {
		lineage = append(lineage, edgeToJSON(edge))
	}

	return printJSON(map[string]any{
		"query": map[string]any{
			"target":          c.Target,
			"anchor_mode":     c.Anchor,
			"anchors":         anchors,
			"min_confidence":  c.MinConfidence,
			"max_fanout":      c.MaxFanout,
			"max_edges":       c.MaxEdges,
			"depth":           c.Depth,
			"forensics":       c.Forensics,
			"include_deleted": c.IncludeDeleted,
		},
		"sessions":   sessions,
		"lineage":    lineage,
		"tombstones": tombstones,
	})
}

func (c *ExplainCmd) resolveAnchors(ctx *context) ([]string, error) {
	if c.Anchor {
		return []string{c.Target}, nil
	}

	file, start, end, err := parseFileRangeTarget(c.Target)
	if err != nil {
		return nil, err
	}
	filePath := file
	if !strings.HasPrefix(file, "/") {
		filePath = ctx.cwd + "/" + file
	}
	span, err := readFileSpan(filePath, start, end)
	if err != nil {
		return nil, err
	}
	return []string{anchor.Fingerprint(span)}, nil
}

func parseFileRangeTarget(target string) (string, uint32, uint32, error) {
	idx := strings.LastIndex(target, ":")
	if idx < 0 {
		return "", 0, 0, engram.NewError("invalid_explain_target", "expected <file>:<start>-<end>")
	}
	file, rangePart := target[:idx], target[idx+1:]

	dash := strings.Index(rangePart, "-")
	if dash < 0 {
		return "", 0, 0, engram.NewError("invalid_explain_target", "expected <file>:<start>-<end>")
	}
	startRaw, endRaw := rangePart[:dash], rangePart[dash+1:]

	start, err := strconv.ParseUint(startRaw, 10, 32)
	if err != nil {
		return "", 0, 0, engram.NewError("invalid_explain_target", "start line must be an integer")
	}
	end, err := strconv.ParseUint(endRaw, 10, 32)
	if err != nil {
		return "", 0, 0, engram.NewError("invalid_explain_target", "end line must be an integer")
	}
	if start == 0 || end == 0 || end < start {
		return "", 0, 0, engram.NewError("invalid_explain_target", "line range must be 1-based and end must be >= start")
	}
	return file, uint32(start), uint32(end), nil
}

func readFileSpan(path string, start, end uint32) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", engram.WrapError("read_span_error", err)
	}
	lines := strings.Split(string(content), "\n")
	startIdx, endIdx := int(start-1), int(end-1)
	if endIdx >= len(lines) {
		return "", engram.NewError("span_out_of_bounds", "requested range %d-%d exceeds file length %d", start, end, len(lines))
	}
	return strings.Join(lines[startIdx:endIdx+1], "\n"), nil
}

func edgeToJSON(edge index.EdgeRow) map[string]any {
	return map[string]any{
		"from_anchor":    edge.FromAnchor,
		"to_anchor":      edge.ToAnchor,
		"confidence":     edge.Confidence,
		"location_delta": string(edge.LocationDelta),
		"cardinality":    string(edge.Cardinality),
		"agent_link":     edge.AgentLink,
		"note":           edge.Note,
		"stored_class":   string(edge.StoredClass),
	}
}

func printPrettyExplain(target string, lineage []index.EdgeRow, sessions []explain.Session, tombstones []map[string]any) {
	fmt.Printf("target: %s\n", target)
	fmt.Printf("sessions: %d\n", len(sessions))
	for _, s := range sessions {
		fmt.Printf("- tape=%s touches=%d\n", s.TapeID, s.TouchCount)
	}

	fmt.Println("lineage:")
	for _, edge := range lineage {
		tier := explain.PrettyTier(edge.Confidence, edge.LocationDelta == index.LocationMoved, edge.StoredClass == index.LocationOnly)
		fmt.Printf("- %s -> %s conf=%.2f tier=%s agent_link=%v\n", edge.FromAnchor, edge.ToAnchor, edge.Confidence, tier, edge.AgentLink)
	}

	if len(tombstones) > 0 {
		fmt.Println("tombstones:")
		for _, t := range tombstones {
			fmt.Printf("- %v\n", t)
		}
	}
}
