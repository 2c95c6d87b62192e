// Package explain answers "how did this code get here": direct evidence for
// a set of anchors plus the backward lineage graph that feeds them, rendered
// either as structured JSON or as a human-readable summary.
package explain

import "github.com/vinayprograms/engram/internal/index"

const (
	MinConfidenceDefault float32 = 0.50
	MaxFanoutDefault     int     = 50
	MaxEdgesDefault      int     = 500
	MaxDepthDefault      int     = 10
)

// Traversal bounds a backward lineage walk.
type Traversal struct {
	MinConfidence float32
	MaxFanout     int
	MaxEdges      int
	MaxDepth      int
}

// DefaultTraversal returns the traversal bounds used when a caller doesn't
// override them.
func DefaultTraversal() Traversal {
	return Traversal{
		MinConfidence: MinConfidenceDefault,
		MaxFanout:     MaxFanoutDefault,
		MaxEdges:      MaxEdgesDefault,
		MaxDepth:      MaxDepthDefault,
	}
}

// Tier is a presentation-only bucket for an edge's confidence and shape.
type Tier string

const (
	TierEdit          Tier = "edit"
	TierMove          Tier = "move"
	TierRelated       Tier = "related"
	TierHidden        Tier = "hidden"
	TierForensicsOnly Tier = "forensics_only"
)

// PrettyTier classifies an edge for human-readable rendering. It never
// affects what was stored or traversed, only how it reads.
func PrettyTier(confidence float32, moved bool, locationOnly bool) Tier {
	switch {
	case locationOnly:
		return TierForensicsOnly
	case confidence >= 0.90 && !moved:
		return TierEdit
	case confidence >= 0.85 && moved:
		return TierMove
	case confidence >= MinConfidenceDefault:
		return TierRelated
	default:
		return TierHidden
	}
}

// Result is the outcome of an explain query: the direct evidence touching
// the queried anchors, the backward lineage edges that feed them, and the
// full set of anchors the traversal visited.
type Result struct {
	Direct         []index.EvidenceFragmentRef
	Lineage        []index.EdgeRow
	TouchedAnchors []string
}

// RetrieveDirect returns all evidence recorded against any of anchors.
func RetrieveDirect(idx *index.Index, anchors []string) ([]index.EvidenceFragmentRef, error) {
	var all []index.EvidenceFragmentRef
	for _, anchor := range anchors {
		refs, err := idx.EvidenceForAnchor(anchor)
		if err != nil {
			return nil, err
		}
		all = append(all, refs...)
	}
	return all, nil
}

type queueItem struct {
	anchor string
	depth  int
}

// RetrieveLineage walks inbound edges backward from anchors, breadth first,
// in confidence-descending order, bounded by traversal's limits.
func RetrieveLineage(idx *index.Index, anchors []string, traversal Traversal, includeForensics bool) ([]index.EdgeRow, error) {
	queue := make([]queueItem, 0, len(anchors))
	for _, a := range anchors {
		queue = append(queue, queueItem{anchor: a, depth: 0})
	}
	visited := map[string]bool{}
	var out []index.EdgeRow

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if visited[item.anchor] {
			continue
		}
		visited[item.anchor] = true

		if len(out) >= traversal.MaxEdges {
			break
		}
		if item.depth >= traversal.MaxDepth {
			continue
		}

		edges, err := idx.InboundEdges(item.anchor, traversal.MinConfidence, includeForensics)
		if err != nil {
			return nil, err
		}
		if len(edges) > traversal.MaxFanout {
			edges = edges[:traversal.MaxFanout]
		}
		for _, edge := range edges {
			if len(out) >= traversal.MaxEdges {
				break
			}
			if !visited[edge.FromAnchor] {
				queue = append(queue, queueItem{anchor: edge.FromAnchor, depth: item.depth + 1})
			}
			out = append(out, edge)
		}
	}

	return out, nil
}

// ExplainByAnchor runs both halves of an explain query and assembles the
// touched-anchor set the caller needs to fetch tombstones or session
// windows for.
func ExplainByAnchor(idx *index.Index, anchors []string, traversal Traversal, includeForensics bool) (Result, error) {
	direct, err := RetrieveDirect(idx, anchors)
	if err != nil {
		return Result{}, err
	}
	lineage, err := RetrieveLineage(idx, anchors, traversal, includeForensics)
	if err != nil {
		return Result{}, err
	}

	seen := map[string]bool{}
	touched := append([]string(nil), anchors...)
	for _, a := range anchors {
		seen[a] = true
	}
	for _, edge := range lineage {
		if !seen[edge.FromAnchor] {
			seen[edge.FromAnchor] = true
			touched = append(touched, edge.FromAnchor)
		}
		if !seen[edge.ToAnchor] {
			seen[edge.ToAnchor] = true
			touched = append(touched, edge.ToAnchor)
		}
	}

	return Result{Direct: direct, Lineage: lineage, TouchedAnchors: touched}, nil
}
