// Package index implements the embedded lineage store: evidence linking
// tape events to anchors, edges connecting anchors across time, and
// tombstones recording anchor deletion.
package index

const (
	// LinkThresholdDefault is the confidence an edge needs, absent an
	// explicit agent-asserted link, to be stored as lineage rather than
	// location-only.
	LinkThresholdDefault float32 = 0.30
	// IdenticalReinsertionThreshold is the similarity above which a
	// reinserted span is treated as identical rather than merely related.
	IdenticalReinsertionThreshold float32 = 0.90
)

// EvidenceKind classifies the tape event that produced an evidence row.
type EvidenceKind string

const (
	EvidenceEdit    EvidenceKind = "edit"
	EvidenceRead    EvidenceKind = "read"
	EvidenceTool    EvidenceKind = "tool"
	EvidenceMessage EvidenceKind = "message"
)

// LocationDelta describes how a span's location changed across an edge.
type LocationDelta string

const (
	LocationSame     LocationDelta = "same"
	LocationAdjacent LocationDelta = "adjacent"
	LocationMoved    LocationDelta = "moved"
	LocationAbsent   LocationDelta = "absent"
)

// Cardinality describes the shape of an edge's anchor mapping.
type Cardinality string

const (
	OneToOne  Cardinality = "1:1"
	OneToMany Cardinality = "1:N"
	ManyToOne Cardinality = "N:1"
)

// StoredEdgeClass is the persisted classification of an edge, derived once
// at insert time from its confidence and agent_link flag.
type StoredEdgeClass string

const (
	Lineage      StoredEdgeClass = "lineage"
	LocationOnly StoredEdgeClass = "location_only"
)

// FileRange is an inclusive line range within a file.
type FileRange struct {
	Start uint32
	End   uint32
}

// EvidenceFragmentRef points at the tape event that produced one piece of
// evidence for an anchor.
type EvidenceFragmentRef struct {
	TapeID      string
	EventOffset uint64
	Kind        EvidenceKind
	FilePath    string
	Timestamp   string
}

// SpanEdge connects two anchors, with the confidence and provenance
// metadata needed to decide how it should be stored and surfaced.
type SpanEdge struct {
	FromAnchor    string
	ToAnchor      string
	Confidence    float32
	LocationDelta LocationDelta
	Cardinality   Cardinality
	AgentLink     bool
	Note          string
}

// StoredClass derives the persisted classification for this edge: an
// agent-asserted link is always lineage regardless of confidence.
func (e SpanEdge) StoredClass(linkThreshold float32) StoredEdgeClass {
	if e.AgentLink || e.Confidence >= linkThreshold {
		return Lineage
	}
	return LocationOnly
}

// IncludedInDefaultTraversal reports whether this edge passes the confidence
// part of the non-forensics visibility rule: agent links always pass, other
// edges pass at or above minConfidence. It does not look at the stored
// class; the edge queries additionally hide LocationOnly edges.
func (e SpanEdge) IncludedInDefaultTraversal(minConfidence float32) bool {
	return e.AgentLink || e.Confidence >= minConfidence
}

// Tombstone records that an anchor's span was deleted without replacement.
type Tombstone struct {
	AnchorHashes    []string
	TapeID          string
	EventOffset     uint64
	FilePath        string
	RangeAtDeletion FileRange
	Timestamp       string
}

// ShouldLinkSuccessor decides whether a candidate successor span should be
// linked to its predecessor.
func ShouldLinkSuccessor(similarity float32, agentLink bool, linkThreshold float32) bool {
	return agentLink || similarity >= linkThreshold
}

// ShouldLinkIdenticalReinsertion reports whether a reinserted span is similar
// enough to be treated as a literal identity match.
func ShouldLinkIdenticalReinsertion(similarity float32) bool {
	return similarity >= IdenticalReinsertionThreshold
}

func encodeEvidenceKind(kind EvidenceKind) string { return string(kind) }

func decodeEvidenceKind(raw string) EvidenceKind {
	switch EvidenceKind(raw) {
	case EvidenceEdit, EvidenceRead, EvidenceTool, EvidenceMessage:
		return EvidenceKind(raw)
	default:
		return EvidenceRead
	}
}

func encodeLocationDelta(d LocationDelta) string { return string(d) }

func decodeLocationDelta(raw string) LocationDelta {
	switch LocationDelta(raw) {
	case LocationSame, LocationAdjacent, LocationMoved, LocationAbsent:
		return LocationDelta(raw)
	default:
		return LocationAbsent
	}
}

func encodeCardinality(c Cardinality) string { return string(c) }

func decodeCardinality(raw string) Cardinality {
	switch Cardinality(raw) {
	case OneToOne, OneToMany, ManyToOne:
		return Cardinality(raw)
	default:
		return OneToOne
	}
}

func encodeStoredClass(c StoredEdgeClass) string { return string(c) }

func decodeStoredClass(raw string) StoredEdgeClass {
	if raw == string(LocationOnly) {
		return LocationOnly
	}
	return Lineage
}
