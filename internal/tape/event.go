// Package tape defines the normalized event schema that every adapter emits
// and parses a tape's JSONL body into typed events.
package tape

// EventKind is the closed set of normalized event kinds.
type EventKind string

const (
	KindMeta      EventKind = "meta"
	KindMsgIn     EventKind = "msg.in"
	KindMsgOut    EventKind = "msg.out"
	KindToolCall  EventKind = "tool.call"
	KindToolResult EventKind = "tool.result"
	KindCodeRead  EventKind = "code.read"
	KindCodeEdit  EventKind = "code.edit"
	KindSpanLink  EventKind = "span.link"
)

// FileRange is an inclusive 1-based line range.
type FileRange struct {
	Start uint32
	End   uint32
}

// Source identifies which harness produced an event and, optionally, which
// session it belongs to.
type Source struct {
	Harness   string
	SessionID string
}

// Event is one normalized row of a tape, already classified into a
// structured payload or downgraded to Other when required fields are
// missing.
type Event struct {
	Timestamp string
	Kind      EventKind
	Source    Source

	Meta     *MetaEvent
	CodeRead *CodeReadEvent
	CodeEdit *CodeEditEvent
	SpanLink *SpanLinkEvent

	// Other is set when the row's kind is unstructured or a structured
	// kind was missing required fields. The event is preserved for
	// ordering purposes only.
	Other bool
}

type MetaEvent struct {
	Model        *string
	RepoHead     *string
	Label        *string
	CoverageRead string
	CoverageEdit string
	CoverageTool string
}

type CodeReadEvent struct {
	File         string
	Range        FileRange
	AnchorHashes []string
}

type CodeEditEvent struct {
	File         string
	BeforeRange  *FileRange
	AfterRange   *FileRange
	BeforeHash   *string
	AfterHash    *string
	Similarity   *float32
}

type SpanLinkEvent struct {
	FromFile  string
	FromRange FileRange
	ToFile    string
	ToRange   FileRange
	Note      *string
}

// EventAt pairs an event with its 0-based line index in the tape; blank
// lines yield no event but still count toward later offsets.
type EventAt struct {
	Offset uint64
	Event  Event
}

// rawEvent mirrors the wire shape of a normalized JSONL row.
type rawEvent struct {
	T      string          `json:"t"`
	K      string          `json:"k"`
	Source rawSource       `json:"source"`
	Model  *string         `json:"model,omitempty"`
	RepoHead *string       `json:"repo_head,omitempty"`
	Label  *string         `json:"label,omitempty"`

	CoverageRead *string `json:"coverage.read,omitempty"`
	CoverageEdit *string `json:"coverage.edit,omitempty"`
	CoverageTool *string `json:"coverage.tool,omitempty"`

	File         *string    `json:"file,omitempty"`
	Range        *[2]uint32 `json:"range,omitempty"`
	AnchorHashes []string   `json:"anchor_hashes,omitempty"`

	BeforeRange *[2]uint32 `json:"before_range,omitempty"`
	AfterRange  *[2]uint32 `json:"after_range,omitempty"`
	BeforeHash  *string    `json:"before_hash,omitempty"`
	AfterHash   *string    `json:"after_hash,omitempty"`
	Similarity  *float32   `json:"similarity,omitempty"`

	FromFile  *string    `json:"from_file,omitempty"`
	FromRange *[2]uint32 `json:"from_range,omitempty"`
	ToFile    *string    `json:"to_file,omitempty"`
	ToRange   *[2]uint32 `json:"to_range,omitempty"`
	Note      *string    `json:"note,omitempty"`
}

type rawSource struct {
	Harness   string  `json:"harness"`
	SessionID *string `json:"session_id,omitempty"`
}

func toFileRange(raw *[2]uint32) *FileRange {
	if raw == nil {
		return nil
	}
	return &FileRange{Start: raw[0], End: raw[1]}
}

// toEvent classifies a raw row into a structured event, downgrading to
// Other(kind) when required fields for a structured kind are missing.
func (r rawEvent) toEvent() Event {
	base := Event{
		Timestamp: r.T,
		Kind:      EventKind(r.K),
		Source:    Source{Harness: r.Source.Harness},
	}
	if r.Source.SessionID != nil {
		base.Source.SessionID = *r.Source.SessionID
	}

	switch EventKind(r.K) {
	case KindMeta:
		if r.CoverageRead == nil || r.CoverageEdit == nil || r.CoverageTool == nil {
			base.Other = true
			return base
		}
		base.Meta = &MetaEvent{
			Model:        r.Model,
			RepoHead:     r.RepoHead,
			Label:        r.Label,
			CoverageRead: *r.CoverageRead,
			CoverageEdit: *r.CoverageEdit,
			CoverageTool: *r.CoverageTool,
		}
	case KindCodeRead:
		if r.File == nil || r.Range == nil {
			base.Other = true
			return base
		}
		base.CodeRead = &CodeReadEvent{
			File:         *r.File,
			Range:        *toFileRange(r.Range),
			AnchorHashes: r.AnchorHashes,
		}
	case KindCodeEdit:
		if r.File == nil {
			base.Other = true
			return base
		}
		base.CodeEdit = &CodeEditEvent{
			File:        *r.File,
			BeforeRange: toFileRange(r.BeforeRange),
			AfterRange:  toFileRange(r.AfterRange),
			BeforeHash:  r.BeforeHash,
			AfterHash:   r.AfterHash,
			Similarity:  r.Similarity,
		}
	case KindSpanLink:
		if r.FromFile == nil || r.ToFile == nil || r.FromRange == nil || r.ToRange == nil {
			base.Other = true
			return base
		}
		base.SpanLink = &SpanLinkEvent{
			FromFile:  *r.FromFile,
			FromRange: *toFileRange(r.FromRange),
			ToFile:    *r.ToFile,
			ToRange:   *toFileRange(r.ToRange),
			Note:      r.Note,
		}
	case KindMsgIn, KindMsgOut, KindToolCall, KindToolResult:
		// Carried structurally elsewhere; the index only cares about
		// code.read/code.edit/span.link/meta, so these pass through
		// unstructured but are not downgraded to Other.
	default:
		base.Other = true
	}

	return base
}
