// Package adapter converts harness-native session transcripts into the
// normalized tape event contract and checks the result against it.
package adapter

import "fmt"

// ID names one of the harnesses engram knows how to ingest from.
type ID string

const (
	Codex    ID = "codex"
	Claude   ID = "claude"
	Cursor   ID = "cursor"
	Gemini   ID = "gemini"
	OpenCode ID = "opencode"
	OpenClaw ID = "openclaw"
)

// Status reports whether an adapter has a real body or is still a
// discovery placeholder awaiting a schema sample.
type Status string

const (
	Implemented       Status = "implemented"
	DiscoveryRequired Status = "discovery_required"
)

// CoverageGrade rates how completely an adapter captures one signal kind.
type CoverageGrade string

const (
	Full    CoverageGrade = "full"
	Partial CoverageGrade = "partial"
	None    CoverageGrade = "none"
)

// Coverage grades an adapter's fidelity across the three structured signals
// the index depends on.
type Coverage struct {
	Read CoverageGrade
	Edit CoverageGrade
	Tool CoverageGrade
}

// MappingRule documents one harness-native shape and what tape event it
// becomes. It exists for documentation, not for parsing.
type MappingRule struct {
	Source string
	Target string
	Note   string
}

// Descriptor is the static profile of one adapter: where its artifacts live
// on disk, what it maps, and how well it covers the event contract.
type Descriptor struct {
	ID                    ID
	Status                Status
	ArtifactPathTemplates []string
	SchemaSampleSet       []string
	MappingTable          []MappingRule
	Coverage              Coverage
}

var registry = []Descriptor{
	{
		ID:     Claude,
		Status: Implemented,
		ArtifactPathTemplates: []string{
			"~/.claude/projects/<project>/<session>.jsonl",
			"~/.claude/projects/<project>/<session>/tool-results/*.txt",
		},
		SchemaSampleSet: []string{"claude-jsonl"},
		MappingTable: []MappingRule{
			{Source: "assistant/text", Target: "msg.out", Note: "text block"},
			{Source: "assistant/tool_use", Target: "tool.call", Note: "paired by tool_use.id"},
			{Source: "user/tool_result", Target: "tool.result", Note: "paired by tool_use_id"},
			{Source: "Read tool", Target: "code.read", Note: "structured file and range"},
			{Source: "Edit/Write/MultiEdit tool", Target: "code.edit", Note: "structured file mutation"},
		},
		Coverage: Coverage{Read: Full, Edit: Full, Tool: Full},
	},
	{
		ID:     Codex,
		Status: Implemented,
		ArtifactPathTemplates: []string{
			"~/.codex/sessions/YYYY/MM/DD/*.jsonl",
			"~/.codex/history.jsonl",
		},
		SchemaSampleSet: []string{"codex-jsonl"},
		MappingTable: []MappingRule{
			{Source: "session metadata", Target: "meta", Note: "model/repo metadata"},
			{Source: "response_item/message", Target: "msg.in|msg.out", Note: "role-dependent"},
			{Source: "response_item/function_call", Target: "tool.call", Note: "name and arguments"},
			{Source: "response_item/function_call_output", Target: "tool.result", Note: "paired by call_id"},
			{Source: "apply_patch payload", Target: "code.edit", Note: "file touch extraction"},
		},
		Coverage: Coverage{Read: Partial, Edit: Partial, Tool: Full},
	},
	{
		ID:                    OpenCode,
		Status:                DiscoveryRequired,
		ArtifactPathTemplates: []string{"TODO: discovery required"},
		SchemaSampleSet:       []string{"TODO: discovery required"},
		MappingTable: []MappingRule{
			{Source: "TODO: discovery required", Target: "TODO: event-contract mapping", Note: "deterministic mapping table pending"},
		},
		Coverage: Coverage{Read: None, Edit: None, Tool: None},
	},
	{
		ID:                    Gemini,
		Status:                DiscoveryRequired,
		ArtifactPathTemplates: []string{"TODO: discovery required"},
		SchemaSampleSet:       []string{"TODO: discovery required"},
		MappingTable: []MappingRule{
			{Source: "TODO: discovery required", Target: "TODO: event-contract mapping", Note: "deterministic mapping table pending"},
		},
		Coverage: Coverage{Read: None, Edit: None, Tool: None},
	},
	{
		ID:                    Cursor,
		Status:                DiscoveryRequired,
		ArtifactPathTemplates: []string{"TODO: discovery required"},
		SchemaSampleSet:       []string{"TODO: discovery required"},
		MappingTable: []MappingRule{
			{Source: "TODO: discovery required", Target: "TODO: event-contract mapping", Note: "deterministic mapping table pending"},
		},
		Coverage: Coverage{Read: None, Edit: None, Tool: None},
	},
	{
		ID:                    OpenClaw,
		Status:                DiscoveryRequired,
		ArtifactPathTemplates: []string{"TODO: discovery required"},
		SchemaSampleSet:       []string{"TODO: discovery required"},
		MappingTable: []MappingRule{
			{Source: "TODO: discovery required", Target: "TODO: event-contract mapping", Note: "deterministic mapping table pending"},
		},
		Coverage: Coverage{Read: None, Edit: None, Tool: None},
	},
}

// Registry returns the static descriptor set for all six known adapters.
func Registry() []Descriptor {
	return registry
}

// DescriptorFor looks up a single adapter's descriptor.
func DescriptorFor(id ID) (Descriptor, bool) {
	for _, d := range registry {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

// DiscoveryScaffold expands an adapter's artifact path templates against a
// home directory.
func DiscoveryScaffold(id ID, homeDir string) ([]string, error) {
	d, ok := DescriptorFor(id)
	if !ok {
		return nil, fmt.Errorf("unknown adapter %q", id)
	}
	paths := make([]string, 0, len(d.ArtifactPathTemplates))
	for _, tmpl := range d.ArtifactPathTemplates {
		expanded := tmpl
		if len(tmpl) > 0 && tmpl[0] == '~' {
			expanded = homeDir + tmpl[1:]
		}
		paths = append(paths, expanded)
	}
	return paths, nil
}

// ConvertToTape normalizes harness-native JSONL into tape JSONL.
func ConvertToTape(id ID, input string) (string, error) {
	switch id {
	case Claude:
		return claudeToTape(input)
	case Codex:
		return codexToTape(input)
	case OpenCode, Gemini, Cursor, OpenClaw:
		return discoveryToTape(id, input)
	default:
		return "", fmt.Errorf("unknown adapter %q", id)
	}
}
