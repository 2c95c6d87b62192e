// Package main wires the kong CLI: command structs carry flags, Run methods
// carry behavior, and main.go owns the parse/execute/error-envelope loop.
package main

// Globals are flags accepted by every subcommand.
type Globals struct {
	Global bool   `help:"Use the home-rooted store (~/.engram) instead of the current repository." name:"global"`
	Repo   string `help:"Operate against a specific root directory instead of the current one." type:"path" name:"repo"`
}

// CLI is the full command tree parsed by kong.Parse.
type CLI struct {
	Globals

	Init    InitCmd    `cmd:"" help:"Create .engram/ and a default config."`
	Ingest  IngestCmd  `cmd:"" help:"Discover and ingest configured session sources."`
	Record  RecordCmd  `cmd:"" help:"Capture a transcript from stdin or a wrapped command."`
	Explain ExplainCmd `cmd:"" help:"Show lineage and session context for a file span or anchor."`
	Tapes   TapesCmd   `cmd:"" help:"List every tape in the archive."`
	Show    ShowCmd    `cmd:"" help:"Print one tape's events."`
	Gc      GcCmd      `cmd:"gc" help:"Remove tapes no longer referenced by the index."`
}
