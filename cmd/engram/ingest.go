package main

import (
	"path/filepath"
	"strings"

	"github.com/vinayprograms/engram/internal/config"
	"github.com/vinayprograms/engram/internal/engram"
	"github.com/vinayprograms/engram/internal/index"
	"github.com/vinayprograms/engram/internal/ingest"
)

// IngestCmd loads the effective three-tier config, discovers inputs, and
// runs the ingest controller. Explicit paths on the command line override
// config-discovered sources entirely.
type IngestCmd struct {
	Paths   []string `arg:"" optional:"" help:"Explicit files to ingest instead of the configured sources."`
	Adapter string   `help:"Adapter to use for explicit paths (auto-detected from path shape when omitted)." default:"auto"`
}

func (c *IngestCmd) Run(ctx *context) error {
	if err := ctx.requireInitialized(); err != nil {
		return err
	}

	inputs, err := c.resolveInputs(ctx)
	if err != nil {
		return err
	}

	idx, err := ctx.openIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	controller := &ingest.Controller{
		Tapes:         ctx.tapeStore(),
		Index:         idx,
		LinkThreshold: index.LinkThresholdDefault,
		Logger:        ctx.log.WithComponent("ingest"),
	}

	report, err := controller.IngestInputs(inputs, ctx.paths.CursorStatePath())
	if err != nil {
		return engram.WrapError("ingest_error", err)
	}

	return printJSON(report)
}

func (c *IngestCmd) resolveInputs(ctx *context) ([]ingest.Input, error) {
	if len(c.Paths) > 0 {
		adapter := config.Adapter(strings.ToLower(strings.TrimSpace(c.Adapter)))
		if adapter == "" {
			adapter = config.Auto
		}
		inputs := make([]ingest.Input, 0, len(c.Paths))
		for _, p := range c.Paths {
			inputs = append(inputs, ingest.Input{Path: p, Adapter: adapter})
		}
		return inputs, nil
	}

	userConfig := filepath.Join(ctx.home, ".engram", "config.yml")
	projectConfig := config.FindProjectConfig(ctx.cwd)
	repoConfig := ctx.paths.ConfigPath()

	effective, err := config.LoadEffective(userConfig, projectConfig, repoConfig)
	if err != nil {
		return nil, engram.WrapError("config_error", err)
	}

	resolved, err := config.ResolveSources(effective, ctx.home, ctx.cwd)
	if err != nil {
		return nil, engram.WrapError("config_error", err)
	}

	inputs := make([]ingest.Input, 0, len(resolved))
	for _, r := range resolved {
		inputs = append(inputs, ingest.Input{Path: r.Path, Adapter: r.Adapter})
	}
	return inputs, nil
}
