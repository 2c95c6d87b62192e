package main

import (
	"os"
	"path/filepath"

	"github.com/vinayprograms/engram/internal/config"
	"github.com/vinayprograms/engram/internal/engram"
)

// InitCmd creates the on-disk store and a default config if one is absent.
// It is idempotent: running it twice against an already-initialized root
// is a no-op beyond opening (and thereby migrating, if needed) the index.
type InitCmd struct{}

func (c *InitCmd) Run(ctx *context) error {
	if err := ctx.paths.EnsureDirs(); err != nil {
		return engram.WrapError("mkdir_error", err)
	}

	idx, err := ctx.openIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	configPath := ctx.paths.ConfigPath()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		doc := config.DefaultRepoConfigYAML()
		if ctx.paths.Root == ctx.home {
			doc = config.DefaultGlobalConfigYAML()
		}
		if err := os.WriteFile(configPath, []byte(doc), 0o644); err != nil {
			return engram.WrapError("write_error", err)
		}
	}

	return printJSON(map[string]any{
		"status":     "ok",
		"engram_dir": ctx.paths.EngramDir,
		"index":      ctx.paths.IndexPath(),
		"config":     filepath.Clean(configPath),
	})
}
