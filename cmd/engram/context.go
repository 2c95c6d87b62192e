package main

import (
	"fmt"
	"os"

	"github.com/vinayprograms/engram/internal/engram"
	"github.com/vinayprograms/engram/internal/index"
	"github.com/vinayprograms/engram/internal/logging"
	"github.com/vinayprograms/engram/internal/store"
)

// context carries the resolved storage root and shared collaborators every
// command needs, built once in main from the parsed globals.
type context struct {
	cwd   string
	home  string
	paths engram.Paths
	log   *logging.Logger
}

func newContext(globals Globals) (*context, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, engram.WrapError("cwd_error", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, engram.WrapError("home_dir_error", err)
	}

	root := cwd
	if globals.Global {
		root = home
	}
	if globals.Repo != "" {
		root = globals.Repo
	}

	return &context{
		cwd:   cwd,
		home:  home,
		paths: engram.Resolve(root),
		log:   logging.New(os.Stderr, logging.Warn),
	}, nil
}

// requireInitialized mirrors require_initialized_paths: commands other than
// init fail fast with a typed error when the store has never been set up.
func (c *context) requireInitialized() error {
	if !c.paths.Initialized() {
		return engram.NewError("not_initialized", "repository is not initialized; run `engram init`")
	}
	return nil
}

func (c *context) openIndex() (*index.Index, error) {
	idx, err := index.Open(c.paths.IndexPath())
	if err != nil {
		return nil, engram.WrapError("index_open_error", err)
	}
	return idx, nil
}

func (c *context) tapeStore() *store.TapeStore {
	return store.NewTapeStore(c.paths.TapesDir())
}

func printJSON(value any) error {
	data, err := marshalJSON(value)
	if err != nil {
		return engram.WrapError("encode_error", err)
	}
	fmt.Println(string(data))
	return nil
}
