package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/vinayprograms/engram/internal/engram"
)

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("engram"),
		kong.Description("Local-first causal code-history index over AI coding-assistant session transcripts."),
		kong.UsageOnError(),
	)

	appCtx, err := newContext(cli.Globals)
	if err != nil {
		fail(err)
	}

	if err := kctx.Run(appCtx); err != nil {
		fail(err)
	}
}

func fail(err error) {
	var typed *engram.Error
	if !errors.As(err, &typed) {
		typed = engram.WrapError("internal_error", err)
	}
	data, marshalErr := marshalJSON(map[string]any{
		"error": map[string]any{
			"code":    typed.Code,
			"message": typed.Message,
		},
	})
	if marshalErr != nil {
		fmt.Fprintln(os.Stderr, err.Error())
	} else {
		fmt.Fprintln(os.Stderr, string(data))
	}
	os.Exit(1)
}
