package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vinayprograms/engram/internal/engram"
	"github.com/vinayprograms/engram/internal/index"
	"github.com/vinayprograms/engram/internal/ingest"
)

// RecordCmd is the one adapter that ships in core: it has no external
// vendor format to normalize, so it builds tape events directly instead of
// dispatching through the adapter registry.
type RecordCmd struct {
	Stdin   bool     `help:"Read a transcript from stdin instead of wrapping a command."`
	Command []string `arg:"" optional:"" passthrough:"" help:"Command to run and capture."`
}

func (c *RecordCmd) Run(ctx *context) error {
	if c.Stdin && len(c.Command) > 0 {
		return engram.NewError("invalid_record_args", "use either `engram record --stdin` or `engram record <command...>`")
	}

	var tapeJSONL string
	var recordedCommand map[string]any

	if c.Stdin {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return engram.WrapError("stdin_error", err)
		}
		tapeJSONL = buildStdinTape(ctx, string(data))
	} else {
		if len(c.Command) == 0 {
			return engram.NewError("missing_command", "expected `engram record <command...>` or `engram record --stdin`")
		}
		capture, err := captureCommandTape(ctx, c.Command)
		if err != nil {
			return err
		}
		tapeJSONL = capture.tapeJSONL
		recordedCommand = map[string]any{
			"argv":         capture.argv,
			"exit":         capture.exit,
			"success":      capture.exit == 0,
			"stdout_bytes": capture.stdoutBytes,
			"stderr_bytes": capture.stderrBytes,
		}
	}

	if err := ctx.requireInitialized(); err != nil {
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
		Logger:        ctx.log.WithComponent("record"),
	}

	tapeID, events, alreadyIndexed, err := controller.IngestNormalizedTape([]byte(tapeJSONL))
	if err != nil {
		return engram.WrapError("record_error", err)
	}

	compressedBytes, err := ctx.tapeStore().RawSize(tapeID)
	if err != nil {
		return engram.WrapError("metadata_error", err)
	}

	result := map[string]any{
		"status":             "ok",
		"tape_id":            tapeID,
		"event_count":        len(events),
		"uncompressed_bytes": len(tapeJSONL),
		"compressed_bytes":   compressedBytes,
		"already_indexed":    alreadyIndexed,
		"meta":               extractMeta(events),
	}
	if recordedCommand != nil {
		result["recorded_command"] = recordedCommand
	}
	return printJSON(result)
}

func buildStdinTape(ctx *context, text string) string {
	sessionID := uuid.NewString()
	now := nowTimestamp()
	source := map[string]any{"harness": "record", "session_id": sessionID}

	var b strings.Builder
	writeEvent(&b, map[string]any{
		"t": now, "k": "meta", "source": source,
		"repo_head":     repoHead(ctx.cwd),
		"label":         "record stdin",
		"coverage.read": "none", "coverage.edit": "none", "coverage.tool": "none",
	})
	writeEvent(&b, map[string]any{
		"t": now, "k": "msg.in", "source": source,
		"role": "user", "content": text,
	})
	return b.String()
}

type commandCapture struct {
	tapeJSONL   string
	argv        []string
	exit        int
	stdoutBytes int
	stderrBytes int
}

func captureCommandTape(ctx *context, command []string) (commandCapture, error) {
	sessionID := uuid.NewString()
	source := map[string]any{"harness": "record", "session_id": sessionID}
	executable := command[0]
	args := command[1:]

	startedAt := nowTimestamp()
	cmd := exec.Command(executable, args...)
	cmd.Dir = ctx.cwd
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	finishedAt := nowTimestamp()

	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return commandCapture{}, engram.WrapError("command_exec_error", runErr)
		}
	}

	var b strings.Builder
	writeEvent(&b, map[string]any{
		"t": startedAt, "k": "meta", "source": source,
		"repo_head":     repoHead(ctx.cwd),
		"label":         fmt.Sprintf("record %s", strings.Join(command, " ")),
		"coverage.read": "none", "coverage.edit": "none", "coverage.tool": "full",
	})
	writeEvent(&b, map[string]any{
		"t": startedAt, "k": "tool.call", "source": source,
		"tool": executable, "args": strings.Join(args, " "), "cwd": ctx.cwd,
	})
	writeEvent(&b, map[string]any{
		"t": finishedAt, "k": "tool.result", "source": source,
		"tool": executable, "exit": exitCode, "stdout": stdout.String(), "stderr": stderr.String(),
	})

	return commandCapture{
		tapeJSONL:   b.String(),
		argv:        command,
		exit:        exitCode,
		stdoutBytes: stdout.Len(),
		stderrBytes: stderr.Len(),
	}, nil
}

func writeEvent(b *strings.Builder, event map[string]any) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	b.Write(data)
	b.WriteByte('\n')
}

func nowTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func repoHead(cwd string) *string {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = cwd
	out, err := cmd.Output()
	if err != nil {
		return nil
	}
	head := strings.TrimSpace(string(out))
	if head == "" {
		return nil
	}
	return &head
}
