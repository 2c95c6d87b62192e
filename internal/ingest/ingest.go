// Package ingest drives adapters over discovered inputs, deduplicates by
// content hash, persists per-input cursor state, writes tapes, and folds
// their events into the lineage index.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/vinayprograms/engram/internal/adapter"
	"github.com/vinayprograms/engram/internal/config"
	"github.com/vinayprograms/engram/internal/index"
	"github.com/vinayprograms/engram/internal/logging"
	"github.com/vinayprograms/engram/internal/store"
	"github.com/vinayprograms/engram/internal/tape"
)

// Input is one discovered file paired with the adapter its source entry
// requested (possibly config.Auto, resolved per-file by path shape).
type Input struct {
	Path    string
	Adapter config.Adapter
}

// Failure records why one input could not be ingested; the controller
// continues with the remaining inputs.
type Failure struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Report summarizes one ingest run across every discovered input.
type Report struct {
	Status              string    `json:"status"`
	Imported            int       `json:"imported"`
	SkippedExistingTape int       `json:"skipped_existing_tape"`
	SkippedUnchanged    int       `json:"skipped_unchanged"`
	Failures            []Failure `json:"failures"`
}

// Controller owns the collaborators an ingest run touches: the tape
// archive, the lineage index, the confidence threshold edges are classified
// against, and the logger every step reports through.
type Controller struct {
	Tapes         *store.TapeStore
	Index         *index.Index
	LinkThreshold float32
	Logger        *logging.Logger
}

// IngestInputs runs the per-file pipeline of §4.7 over every input,
// persisting cursor state at cursorPath once all inputs have been visited.
func (c *Controller) IngestInputs(inputs []Input, cursorPath string) (Report, error) {
	state, err := LoadCursorState(cursorPath)
	if err != nil {
		return Report{}, err
	}

	report := Report{Status: "ok"}
	for _, in := range inputs {
		if err := c.ingestOne(in, state, &report); err != nil {
			report.Failures = append(report.Failures, Failure{Path: in.Path, Message: err.Error()})
			if c.Logger != nil {
				c.Logger.IngestFileFailed(in.Path, err)
			}
		}
	}

	if err := SaveCursorState(cursorPath, state); err != nil {
		return report, err
	}

	if len(report.Failures) > 0 {
		report.Status = "partial"
	}
	return report, nil
}

func (c *Controller) ingestOne(in Input, state *CursorState, report *Report) error {
	raw, err := os.ReadFile(in.Path)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	inputHash := sha256Hex(raw)

	adapterID, err := resolveAdapter(in)
	if err != nil {
		return err
	}

	key := cursorKey(string(adapterID), in.Path)
	if prior, ok := state.Files[key]; ok && prior.InputHash == inputHash {
		report.SkippedUnchanged++
		return nil
	}

	normalized, err := adapter.ConvertToTape(adapterID, string(raw))
	if err != nil {
		return fmt.Errorf("convert with adapter %s: %w", adapterID, err)
	}
	events, err := tape.ParseStrict(normalized)
	if err != nil {
		return fmt.Errorf("parse normalized tape: %w", err)
	}

	tapeID := store.TapeID([]byte(normalized))
	imported, err := c.foldTape(tapeID, []byte(normalized), events)
	if err != nil {
		return err
	}
	if imported {
		report.Imported++
	} else {
		report.SkippedExistingTape++
	}

	state.Files[key] = FileState{InputHash: inputHash, Adapter: string(adapterID), TapeID: tapeID}
	return nil
}

// foldTape writes the tape file (if not already present) and folds its
// events into the index (if not already indexed), returning whether this
// call is the one that performed the fold.
func (c *Controller) foldTape(tapeID string, normalized []byte, events []tape.EventAt) (bool, error) {
	if !c.Tapes.Has(tapeID) {
		if err := c.Tapes.Write(tapeID, normalized); err != nil {
			return false, fmt.Errorf("write tape: %w", err)
		}
		if c.Logger != nil {
			c.Logger.TapeWritten(tapeID, len(normalized))
		}
	}

	has, err := c.Index.HasTape(tapeID)
	if err != nil {
		return false, fmt.Errorf("check tape indexed: %w", err)
	}
	if has {
		return false, nil
	}

	if err := c.Index.IngestTapeEvents(tapeID, events, c.LinkThreshold); err != nil {
		return false, fmt.Errorf("fold tape into index: %w", err)
	}
	return true, nil
}

// IngestNormalizedTape is the shared single-tape entry point used by both
// file-based ingest and `record`: it computes the tape id, writes the tape
// file, and folds events into the index, exactly as one input's pipeline
// step would, without touching cursor state.
func (c *Controller) IngestNormalizedTape(normalized []byte) (tapeID string, events []tape.EventAt, alreadyIndexed bool, err error) {
	events, err = tape.ParseStrict(string(normalized))
	if err != nil {
		return "", nil, false, fmt.Errorf("parse normalized tape: %w", err)
	}
	tapeID = store.TapeID(normalized)

	has, err := c.Index.HasTape(tapeID)
	if err != nil {
		return tapeID, events, false, fmt.Errorf("check tape indexed: %w", err)
	}
	alreadyIndexed = has

	if _, err := c.foldTape(tapeID, normalized, events); err != nil {
		return tapeID, events, alreadyIndexed, err
	}
	return tapeID, events, alreadyIndexed, nil
}

func resolveAdapter(in Input) (adapter.ID, error) {
	if in.Adapter != config.Auto && in.Adapter != "" {
		return adapter.ID(in.Adapter), nil
	}
	if detected, ok := config.DetectAdapter(in.Path); ok {
		return adapter.ID(detected), nil
	}
	return "", fmt.Errorf("cannot auto-detect adapter for %s", in.Path)
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
