package index

import (
	"fmt"

	"github.com/vinayprograms/engram/internal/tape"
)

func spanAnchor(file string, r tape.FileRange) string {
	return fmt.Sprintf("span:%s:%d-%d", file, r.Start, r.End)
}

// IngestTapeEvents folds one tape's normalized events into the index inside
// a single transaction: either every evidence row, edge, and tombstone the
// tape implies lands, or none of it does.
func (idx *Index) IngestTapeEvents(tapeID string, events []tape.EventAt, linkThreshold float32) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("begin ingest transaction: %w", err)
	}
	defer tx.Rollback()

	for _, item := range events {
		ev := item.Event
		switch {
		case ev.CodeRead != nil:
			fragment := EvidenceFragmentRef{
				TapeID:      tapeID,
				EventOffset: item.Offset,
				Kind:        EvidenceRead,
				FilePath:    ev.CodeRead.File,
				Timestamp:   ev.Timestamp,
			}
			for _, anchor := range ev.CodeRead.AnchorHashes {
				if err := insertEvidenceOn(tx, anchor, fragment); err != nil {
					return err
				}
			}

		case ev.CodeEdit != nil:
			if err := ingestCodeEdit(tx, tapeID, item.Offset, ev.Timestamp, ev.CodeEdit, linkThreshold); err != nil {
				return err
			}

		case ev.SpanLink != nil:
			link := ev.SpanLink
			var note string
			if link.Note != nil {
				note = *link.Note
			}
			edge := SpanEdge{
				FromAnchor:    spanAnchor(link.FromFile, link.FromRange),
				ToAnchor:      spanAnchor(link.ToFile, link.ToRange),
				Confidence:    1.0,
				LocationDelta: LocationMoved,
				Cardinality:   OneToOne,
				AgentLink:     true,
				Note:          note,
			}
			if err := insertEdgeOn(tx, edge, linkThreshold); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ingest transaction: %w", err)
	}
	return nil
}

func ingestCodeEdit(tx execer, tapeID string, offset uint64, timestamp string, edit *tape.CodeEditEvent, linkThreshold float32) error {
	if edit.BeforeHash != nil {
		fragment := EvidenceFragmentRef{
			TapeID:      tapeID,
			EventOffset: offset,
			Kind:        EvidenceEdit,
			FilePath:    edit.File,
			Timestamp:   timestamp,
		}
		if err := insertEvidenceOn(tx, *edit.BeforeHash, fragment); err != nil {
			return err
		}
	}
	if edit.AfterHash != nil {
		fragment := EvidenceFragmentRef{
			TapeID:      tapeID,
			EventOffset: offset,
			Kind:        EvidenceEdit,
			FilePath:    edit.File,
			Timestamp:   timestamp,
		}
		if err := insertEvidenceOn(tx, *edit.AfterHash, fragment); err != nil {
			return err
		}
	}

	if edit.BeforeHash != nil && edit.AfterHash != nil {
		var confidence float32
		if *edit.BeforeHash == *edit.AfterHash {
			confidence = 1.0
		} else if edit.Similarity != nil {
			confidence = *edit.Similarity
		}
		if err := validateConfidence(confidence); err != nil {
			return err
		}
		edge := SpanEdge{
			FromAnchor:    *edit.BeforeHash,
			ToAnchor:      *edit.AfterHash,
			Confidence:    confidence,
			LocationDelta: LocationSame,
			Cardinality:   OneToOne,
			AgentLink:     false,
		}
		if err := insertEdgeOn(tx, edge, linkThreshold); err != nil {
			return err
		}
	}

	if edit.AfterHash == nil && edit.BeforeHash != nil {
		r := edit.BeforeRange
		if r == nil {
			r = edit.AfterRange
		}
		rangeAtDeletion := FileRange{}
		if r != nil {
			rangeAtDeletion = FileRange{Start: r.Start, End: r.End}
		}
		tombstone := Tombstone{
			AnchorHashes:    []string{*edit.BeforeHash},
			TapeID:          tapeID,
			EventOffset:     offset,
			FilePath:        edit.File,
			RangeAtDeletion: rangeAtDeletion,
			Timestamp:       timestamp,
		}
		if err := insertTombstoneOn(tx, tombstone); err != nil {
			return err
		}
	}

	return nil
}
