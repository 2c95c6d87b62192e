package index

import (
	"database/sql"
	"fmt"
)

// execer is satisfied by both *sql.DB and *sql.Tx, letting insert helpers
// run standalone or inside a caller's transaction.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func validateAnchor(anchor string) error {
	if anchor == "" {
		return fmt.Errorf("anchor_hash must not be empty")
	}
	return nil
}

func validateConfidence(confidence float32) error {
	if confidence < 0.0 || confidence > 1.0 {
		return fmt.Errorf("confidence must be in [0.0, 1.0], got %v", confidence)
	}
	return nil
}

// InsertEvidence records one piece of evidence linking a tape event to an
// anchor. Re-inserting the same row is a no-op.
func (idx *Index) InsertEvidence(anchor string, fragment EvidenceFragmentRef) error {
	if err := validateAnchor(anchor); err != nil {
		return err
	}
	return insertEvidenceOn(idx.db, anchor, fragment)
}

func insertEvidenceOn(ex execer, anchor string, fragment EvidenceFragmentRef) error {
	if err := validateAnchor(anchor); err != nil {
		return err
	}
	_, err := ex.Exec(
		`INSERT OR IGNORE INTO evidence (anchor, tape_id, event_offset, kind, file_path, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		anchor, fragment.TapeID, fragment.EventOffset, encodeEvidenceKind(fragment.Kind),
		fragment.FilePath, fragment.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert evidence: %w", err)
	}
	return nil
}

// InsertEdge records an edge between two anchors, deriving its stored class
// from confidence and agent_link. Re-inserting an identical row is a no-op.
func (idx *Index) InsertEdge(edge SpanEdge, linkThreshold float32) error {
	if err := validateAnchor(edge.FromAnchor); err != nil {
		return err
	}
	if err := validateAnchor(edge.ToAnchor); err != nil {
		return err
	}
	return insertEdgeOn(idx.db, edge, linkThreshold)
}

func insertEdgeOn(ex execer, edge SpanEdge, linkThreshold float32) error {
	if err := validateAnchor(edge.FromAnchor); err != nil {
		return err
	}
	if err := validateAnchor(edge.ToAnchor); err != nil {
		return err
	}
	agentLink := 0
	if edge.AgentLink {
		agentLink = 1
	}
	_, err := ex.Exec(
		`INSERT OR IGNORE INTO edges (
			from_anchor, to_anchor, confidence, location_delta, cardinality,
			agent_link, note, stored_class
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		edge.FromAnchor, edge.ToAnchor, edge.Confidence, encodeLocationDelta(edge.LocationDelta),
		encodeCardinality(edge.Cardinality), agentLink, edge.Note,
		encodeStoredClass(edge.StoredClass(linkThreshold)),
	)
	if err != nil {
		return fmt.Errorf("insert edge: %w", err)
	}
	return nil
}

// InsertTombstone records a span's deletion, one row per anchor hash it
// ever carried.
func (idx *Index) InsertTombstone(tombstone Tombstone) error {
	return insertTombstoneOn(idx.db, tombstone)
}

func insertTombstoneOn(ex execer, tombstone Tombstone) error {
	for _, anchor := range tombstone.AnchorHashes {
		if err := validateAnchor(anchor); err != nil {
			return err
		}
		_, err := ex.Exec(
			`INSERT OR IGNORE INTO tombstones (
				anchor, tape_id, event_offset, file_path, range_start, range_end, timestamp
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			anchor, tombstone.TapeID, tombstone.EventOffset, tombstone.FilePath,
			tombstone.RangeAtDeletion.Start, tombstone.RangeAtDeletion.End, tombstone.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert tombstone: %w", err)
		}
	}
	return nil
}

// EvidenceForAnchor returns every evidence row for anchor, oldest first.
func (idx *Index) EvidenceForAnchor(anchor string) ([]EvidenceFragmentRef, error) {
	rows, err := idx.db.Query(
		`SELECT tape_id, event_offset, kind, file_path, timestamp
		 FROM evidence
		 WHERE anchor = ?
		 ORDER BY timestamp ASC, tape_id ASC, event_offset ASC`,
		anchor,
	)
	if err != nil {
		return nil, fmt.Errorf("query evidence for anchor: %w", err)
	}
	defer rows.Close()

	var out []EvidenceFragmentRef
	for rows.Next() {
		var ref EvidenceFragmentRef
		var kind string
		if err := rows.Scan(&ref.TapeID, &ref.EventOffset, &kind, &ref.FilePath, &ref.Timestamp); err != nil {
			return nil, fmt.Errorf("scan evidence row: %w", err)
		}
		ref.Kind = decodeEvidenceKind(kind)
		out = append(out, ref)
	}
	return out, rows.Err()
}

func (idx *Index) queryEdges(anchorColumn, anchor string, minConfidence float32, includeForensics bool) ([]EdgeRow, error) {
	rows, err := idx.db.Query(
		fmt.Sprintf(`SELECT from_anchor, to_anchor, confidence, location_delta, cardinality,
		        agent_link, note, stored_class
		 FROM edges
		 WHERE %s = ?
		 ORDER BY confidence DESC`, anchorColumn),
		anchor,
	)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	var out []EdgeRow
	for rows.Next() {
		var row EdgeRow
		var locationDelta, cardinality, storedClass string
		var agentLink int
		if err := rows.Scan(
			&row.FromAnchor, &row.ToAnchor, &row.Confidence, &locationDelta, &cardinality,
			&agentLink, &row.Note, &storedClass,
		); err != nil {
			return nil, fmt.Errorf("scan edge row: %w", err)
		}
		row.LocationDelta = decodeLocationDelta(locationDelta)
		row.Cardinality = decodeCardinality(cardinality)
		row.AgentLink = agentLink != 0
		row.StoredClass = decodeStoredClass(storedClass)

		if !includeForensics && !row.AgentLink &&
			(row.StoredClass == LocationOnly || row.Confidence < minConfidence) {
			continue
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// OutboundEdges returns edges leaving fromAnchor, confidence descending,
// filtered to the visibility rule unless includeForensics is set.
func (idx *Index) OutboundEdges(fromAnchor string, minConfidence float32, includeForensics bool) ([]EdgeRow, error) {
	return idx.queryEdges("from_anchor", fromAnchor, minConfidence, includeForensics)
}

// InboundEdges returns edges arriving at toAnchor, confidence descending,
// filtered to the visibility rule unless includeForensics is set.
func (idx *Index) InboundEdges(toAnchor string, minConfidence float32, includeForensics bool) ([]EdgeRow, error) {
	return idx.queryEdges("to_anchor", toAnchor, minConfidence, includeForensics)
}

// TombstonesForAnchor returns every deletion recorded for anchor, ordered by
// event offset ascending.
func (idx *Index) TombstonesForAnchor(anchor string) ([]Tombstone, error) {
	rows, err := idx.db.Query(
		`SELECT tape_id, event_offset, file_path, range_start, range_end, timestamp
		 FROM tombstones
		 WHERE anchor = ?
		 ORDER BY event_offset ASC`,
		anchor,
	)
	if err != nil {
		return nil, fmt.Errorf("query tombstones for anchor: %w", err)
	}
	defer rows.Close()

	var out []Tombstone
	for rows.Next() {
		t := Tombstone{AnchorHashes: []string{anchor}}
		if err := rows.Scan(&t.TapeID, &t.EventOffset, &t.FilePath, &t.RangeAtDeletion.Start, &t.RangeAtDeletion.End, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan tombstone row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ReferencedTapeIDs returns the distinct set of tape ids any evidence or
// tombstone row currently points at, for GC. Edges carry no tape_id column,
// so they contribute nothing to this union.
func (idx *Index) ReferencedTapeIDs() (map[string]struct{}, error) {
	rows, err := idx.db.Query(`
		SELECT tape_id FROM evidence
		UNION
		SELECT tape_id FROM tombstones`)
	if err != nil {
		return nil, fmt.Errorf("query referenced tape ids: %w", err)
	}
	defer rows.Close()

	out := map[string]struct{}{}
	for rows.Next() {
		var tapeID string
		if err := rows.Scan(&tapeID); err != nil {
			return nil, fmt.Errorf("scan tape id: %w", err)
		}
		out[tapeID] = struct{}{}
	}
	return out, rows.Err()
}

// HasTape reports whether any evidence or tombstone row already references
// tapeID, i.e. whether the tape has already been folded into the index.
func (idx *Index) HasTape(tapeID string) (bool, error) {
	var count int
	err := idx.db.QueryRow(`
		SELECT COUNT(*) FROM (
			SELECT tape_id FROM evidence WHERE tape_id = ?
			UNION
			SELECT tape_id FROM tombstones WHERE tape_id = ?
		)`, tapeID, tapeID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check tape presence: %w", err)
	}
	return count > 0, nil
}
