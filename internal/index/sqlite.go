package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// EdgeRow is an edge as returned from a query, with its stored class
// resolved from the row rather than recomputed.
type EdgeRow struct {
	FromAnchor    string
	ToAnchor      string
	Confidence    float32
	LocationDelta LocationDelta
	Cardinality   Cardinality
	AgentLink     bool
	Note          string
	StoredClass   StoredEdgeClass
}

// Index is the embedded lineage store backed by SQLite.
type Index struct {
	db *sql.DB
}

// Open opens (creating if necessary) the lineage database at path and
// brings its schema up to date.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite index: %w", err)
	}
	idx := &Index{db: db}
	if err := idx.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

// OpenInMemory opens a private in-memory index, mainly for tests.
func OpenInMemory() (*Index, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory sqlite index: %w", err)
	}
	idx := &Index{db: db}
	if err := idx.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

// Close releases the underlying database handle.
func (idx *Index) Close() error {
	return idx.db.Close()
}

func (idx *Index) initSchema() error {
	if _, err := idx.db.Exec(`
		PRAGMA foreign_keys = ON;
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = FULL;
	`); err != nil {
		return fmt.Errorf("set pragmas: %w", err)
	}

	var version int64
	if err := idx.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	legacy, err := idx.tableExists("evidence")
	if err != nil {
		return err
	}

	switch {
	case version == 0 && legacy:
		return idx.migrateLegacySchemaToV1()
	case version == 0:
		if err := idx.createSchemaV1(); err != nil {
			return err
		}
		_, err := idx.db.Exec("PRAGMA user_version = 1;")
		return err
	case version == 1:
		return idx.createSchemaV1()
	default:
		return fmt.Errorf("unsupported index schema version %d", version)
	}
}

func (idx *Index) tableExists(name string) (bool, error) {
	var count int
	err := idx.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check table %s exists: %w", name, err)
	}
	return count > 0, nil
}

const schemaV1 = `
CREATE TABLE IF NOT EXISTS evidence (
	anchor TEXT NOT NULL,
	tape_id TEXT NOT NULL,
	event_offset INTEGER NOT NULL,
	kind TEXT NOT NULL,
	file_path TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	UNIQUE(anchor, tape_id, event_offset, kind)
);

CREATE INDEX IF NOT EXISTS idx_evidence_anchor ON evidence(anchor);

CREATE TABLE IF NOT EXISTS edges (
	from_anchor TEXT NOT NULL,
	to_anchor TEXT NOT NULL,
	confidence REAL NOT NULL CHECK (confidence >= 0.0 AND confidence <= 1.0),
	location_delta TEXT NOT NULL,
	cardinality TEXT NOT NULL,
	agent_link INTEGER NOT NULL CHECK (agent_link IN (0, 1)),
	note TEXT NOT NULL DEFAULT '',
	stored_class TEXT NOT NULL,
	UNIQUE(from_anchor, to_anchor, confidence, location_delta, cardinality, agent_link, note, stored_class)
);

CREATE INDEX IF NOT EXISTS idx_edges_from_anchor ON edges(from_anchor);
CREATE INDEX IF NOT EXISTS idx_edges_to_anchor ON edges(to_anchor);

CREATE TABLE IF NOT EXISTS tombstones (
	anchor TEXT NOT NULL,
	tape_id TEXT NOT NULL,
	event_offset INTEGER NOT NULL,
	file_path TEXT NOT NULL,
	range_start INTEGER NOT NULL,
	range_end INTEGER NOT NULL,
	timestamp TEXT NOT NULL,
	UNIQUE(anchor, tape_id, event_offset)
);

CREATE INDEX IF NOT EXISTS idx_tombstones_anchor ON tombstones(anchor);
`

func (idx *Index) createSchemaV1() error {
	if _, err := idx.db.Exec(schemaV1); err != nil {
		return fmt.Errorf("create schema v1: %w", err)
	}
	return nil
}

func (idx *Index) migrateLegacySchemaToV1() error {
	if _, err := idx.db.Exec(`
		ALTER TABLE evidence RENAME TO evidence_legacy;
		ALTER TABLE edges RENAME TO edges_legacy;
		ALTER TABLE tombstones RENAME TO tombstones_legacy;
	`); err != nil {
		return fmt.Errorf("rename legacy tables: %w", err)
	}

	if err := idx.createSchemaV1(); err != nil {
		return err
	}

	if _, err := idx.db.Exec(`
		INSERT OR IGNORE INTO evidence (anchor, tape_id, event_offset, kind, file_path, timestamp)
		SELECT anchor, tape_id, event_offset, kind, file_path, timestamp
		FROM evidence_legacy;

		INSERT OR IGNORE INTO edges (
			from_anchor, to_anchor, confidence, location_delta, cardinality,
			agent_link, note, stored_class
		)
		SELECT
			from_anchor,
			to_anchor,
			confidence,
			location_delta,
			cardinality,
			agent_link,
			COALESCE(note, ''),
			stored_class
		FROM edges_legacy;

		INSERT OR IGNORE INTO tombstones (
			anchor, tape_id, event_offset, file_path, range_start, range_end, timestamp
		)
		SELECT anchor, tape_id, event_offset, file_path, range_start, range_end, timestamp
		FROM tombstones_legacy;

		DROP TABLE evidence_legacy;
		DROP TABLE edges_legacy;
		DROP TABLE tombstones_legacy;
	`); err != nil {
		return fmt.Errorf("copy legacy rows into schema v1: %w", err)
	}

	if _, err := idx.db.Exec("PRAGMA user_version = 1;"); err != nil {
		return fmt.Errorf("set schema version after migration: %w", err)
	}
	return nil
}
