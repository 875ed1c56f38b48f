package tuner

import (
	"database/sql"
	"fmt"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
)

// Recorder stores every candidate a sweep evaluates.
type Recorder interface {
	RecordCandidate(c Candidate) error
	Close() error
}

// NopRecorder discards candidates.
type NopRecorder struct{}

func (NopRecorder) RecordCandidate(Candidate) error { return nil }
func (NopRecorder) Close() error                    { return nil }

const createCandidatesSQL = `CREATE TABLE IF NOT EXISTS candidates (
	run_id    TEXT NOT NULL,
	seq       INTEGER NOT NULL,
	trace     TEXT NOT NULL,
	metric    TEXT NOT NULL,
	target    REAL NOT NULL,
	s         INTEGER NOT NULL,
	e         INTEGER NOT NULL,
	b         INTEGER NOT NULL,
	hits      INTEGER NOT NULL,
	misses    INTEGER NOT NULL,
	evictions INTEGER NOT NULL,
	rate      REAL NOT NULL,
	accepted  INTEGER NOT NULL,
	error     TEXT NOT NULL
);`

const insertCandidateSQL = `INSERT INTO candidates
	(run_id, seq, trace, metric, target, s, e, b, hits, misses, evictions, rate, accepted, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SQLiteRecorder writes candidates into a SQLite database, one row each,
// tagged with a per-sweep run ID. Several sweeps may share a file.
type SQLiteRecorder struct {
	db    *sql.DB
	stmt  *sql.Stmt
	runID string
	seq   int
}

// NewSQLiteRecorder opens (or creates) the database at path.
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening sweep database: %w", err)
	}
	if _, err := db.Exec(createCandidatesSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating candidates table: %w", err)
	}
	stmt, err := db.Prepare(insertCandidateSQL)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("preparing candidate insert: %w", err)
	}
	return &SQLiteRecorder{db: db, stmt: stmt, runID: xid.New().String()}, nil
}

// RunID identifies the rows written by this recorder.
func (r *SQLiteRecorder) RunID() string {
	return r.runID
}

func (r *SQLiteRecorder) RecordCandidate(c Candidate) error {
	r.seq++
	errText := ""
	if c.Err != nil {
		errText = c.Err.Error()
	}
	_, err := r.stmt.Exec(r.runID, r.seq, c.Trace, c.Metric.String(), c.Target,
		c.Geometry.SetBits, c.Geometry.Ways, c.Geometry.BlockBits,
		c.Stats.Hits, c.Stats.Misses, c.Stats.Evictions, c.Rate, c.Accepted, errText)
	if err != nil {
		return fmt.Errorf("recording candidate %s: %w", c.Geometry, err)
	}
	return nil
}

func (r *SQLiteRecorder) Close() error {
	_ = r.stmt.Close()
	return r.db.Close()
}
