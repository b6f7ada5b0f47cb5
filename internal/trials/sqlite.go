package trials

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	mode        TEXT NOT NULL,
	header      TEXT NOT NULL,
	started_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trials (
	run_id      TEXT NOT NULL,
	ordinal     INTEGER NOT NULL,
	fields_json TEXT NOT NULL,
	v_r         REAL NOT NULL,
	v_g         REAL NOT NULL,
	v_b         REAL NOT NULL,
	created_at  TEXT NOT NULL,
	PRIMARY KEY (run_id, ordinal),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// SQLite stores each record in its own transaction, keyed by run id.
type SQLite struct {
	db    *sql.DB
	runID string
}

// OpenSQLite opens (or creates) the database at path and migrates it.
func OpenSQLite(path, runID string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// pragmas are per connection; keep the pool to the one they are set on
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLite{db: db, runID: runID}, nil
}

func (s *SQLite) Begin(sc Schema) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, mode, header, started_at) VALUES (?, ?, ?, ?)`,
		s.runID, sc.Mode, strings.Join(sc.Header(), ","), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *SQLite) Append(sc Schema, r Record) error {
	if len(r.Fields) != len(sc.Columns) {
		return fmt.Errorf("%w: got %d, want %d", ErrFieldCount, len(r.Fields), len(sc.Columns))
	}
	fields := make(map[string]float64, len(r.Fields))
	for i, c := range sc.Columns {
		fields[c.Name] = r.Fields[i]
	}
	fj, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO trials (run_id, ordinal, fields_json, v_r, v_g, v_b, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.runID, r.Ordinal, string(fj), r.Output.R, r.Output.G, r.Output.B,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert trial: %w", err)
	}
	return tx.Commit()
}

// Count returns the number of trials stored for this run.
func (s *SQLite) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM trials WHERE run_id = ?`, s.runID).Scan(&n)
	return n, err
}

// Output returns the sampled colour logged for ordinal.
func (s *SQLite) Output(ordinal int) (r, g, b float64, err error) {
	err = s.db.QueryRow(
		`SELECT v_r, v_g, v_b FROM trials WHERE run_id = ? AND ordinal = ?`, s.runID, ordinal,
	).Scan(&r, &g, &b)
	return
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
