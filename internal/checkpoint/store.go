// Package checkpoint persists a run's structured history trace so a
// crashed process can resume a thread's audit trail, grounded on
// v2/session/store.go's SQLSessionService — simplified to a single
// table of JSON-encoded step payloads, since this spec's scope doesn't
// call for the teacher's fully normalized session/app-state/user-state
// schema.
package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kadirpekel/agiloop/agimsg"
)

// Dialect names a supported SQL driver, matching the drivers this
// module imports for side effects in drivers.go.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

const createTableSQLite = `
CREATE TABLE IF NOT EXISTS history_steps (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	thread_id TEXT NOT NULL,
	step_number INTEGER NOT NULL,
	payload TEXT NOT NULL
);`

const createTablePostgres = `
CREATE TABLE IF NOT EXISTS history_steps (
	id SERIAL PRIMARY KEY,
	thread_id TEXT NOT NULL,
	step_number INTEGER NOT NULL,
	payload JSONB NOT NULL
);`

const createTableMySQL = `
CREATE TABLE IF NOT EXISTS history_steps (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	thread_id VARCHAR(255) NOT NULL,
	step_number INT NOT NULL,
	payload JSON NOT NULL
);`

// Store is a SQL-backed HistoryPersister (satisfying
// agimemory.HistoryPersister) plus a loader for resuming a thread.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open opens a database handle for dialect/dsn and ensures the
// history_steps table exists.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// A pooled sqlite3 in-memory database is reset on every new
		// connection; pin the pool to one connection so schema and rows
		// survive across calls.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("checkpoint: ping %s: %w", dialect, err)
	}

	var ddl string
	switch dialect {
	case DialectPostgres:
		ddl = createTablePostgres
	case DialectMySQL:
		ddl = createTableMySQL
	default:
		ddl = createTableSQLite
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("checkpoint: create schema: %w", err)
	}

	return &Store{db: db, dialect: dialect}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the underlying connection is still reachable, used by
// the agent facade's health check when a checkpoint store is configured.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// SaveStep implements agimemory.HistoryPersister.
func (s *Store) SaveStep(ctx context.Context, threadID string, step agimsg.HistoryStep) error {
	payload, err := json.Marshal(step)
	if err != nil {
		return fmt.Errorf("checkpoint: marshal step: %w", err)
	}

	query := "INSERT INTO history_steps (thread_id, step_number, payload) VALUES (?, ?, ?)"
	if s.dialect == DialectPostgres {
		query = "INSERT INTO history_steps (thread_id, step_number, payload) VALUES ($1, $2, $3)"
	}
	if _, err := s.db.ExecContext(ctx, query, threadID, step.StepNumber, string(payload)); err != nil {
		return fmt.Errorf("checkpoint: insert step: %w", err)
	}
	return nil
}

// LoadSteps returns every persisted step for threadID, ordered by step
// number, so a resumed run can rebuild its agent-history trace.
func (s *Store) LoadSteps(ctx context.Context, threadID string) ([]agimsg.HistoryStep, error) {
	query := "SELECT payload FROM history_steps WHERE thread_id = ? ORDER BY step_number ASC"
	if s.dialect == DialectPostgres {
		query = "SELECT payload FROM history_steps WHERE thread_id = $1 ORDER BY step_number ASC"
	}
	rows, err := s.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: query steps: %w", err)
	}
	defer rows.Close()

	var out []agimsg.HistoryStep
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("checkpoint: scan step: %w", err)
		}
		var step agimsg.HistoryStep
		if err := json.Unmarshal([]byte(payload), &step); err != nil {
			return nil, fmt.Errorf("checkpoint: decode step: %w", err)
		}
		out = append(out, step)
	}
	return out, rows.Err()
}
