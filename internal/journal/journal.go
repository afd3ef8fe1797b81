// Package journal keeps a local history of provisioning runs in a SQLite
// database so operators can see what was launched, when, and how it ended.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ls-github123/openai-chat-deploy/internal/constants"
)

// Outcome values for a recorded run.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Run is one recorded provisioning run.
type Run struct {
	ID         string
	Stack      string
	Command    string // up, down, render
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    string
	Error      string
}

// Journal is a SQLite-backed run log.
type Journal struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	stack       TEXT NOT NULL,
	command     TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	outcome     TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at DESC);
`

// Open opens (creating if needed) the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// DefaultPath returns the journal location under the user home directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, constants.DefaultJournalFile), nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores a completed run.
func (j *Journal) Record(ctx context.Context, run Run) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, stack, command, started_at, finished_at, outcome, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Stack, run.Command,
		run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(),
		run.Outcome, run.Error)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, stack, command, started_at, finished_at, outcome, error
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started, finished int64
		if err := rows.Scan(&run.ID, &run.Stack, &run.Command, &started, &finished, &run.Outcome, &run.Error); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		run.StartedAt = time.UnixMilli(started)
		run.FinishedAt = time.UnixMilli(finished)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal rows: %w", err)
	}
	return runs, nil
}
