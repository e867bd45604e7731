// Package girstore exports flat GIR streams to a SQLite table, one row per
// record, grouped by export run and function.
package girstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/raymyers/ralph-gir/pkg/linearize"
)

// Store is a SQLite database of exported streams.
type Store struct {
	db *sql.DB
}

// Run is one export, typically one input file.
type Run struct {
	ID        string
	Source    string
	CreatedAt time.Time
}

// Open opens or creates the database at path and its schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if err := createSchemas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}
	return &Store{db: db}, nil
}

func createSchemas(db *sql.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS records (
			run_id TEXT NOT NULL,
			function TEXT NOT NULL,
			seq INTEGER NOT NULL,
			operation TEXT NOT NULL,
			stmt_id INTEGER NOT NULL,
			parent_stmt_id INTEGER,
			fields TEXT NOT NULL,
			PRIMARY KEY (run_id, function, seq),
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_records_stmt ON records(run_id, function, stmt_id);`,
		`CREATE INDEX IF NOT EXISTS idx_records_operation ON records(operation);`,
	}
	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun records a new export of source and returns it.
func (s *Store) BeginRun(ctx context.Context, source string) (Run, error) {
	run := Run{ID: uuid.NewString(), Source: source, CreatedAt: time.Now().UTC()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, source, created_at) VALUES (?, ?, ?)`,
		run.ID, run.Source, run.CreatedAt)
	if err != nil {
		return Run{}, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// Runs lists every export, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, source, created_at FROM runs ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Source, &r.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// SaveFunction stores the stream of one function under runID. The whole
// stream is written in one transaction.
func (s *Store) SaveFunction(ctx context.Context, runID, function string, stream *linearize.Stream) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (run_id, function, seq, operation, stmt_id, parent_stmt_id, fields)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for seq, r := range stream.Records {
		fields, err := encodeFields(r.Fields)
		if err != nil {
			return fmt.Errorf("record %d: %w", r.StmtID, err)
		}
		var parent sql.NullInt64
		if r.IsMarker() {
			parent = sql.NullInt64{Int64: int64(r.ParentStmtID), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, runID, function, seq, r.Operation, r.StmtID, parent, fields); err != nil {
			return fmt.Errorf("failed to insert record %d of %s: %w", r.StmtID, function, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", function, err)
	}
	return nil
}

// Functions lists the functions stored under runID in save order.
func (s *Store) Functions(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT function FROM records WHERE run_id = ? GROUP BY function ORDER BY MIN(rowid) ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list functions: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// LoadFunction reads back the stream saved for function under runID.
func (s *Store) LoadFunction(ctx context.Context, runID, function string) (*linearize.Stream, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT operation, stmt_id, parent_stmt_id, fields FROM records
		WHERE run_id = ? AND function = ? ORDER BY seq ASC
	`, runID, function)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", function, err)
	}
	defer rows.Close()

	var records []linearize.Record
	for rows.Next() {
		var r linearize.Record
		var parent sql.NullInt64
		var fields string
		if err := rows.Scan(&r.Operation, &r.StmtID, &parent, &fields); err != nil {
			return nil, err
		}
		r.ParentStmtID = int(parent.Int64)
		if r.Fields, err = decodeFields(fields); err != nil {
			return nil, fmt.Errorf("record %d of %s: %w", r.StmtID, function, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return linearize.FromRecords(records), nil
}

// encodeFields stores fields as a JSON array of [key, value] pairs so the
// field order survives.
func encodeFields(fields []linearize.Field) (string, error) {
	pairs := make([][2]any, len(fields))
	for i, f := range fields {
		pairs[i] = [2]any{f.Key, f.Value}
	}
	b, err := json.Marshal(pairs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal fields: %w", err)
	}
	return string(b), nil
}

func decodeFields(data string) ([]linearize.Field, error) {
	var pairs [][2]json.RawMessage
	if err := json.Unmarshal([]byte(data), &pairs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
	}
	fields := make([]linearize.Field, 0, len(pairs))
	for _, p := range pairs {
		var key string
		if err := json.Unmarshal(p[0], &key); err != nil {
			return nil, err
		}
		value, err := decodeValue(p[1])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		fields = append(fields, linearize.Field{Key: key, Value: value})
	}
	return fields, nil
}

func decodeValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	switch raw[0] {
	case '"':
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	case '[':
		args := []string{}
		err := json.Unmarshal(raw, &args)
		return args, err
	}
	var id int
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, err
	}
	return id, nil
}
