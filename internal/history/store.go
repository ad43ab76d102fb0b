// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history archives finished reflexion runs in SQLite so that past
// answers can be listed, searched, and exported. The loop itself keeps no
// state between runs; the CLI saves a RunRecord after each one.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/reflexion-engine/pkg/types"
)

const dbFile = "history.db"

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when no run matches an ID.
var ErrNotFound = errors.New("run not found")

// Store manages the history SQLite database.
type Store struct {
	db         *sql.DB
	dir        string
	maxResults int
}

// NewStore opens or creates the history database at dir/history.db and
// creates the schema if it does not exist.
func NewStore(cfg types.HistoryConfig) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("history directory is not configured")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, dir: cfg.Dir, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the directory holding the database.
func (s *Store) Dir() string { return s.dir }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			refs TEXT NOT NULL,
			iterations INTEGER NOT NULL,
			max_iterations INTEGER NOT NULL,
			status TEXT NOT NULL,
			error TEXT,
			model TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save archives rec and returns it with its ID and CreatedAt filled in.
// An existing record with the same ID is replaced.
func (s *Store) Save(ctx context.Context, rec types.RunRecord) (types.RunRecord, error) {
	if strings.TrimSpace(rec.Question) == "" {
		return rec, fmt.Errorf("run record has no question")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Status == "" {
		rec.Status = types.RunCompleted
	}
	if rec.References == nil {
		rec.References = []string{}
	}

	refsJSON, err := json.Marshal(rec.References)
	if err != nil {
		return rec, fmt.Errorf("marshaling references: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, question, answer, refs, iterations, max_iterations, status, error, model, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			question=excluded.question, answer=excluded.answer, refs=excluded.refs,
			iterations=excluded.iterations, max_iterations=excluded.max_iterations,
			status=excluded.status, error=excluded.error, model=excluded.model,
			created_at=excluded.created_at`,
		rec.ID, rec.Question, rec.Answer, string(refsJSON), rec.Iterations, rec.MaxIterations,
		string(rec.Status), rec.Error, rec.Model, rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return rec, fmt.Errorf("inserting run %s: %w", rec.ID, err)
	}
	return rec, nil
}

const selectRuns = `SELECT id, question, answer, refs, iterations, max_iterations, status, error, model, created_at FROM runs`

// Get returns the run with the given ID. A unique ID prefix (at least four
// characters) also matches, as printed by List.
func (s *Store) Get(ctx context.Context, id string) (types.RunRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return types.RunRecord{}, fmt.Errorf("%w: empty id", ErrNotFound)
	}

	recs, err := s.query(ctx, selectRuns+` WHERE id = ?`, id)
	if err != nil {
		return types.RunRecord{}, err
	}
	if len(recs) == 1 {
		return recs[0], nil
	}
	if len(id) < 4 {
		return types.RunRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	recs, err = s.query(ctx, selectRuns+` WHERE id LIKE ? ESCAPE '\' LIMIT 2`, escapeLike(id)+"%")
	if err != nil {
		return types.RunRecord{}, err
	}
	switch len(recs) {
	case 0:
		return types.RunRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return recs[0], nil
	default:
		return types.RunRecord{}, fmt.Errorf("id prefix %q is ambiguous", id)
	}
}

// List returns the most recent runs, newest first. A limit of zero uses
// the configured default.
func (s *Store) List(ctx context.Context, limit int) ([]types.RunRecord, error) {
	if limit <= 0 {
		limit = s.maxResults
	}
	return s.query(ctx, selectRuns+` ORDER BY created_at DESC, id LIMIT ?`, limit)
}

// Search returns runs whose question or answer contains term
// (case-insensitive for ASCII), newest first.
func (s *Store) Search(ctx context.Context, term string, limit int) ([]types.RunRecord, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("search term is empty")
	}
	if limit <= 0 {
		limit = s.maxResults
	}
	pattern := "%" + escapeLike(term) + "%"
	return s.query(ctx,
		selectRuns+` WHERE question LIKE ? ESCAPE '\' OR answer LIKE ? ESCAPE '\' ORDER BY created_at DESC, id LIMIT ?`,
		pattern, pattern, limit)
}

// Delete removes the run with the given ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]types.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var recs []types.RunRecord
	for rows.Next() {
		var (
			rec       types.RunRecord
			refsJSON  string
			status    string
			errMsg    sql.NullString
			model     sql.NullString
			createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.Question, &rec.Answer, &refsJSON, &rec.Iterations,
			&rec.MaxIterations, &status, &errMsg, &model, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if err := json.Unmarshal([]byte(refsJSON), &rec.References); err != nil {
			return nil, fmt.Errorf("decoding references of run %s: %w", rec.ID, err)
		}
		rec.Status = types.RunStatus(status)
		rec.Error = errMsg.String
		rec.Model = model.String
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			rec.CreatedAt = t
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// escapeLike escapes LIKE wildcards so user terms match literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
