// Package history keeps a local SQLite log of comparison runs.
//
// The service owns files and scores; history only remembers what this
// client asked for and what came back, so the last outcome can be shown
// again after a restart.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/abelbrown/codesim/internal/compare"
	"github.com/abelbrown/codesim/internal/score"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

// Run is one recorded comparison.
type Run struct {
	ID         string
	Mode       compare.Mode
	TargetID   int64
	OtherIDs   []int64
	Filters    compare.Filters
	Score      *float64 // pairwise only
	Results    []compare.Classified
	Err        string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Failed reports whether the run ended in an error.
func (r Run) Failed() bool { return r.Err != "" }

// Outcome rebuilds the presentation outcome of a successful run.
func (r Run) Outcome() compare.Outcome {
	out := compare.Outcome{
		RunID:    r.ID,
		Mode:     r.Mode,
		Results:  r.Results,
		Started:  r.StartedAt,
		Finished: r.FinishedAt,
	}
	if r.Score != nil {
		out.Score = *r.Score
		out.ScoreTier, _ = score.Classify(*r.Score)
	}
	return out
}

// runRow is the table layout.
type runRow struct {
	ID         string          `db:"id"`
	Mode       string          `db:"mode"`
	TargetID   int64           `db:"target_id"`
	OtherIDs   string          `db:"other_ids"`
	Language   string          `db:"language"`
	MinSim     float64         `db:"min_similarity"`
	Score      sql.NullFloat64 `db:"score"`
	Results    string          `db:"results"`
	Err        string          `db:"err"`
	StartedAt  time.Time       `db:"started_at"`
	FinishedAt time.Time       `db:"finished_at"`
}

// Store persists runs. Safe for concurrent use.
type Store struct {
	db *sqlx.DB
	mu sync.RWMutex
}

var _ compare.Recorder = (*Store)(nil)

// Open opens or creates the history database at path. ":memory:" keeps
// everything in a single in-process connection.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		target_id INTEGER NOT NULL,
		other_ids TEXT NOT NULL DEFAULT '[]',
		language TEXT NOT NULL DEFAULT '',
		min_similarity REAL NOT NULL DEFAULT 0,
		score REAL,
		results TEXT NOT NULL DEFAULT '[]',
		err TEXT NOT NULL DEFAULT '',
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Record stores a finished run. runErr is nil for a successful run.
func (s *Store) Record(ctx context.Context, req compare.Request, out compare.Outcome, runErr error) error {
	row := runRow{
		ID:         out.RunID,
		Mode:       req.Mode().String(),
		StartedAt:  out.Started,
		FinishedAt: out.Finished,
	}

	var others []int64
	switch r := req.(type) {
	case compare.PairwiseRequest:
		row.TargetID = r.A
		others = []int64{r.B}
		if runErr == nil {
			row.Score = sql.NullFloat64{Float64: out.Score, Valid: true}
		}
	case compare.AgainstAllRequest:
		row.TargetID = r.FileID
		row.Language = r.Filters.Language
		row.MinSim = r.Filters.MinSimilarity
	case compare.BatchRequest:
		row.TargetID = r.TargetID
		others = r.OtherIDs
		row.Language = r.Filters.Language
		row.MinSim = r.Filters.MinSimilarity
	default:
		return fmt.Errorf("record run: unknown request %T", req)
	}
	if runErr != nil {
		row.Err = runErr.Error()
	}

	ids, err := json.Marshal(nonNil(others))
	if err != nil {
		return fmt.Errorf("record run: encode ids: %w", err)
	}
	row.OtherIDs = string(ids)

	results, err := json.Marshal(nonNil(out.Results))
	if err != nil {
		return fmt.Errorf("record run: encode results: %w", err)
	}
	row.Results = string(results)

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO runs (
			id, mode, target_id, other_ids, language, min_similarity,
			score, results, err, started_at, finished_at
		) VALUES (
			:id, :mode, :target_id, :other_ids, :language, :min_similarity,
			:score, :results, :err, :started_at, :finished_at
		)`, row)
	if err != nil {
		return fmt.Errorf("record run %s: %w", row.ID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []runRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, mode, target_id, other_ids, language, min_similarity,
			score, results, err, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	runs := make([]Run, 0, len(rows))
	for _, r := range rows {
		run, err := r.decode()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// LastSuccess returns the newest run that did not fail.
func (s *Store) LastSuccess(ctx context.Context) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var row runRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, mode, target_id, other_ids, language, min_similarity,
			score, results, err, started_at, finished_at
		FROM runs
		WHERE err = ''
		ORDER BY started_at DESC
		LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("query last run: %w", err)
	}
	return row.decode()
}

// Get returns one run by id.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var row runRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, mode, target_id, other_ids, language, min_similarity,
			score, results, err, started_at, finished_at
		FROM runs
		WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("query run %s: %w", id, err)
	}
	return row.decode()
}

func (r runRow) decode() (Run, error) {
	mode, err := compare.ParseMode(r.Mode)
	if err != nil {
		return Run{}, fmt.Errorf("run %s: %w", r.ID, err)
	}
	run := Run{
		ID:         r.ID,
		Mode:       mode,
		TargetID:   r.TargetID,
		Filters:    compare.Filters{Language: r.Language, MinSimilarity: r.MinSim},
		Err:        r.Err,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
	if r.Score.Valid {
		v := r.Score.Float64
		run.Score = &v
	}
	if err := json.Unmarshal([]byte(r.OtherIDs), &run.OtherIDs); err != nil {
		return Run{}, fmt.Errorf("run %s: decode ids: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Results), &run.Results); err != nil {
		return Run{}, fmt.Errorf("run %s: decode results: %w", r.ID, err)
	}
	return run, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
