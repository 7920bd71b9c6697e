package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/equity-research-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	request      TEXT NOT NULL,
	stage        TEXT NOT NULL DEFAULT 'planning',
	result       TEXT,
	started_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at DATETIME
);

CREATE TABLE IF NOT EXISTS artifacts (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	stage      TEXT NOT NULL,
	name       TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	content    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS statement_lines (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	statement   TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	label       TEXT NOT NULL,
	current_val REAL,
	prior_val   REAL,
	is_total    INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, statement, seq)
);

CREATE TABLE IF NOT EXISTS run_errors (
	run_id  TEXT NOT NULL REFERENCES runs(id),
	stage   TEXT NOT NULL,
	task    TEXT,
	message TEXT NOT NULL,
	at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_stage ON runs(stage);
CREATE INDEX IF NOT EXISTS idx_artifacts_run_id ON artifacts(run_id);
CREATE INDEX IF NOT EXISTS idx_run_errors_run_id ON run_errors(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, req model.Request) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal request")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, request, stage, started_at) VALUES (?, ?, ?, ?)`,
		id, string(reqJSON), string(model.StagePlanning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Request:   req,
		Stage:     model.StagePlanning,
		StartedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStage(ctx context.Context, runID string, stage model.Stage) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET stage = ? WHERE id = ?`,
		string(stage), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run %s stage", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, stage model.Stage, result *model.ReportResult) error {
	var resultJSON sql.NullString
	if result != nil {
		raw, err := json.Marshal(result)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal result")
		}
		resultJSON = sql.NullString{String: string(raw), Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET stage = ?, result = ?, completed_at = ? WHERE id = ?`,
		string(stage), resultJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, request, stage, started_at, completed_at FROM runs WHERE id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if err != nil {
		return nil, err
	}

	if r.Artifacts, err = s.ListArtifacts(ctx, runID); err != nil {
		return nil, err
	}
	if r.Errors, err = s.ListErrors(ctx, runID); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *SQLiteStore) GetRunResult(ctx context.Context, runID string) (*model.ReportResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT result FROM runs WHERE id = ?`,
		runID,
	)

	var resultJSON sql.NullString
	err := row.Scan(&resultJSON)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get run result")
	}
	if !resultJSON.Valid {
		return nil, nil
	}

	var result model.ReportResult
	if err := json.Unmarshal([]byte(resultJSON.String), &result); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal result")
	}
	return &result, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, request, stage, started_at, completed_at FROM runs WHERE 1=1`
	var args []any

	if filter.Stage != "" {
		query += ` AND stage = ?`
		args = append(args, string(filter.Stage))
	}
	if filter.Ticker != "" {
		query += ` AND json_extract(request, '$.ticker') = ?`
		args = append(args, filter.Ticker)
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) AppendArtifact(ctx context.Context, runID string, stage model.Stage, name, content string) (*model.Artifact, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	// Seq is assigned per run+stage inside the insert so concurrent
	// appenders never race on a read-then-write.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (id, run_id, stage, name, seq, content, created_at)
		 SELECT ?, ?, ?, ?, COALESCE(MAX(seq), 0) + 1, ?, ?
		 FROM artifacts WHERE run_id = ? AND stage = ?`,
		id, runID, string(stage), name, content, now, runID, string(stage),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert artifact for run %s", runID)
	}

	row := s.db.QueryRowContext(ctx, `SELECT seq FROM artifacts WHERE id = ?`, id)
	var seq int
	if err := row.Scan(&seq); err != nil {
		return nil, eris.Wrap(err, "sqlite: read artifact seq")
	}

	return &model.Artifact{
		ID:      id,
		RunID:   runID,
		Stage:   stage,
		Name:    name,
		Seq:     seq,
		Content: content,
		Created: now,
	}, nil
}

// AppendArtifacts persists a batch of artifacts in one transaction,
// assigning sequence numbers per stage in slice order. It is meant for
// stages that produce all their artifacts at once, like the search
// fan-out.
func (s *SQLiteStore) AppendArtifacts(ctx context.Context, runID string, artifacts []model.Artifact) error {
	if len(artifacts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	seqs := map[model.Stage]int{}
	for _, a := range artifacts {
		seqs[a.Stage]++
		_, err := tx.ExecContext(ctx,
			`INSERT INTO artifacts (id, run_id, stage, name, seq, content, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), runID, string(a.Stage), a.Name, seqs[a.Stage], a.Content, now,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert artifact %s", a.Name)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit artifacts")
}

func (s *SQLiteStore) ListArtifacts(ctx context.Context, runID string) ([]model.Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, stage, name, seq, content, created_at FROM artifacts
		 WHERE run_id = ? ORDER BY created_at, seq`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list artifacts")
	}
	defer rows.Close()

	var artifacts []model.Artifact
	for rows.Next() {
		var a model.Artifact
		var stage string
		if err := rows.Scan(&a.ID, &a.RunID, &stage, &a.Name, &a.Seq, &a.Content, &a.Created); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan artifact")
		}
		a.Stage = model.Stage(stage)
		artifacts = append(artifacts, a)
	}
	return artifacts, eris.Wrap(rows.Err(), "sqlite: list artifacts iterate")
}

// SaveStatementLines replaces any previously saved lines for the run,
// so re-running extraction stays idempotent.
func (s *SQLiteStore) SaveStatementLines(ctx context.Context, runID string, lines []model.StatementLine) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM statement_lines WHERE run_id = ?`, runID); err != nil {
		return eris.Wrapf(err, "sqlite: clear statement lines for run %s", runID)
	}
	for _, l := range lines {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO statement_lines (run_id, statement, seq, label, current_val, prior_val, is_total)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, l.Statement, l.Seq, l.Label, l.Current, l.Prior, l.IsTotal,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert statement line %s", l.Label)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit statement lines")
}

func (s *SQLiteStore) ListStatementLines(ctx context.Context, runID string) ([]model.StatementLine, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT statement, seq, label, current_val, prior_val, is_total FROM statement_lines
		 WHERE run_id = ? ORDER BY statement, seq`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list statement lines")
	}
	defer rows.Close()

	var lines []model.StatementLine
	for rows.Next() {
		var l model.StatementLine
		var current, prior sql.NullFloat64
		if err := rows.Scan(&l.Statement, &l.Seq, &l.Label, &current, &prior, &l.IsTotal); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan statement line")
		}
		if current.Valid {
			v := current.Float64
			l.Current = &v
		}
		if prior.Valid {
			v := prior.Float64
			l.Prior = &v
		}
		lines = append(lines, l)
	}
	return lines, eris.Wrap(rows.Err(), "sqlite: list statement lines iterate")
}

func (s *SQLiteStore) AppendError(ctx context.Context, runID string, runErr model.RunError) error {
	at := runErr.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_errors (run_id, stage, task, message, at) VALUES (?, ?, ?, ?, ?)`,
		runID, string(runErr.Stage), runErr.Task, runErr.Message, at,
	)
	return eris.Wrapf(err, "sqlite: insert error for run %s", runID)
}

func (s *SQLiteStore) ListErrors(ctx context.Context, runID string) ([]model.RunError, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, task, message, at FROM run_errors WHERE run_id = ? ORDER BY at`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list errors")
	}
	defer rows.Close()

	var errs []model.RunError
	for rows.Next() {
		var e model.RunError
		var stage string
		if err := rows.Scan(&stage, &e.Task, &e.Message, &e.At); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan error")
		}
		e.Stage = model.Stage(stage)
		errs = append(errs, e)
	}
	return errs, eris.Wrap(rows.Err(), "sqlite: list errors iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var reqJSON, stage string
	var completedAt sql.NullTime

	err := row.Scan(&r.ID, &reqJSON, &stage, &r.StartedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan run")
	}

	if err := json.Unmarshal([]byte(reqJSON), &r.Request); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal request")
	}
	r.Stage = model.Stage(stage)
	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	return &r, nil
}
