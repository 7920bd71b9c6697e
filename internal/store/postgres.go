package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/equity-research-cli/internal/db"
	"github.com/sells-group/equity-research-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_run":       `INSERT INTO runs (id, request, stage, started_at) VALUES ($1, $2, $3, $4)`,
	"update_run_stage": `UPDATE runs SET stage = $1 WHERE id = $2`,
	"get_run":          `SELECT id, request, stage, started_at, completed_at FROM runs WHERE id = $1`,
	"insert_error":     `INSERT INTO run_errors (run_id, stage, task, message, at) VALUES ($1, $2, $3, $4, $5)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	request      JSONB NOT NULL,
	stage        TEXT NOT NULL DEFAULT 'planning',
	result       JSONB,
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS artifacts (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	stage      TEXT NOT NULL,
	name       TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS statement_lines (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	statement   TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	label       TEXT NOT NULL,
	current_val DOUBLE PRECISION,
	prior_val   DOUBLE PRECISION,
	is_total    BOOLEAN NOT NULL DEFAULT false,
	PRIMARY KEY (run_id, statement, seq)
);

CREATE TABLE IF NOT EXISTS run_errors (
	run_id  TEXT NOT NULL REFERENCES runs(id),
	stage   TEXT NOT NULL,
	task    TEXT,
	message TEXT NOT NULL,
	at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_stage ON runs(stage);
CREATE INDEX IF NOT EXISTS idx_runs_ticker ON runs((request->>'ticker'));
CREATE INDEX IF NOT EXISTS idx_artifacts_run_id ON artifacts(run_id);
CREATE INDEX IF NOT EXISTS idx_run_errors_run_id ON run_errors(run_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, req model.Request) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal request")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, request, stage, started_at) VALUES ($1, $2, $3, $4)`,
		id, reqJSON, string(model.StagePlanning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Request:   req,
		Stage:     model.StagePlanning,
		StartedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStage(ctx context.Context, runID string, stage model.Stage) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET stage = $1 WHERE id = $2`,
		string(stage), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run %s stage", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, stage model.Stage, result *model.ReportResult) error {
	var resultJSON []byte
	if result != nil {
		raw, err := json.Marshal(result)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal result")
		}
		resultJSON = raw
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET stage = $1, result = $2, completed_at = $3 WHERE id = $4`,
		string(stage), resultJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var r model.Run
	var reqJSON []byte
	var stage string
	var completedAt *time.Time

	err := s.pool.QueryRow(ctx,
		`SELECT id, request, stage, started_at, completed_at FROM runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &reqJSON, &stage, &r.StartedAt, &completedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	if err := json.Unmarshal(reqJSON, &r.Request); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal request")
	}
	r.Stage = model.Stage(stage)
	r.CompletedAt = completedAt

	if r.Artifacts, err = s.ListArtifacts(ctx, runID); err != nil {
		return nil, err
	}
	if r.Errors, err = s.ListErrors(ctx, runID); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) GetRunResult(ctx context.Context, runID string) (*model.ReportResult, error) {
	var resultJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT result FROM runs WHERE id = $1`,
		runID,
	).Scan(&resultJSON)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run result %s", runID)
	}
	if resultJSON == nil {
		return nil, nil
	}

	var result model.ReportResult
	if err := json.Unmarshal(resultJSON, &result); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal result")
	}
	return &result, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, request, stage, started_at, completed_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Stage != "" {
		query += fmt.Sprintf(` AND stage = $%d`, argIdx)
		args = append(args, string(filter.Stage))
		argIdx++
	}
	if filter.Ticker != "" {
		query += fmt.Sprintf(` AND request->>'ticker' = $%d`, argIdx)
		args = append(args, filter.Ticker)
		argIdx++
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var reqJSON []byte
		var stage string
		var completedAt *time.Time

		if err := rows.Scan(&r.ID, &reqJSON, &stage, &r.StartedAt, &completedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if err := json.Unmarshal(reqJSON, &r.Request); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal request")
		}
		r.Stage = model.Stage(stage)
		r.CompletedAt = completedAt
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) AppendArtifact(ctx context.Context, runID string, stage model.Stage, name, content string) (*model.Artifact, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	var seq int
	err := s.pool.QueryRow(ctx,
		`INSERT INTO artifacts (id, run_id, stage, name, seq, content, created_at)
		 SELECT $1, $2, $3, $4, COALESCE(MAX(seq), 0) + 1, $5, $6
		 FROM artifacts WHERE run_id = $2 AND stage = $3
		 RETURNING seq`,
		id, runID, string(stage), name, content, now,
	).Scan(&seq)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert artifact for run %s", runID)
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

// AppendArtifacts bulk-inserts a batch of artifacts via COPY, assigning
// sequence numbers per stage in slice order. Used by stages that
// produce all their artifacts at once, like the search fan-out.
func (s *PostgresStore) AppendArtifacts(ctx context.Context, runID string, artifacts []model.Artifact) error {
	if len(artifacts) == 0 {
		return nil
	}

	now := time.Now().UTC()
	seqs := map[model.Stage]int{}
	rows := make([][]any, 0, len(artifacts))
	for _, a := range artifacts {
		seqs[a.Stage]++
		rows = append(rows, []any{
			uuid.New().String(), runID, string(a.Stage), a.Name, seqs[a.Stage], a.Content, now,
		})
	}

	_, err := db.CopyFrom(ctx, s.pool, "artifacts",
		[]string{"id", "run_id", "stage", "name", "seq", "content", "created_at"}, rows)
	return eris.Wrapf(err, "postgres: bulk insert artifacts for run %s", runID)
}

func (s *PostgresStore) ListArtifacts(ctx context.Context, runID string) ([]model.Artifact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, stage, name, seq, content, created_at FROM artifacts
		 WHERE run_id = $1 ORDER BY created_at, seq`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list artifacts")
	}
	defer rows.Close()

	var artifacts []model.Artifact
	for rows.Next() {
		var a model.Artifact
		var stage string
		if err := rows.Scan(&a.ID, &a.RunID, &stage, &a.Name, &a.Seq, &a.Content, &a.Created); err != nil {
			return nil, eris.Wrap(err, "postgres: scan artifact")
		}
		a.Stage = model.Stage(stage)
		artifacts = append(artifacts, a)
	}
	return artifacts, eris.Wrap(rows.Err(), "postgres: list artifacts iterate")
}

// SaveStatementLines upserts the run's statement lines keyed on
// (run_id, statement, seq), so re-running extraction stays idempotent.
func (s *PostgresStore) SaveStatementLines(ctx context.Context, runID string, lines []model.StatementLine) error {
	if len(lines) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []any{runID, l.Statement, l.Seq, l.Label, l.Current, l.Prior, l.IsTotal})
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "statement_lines",
		Columns:      []string{"run_id", "statement", "seq", "label", "current_val", "prior_val", "is_total"},
		ConflictKeys: []string{"run_id", "statement", "seq"},
	}, rows)
	return eris.Wrapf(err, "postgres: save statement lines for run %s", runID)
}

func (s *PostgresStore) ListStatementLines(ctx context.Context, runID string) ([]model.StatementLine, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT statement, seq, label, current_val, prior_val, is_total FROM statement_lines
		 WHERE run_id = $1 ORDER BY statement, seq`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list statement lines")
	}
	defer rows.Close()

	var lines []model.StatementLine
	for rows.Next() {
		var l model.StatementLine
		if err := rows.Scan(&l.Statement, &l.Seq, &l.Label, &l.Current, &l.Prior, &l.IsTotal); err != nil {
			return nil, eris.Wrap(err, "postgres: scan statement line")
		}
		lines = append(lines, l)
	}
	return lines, eris.Wrap(rows.Err(), "postgres: list statement lines iterate")
}

func (s *PostgresStore) AppendError(ctx context.Context, runID string, runErr model.RunError) error {
	at := runErr.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO run_errors (run_id, stage, task, message, at) VALUES ($1, $2, $3, $4, $5)`,
		runID, string(runErr.Stage), runErr.Task, runErr.Message, at,
	)
	return eris.Wrapf(err, "postgres: insert error for run %s", runID)
}

func (s *PostgresStore) ListErrors(ctx context.Context, runID string) ([]model.RunError, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT stage, task, message, at FROM run_errors WHERE run_id = $1 ORDER BY at`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list errors")
	}
	defer rows.Close()

	var errs []model.RunError
	for rows.Next() {
		var e model.RunError
		var stage string
		if err := rows.Scan(&stage, &e.Task, &e.Message, &e.At); err != nil {
			return nil, eris.Wrap(err, "postgres: scan error")
		}
		e.Stage = model.Stage(stage)
		errs = append(errs, e)
	}
	return errs, eris.Wrap(rows.Err(), "postgres: list errors iterate")
}
