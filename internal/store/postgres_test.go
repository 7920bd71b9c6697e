package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/equity-research-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, request, stage, started_at, completed_at FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRunStage(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET stage = \$1 WHERE id = \$2`).
		WithArgs(string(model.StageSearching), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.UpdateRunStage(context.Background(), "run-1", model.StageSearching))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRunStage_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET stage = \$1 WHERE id = \$2`).
		WithArgs(string(model.StageDone), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateRunStage(context.Background(), "missing", model.StageDone)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	reqJSON, err := json.Marshal(model.Request{Ticker: "JPM"})
	require.NoError(t, err)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, request, stage, started_at, completed_at FROM runs WHERE true AND stage = \$1`).
		WithArgs(string(model.StageDone), 100).
		WillReturnRows(pgxmock.NewRows([]string{"id", "request", "stage", "started_at", "completed_at"}).
			AddRow("run-1", reqJSON, string(model.StageDone), now, (*time.Time)(nil)))

	runs, err := s.ListRuns(context.Background(), RunFilter{Stage: model.StageDone})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "JPM", runs[0].Request.Ticker)
	assert.Equal(t, model.StageDone, runs[0].Stage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendArtifacts_Copy(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"artifacts"},
		[]string{"id", "run_id", "stage", "name", "seq", "content", "created_at"}).
		WillReturnResult(2)

	batch := []model.Artifact{
		{Stage: model.StageSearching, Name: "search_1", Content: "one"},
		{Stage: model.StageSearching, Name: "search_2", Content: "two"},
	}
	require.NoError(t, s.AppendArtifacts(context.Background(), "run-1", batch))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO run_errors`).
		WithArgs("run-1", string(model.StageSearching), "query text", "boom", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.AppendError(context.Background(), "run-1", model.RunError{
		Stage:   model.StageSearching,
		Task:    "query text",
		Message: "boom",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
