package store

import (
	"context"

	"github.com/sells-group/equity-research-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Stage  model.Stage `json:"stage,omitempty"`
	Ticker string      `json:"ticker,omitempty"`
	Limit  int         `json:"limit,omitempty"`
	Offset int         `json:"offset,omitempty"`
}

// Store defines the persistence interface for the research pipeline.
// Artifacts and run errors are append-only: once written they are never
// updated or deleted.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, req model.Request) (*model.Run, error)
	UpdateRunStage(ctx context.Context, runID string, stage model.Stage) error
	CompleteRun(ctx context.Context, runID string, stage model.Stage, result *model.ReportResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	GetRunResult(ctx context.Context, runID string) (*model.ReportResult, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Artifacts
	AppendArtifact(ctx context.Context, runID string, stage model.Stage, name, content string) (*model.Artifact, error)
	AppendArtifacts(ctx context.Context, runID string, artifacts []model.Artifact) error
	ListArtifacts(ctx context.Context, runID string) ([]model.Artifact, error)

	// Statement lines (audit trail behind computed ratios)
	SaveStatementLines(ctx context.Context, runID string, lines []model.StatementLine) error
	ListStatementLines(ctx context.Context, runID string) ([]model.StatementLine, error)

	// Run errors
	AppendError(ctx context.Context, runID string, runErr model.RunError) error
	ListErrors(ctx context.Context, runID string) ([]model.RunError, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
