package model

import (
	"time"
)

// Stage represents the orchestrator's position in the research pipeline.
// Stages advance strictly in order; each is entered at most once per run.
type Stage string

const (
	StagePlanning     Stage = "planning"
	StageSearching    Stage = "searching"
	StageExtracting   Stage = "extracting"
	StageAnalyzing    Stage = "analyzing"
	StageSynthesizing Stage = "synthesizing"
	StageVerifying    Stage = "verifying"
	StageDone         Stage = "done"
	StageFailed       Stage = "failed"
)

// Terminal reports whether the stage is a terminal state.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// Request identifies the company a report is requested for.
type Request struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name,omitempty"`
	Focus  string `json:"focus,omitempty"` // optional angle, e.g. "credit quality"
}

// Run represents a single research run for one request.
// The orchestrator is the sole writer of a Run; other components only
// ever see read-only snapshots.
type Run struct {
	ID          string     `json:"id"`
	Request     Request    `json:"request"`
	Stage       Stage      `json:"stage"`
	Artifacts   []Artifact `json:"artifacts,omitempty"`
	Errors      []RunError `json:"errors,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Artifact is a named, immutable blob produced by a pipeline stage.
// Seq orders artifacts within a stage.
type Artifact struct {
	ID      string    `json:"id"`
	RunID   string    `json:"run_id"`
	Stage   Stage     `json:"stage"`
	Name    string    `json:"name"`
	Seq     int       `json:"seq"`
	Content string    `json:"content"`
	Created time.Time `json:"created_at"`
}

// RunError records a non-fatal (degrading) failure attached to a run.
type RunError struct {
	Stage   Stage     `json:"stage"`
	Task    string    `json:"task,omitempty"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// ReportResult is the final output of a completed pipeline run.
type ReportResult struct {
	RunID            string     `json:"run_id"`
	Request          Request    `json:"request"`
	Report           string     `json:"report"`
	VerificationNote string     `json:"verification_note,omitempty"`
	Sector           string     `json:"sector,omitempty"`
	Errors           []RunError `json:"errors,omitempty"`
	TotalTokens      int64      `json:"total_tokens"`
	EstimatedCostUSD float64    `json:"estimated_cost_usd,omitempty"`
	DurationMS       int64      `json:"duration_ms"`
}

// TokenUsage tracks token consumption across narrative calls.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Add accumulates usage from another measurement.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Total returns combined input and output tokens.
func (u TokenUsage) Total() int64 {
	return u.InputTokens + u.OutputTokens
}
