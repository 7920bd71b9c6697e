// Package pipeline orchestrates the research run: planning, search
// fan-out, filing extraction, specialist analysis, synthesis, and
// verification.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/equity-research-cli/internal/config"
	"github.com/sells-group/equity-research-cli/internal/cost"
	"github.com/sells-group/equity-research-cli/internal/model"
	"github.com/sells-group/equity-research-cli/internal/resilience"
	"github.com/sells-group/equity-research-cli/internal/store"
	"github.com/sells-group/equity-research-cli/pkg/anthropic"
	"github.com/sells-group/equity-research-cli/pkg/edgar"
	"github.com/sells-group/equity-research-cli/pkg/perplexity"
)

// recordFunc appends a degrading error to the current run.
type recordFunc func(stage model.Stage, task, message string)

// Pipeline orchestrates the stages of a research run.
type Pipeline struct {
	cfg        *config.Config
	store      store.Store
	anthropic  anthropic.Client
	perplexity perplexity.Client
	edgar      edgar.Connector
	costCalc   *cost.Calculator

	// breaker guards the search provider; repeated upstream failures
	// stop the fan-out from hammering a dead service.
	breaker *resilience.CircuitBreaker
}

// New creates a Pipeline with all dependencies.
func New(
	cfg *config.Config,
	st store.Store,
	aiClient anthropic.Client,
	searchClient perplexity.Client,
	connector edgar.Connector,
) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		store:      st,
		anthropic:  aiClient,
		perplexity: searchClient,
		edgar:      connector,
		costCalc:   cost.NewCalculator(cost.DefaultRates()),
		breaker:    resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig()),
	}
}

// Run executes the full research pipeline for a single request.
//
// Stages advance strictly in order. Failures in PLANNING and
// SYNTHESIZING are fatal; every other stage degrades by recording the
// error on the run and continuing with what it has.
func (p *Pipeline) Run(ctx context.Context, req model.Request) (*model.ReportResult, error) {
	log := zap.L().With(zap.String("ticker", req.Ticker))
	log.Info("pipeline: starting research run")
	start := time.Now()

	run, err := p.store.CreateRun(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	log = log.With(zap.String("run_id", run.ID))

	setStage := func(stage model.Stage) {
		if stageErr := p.store.UpdateRunStage(ctx, run.ID, stage); stageErr != nil {
			log.Warn("pipeline: failed to update stage", zap.Error(stageErr))
		}
		log.Info("pipeline: stage", zap.String("stage", string(stage)))
	}

	// Degrading errors accumulate on the run and never abort it.
	var errsMu sync.Mutex
	var runErrors []model.RunError
	record := func(stage model.Stage, task, message string) {
		e := model.RunError{Stage: stage, Task: task, Message: message, At: time.Now().UTC()}
		errsMu.Lock()
		runErrors = append(runErrors, e)
		errsMu.Unlock()
		if appendErr := p.store.AppendError(ctx, run.ID, e); appendErr != nil {
			log.Warn("pipeline: failed to persist run error", zap.Error(appendErr))
		}
		log.Warn("pipeline: degraded",
			zap.String("stage", string(stage)),
			zap.String("task", task),
			zap.String("error", message),
		)
	}

	var totalUsage model.TokenUsage
	searchCount := 0

	fail := func(stage model.Stage, cause error) (*model.ReportResult, error) {
		if completeErr := p.store.CompleteRun(ctx, run.ID, model.StageFailed, nil); completeErr != nil {
			log.Warn("pipeline: failed to mark run failed", zap.Error(completeErr))
		}
		log.Error("pipeline: run failed", zap.String("stage", string(stage)), zap.Error(cause))
		return nil, cause
	}

	// The filing connector is acquired once per run and released on
	// every exit path. Acquisition failure only degrades extraction.
	conn, connErr := p.edgar.Connect(ctx)
	defer func() {
		if conn == nil {
			return
		}
		if closeErr := conn.Close(); closeErr != nil {
			log.Warn("pipeline: connector close", zap.Error(closeErr))
		}
	}()

	// ===== PLANNING =====
	tasks, planUsage, err := p.plan(ctx, req)
	totalUsage.Add(planUsage)
	if err != nil {
		return fail(model.StagePlanning, eris.Wrap(err, "pipeline: planning"))
	}
	p.appendArtifact(ctx, run.ID, model.StagePlanning, "search_plan", marshalJSON(tasks))

	// ===== SEARCHING =====
	setStage(model.StageSearching)
	searchResults := p.search(ctx, run.ID, tasks, record)
	searchCount += len(searchResults)
	if err := ctx.Err(); err != nil {
		return fail(model.StageSearching, eris.Wrap(err, "pipeline: canceled"))
	}

	// ===== EXTRACTING =====
	setStage(model.StageExtracting)
	if connErr != nil {
		record(model.StageExtracting, req.Ticker, "edgar: connect: "+connErr.Error())
	}
	extraction := p.extract(ctx, run.ID, req, conn, record)
	if err := ctx.Err(); err != nil {
		return fail(model.StageExtracting, eris.Wrap(err, "pipeline: canceled"))
	}

	// ===== ANALYZING =====
	setStage(model.StageAnalyzing)
	toolCalls, analyzeUsage, extraSearches := p.analyze(ctx, run.ID, req, searchResults, extraction, record)
	totalUsage.Add(analyzeUsage)
	searchCount += extraSearches
	if err := ctx.Err(); err != nil {
		return fail(model.StageAnalyzing, eris.Wrap(err, "pipeline: canceled"))
	}

	// ===== SYNTHESIZING =====
	setStage(model.StageSynthesizing)
	report, synthUsage, err := p.synthesize(ctx, run.ID, req, searchResults, extraction, toolCalls)
	totalUsage.Add(synthUsage)
	if err != nil {
		return fail(model.StageSynthesizing, eris.Wrap(err, "pipeline: synthesis"))
	}

	// ===== VERIFYING =====
	setStage(model.StageVerifying)
	verificationNote, verifyUsage := p.verify(ctx, run.ID, req, report, extraction, record)
	totalUsage.Add(verifyUsage)

	// ===== DONE =====
	estCost := p.costCalc.Claude(p.cfg.Anthropic.Model, totalUsage.InputTokens, totalUsage.OutputTokens) +
		p.costCalc.PerplexityQueries(searchCount)

	result := &model.ReportResult{
		RunID:            run.ID,
		Request:          req,
		Report:           report,
		VerificationNote: verificationNote,
		Errors:           runErrors,
		TotalTokens:      totalUsage.Total(),
		EstimatedCostUSD: estCost,
		DurationMS:       time.Since(start).Milliseconds(),
	}
	if extraction != nil {
		result.Sector = string(extraction.Sector)
	}

	if err := p.store.CompleteRun(ctx, run.ID, model.StageDone, result); err != nil {
		log.Warn("pipeline: failed to complete run", zap.Error(err))
	}

	log.Info("pipeline: run complete",
		zap.Int64("total_tokens", result.TotalTokens),
		zap.Float64("estimated_cost_usd", estCost),
		zap.Int("degraded_errors", len(runErrors)),
		zap.Int64("duration_ms", result.DurationMS),
	)
	return result, nil
}

// appendArtifact persists one artifact, logging instead of failing when
// the store write does not go through.
func (p *Pipeline) appendArtifact(ctx context.Context, runID string, stage model.Stage, name, content string) {
	if _, err := p.store.AppendArtifact(ctx, runID, stage, name, content); err != nil {
		zap.L().Warn("pipeline: failed to persist artifact",
			zap.String("run_id", runID),
			zap.String("artifact", name),
			zap.Error(err),
		)
	}
}
