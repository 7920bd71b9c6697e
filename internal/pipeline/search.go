package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/equity-research-cli/internal/model"
	"github.com/sells-group/equity-research-cli/internal/resilience"
)

// search fans the planned queries out to the search provider with
// bounded concurrency. A task whose retries are exhausted is recorded
// on the run and dropped; it never aborts the batch.
func (p *Pipeline) search(ctx context.Context, runID string, tasks []model.SearchTask, record recordFunc) []model.SearchResult {
	slots := make([]*model.SearchResult, len(tasks))

	g := new(errgroup.Group)
	g.SetLimit(p.cfg.Pipeline.MaxConcurrentSearch)

	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			content, err := p.searchOne(ctx, task.Query)
			if err != nil {
				record(model.StageSearching, task.Query, err.Error())
				return nil
			}
			slots[i] = &model.SearchResult{Task: task, Content: content}
			return nil
		})
	}
	_ = g.Wait()

	// Compact in plan order.
	results := make([]model.SearchResult, 0, len(tasks))
	artifacts := make([]model.Artifact, 0, len(tasks))
	for i, r := range slots {
		if r == nil {
			continue
		}
		results = append(results, *r)
		artifacts = append(artifacts, model.Artifact{
			Stage:   model.StageSearching,
			Name:    fmt.Sprintf("search_%02d", i+1),
			Content: marshalJSON(r),
		})
	}

	if err := p.store.AppendArtifacts(ctx, runID, artifacts); err != nil {
		zap.L().Warn("search: failed to persist search artifacts",
			zap.String("run_id", runID), zap.Error(err))
	}

	zap.L().Info("search: fan-out complete",
		zap.Int("planned", len(tasks)),
		zap.Int("succeeded", len(results)),
	)
	return results
}

// searchOne runs a single query through the circuit breaker with the
// configured retry policy and per-call timeout. Timeouts count as
// transient; an open circuit stops retries immediately.
func (p *Pipeline) searchOne(ctx context.Context, query string) (string, error) {
	retryCfg := resilience.RetryConfig{
		MaxAttempts:    p.cfg.Pipeline.SearchRetries,
		InitialBackoff: p.cfg.Pipeline.SearchBackoff(),
		Multiplier:     2.0,
		OnRetry:        resilience.RetryLogger("perplexity", "search"),
	}

	return resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, p.cfg.Pipeline.CallTimeout())
		defer cancel()

		return resilience.ExecuteVal(callCtx, p.breaker, func(ctx context.Context) (string, error) {
			return p.perplexity.Search(ctx, query)
		})
	})
}
