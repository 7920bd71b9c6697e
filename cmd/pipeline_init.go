package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/equity-research-cli/internal/pipeline"
	"github.com/sells-group/equity-research-cli/internal/store"
	anthropicpkg "github.com/sells-group/equity-research-cli/pkg/anthropic"
	"github.com/sells-group/equity-research-cli/pkg/edgar"
	"github.com/sells-group/equity-research-cli/pkg/perplexity"
)

// pipelineEnv holds the initialized store, clients, and pipeline needed
// by the run and serve commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline sets up the store and all API clients and builds the
// Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic API key is required (RESEARCH_ANTHROPIC_KEY)")
	}
	if cfg.Perplexity.Key == "" {
		return nil, eris.New("perplexity API key is required (RESEARCH_PERPLEXITY_KEY)")
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
	perplexityClient := perplexity.NewClient(cfg.Perplexity.Key,
		perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
		perplexity.WithModel(cfg.Perplexity.Model),
	)
	connector := edgar.NewConnector(cfg.Edgar.UserAgent,
		edgar.WithBaseURL(cfg.Edgar.BaseURL),
		edgar.WithRateLimit(cfg.Edgar.RateLimit),
	)

	p := pipeline.New(cfg, st, anthropicClient, perplexityClient, connector)

	return &pipelineEnv{Store: st, Pipeline: p}, nil
}
