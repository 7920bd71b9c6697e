package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/equity-research-cli/internal/config"
	"github.com/sells-group/equity-research-cli/internal/model"
	"github.com/sells-group/equity-research-cli/pkg/anthropic"
)

const (
	minPlannedQueries = 5
	maxPlannedQueries = 15
)

const planSystemPrompt = `You are planning web research for an equity research report.
Given a company, produce between 5 and 15 specific web search queries that together cover:
recent financial performance, segment trends, management guidance, competitive position,
regulatory or legal developments, and anything notable in recent news.

Respond ONLY with JSON:
{"queries": [{"query": "...", "rationale": "..."}]}`

// plan asks the model for a research plan and parses it into search
// tasks. A planning failure is fatal to the run.
func (p *Pipeline) plan(ctx context.Context, req model.Request) ([]model.SearchTask, model.TokenUsage, error) {
	var usage model.TokenUsage

	prompt := fmt.Sprintf("Company: %s (ticker %s).", displayName(req), req.Ticker)
	if req.Focus != "" {
		prompt += fmt.Sprintf(" Research focus: %s.", req.Focus)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.Pipeline.CallTimeout())
	defer cancel()

	resp, err := p.anthropic.CreateMessage(callCtx, anthropic.MessageRequest{
		Model:     planModel(p.cfg.Anthropic),
		MaxTokens: p.cfg.Anthropic.MaxTokens,
		System:    planSystemPrompt,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, usage, eris.Wrap(err, "plan: create message")
	}
	usage.Add(model.TokenUsage{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens})

	var parsed struct {
		Queries []model.SearchTask `json:"queries"`
	}
	if err := json.Unmarshal([]byte(anthropic.ExtractJSON(resp.Text())), &parsed); err != nil {
		return nil, usage, eris.Wrap(err, "plan: parse search plan")
	}

	tasks := make([]model.SearchTask, 0, len(parsed.Queries))
	for _, t := range parsed.Queries {
		if strings.TrimSpace(t.Query) == "" {
			continue
		}
		tasks = append(tasks, t)
	}
	if len(tasks) == 0 {
		return nil, usage, eris.New("plan: no usable queries in search plan")
	}
	if len(tasks) < minPlannedQueries {
		zap.L().Warn("plan: fewer queries than expected", zap.Int("count", len(tasks)))
	}
	if len(tasks) > maxPlannedQueries {
		zap.L().Warn("plan: truncating oversized search plan", zap.Int("count", len(tasks)))
		tasks = tasks[:maxPlannedQueries]
	}
	return tasks, usage, nil
}

func displayName(req model.Request) string {
	if req.Name != "" {
		return req.Name
	}
	return req.Ticker
}

// planModel prefers the dedicated planning model when configured.
func planModel(cfg config.AnthropicConfig) string {
	if cfg.PlanModel != "" {
		return cfg.PlanModel
	}
	return cfg.Model
}
