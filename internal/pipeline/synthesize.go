package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/equity-research-cli/internal/model"
	"github.com/sells-group/equity-research-cli/pkg/anthropic"
)

const synthesizeSystemPrompt = `You are writing an equity research report. Synthesize the
evidence into a clear, well-structured markdown report with these sections:
Executive Summary, Business Overview, Financial Analysis, Risks, and Outlook.

Ground every claim in the evidence provided. Where ratios are marked approximate or
missing, say so rather than inventing numbers. Do not add a recommendation or price target.`

// synthesize produces the final report narrative. This is the one
// stage besides planning whose failure kills the run: without a
// report there is nothing to deliver.
func (p *Pipeline) synthesize(
	ctx context.Context,
	runID string,
	req model.Request,
	searchResults []model.SearchResult,
	extraction *Extraction,
	toolCalls []model.ToolCall,
) (string, model.TokenUsage, error) {
	var usage model.TokenUsage

	var sb strings.Builder
	sb.WriteString(buildEvidence(req, searchResults, extraction))
	for _, call := range toolCalls {
		fmt.Fprintf(&sb, "\n\n## Specialist analysis: %s\n%s\n", call.Name, call.Output)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.Pipeline.CallTimeout())
	defer cancel()

	resp, err := p.anthropic.CreateMessage(callCtx, anthropic.MessageRequest{
		Model:     p.cfg.Anthropic.Model,
		MaxTokens: p.cfg.Anthropic.MaxTokens,
		System:    synthesizeSystemPrompt,
		Messages:  []anthropic.Message{{Role: "user", Content: sb.String()}},
	})
	if err != nil {
		return "", usage, eris.Wrap(err, "synthesize: create message")
	}
	usage.Add(model.TokenUsage{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens})

	report := resp.Text()
	if strings.TrimSpace(report) == "" {
		return "", usage, eris.New("synthesize: empty report")
	}

	// The delivered report carries the ratio table and any
	// verification warning verbatim, not the model's paraphrase.
	if extraction != nil {
		report = report + "\n\n" + renderRatioAppendix(extraction)
	}

	p.appendArtifact(ctx, runID, model.StageSynthesizing, "report", report)
	return report, usage, nil
}
