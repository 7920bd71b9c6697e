package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/sells-group/equity-research-cli/internal/config"
	"github.com/sells-group/equity-research-cli/internal/model"
	"github.com/sells-group/equity-research-cli/pkg/anthropic"
)

const verifySystemPrompt = `You are auditing an equity research report against its source data.
Check that every number in the report matches the ratio data provided, that nothing is
claimed without evidence, and that approximate or missing values are labeled as such.

If the report is consistent, respond with exactly "OK".
Otherwise list each discrepancy on its own line.`

// verify runs the audit pass over the finished report. An audit
// failure never blocks delivery: the run still completes DONE, with
// the failure recorded and a warning artifact attached.
func (p *Pipeline) verify(
	ctx context.Context,
	runID string,
	req model.Request,
	report string,
	extraction *Extraction,
	record recordFunc,
) (string, model.TokenUsage) {
	var usage model.TokenUsage

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Report for %s\n\n%s\n", req.Ticker, report)
	if extraction != nil {
		sb.WriteString("\n# Source ratio data\n")
		sb.WriteString(marshalJSON(extraction.Ratios))
		sb.WriteString("\n\n# Balance sheet verification\n")
		sb.WriteString(marshalJSON(extraction.Verification))
	} else {
		sb.WriteString("\n# Source ratio data\nNo filing data was available for this run.\n")
	}

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.Pipeline.CallTimeout())
	defer cancel()

	resp, err := p.anthropic.CreateMessage(callCtx, anthropic.MessageRequest{
		Model:     auditModel(p.cfg.Anthropic),
		MaxTokens: p.cfg.Anthropic.MaxTokens,
		System:    verifySystemPrompt,
		Messages:  []anthropic.Message{{Role: "user", Content: sb.String()}},
	})
	if err != nil {
		record(model.StageVerifying, req.Ticker, "verify: audit call: "+err.Error())
		p.appendArtifact(ctx, runID, model.StageVerifying, "verification_warning",
			"audit did not run: "+err.Error())
		return "audit unavailable", usage
	}
	usage.Add(model.TokenUsage{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens})

	note := strings.TrimSpace(resp.Text())
	if note == "OK" {
		p.appendArtifact(ctx, runID, model.StageVerifying, "audit", "OK")
		return "", usage
	}

	p.appendArtifact(ctx, runID, model.StageVerifying, "audit", note)
	return note, usage
}

// auditModel prefers the dedicated audit model when configured.
func auditModel(cfg config.AnthropicConfig) string {
	if cfg.AuditModel != "" {
		return cfg.AuditModel
	}
	return cfg.Model
}
