package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/equity-research-cli/internal/model"
	"github.com/sells-group/equity-research-cli/pkg/anthropic"
)

// specialist defines one bounded sub-analysis over the collected
// evidence. Each runs as an explicit tool call so its output is
// recorded before anything reaches synthesis.
type specialist struct {
	name   string
	system string
}

var specialists = []specialist{
	{
		name: "financial_health",
		system: `You are a financial analyst assessing the financial health of a company from
its statements, computed ratios, and research notes. Cover profitability, liquidity,
leverage, and efficiency. Flag any ratio that is missing or approximate rather than
guessing at it.`,
	},
	{
		name: "risk",
		system: `You are a risk analyst. From the evidence provided, identify the key risks to
the company: credit, market, regulatory, competitive, and operational. Be specific and
tie each risk to the evidence. Note where evidence is missing.`,
	},
}

const supplementalSearchInstructions = `
If you need more information before analyzing, respond ONLY with JSON
{"queries": ["..."]} listing at most %d web searches. Otherwise respond with your analysis as markdown.`

// analyze runs the specialists concurrently. Each may request a
// bounded round of supplemental searches before committing to its
// analysis. A specialist that fails is recorded and omitted; its
// partial work never reaches synthesis.
func (p *Pipeline) analyze(
	ctx context.Context,
	runID string,
	req model.Request,
	searchResults []model.SearchResult,
	extraction *Extraction,
	record recordFunc,
) ([]model.ToolCall, model.TokenUsage, int) {
	input := buildEvidence(req, searchResults, extraction)

	var mu sync.Mutex
	var usage model.TokenUsage
	extraSearches := 0
	slots := make([]*model.ToolCall, len(specialists))

	g := new(errgroup.Group)
	for i, sp := range specialists {
		i, sp := i, sp
		g.Go(func() error {
			call, callUsage, searches, err := p.runSpecialist(ctx, sp, input)
			mu.Lock()
			usage.Add(callUsage)
			extraSearches += searches
			mu.Unlock()
			if err != nil {
				record(model.StageAnalyzing, sp.name, err.Error())
				return nil
			}
			slots[i] = call
			return nil
		})
	}
	_ = g.Wait()

	var calls []model.ToolCall
	for _, c := range slots {
		if c == nil {
			continue
		}
		calls = append(calls, *c)
		p.appendArtifact(ctx, runID, model.StageAnalyzing, "specialist_"+c.Name, c.Output)
	}

	zap.L().Info("analyze: specialists complete",
		zap.Int("succeeded", len(calls)),
		zap.Int("supplemental_searches", extraSearches),
	)
	return calls, usage, extraSearches
}

// runSpecialist drives one specialist to completion: an initial call,
// optionally one round of supplemental searches, and a final call.
func (p *Pipeline) runSpecialist(ctx context.Context, sp specialist, input string) (*model.ToolCall, model.TokenUsage, int, error) {
	var usage model.TokenUsage

	maxQueries := p.cfg.Pipeline.SpecialistMaxQueries
	system := sp.system + fmt.Sprintf(supplementalSearchInstructions, maxQueries)

	text, callUsage, err := p.specialistCall(ctx, system, input)
	usage.Add(callUsage)
	if err != nil {
		return nil, usage, 0, err
	}

	queries := parseSupplementalQueries(text)
	if len(queries) == 0 {
		return &model.ToolCall{Name: sp.name, Input: input, Output: text}, usage, 0, nil
	}
	if len(queries) > maxQueries {
		queries = queries[:maxQueries]
	}

	// One supplemental round; failed searches are skipped silently
	// here since the specialist still has the base evidence.
	var sb strings.Builder
	sb.WriteString(input)
	sb.WriteString("\n\n## Supplemental search results\n")
	searches := 0
	for _, q := range queries {
		searches++
		content, searchErr := p.searchOne(ctx, q)
		if searchErr != nil {
			zap.L().Warn("analyze: supplemental search failed",
				zap.String("specialist", sp.name),
				zap.String("query", q),
				zap.Error(searchErr),
			)
			continue
		}
		fmt.Fprintf(&sb, "\n### %s\n%s\n", q, content)
	}

	finalInput := sb.String()
	text, callUsage, err = p.specialistCall(ctx, sp.system, finalInput)
	usage.Add(callUsage)
	if err != nil {
		return nil, usage, searches, err
	}
	return &model.ToolCall{Name: sp.name, Input: finalInput, Output: text}, usage, searches, nil
}

func (p *Pipeline) specialistCall(ctx context.Context, system, input string) (string, model.TokenUsage, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.Pipeline.CallTimeout())
	defer cancel()

	resp, err := p.anthropic.CreateMessage(callCtx, anthropic.MessageRequest{
		Model:     p.cfg.Anthropic.Model,
		MaxTokens: p.cfg.Anthropic.MaxTokens,
		System:    system,
		Messages:  []anthropic.Message{{Role: "user", Content: input}},
	})
	if err != nil {
		return "", model.TokenUsage{}, err
	}
	return resp.Text(), model.TokenUsage{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

// parseSupplementalQueries returns the requested queries when the
// response is a bare {"queries": [...]} object, nil otherwise.
func parseSupplementalQueries(text string) []string {
	trimmed := strings.TrimSpace(anthropic.ExtractJSON(text))
	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}

	var parsed struct {
		Queries []string `json:"queries"`
	}
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return nil
	}

	var out []string
	for _, q := range parsed.Queries {
		if strings.TrimSpace(q) != "" {
			out = append(out, q)
		}
	}
	return out
}
