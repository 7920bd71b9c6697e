package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/equity-research-cli/internal/model"
	"github.com/sells-group/equity-research-cli/internal/ratio"
	"github.com/sells-group/equity-research-cli/internal/resilience"
	"github.com/sells-group/equity-research-cli/internal/sector"
	"github.com/sells-group/equity-research-cli/internal/statement"
	"github.com/sells-group/equity-research-cli/pkg/edgar"
)

// Extraction bundles everything the filing data yields: normalized
// statements, computed ratios, the balance sheet verification, and the
// sector classification.
type Extraction struct {
	Statements   *statement.Store
	Ratios       []ratio.Result
	Verification ratio.Verification
	Sector       sector.Sector
}

// extract fetches the latest annual filing, builds statements, and
// computes ratios. Every failure here degrades: the run continues with
// a nil extraction and the narrative stages work from search results
// alone.
func (p *Pipeline) extract(ctx context.Context, runID string, req model.Request, conn edgar.Conn, record recordFunc) *Extraction {
	if conn == nil {
		return nil
	}

	retryCfg := resilience.RetryConfig{
		MaxAttempts:    p.cfg.Pipeline.SearchRetries,
		InitialBackoff: p.cfg.Pipeline.SearchBackoff(),
		Multiplier:     2.0,
		OnRetry:        resilience.RetryLogger("edgar", "fetch_statements"),
	}
	filing, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*edgar.FilingData, error) {
		callCtx, cancel := context.WithTimeout(ctx, p.cfg.Pipeline.CallTimeout())
		defer cancel()
		return conn.FetchStatements(callCtx, req.Ticker)
	})
	if err != nil {
		record(model.StageExtracting, req.Ticker, "edgar: fetch statements: "+err.Error())
		return nil
	}

	st, err := statement.Build(filing)
	if err != nil {
		record(model.StageExtracting, req.Ticker, "statement: build: "+err.Error())
		return nil
	}

	sec := sector.Classify(req.Ticker, filing.SIC)

	ratios := ratio.ComputeAll(st, statement.PeriodCurrent)
	if sector.BankingRatios(sec) {
		ratios = append(ratios, ratio.ComputeBanking(st, statement.PeriodCurrent)...)
	}
	ratios = append(ratios, ratio.ComputeGrowth(st)...)

	verification := ratio.Verify(st, p.cfg.Pipeline.BalanceTolerancePct)
	if !verification.Passed {
		zap.L().Warn("extract: balance sheet verification failed",
			zap.String("ticker", req.Ticker),
			zap.String("reason", verification.Reason),
			zap.Float64("difference_pct", verification.DifferencePct),
		)
	}

	if err := p.store.SaveStatementLines(ctx, runID, statementLines(st)); err != nil {
		zap.L().Warn("extract: failed to persist statement lines",
			zap.String("run_id", runID), zap.Error(err))
	}

	ex := &Extraction{
		Statements:   st,
		Ratios:       ratios,
		Verification: verification,
		Sector:       sec,
	}
	p.appendArtifact(ctx, runID, model.StageExtracting, "ratios", marshalJSON(ratios))
	p.appendArtifact(ctx, runID, model.StageExtracting, "verification", marshalJSON(verification))

	zap.L().Info("extract: statements processed",
		zap.String("ticker", req.Ticker),
		zap.String("sector", string(sec)),
		zap.Int("ratios", len(ratios)),
		zap.Bool("balance_verified", verification.Passed),
	)
	return ex
}

// statementLines flattens a statement store into persistable rows,
// preserving filing presentation order.
func statementLines(st *statement.Store) []model.StatementLine {
	if st == nil {
		return nil
	}

	var out []model.StatementLine
	add := func(name string, lines []statement.Line) {
		for i, l := range lines {
			out = append(out, model.StatementLine{
				Statement: name,
				Seq:       i + 1,
				Label:     l.Label,
				Current:   l.Current,
				Prior:     l.Prior,
				IsTotal:   l.IsTotal,
			})
		}
	}
	add(model.StatementBalanceSheet, st.BalanceSheet)
	add(model.StatementIncomeStatement, st.IncomeStatement)
	add(model.StatementCashFlow, st.CashFlow)
	return out
}
