package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/equity-research-cli/internal/model"
	"github.com/sells-group/equity-research-cli/internal/ratio"
	"github.com/sells-group/equity-research-cli/internal/sector"
)

func fptr(v float64) *float64 { return &v }

func TestRenderRatioTable(t *testing.T) {
	results := []ratio.Result{
		{Category: ratio.CategoryLiquidity, Name: "current_ratio", Value: fptr(2.0662)},
		{Category: ratio.CategoryProfitability, Name: "net_margin", Value: nil},
		{Category: ratio.CategoryBankingProfitability, Name: "net_interest_margin", Value: fptr(0.0312), Approximate: true},
	}

	table := renderRatioTable(results)
	assert.Contains(t, table, "| liquidity | current_ratio | 2.0662 |")
	assert.Contains(t, table, "| profitability | net_margin | n/a |")
	assert.Contains(t, table, "0.0312 (approx.)")
}

func TestRenderRatioTable_Empty(t *testing.T) {
	assert.Contains(t, renderRatioTable(nil), "No ratios could be computed")
}

func TestRenderVerification(t *testing.T) {
	passed := ratio.Verification{
		Passed: true, Assets: 133_735_000_000, Liabilities: 53_019_000_000,
		Equity: 80_716_000_000, DifferencePct: 0, TolerancePct: 0.1,
	}
	out := renderVerification(passed)
	assert.Contains(t, out, "Balance sheet verified")
	assert.Contains(t, out, "133,735,000,000")

	failed := ratio.Verification{Passed: false, Reason: "total assets unresolved or zero"}
	out = renderVerification(failed)
	assert.Contains(t, out, "VERIFICATION FAILED")
	assert.Contains(t, out, "total assets unresolved or zero")

	exceeded := ratio.Verification{
		Passed: false, Assets: 100, Liabilities: 50, Equity: 45,
		DifferencePct: 5, TolerancePct: 0.1,
	}
	out = renderVerification(exceeded)
	assert.Contains(t, out, "exceeds tolerance")
	assert.Contains(t, out, "unverified")
}

func TestBuildEvidence_NoExtraction(t *testing.T) {
	out := buildEvidence(model.Request{Ticker: "ACME"}, []model.SearchResult{
		{Task: model.SearchTask{Query: "acme revenue"}, Content: "grew 10%"},
	}, nil)

	assert.Contains(t, out, "No filing data is available")
	assert.Contains(t, out, "### acme revenue")
	assert.Contains(t, out, "grew 10%")
	assert.NotContains(t, out, "Financial ratios")
}

func TestBuildEvidence_WithExtraction(t *testing.T) {
	ex := &Extraction{
		Ratios: []ratio.Result{
			{Category: ratio.CategoryLiquidity, Name: "current_ratio", Value: fptr(1.5)},
		},
		Verification: ratio.Verification{Passed: true, Assets: 100, Liabilities: 60, Equity: 40, TolerancePct: 0.1},
		Sector:       sector.SectorBanking,
	}

	out := buildEvidence(model.Request{Ticker: "JPM", Name: "JPMorgan Chase", Focus: "credit quality"}, nil, ex)
	assert.Contains(t, out, "JPMorgan Chase")
	assert.Contains(t, out, "Research focus: credit quality")
	assert.Contains(t, out, "Sector classification: banking")
	assert.Contains(t, out, "current_ratio")
	assert.Contains(t, out, "Balance sheet verified")
}

func TestMarshalJSON(t *testing.T) {
	out := marshalJSON(map[string]int{"a": 1})
	assert.Contains(t, out, `"a": 1`)
}
