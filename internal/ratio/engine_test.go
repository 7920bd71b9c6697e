package ratio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/equity-research-cli/internal/statement"
)

func ptr(v float64) *float64 { return &v }

func generalStore() *statement.Store {
	return &statement.Store{
		BalanceSheet: []statement.Line{
			{Label: "Cash and cash equivalents", Current: ptr(20_000_000_000), Prior: ptr(18_000_000_000)},
			{Label: "Accounts receivable, net", Current: ptr(10_000_000_000), Prior: ptr(9_000_000_000)},
			{Label: "Inventory", Current: ptr(4_653_000_000), Prior: ptr(4_000_000_000)},
			{Label: "Total current assets", Current: ptr(64_653_000_000), Prior: ptr(60_000_000_000), IsTotal: true},
			{Label: "Long-term debt", Current: ptr(30_000_000_000), Prior: ptr(32_000_000_000)},
			{Label: "Total assets", Current: ptr(133_735_000_000), Prior: ptr(120_000_000_000), IsTotal: true},
			{Label: "Total current liabilities", Current: ptr(31_290_000_000), Prior: ptr(30_000_000_000), IsTotal: true},
			{Label: "Total liabilities", Current: ptr(53_019_000_000), Prior: ptr(50_000_000_000), IsTotal: true},
			{Label: "Total stockholders' equity", Current: ptr(80_716_000_000), Prior: ptr(70_000_000_000), IsTotal: true},
		},
		IncomeStatement: []statement.Line{
			{Label: "Total revenue", Current: ptr(100_000_000_000), Prior: ptr(90_000_000_000), IsTotal: true},
			{Label: "Cost of revenue", Current: ptr(60_000_000_000), Prior: ptr(55_000_000_000)},
			{Label: "Gross profit", Current: ptr(40_000_000_000), Prior: ptr(35_000_000_000), IsTotal: true},
			{Label: "Operating income", Current: ptr(25_000_000_000), Prior: ptr(22_000_000_000), IsTotal: true},
			{Label: "Net income", Current: ptr(20_000_000_000), Prior: ptr(18_000_000_000), IsTotal: true},
		},
		CashFlow: []statement.Line{
			{Label: "Net cash provided by operating activities", Current: ptr(28_000_000_000), Prior: ptr(25_000_000_000), IsTotal: true},
			{Label: "Payments to acquire property, plant and equipment", Current: ptr(8_000_000_000), Prior: ptr(7_000_000_000)},
		},
		CurrentPeriod: "2024-12-31",
		PriorPeriod:   "2023-12-31",
	}
}

func byName(results []Result) map[string]Result {
	out := make(map[string]Result, len(results))
	for _, r := range results {
		out[r.Name] = r
	}
	return out
}

func TestComputeAllCoreRatios(t *testing.T) {
	got := byName(ComputeAll(generalStore(), statement.PeriodCurrent))

	tests := []struct {
		name string
		want float64
	}{
		{"current_ratio", 64_653_000_000.0 / 31_290_000_000.0},
		{"quick_ratio", 60_000_000_000.0 / 31_290_000_000.0},
		{"cash_ratio", 20_000_000_000.0 / 31_290_000_000.0},
		{"debt_to_equity", 30_000_000_000.0 / 80_716_000_000.0},
		{"debt_to_assets", 30_000_000_000.0 / 133_735_000_000.0},
		{"equity_ratio", 80_716_000_000.0 / 133_735_000_000.0},
		{"gross_profit_margin", 0.40},
		{"operating_margin", 0.25},
		{"net_profit_margin", 0.20},
		{"return_on_assets", 20_000_000_000.0 / 133_735_000_000.0},
		{"return_on_equity", 20_000_000_000.0 / 80_716_000_000.0},
		{"asset_turnover", 100_000_000_000.0 / 133_735_000_000.0},
		{"inventory_turnover", 60_000_000_000.0 / 4_653_000_000.0},
		{"receivables_turnover", 10.0},
		{"days_sales_outstanding", 36.5},
		{"ocf_to_net_income", 1.4},
		{"ocf_margin", 0.28},
		{"free_cash_flow", 20_000_000_000.0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, ok := got[tc.name]
			require.True(t, ok, "missing ratio %s", tc.name)
			require.NotNil(t, r.Value, "ratio %s is nil", tc.name)
			assert.InDelta(t, tc.want, *r.Value, 1e-9)
		})
	}
}

func TestCurrentRatioScenario(t *testing.T) {
	got := byName(ComputeAll(generalStore(), statement.PeriodCurrent))
	r := got["current_ratio"]
	require.NotNil(t, r.Value)
	assert.InDelta(t, 2.0662, *r.Value, 0.001)
}

func TestComputeAllPriorPeriod(t *testing.T) {
	got := byName(ComputeAll(generalStore(), statement.PeriodPrior))
	r := got["current_ratio"]
	require.NotNil(t, r.Value)
	assert.InDelta(t, 2.0, *r.Value, 1e-9)
}

func TestComputeAllNullSafety(t *testing.T) {
	// A store with only a balance sheet: every income-statement and
	// cash-flow ratio must come back nil, never panic or produce Inf.
	store := &statement.Store{
		BalanceSheet: []statement.Line{
			{Label: "Total assets", Current: ptr(1000), IsTotal: true},
		},
	}
	for _, r := range ComputeAll(store, statement.PeriodCurrent) {
		assert.Nil(t, r.Value, r.Name)
	}
}

func TestComputeAllZeroDenominator(t *testing.T) {
	store := generalStore()
	// Zero out current liabilities: liquidity ratios must all be nil.
	for i := range store.BalanceSheet {
		if store.BalanceSheet[i].Label == "Total current liabilities" {
			store.BalanceSheet[i].Current = ptr(0)
		}
	}
	got := byName(ComputeAll(store, statement.PeriodCurrent))
	assert.Nil(t, got["current_ratio"].Value)
	assert.Nil(t, got["quick_ratio"].Value)
	assert.Nil(t, got["cash_ratio"].Value)
}

func TestComputeAllIdempotent(t *testing.T) {
	store := generalStore()
	first := ComputeAll(store, statement.PeriodCurrent)
	second := ComputeAll(store, statement.PeriodCurrent)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Name, second[i].Name)
		if first[i].Value == nil {
			assert.Nil(t, second[i].Value)
			continue
		}
		require.NotNil(t, second[i].Value)
		assert.Equal(t, *first[i].Value, *second[i].Value)
	}
}

func TestComputeAllNilStore(t *testing.T) {
	assert.Nil(t, ComputeAll(nil, statement.PeriodCurrent))
}

func TestComputeGrowth(t *testing.T) {
	got := byName(ComputeGrowth(generalStore()))

	r := got["revenue_growth"]
	require.NotNil(t, r.Value)
	assert.InDelta(t, 10.0/90.0, *r.Value, 1e-9)

	r = got["net_income_growth"]
	require.NotNil(t, r.Value)
	assert.InDelta(t, 2.0/18.0, *r.Value, 1e-9)

	r = got["total_assets_growth"]
	require.NotNil(t, r.Value)
	assert.InDelta(t, 13_735.0/120_000.0, *r.Value, 1e-9)
}

func TestComputeGrowthMissingPrior(t *testing.T) {
	store := generalStore()
	for i := range store.IncomeStatement {
		store.IncomeStatement[i].Prior = nil
	}
	got := byName(ComputeGrowth(store))
	assert.Nil(t, got["revenue_growth"].Value)
	assert.Nil(t, got["net_income_growth"].Value)
}

func TestComputeGrowthZeroPrior(t *testing.T) {
	store := generalStore()
	for i := range store.IncomeStatement {
		if store.IncomeStatement[i].Label == "Total revenue" {
			store.IncomeStatement[i].Prior = ptr(0)
		}
	}
	got := byName(ComputeGrowth(store))
	assert.Nil(t, got["revenue_growth"].Value)
}
