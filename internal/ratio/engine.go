// Package ratio computes canonical financial ratios from a statement
// store and verifies the fundamental accounting identity.
//
// Every ratio is a pure formula over two label lookups, guarded the
// same way: a nil input or a zero denominator yields a nil value,
// never an error and never Inf/NaN. A nil value means "could not be
// computed from available data".
package ratio

import (
	"github.com/sells-group/equity-research-cli/internal/statement"
)

// Category groups ratios for presentation.
type Category string

const (
	CategoryProfitability        Category = "profitability"
	CategoryLiquidity            Category = "liquidity"
	CategoryLeverage             Category = "leverage"
	CategoryEfficiency           Category = "efficiency"
	CategoryCashFlow             Category = "cash_flow"
	CategoryGrowth               Category = "growth"
	CategoryBankingProfitability Category = "banking_profitability"
	CategoryBankingCreditQuality Category = "banking_credit_quality"
	CategoryBankingBalanceSheet  Category = "banking_balance_sheet"
)

// Result is one computed ratio. Approximate marks values produced with
// a documented proxy denominator rather than the precise input.
type Result struct {
	Category    Category `json:"category"`
	Name        string   `json:"name"`
	Value       *float64 `json:"value"`
	Approximate bool     `json:"approximate,omitempty"`
}

const daysInAnnualPeriod = 365.0

// ComputeAll computes the core ratio set for one period. Pure and
// idempotent: the same store and period always yield the same results.
func ComputeAll(store *statement.Store, period statement.Period) []Result {
	if store == nil {
		return nil
	}
	bs, is, cf := store.BalanceSheet, store.IncomeStatement, store.CashFlow

	currentAssets := find(bs, period, labelsCurrentAssets)
	currentLiabilities := denom(bs, period, labelsCurrentLiabilities)
	cash := find(bs, period, labelsCash)
	inventory := find(bs, period, labelsInventory)
	receivables := find(bs, period, labelsReceivables)
	totalAssets := denom(bs, period, labelsTotalAssets)
	equity := denom(bs, period, labelsEquity)
	totalDebt := sum(
		find(bs, period, labelsShortTermDebt),
		find(bs, period, labelsLongTermDebt),
	)

	revenue := denom(is, period, labelsRevenue)
	cogs := find(is, period, labelsCOGS)
	grossProfit := find(is, period, labelsGrossProfit)
	operatingIncome := find(is, period, labelsOperatingIncome)
	netIncome := find(is, period, labelsNetIncome)

	ocf := find(cf, period, labelsOperatingCashFlow)
	capex := find(cf, period, labelsCapex)

	results := []Result{
		{CategoryLiquidity, "current_ratio", div(currentAssets, currentLiabilities), false},
		{CategoryLiquidity, "quick_ratio", div(sub(currentAssets, inventory), currentLiabilities), false},
		{CategoryLiquidity, "cash_ratio", div(cash, currentLiabilities), false},

		{CategoryLeverage, "debt_to_equity", div(totalDebt, equity), false},
		{CategoryLeverage, "debt_to_assets", div(totalDebt, totalAssets), false},
		{CategoryLeverage, "equity_ratio", div(equity, totalAssets), false},

		{CategoryProfitability, "gross_profit_margin", div(grossProfit, revenue), false},
		{CategoryProfitability, "operating_margin", div(operatingIncome, revenue), false},
		{CategoryProfitability, "net_profit_margin", div(netIncome, revenue), false},
		{CategoryProfitability, "return_on_assets", div(netIncome, totalAssets), false},
		{CategoryProfitability, "return_on_equity", div(netIncome, equity), false},

		{CategoryEfficiency, "asset_turnover", div(revenue, totalAssets), false},
		{CategoryEfficiency, "inventory_turnover", div(cogs, denomVal(inventory)), false},
		{CategoryEfficiency, "receivables_turnover", div(revenue, denomVal(receivables)), false},
		{CategoryEfficiency, "days_sales_outstanding", scale(div(receivables, revenue), daysInAnnualPeriod), false},

		{CategoryCashFlow, "ocf_to_net_income", div(ocf, denomVal(netIncome)), false},
		{CategoryCashFlow, "ocf_margin", div(ocf, revenue), false},
		{CategoryCashFlow, "free_cash_flow", sub(ocf, capex), false},
	}
	return results
}

// ComputeGrowth computes cross-period growth rates. Nil when either
// period's value is missing or the prior value is zero.
func ComputeGrowth(store *statement.Store) []Result {
	if store == nil {
		return nil
	}
	grow := func(lines []statement.Line, candidates []string) *float64 {
		cur := statement.Find(lines, statement.PeriodCurrent, candidates, true)
		prior := statement.FindNonZero(lines, statement.PeriodPrior, candidates, true)
		return div(sub(cur, prior), prior)
	}
	return []Result{
		{CategoryGrowth, "revenue_growth", grow(store.IncomeStatement, labelsRevenue), false},
		{CategoryGrowth, "net_income_growth", grow(store.IncomeStatement, labelsNetIncome), false},
		{CategoryGrowth, "total_assets_growth", grow(store.BalanceSheet, labelsTotalAssets), false},
	}
}

// find resolves a numerator-style lookup: totals preferred, zero kept.
func find(lines []statement.Line, period statement.Period, candidates []string) *float64 {
	return statement.Find(lines, period, candidates, true)
}

// denom resolves a denominator-style lookup: totals preferred, zero
// treated as absent so no formula ever divides by zero.
func denom(lines []statement.Line, period statement.Period, candidates []string) *float64 {
	return statement.FindNonZero(lines, period, candidates, true)
}

// denomVal re-guards an already-resolved value for denominator use.
func denomVal(v *float64) *float64 {
	if v == nil || *v == 0 {
		return nil
	}
	return v
}

func div(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	v := *num / *den
	return &v
}

func sub(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	v := *a - *b
	return &v
}

func scale(v *float64, factor float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v * factor
	return &out
}

// sum adds the non-nil inputs; nil when none resolve.
func sum(vals ...*float64) *float64 {
	var total float64
	found := false
	for _, v := range vals {
		if v != nil {
			total += *v
			found = true
		}
	}
	if !found {
		return nil
	}
	return &total
}
