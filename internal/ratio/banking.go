package ratio

import (
	"github.com/sells-group/equity-research-cli/internal/statement"
)

// ComputeBanking computes the sector-specific ratio set for banks and
// similar lenders. Callers gate it on the sector classifier.
//
// Where the precise denominator (average earning assets, tangible
// common equity) is unavailable from the statement store, the closest
// aggregate is substituted and the result is flagged Approximate.
func ComputeBanking(store *statement.Store, period statement.Period) []Result {
	if store == nil {
		return nil
	}
	bs, is := store.BalanceSheet, store.IncomeStatement

	totalAssets := denom(bs, period, labelsTotalAssets)
	equity := find(bs, period, labelsEquity)
	goodwill := find(bs, period, labelsGoodwill)
	loans := find(bs, period, labelsLoans)
	deposits := find(bs, period, labelsDeposits)
	nonperforming := find(bs, period, labelsNonperforming)
	allowance := find(bs, period, labelsAllowance)

	netInterestIncome := find(is, period, labelsNetInterestIncome)
	noninterestIncome := find(is, period, labelsNoninterestIncome)
	noninterestExp := find(is, period, labelsNoninterestExp)
	netIncome := find(is, period, labelsNetIncome)
	chargeOffs := find(is, period, labelsChargeOffs)
	provision := find(is, period, labelsProvision)

	// Tangible common equity: equity net of goodwill. Without a
	// goodwill line the raw equity figure stands in, flagged.
	tce := sub(equity, goodwill)
	tceApprox := false
	if tce == nil && equity != nil {
		tce = equity
		tceApprox = true
	}

	// Net charge-offs are a note disclosure many filers omit from the
	// face statements; the credit-loss provision stands in, flagged.
	nco := chargeOffs
	ncoApprox := false
	if nco == nil && provision != nil {
		nco = provision
		ncoApprox = true
	}

	return []Result{
		// Total assets proxy for average earning assets.
		{CategoryBankingProfitability, "net_interest_margin", div(netInterestIncome, totalAssets), true},
		{CategoryBankingProfitability, "efficiency_ratio", div(noninterestExp, denomVal(sum(netInterestIncome, noninterestIncome))), false},
		{CategoryBankingProfitability, "return_on_tangible_common_equity", div(netIncome, denomVal(tce)), tceApprox},

		{CategoryBankingCreditQuality, "npl_ratio", div(nonperforming, denomVal(loans)), false},
		{CategoryBankingCreditQuality, "allowance_coverage", div(allowance, denomVal(nonperforming)), false},
		{CategoryBankingCreditQuality, "net_charge_off_rate", div(nco, denomVal(loans)), ncoApprox},

		{CategoryBankingBalanceSheet, "loan_to_deposit", div(loans, denomVal(deposits)), false},
		{CategoryBankingBalanceSheet, "loan_to_assets", div(loans, totalAssets), false},
		{CategoryBankingBalanceSheet, "deposits_to_assets", div(deposits, totalAssets), false},
	}
}
