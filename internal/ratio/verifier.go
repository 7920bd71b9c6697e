package ratio

import (
	"math"

	"github.com/sells-group/equity-research-cli/internal/statement"
)

// DefaultTolerancePct is the accepted balance-sheet difference as a
// percentage of total assets.
const DefaultTolerancePct = 0.1

// Verification reports whether the accounting identity
// assets = liabilities + equity holds within tolerance.
type Verification struct {
	Passed             bool    `json:"passed"`
	Assets             float64 `json:"assets"`
	Liabilities        float64 `json:"liabilities"`
	Equity             float64 `json:"equity"`
	DifferencePct      float64 `json:"difference_pct"`
	TolerancePct       float64 `json:"tolerance_pct"`
	DerivedLiabilities bool    `json:"derived_liabilities,omitempty"`
	Reason             string  `json:"reason,omitempty"`
}

// Verify checks the accounting identity for the current period. A
// tolerancePct of zero or less falls back to DefaultTolerancePct.
//
// Fails closed: unresolvable or zero assets produce passed=false with
// an explicit reason instead of a division error. When the filer omits
// an explicit "total liabilities" line, liabilities are derived as
// assets − equity.
func Verify(store *statement.Store, tolerancePct float64) Verification {
	if tolerancePct <= 0 {
		tolerancePct = DefaultTolerancePct
	}
	result := Verification{TolerancePct: tolerancePct}

	if store == nil {
		result.Reason = "no statement data"
		return result
	}

	period := statement.PeriodCurrent
	assets := statement.Find(store.BalanceSheet, period, labelsTotalAssets, true)
	liabilities := statement.Find(store.BalanceSheet, period, labelsTotalLiabilities, true)
	equity := statement.Find(store.BalanceSheet, period, labelsEquity, true)

	if assets == nil || *assets == 0 {
		result.Reason = "total assets unresolved or zero"
		return result
	}
	result.Assets = *assets

	if equity == nil {
		result.Reason = "total equity unresolved"
		return result
	}
	result.Equity = *equity

	if liabilities == nil {
		// Some filers omit the explicit total liabilities line.
		derived := *assets - *equity
		liabilities = &derived
		result.DerivedLiabilities = true
	}
	result.Liabilities = *liabilities

	diff := math.Abs(*assets - (*liabilities + *equity))
	result.DifferencePct = diff / *assets * 100
	result.Passed = result.DifferencePct <= tolerancePct
	return result
}
