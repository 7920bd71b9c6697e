// Package statement holds the canonical representation of a filing's
// three financial statements and the label-based lookup used to read
// line items out of them.
package statement

// Period selects which reporting column of a statement to read.
type Period string

const (
	PeriodCurrent Period = "current"
	PeriodPrior   Period = "prior"
)

// Line is a single labeled line item with current- and prior-period
// values. A nil value means the filer did not report the item for that
// period. IsTotal marks subtotal/"total" rows from the official
// presentation.
type Line struct {
	Label   string   `json:"label"`
	Current *float64 `json:"current"`
	Prior   *float64 `json:"prior"`
	IsTotal bool     `json:"is_total"`
}

// Value returns the line's value for the given period, or nil.
func (l Line) Value(period Period) *float64 {
	if period == PeriodPrior {
		return l.Prior
	}
	return l.Current
}

// Store holds the three statements of one filing. Line order is
// preserved from the source filing — it encodes the official
// presentation hierarchy, including subtotal placement — and is never
// resorted or regrouped.
type Store struct {
	BalanceSheet    []Line `json:"balance_sheet"`
	IncomeStatement []Line `json:"income_statement"`
	CashFlow        []Line `json:"cash_flow"`

	CurrentPeriod string `json:"current_period"`
	PriorPeriod   string `json:"prior_period"`
	FilingType    string `json:"filing_type"`
	FilingDate    string `json:"filing_date"`
	Accession     string `json:"accession"`
}

// Empty reports whether no statement has any lines.
func (s *Store) Empty() bool {
	if s == nil {
		return true
	}
	return len(s.BalanceSheet) == 0 && len(s.IncomeStatement) == 0 && len(s.CashFlow) == 0
}

func ptr(v float64) *float64 { return &v }
