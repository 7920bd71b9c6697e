package model

// Statement names for persisted statement lines.
const (
	StatementBalanceSheet    = "balance_sheet"
	StatementIncomeStatement = "income_statement"
	StatementCashFlow        = "cash_flow"
)

// StatementLine is one normalized financial statement row, persisted so
// the inputs behind a run's ratios stay auditable after the fact.
// Seq preserves filing presentation order within a statement.
type StatementLine struct {
	Statement string   `json:"statement"`
	Seq       int      `json:"seq"`
	Label     string   `json:"label"`
	Current   *float64 `json:"current,omitempty"`
	Prior     *float64 `json:"prior,omitempty"`
	IsTotal   bool     `json:"is_total,omitempty"`
}
