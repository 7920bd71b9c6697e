package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/equity-research-cli/internal/model"
	"github.com/sells-group/equity-research-cli/internal/ratio"
	"github.com/sells-group/equity-research-cli/internal/statement"
)

// numPrinter formats large monetary values with thousands separators.
var numPrinter = message.NewPrinter(language.English)

// buildEvidence assembles the shared context document the narrative
// stages work from: the request, the ratio table, the verification
// outcome, and the collected search results.
func buildEvidence(req model.Request, searchResults []model.SearchResult, extraction *Extraction) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Research evidence: %s (ticker %s)\n", displayName(req), req.Ticker)
	if req.Focus != "" {
		fmt.Fprintf(&sb, "Research focus: %s\n", req.Focus)
	}

	if extraction != nil {
		fmt.Fprintf(&sb, "\nSector classification: %s\n", extraction.Sector)
		sb.WriteString("\n## Financial ratios (latest annual filing)\n")
		sb.WriteString(renderRatioTable(extraction.Ratios))
		sb.WriteString("\n")
		sb.WriteString(renderVerification(extraction.Verification))
		if fd := extraction.Statements; fd != nil && fd.FilingDate != "" {
			fmt.Fprintf(&sb, "\nFiling: %s dated %s\n", fd.FilingType, fd.FilingDate)
		}
	} else {
		sb.WriteString("\nNo filing data is available for this run; rely on search results only\n")
		sb.WriteString("and do not state specific financial figures without a cited source.\n")
	}

	if len(searchResults) > 0 {
		sb.WriteString("\n## Web research\n")
		for _, r := range searchResults {
			fmt.Fprintf(&sb, "\n### %s\n%s\n", r.Task.Query, r.Content)
		}
	}
	return sb.String()
}

// renderRatioTable renders computed ratios as a markdown table grouped
// by category. Null ratios render as "n/a" so their absence is visible
// downstream.
func renderRatioTable(results []ratio.Result) string {
	if len(results) == 0 {
		return "No ratios could be computed.\n"
	}

	var sb strings.Builder
	sb.WriteString("| Category | Ratio | Value |\n")
	sb.WriteString("|---|---|---|\n")
	for _, r := range results {
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", r.Category, r.Name, formatRatio(r))
	}
	return sb.String()
}

func formatRatio(r ratio.Result) string {
	if r.Value == nil {
		return "n/a"
	}
	s := numPrinter.Sprintf("%.4f", *r.Value)
	if r.Approximate {
		s += " (approx.)"
	}
	return s
}

// renderVerification summarizes the balance sheet identity check.
func renderVerification(v ratio.Verification) string {
	if v.Passed {
		return numPrinter.Sprintf(
			"Balance sheet verified: assets %.0f = liabilities %.0f + equity %.0f (diff %.4f%%, tolerance %.2f%%).\n",
			v.Assets, v.Liabilities, v.Equity, v.DifferencePct, v.TolerancePct)
	}
	if v.Reason != "" {
		return fmt.Sprintf("BALANCE SHEET VERIFICATION FAILED: %s. Treat all ratios as unverified.\n", v.Reason)
	}
	return numPrinter.Sprintf(
		"BALANCE SHEET VERIFICATION FAILED: assets %.0f vs liabilities+equity %.0f (diff %.4f%% exceeds tolerance %.2f%%). Treat all ratios as unverified.\n",
		v.Assets, v.Liabilities+v.Equity, v.DifferencePct, v.TolerancePct)
}

// renderRatioAppendix is the data appendix attached verbatim to the
// delivered report.
func renderRatioAppendix(extraction *Extraction) string {
	var sb strings.Builder
	sb.WriteString("---\n\n## Appendix: computed ratios\n\n")
	sb.WriteString(renderRatioTable(extraction.Ratios))
	sb.WriteString("\n")
	sb.WriteString(renderVerification(extraction.Verification))
	if st := extraction.Statements; st != nil {
		fmt.Fprintf(&sb, "\nPeriods: current %s, prior %s.\n",
			periodLabel(st, statement.PeriodCurrent), periodLabel(st, statement.PeriodPrior))
	}
	return sb.String()
}

func periodLabel(st *statement.Store, p statement.Period) string {
	switch p {
	case statement.PeriodCurrent:
		if st.CurrentPeriod != "" {
			return st.CurrentPeriod
		}
	case statement.PeriodPrior:
		if st.PriorPeriod != "" {
			return st.PriorPeriod
		}
	}
	return "unknown"
}

// marshalJSON renders v as indented JSON for artifact storage. Types
// passed here are always marshalable; a failure still yields a usable
// placeholder rather than a panic.
func marshalJSON(v any) string {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\"marshal_error\": %q}", err.Error())
	}
	return string(raw)
}
