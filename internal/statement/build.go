package statement

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/equity-research-cli/pkg/edgar"
)

// conceptRow is one row of the presentation table: a human-readable
// label, the US-GAAP tags that can carry it (tried in order), and
// whether the row is an official subtotal.
type conceptRow struct {
	label   string
	tags    []string
	isTotal bool
}

// Presentation order follows the standard filing layout. Rows a filer
// does not report are dropped; the surviving order is preserved in the
// Store and never resorted.
var balanceSheetRows = []conceptRow{
	{"Cash and cash equivalents", []string{"CashAndCashEquivalentsAtCarryingValue", "CashAndDueFromBanks"}, false},
	{"Short-term investments", []string{"ShortTermInvestments", "AvailableForSaleSecuritiesDebtSecuritiesCurrent"}, false},
	{"Accounts receivable, net", []string{"AccountsReceivableNetCurrent", "ReceivablesNetCurrent"}, false},
	{"Inventory", []string{"InventoryNet"}, false},
	{"Total current assets", []string{"AssetsCurrent"}, true},
	{"Loans and leases, net", []string{"NotesReceivableNet", "LoansAndLeasesReceivableNetReportedAmount"}, false},
	{"Allowance for credit losses", []string{"FinancingReceivableAllowanceForCreditLosses", "LoansAndLeasesReceivableAllowance"}, false},
	{"Nonaccrual loans", []string{"FinancingReceivableRecordedInvestmentNonaccrualStatus"}, false},
	{"Property, plant and equipment, net", []string{"PropertyPlantAndEquipmentNet"}, false},
	{"Goodwill", []string{"Goodwill"}, false},
	{"Total assets", []string{"Assets"}, true},
	{"Accounts payable", []string{"AccountsPayableCurrent"}, false},
	{"Short-term debt", []string{"ShortTermBorrowings", "LongTermDebtCurrent", "DebtCurrent"}, false},
	{"Total deposits", []string{"Deposits"}, true},
	{"Total current liabilities", []string{"LiabilitiesCurrent"}, true},
	{"Long-term debt", []string{"LongTermDebtNoncurrent", "LongTermDebt"}, false},
	{"Total liabilities", []string{"Liabilities"}, true},
	{"Total stockholders' equity", []string{"StockholdersEquity", "StockholdersEquityIncludingPortionAttributableToNoncontrollingInterest"}, true},
	{"Total liabilities and stockholders' equity", []string{"LiabilitiesAndStockholdersEquity"}, true},
}

var incomeStatementRows = []conceptRow{
	{"Total revenue", []string{"Revenues", "RevenueFromContractWithCustomerExcludingAssessedTax", "RevenueFromContractWithCustomerIncludingAssessedTax"}, true},
	{"Cost of revenue", []string{"CostOfRevenue", "CostOfGoodsAndServicesSold"}, false},
	{"Gross profit", []string{"GrossProfit"}, true},
	{"Operating expenses", []string{"OperatingExpenses"}, true},
	{"Operating income", []string{"OperatingIncomeLoss"}, true},
	{"Interest income", []string{"InterestAndDividendIncomeOperating", "InterestIncomeOperating"}, false},
	{"Interest expense", []string{"InterestExpense", "InterestExpenseOperating"}, false},
	{"Net interest income", []string{"InterestIncomeExpenseNet"}, true},
	{"Provision for credit losses", []string{"ProvisionForLoanLeaseAndOtherLosses", "ProvisionForLoanAndLeaseLosses", "ProvisionForCreditLossExpenseReversal"}, false},
	{"Noninterest income", []string{"NoninterestIncome"}, false},
	{"Noninterest expense", []string{"NoninterestExpense"}, false},
	{"Income tax expense", []string{"IncomeTaxExpenseBenefit"}, false},
	{"Net income", []string{"NetIncomeLoss", "ProfitLoss"}, true},
}

var cashFlowRows = []conceptRow{
	{"Net cash provided by operating activities", []string{"NetCashProvidedByUsedInOperatingActivities", "NetCashProvidedByUsedInOperatingActivitiesContinuingOperations"}, true},
	{"Payments to acquire property, plant and equipment", []string{"PaymentsToAcquirePropertyPlantAndEquipment", "PaymentsToAcquireProductiveAssets"}, false},
	{"Net cash used in investing activities", []string{"NetCashProvidedByUsedInInvestingActivities"}, true},
	{"Net cash used in financing activities", []string{"NetCashProvidedByUsedInFinancingActivities"}, true},
	{"Net change in cash", []string{"CashCashEquivalentsRestrictedCashAndRestrictedCashEquivalentsPeriodIncreaseDecreaseIncludingExchangeRateEffect", "CashAndCashEquivalentsPeriodIncreaseDecrease"}, true},
}

// Build converts raw EDGAR fact data into a Store covering the two
// most recent annual reporting periods.
func Build(data *edgar.FilingData) (*Store, error) {
	if data == nil || data.Facts == nil {
		return nil, eris.New("statement: no fact data")
	}
	gaap, ok := data.Facts.Facts["us-gaap"]
	if !ok || len(gaap) == 0 {
		return nil, eris.New("statement: no us-gaap facts")
	}

	current, prior, anchor := reportingPeriods(gaap)
	if current == "" {
		return nil, eris.New("statement: no annual reporting periods found")
	}

	store := &Store{
		CurrentPeriod: current,
		PriorPeriod:   prior,
		FilingType:    "10-K",
		FilingDate:    anchor.Filed,
		Accession:     anchor.Accn,
	}
	store.BalanceSheet = buildLines(gaap, balanceSheetRows, current, prior)
	store.IncomeStatement = buildLines(gaap, incomeStatementRows, current, prior)
	store.CashFlow = buildLines(gaap, cashFlowRows, current, prior)

	if store.Empty() {
		return nil, eris.New("statement: no line items resolved")
	}
	return store, nil
}

// reportingPeriods anchors the period pair on the Assets fact, which
// every filer reports: the two most recent annual period ends become
// the current and prior columns.
func reportingPeriods(gaap edgar.FactNS) (current, prior string, anchor edgar.FactValue) {
	assets, ok := gaap["Assets"]
	if !ok {
		return "", "", edgar.FactValue{}
	}

	byEnd := map[string]edgar.FactValue{}
	for _, v := range annualValues(assets) {
		if prev, seen := byEnd[v.End]; !seen || v.Filed > prev.Filed {
			byEnd[v.End] = v
		}
	}
	ends := make([]string, 0, len(byEnd))
	for end := range byEnd {
		ends = append(ends, end)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ends)))

	if len(ends) == 0 {
		return "", "", edgar.FactValue{}
	}
	current = ends[0]
	if len(ends) > 1 {
		prior = ends[1]
	}
	return current, prior, byEnd[current]
}

func buildLines(gaap edgar.FactNS, rows []conceptRow, current, prior string) []Line {
	var lines []Line
	for _, row := range rows {
		line := Line{Label: row.label, IsTotal: row.isTotal}
		for _, tag := range row.tags {
			fact, ok := gaap[tag]
			if !ok {
				continue
			}
			for _, v := range annualValues(fact) {
				switch v.End {
				case current:
					if line.Current == nil {
						line.Current = ptr(v.Val)
					}
				case prior:
					if line.Prior == nil {
						line.Prior = ptr(v.Val)
					}
				}
			}
			if line.Current != nil || line.Prior != nil {
				break
			}
		}
		if line.Current == nil && line.Prior == nil {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// annualValues returns the USD data points reported in annual filings.
// Frame-tagged values are excluded: frames are standardized comparison
// windows, not the as-filed figures.
func annualValues(fact edgar.Fact) []edgar.FactValue {
	units := fact.Units["USD"]
	if len(units) == 0 && len(fact.Units) > 0 {
		// No USD unit (foreign filers, share counts). Fall back to the
		// alphabetically first unit so the choice is stable across runs.
		keys := make([]string, 0, len(fact.Units))
		for k := range fact.Units {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		units = fact.Units[keys[0]]
	}

	var out []edgar.FactValue
	for _, v := range units {
		if v.Frame != "" {
			continue
		}
		if v.Form != "10-K" && v.Form != "10-K/A" && v.Form != "20-F" {
			continue
		}
		if v.FP != "" && v.FP != "FY" {
			continue
		}
		out = append(out, v)
	}
	return out
}
