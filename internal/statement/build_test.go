package statement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/equity-research-cli/pkg/edgar"
)

func annual(end string, val float64, filed string) edgar.FactValue {
	return edgar.FactValue{End: end, Val: val, Form: "10-K", FP: "FY", Filed: filed, Accn: "0001-" + end}
}

func testFacts() *edgar.FilingData {
	return &edgar.FilingData{
		Ticker: "ACME",
		CIK:    1234,
		Facts: &edgar.CompanyFacts{
			CIK: 1234,
			Facts: map[string]edgar.FactNS{
				"us-gaap": {
					"Assets": edgar.Fact{Units: map[string][]edgar.FactValue{"USD": {
						annual("2023-12-31", 900, "2024-02-20"),
						annual("2024-12-31", 1000, "2025-02-18"),
						// Frame-tagged values are comparison windows, not filings.
						{End: "2024-12-31", Val: 999, Form: "10-K", FP: "FY", Frame: "CY2024Q4I"},
					}}},
					"AssetsCurrent": edgar.Fact{Units: map[string][]edgar.FactValue{"USD": {
						annual("2024-12-31", 400, "2025-02-18"),
						annual("2023-12-31", 350, "2024-02-20"),
					}}},
					"Liabilities": edgar.Fact{Units: map[string][]edgar.FactValue{"USD": {
						annual("2024-12-31", 600, "2025-02-18"),
					}}},
					"StockholdersEquity": edgar.Fact{Units: map[string][]edgar.FactValue{"USD": {
						annual("2024-12-31", 400, "2025-02-18"),
						annual("2023-12-31", 380, "2024-02-20"),
					}}},
					"Revenues": edgar.Fact{Units: map[string][]edgar.FactValue{"USD": {
						annual("2024-12-31", 2000, "2025-02-18"),
						annual("2023-12-31", 1800, "2024-02-20"),
						// Quarterly values must be ignored.
						{End: "2024-09-30", Val: 500, Form: "10-Q", FP: "Q3"},
					}}},
					"NetIncomeLoss": edgar.Fact{Units: map[string][]edgar.FactValue{"USD": {
						annual("2024-12-31", 150, "2025-02-18"),
					}}},
					"NetCashProvidedByUsedInOperatingActivities": edgar.Fact{Units: map[string][]edgar.FactValue{"USD": {
						annual("2024-12-31", 220, "2025-02-18"),
					}}},
				},
			},
		},
	}
}

func TestBuildSelectsTwoMostRecentAnnualPeriods(t *testing.T) {
	store, err := Build(testFacts())
	require.NoError(t, err)

	assert.Equal(t, "2024-12-31", store.CurrentPeriod)
	assert.Equal(t, "2023-12-31", store.PriorPeriod)
	assert.Equal(t, "10-K", store.FilingType)
	assert.Equal(t, "2025-02-18", store.FilingDate)
	assert.Equal(t, "0001-2024-12-31", store.Accession)
}

func TestBuildPreservesPresentationOrder(t *testing.T) {
	store, err := Build(testFacts())
	require.NoError(t, err)

	var labels []string
	for _, l := range store.BalanceSheet {
		labels = append(labels, l.Label)
	}
	assert.Equal(t, []string{
		"Total current assets",
		"Total assets",
		"Total liabilities",
		"Total stockholders' equity",
	}, labels)

	// Subtotal flags come from the presentation table.
	for _, l := range store.BalanceSheet {
		assert.True(t, l.IsTotal, l.Label)
	}
}

func TestBuildLineValues(t *testing.T) {
	store, err := Build(testFacts())
	require.NoError(t, err)

	assets := Find(store.BalanceSheet, PeriodCurrent, []string{"total assets"}, true)
	require.NotNil(t, assets)
	assert.Equal(t, 1000.0, *assets)

	priorAssets := Find(store.BalanceSheet, PeriodPrior, []string{"total assets"}, true)
	require.NotNil(t, priorAssets)
	assert.Equal(t, 900.0, *priorAssets)

	// Liabilities reported only for the current year.
	liab := Find(store.BalanceSheet, PeriodPrior, []string{"total liabilities"}, true)
	assert.Nil(t, liab)

	rev := Find(store.IncomeStatement, PeriodCurrent, []string{"total revenue"}, true)
	require.NotNil(t, rev)
	assert.Equal(t, 2000.0, *rev)

	ocf := Find(store.CashFlow, PeriodCurrent, []string{"operating activities"}, true)
	require.NotNil(t, ocf)
	assert.Equal(t, 220.0, *ocf)
}

func TestBuildNoData(t *testing.T) {
	_, err := Build(nil)
	assert.Error(t, err)

	_, err = Build(&edgar.FilingData{Facts: &edgar.CompanyFacts{Facts: map[string]edgar.FactNS{}}})
	assert.Error(t, err)
}

func TestBuildNoAnnualPeriods(t *testing.T) {
	data := &edgar.FilingData{
		Facts: &edgar.CompanyFacts{Facts: map[string]edgar.FactNS{
			"us-gaap": {
				"Assets": edgar.Fact{Units: map[string][]edgar.FactValue{"USD": {
					{End: "2024-09-30", Val: 100, Form: "10-Q", FP: "Q3"},
				}}},
			},
		}},
	}
	_, err := Build(data)
	assert.Error(t, err)
}

func TestAnnualValuesUnitFallbackIsDeterministic(t *testing.T) {
	fact := edgar.Fact{Units: map[string][]edgar.FactValue{
		"EUR": {annual("2024-12-31", 111, "2025-02-18")},
		"CAD": {annual("2024-12-31", 222, "2025-02-18")},
		"SEK": {annual("2024-12-31", 333, "2025-02-18")},
	}}

	// Alphabetically first unit wins on every call.
	for i := 0; i < 10; i++ {
		vs := annualValues(fact)
		require.Len(t, vs, 1)
		assert.Equal(t, 222.0, vs[0].Val)
	}
}

func TestAnnualValuesPrefersUSD(t *testing.T) {
	fact := edgar.Fact{Units: map[string][]edgar.FactValue{
		"EUR": {annual("2024-12-31", 111, "2025-02-18")},
		"USD": {annual("2024-12-31", 444, "2025-02-18")},
	}}

	vs := annualValues(fact)
	require.Len(t, vs, 1)
	assert.Equal(t, 444.0, vs[0].Val)
}
